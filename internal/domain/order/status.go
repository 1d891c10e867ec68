package order

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

// Status is the lifecycle state of an order.
type Status string

// The closed set of order statuses.
const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

var statuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
}

// transitions maps a current status to the statuses it may move to.
// Every status may be re-applied to itself.
var transitions = map[Status][]Status{
	StatusPending:    {StatusPending, StatusProcessing, StatusShipped, StatusCancelled},
	StatusProcessing: {StatusProcessing, StatusShipped, StatusCancelled},
	StatusShipped:    {StatusShipped, StatusDelivered},
	StatusDelivered:  {StatusDelivered},
	StatusCancelled:  {StatusCancelled},
}

var (
	// ErrNotFound is returned when an order does not exist or is not
	// visible to the caller.
	ErrNotFound = errors.New("order not found")
	// ErrConcurrentUpdate is returned when the order status changed between
	// reading it and writing the new one.
	ErrConcurrentUpdate = errors.New("order was modified concurrently, reload and retry")
)

// InvalidStatusError indicates a requested status outside the closed set.
type InvalidStatusError struct {
	Status string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid status %q: must be one of %s", e.Status, joinStatuses(statuses))
}

// IllegalTransitionError indicates a status change the transition table
// does not allow.
type IllegalTransitionError struct {
	From Status
	To   Status
}

func (e *IllegalTransitionError) Error() string {
	allowed := transitions[e.From]
	return fmt.Sprintf("cannot change order status from %s to %s: allowed %s",
		e.From, e.To, joinStatuses(allowed))
}

// Statuses returns the closed set of order statuses in lifecycle order.
func Statuses() []Status {
	out := make([]Status, len(statuses))
	copy(out, statuses)
	return out
}

// ParseStatus returns the Status matching s exactly.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", &InvalidStatusError{Status: s}
	}
	return st, nil
}

// Valid reports whether s belongs to the closed set.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo reports whether the transition table allows s → next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Next returns the statuses s may move to.
func (s Status) Next() []Status {
	out := make([]Status, len(transitions[s]))
	copy(out, transitions[s])
	return out
}

func joinStatuses(list []Status) string {
	parts := make([]string, len(list))
	for i, s := range list {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}
