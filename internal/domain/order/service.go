package order

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/seoulglow/kbeauty-store/internal/domain/auth"
	"github.com/seoulglow/kbeauty-store/internal/domain/notify"
)

// Notifier sends customer notifications about order status changes.
// Delivery problems are reported in the Result, never as an error.
type Notifier interface {
	OrderStatusChanged(ctx context.Context, n notify.Notice) notify.Result
}

// Revalidator marks cached views stale so the next read recomputes them.
type Revalidator interface {
	Revalidate(ctx context.Context, paths ...string) error
}

// ServiceConfig holds order service options.
type ServiceConfig struct {
	// EnforceTransitions rejects status changes the transition table does
	// not allow. When false any status in the closed set is accepted.
	EnforceTransitions bool
	ImageBaseURL       string
	TracerProvider     trace.TracerProvider
}

// UpdateResult holds the output of a status update.
type UpdateResult struct {
	Order        View          `json:"order"`
	Notification notify.Result `json:"notification"`
}

// Service encapsulates order status management and order reads.
type Service struct {
	orders   Repository
	notifier Notifier
	views    Revalidator
	cfg      ServiceConfig
	tracer   trace.Tracer
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	orders Repository,
	notifier Notifier,
	views Revalidator,
	cfg ServiceConfig,
) *Service {
	tp := cfg.TracerProvider
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	return &Service{
		orders:   orders,
		notifier: notifier,
		views:    views,
		cfg:      cfg,
		tracer:   tp.Tracer("github.com/seoulglow/kbeauty-store/internal/domain/order"),
	}
}

// UpdateStatus moves an order to a new status, notifies the customer and
// marks the affected views stale. Only administrators may call it.
//
// The status write and the notification are independent: a failed send
// leaves the new status in place and is reported in UpdateResult.Notification.
func (s *Service) UpdateStatus(ctx context.Context, sess auth.Session, orderID, status string) (_ *UpdateResult, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.UpdateStatus",
		trace.WithAttributes(
			attribute.String("order.id", orderID),
			attribute.String("order.status", status),
		),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	if err := sess.RequireAdmin(); err != nil {
		return nil, err
	}
	next, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}

	current, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}
	if s.cfg.EnforceTransitions && !current.Status.CanTransitionTo(next) {
		return nil, &IllegalTransitionError{From: current.Status, To: next}
	}

	updatedAt, err := s.orders.UpdateStatus(ctx, orderID, current.Status, next)
	if err != nil {
		return nil, errors.Wrap(err, "update order status")
	}

	lg := zctx.From(ctx).With(
		zap.String("order_id", orderID),
		zap.String("from", string(current.Status)),
		zap.String("to", string(next)),
	)
	lg.Info("Order status updated", zap.String("admin_id", sess.UserID))

	// From here on the update is committed: nothing below fails the call.
	if err := s.views.Revalidate(ctx, ViewPaths(orderID)...); err != nil {
		lg.Warn("Revalidate order views", zap.Error(err))
	}

	updated, err := s.orders.Get(ctx, orderID)
	if err != nil {
		lg.Warn("Reload updated order, using pre-update read", zap.Error(err))
		updated = current
		updated.Status = next
		updated.UpdatedAt = updatedAt
	}

	result := s.notifier.OrderStatusChanged(ctx, newNotice(updated))
	span.SetAttributes(attribute.String("notification.outcome", string(result.Outcome)))

	return &UpdateResult{
		Order:        NewView(updated, s.cfg.ImageBaseURL),
		Notification: result,
	}, nil
}

// Get returns the single-order projection. Customers can only see their
// own orders; anyone else's is reported as ErrNotFound.
func (s *Service) Get(ctx context.Context, sess auth.Session, id string) (*View, error) {
	if sess.IsZero() {
		return nil, auth.ErrUnauthenticated
	}
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}
	if !sess.IsAdmin() && o.UserID != sess.UserID {
		return nil, ErrNotFound
	}
	v := NewView(o, s.cfg.ImageBaseURL)
	return &v, nil
}

// List returns order list projections, newest first. Administrators see
// every order, customers only their own.
func (s *Service) List(ctx context.Context, sess auth.Session) ([]ListView, error) {
	if sess.IsZero() {
		return nil, auth.ErrUnauthenticated
	}
	var filter ListFilter
	if !sess.IsAdmin() {
		filter.UserID = sess.UserID
	}
	orders, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return NewListView(orders, s.cfg.ImageBaseURL), nil
}

// ViewPaths returns the view paths that show the given order.
func ViewPaths(orderID string) []string {
	return []string{
		fmt.Sprintf("/admin/orders/%s", orderID),
		"/admin/orders",
		fmt.Sprintf("/account/orders/%s", orderID),
		"/account/orders",
	}
}

func newNotice(o *Order) notify.Notice {
	n := notify.Notice{
		OrderID: o.ID,
		Status:  string(o.Status),
	}
	if o.User != nil {
		n.CustomerName = o.User.Name
		n.Email = o.User.Email
	}
	return n
}
