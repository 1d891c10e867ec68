package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/seoulglow/kbeauty-store/internal/domain/auth"
	"github.com/seoulglow/kbeauty-store/internal/domain/order"
	"github.com/seoulglow/kbeauty-store/internal/domain/product"
)

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) int {
	var (
		invalidStatus *order.InvalidStatusError
		illegal       *order.IllegalTransitionError
	)
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden
	case errors.As(err, &invalidStatus):
		return http.StatusBadRequest
	case errors.Is(err, order.ErrNotFound), errors.Is(err, product.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &illegal), errors.Is(err, order.ErrConcurrentUpdate):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with the domain error message. Server-side failures
// are logged and hidden behind a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		writeMessage(w, r, status, "internal server error")
		return
	}
	writeMessage(w, r, status, message(err))
}

// message strips wrapping context so the caller sees the domain message.
func message(err error) string {
	var (
		invalidStatus *order.InvalidStatusError
		illegal       *order.IllegalTransitionError
	)
	switch {
	case errors.As(err, &invalidStatus):
		return invalidStatus.Error()
	case errors.As(err, &illegal):
		return illegal.Error()
	}
	for _, sentinel := range []error{
		auth.ErrUnauthenticated,
		auth.ErrForbidden,
		order.ErrNotFound,
		order.ErrConcurrentUpdate,
		product.ErrNotFound,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}
