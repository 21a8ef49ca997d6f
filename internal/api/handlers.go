package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/saiyamvora13/vesabooks/internal/pkg/httputil"
	"github.com/saiyamvora13/vesabooks/internal/service/cart"
	"github.com/saiyamvora13/vesabooks/internal/service/order"
	"github.com/saiyamvora13/vesabooks/internal/service/storybook"
)

// HealthCheck returns basic liveness info.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// serviceError maps service-layer sentinel errors to HTTP responses.
// Anything unrecognized becomes a 500 with the detail logged, not leaked.
func serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storybook.ErrNotFound),
		errors.Is(err, cart.ErrNotFound),
		errors.Is(err, cart.ErrBookNotFound),
		errors.Is(err, order.ErrNotFound):
		httputil.NotFound(w, err.Error())
	case errors.Is(err, storybook.ErrForbidden):
		httputil.Forbidden(w, err.Error())
	case errors.Is(err, order.ErrDuplicate):
		httputil.Conflict(w, err.Error())
	case errors.Is(err, order.ErrInvalidTransition):
		httputil.Conflict(w, err.Error())
	default:
		httputil.InternalError(w, err)
	}
}

// pageParams reads limit/offset query parameters with bounds.
func pageParams(r *http.Request, defaultLimit, maxLimit int) (limit, offset int) {
	limit = defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// pagedResponse is the standard list envelope.
type pagedResponse struct {
	Items  interface{} `json:"items"`
	Total  int         `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}
