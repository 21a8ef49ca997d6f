package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/saiyamvora13/vesabooks/internal/pkg/httputil"
	"github.com/saiyamvora13/vesabooks/internal/service/cart"
)

// GetCart returns the caller's cart with computed totals.
func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	summary, err := h.carts.Get(r.Context(), userID(r.Context()))
	if err != nil {
		serviceError(w, err)
		return
	}
	httputil.OK(w, summary)
}

// AddCartItem adds a product to the cart. Re-adding the same
// {storybook, product type, size} merges into the existing line.
func (h *Handlers) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req cart.AddRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	item, err := h.carts.Add(r.Context(), userID(r.Context()), req)
	if err != nil {
		serviceError(w, err)
		return
	}
	httputil.Created(w, item)
}

// UpdateCartItem sets a line's quantity; zero or less removes the line.
func (h *Handlers) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if !httputil.Decode(w, r, &req) {
		return
	}
	if err := h.carts.SetQuantity(r.Context(), userID(r.Context()), chi.URLParam(r, "id"), req.Quantity); err != nil {
		serviceError(w, err)
		return
	}
	httputil.OK(w, map[string]int{"quantity": req.Quantity})
}

// RemoveCartItem deletes one line from the cart.
func (h *Handlers) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Remove(r.Context(), userID(r.Context()), chi.URLParam(r, "id")); err != nil {
		serviceError(w, err)
		return
	}
	httputil.NoContent(w)
}

// ClearCart empties the caller's cart.
func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Clear(r.Context(), userID(r.Context())); err != nil {
		serviceError(w, err)
		return
	}
	httputil.NoContent(w)
}
