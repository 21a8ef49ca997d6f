package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/saiyamvora13/vesabooks/internal/domain"
	"github.com/saiyamvora13/vesabooks/internal/pkg/httputil"
	"github.com/saiyamvora13/vesabooks/internal/pkg/logger"
	"github.com/saiyamvora13/vesabooks/internal/service/order"
)

// AdminListPrintOrders returns print orders across all users, filterable
// by status and user.
func (h *Handlers) AdminListPrintOrders(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r, 50, 200)
	f := order.PrintOrderFilter{
		UserID: r.URL.Query().Get("user_id"),
		Status: domain.PrintOrderStatus(r.URL.Query().Get("status")),
		Limit:  limit,
		Offset: offset,
	}
	orders, total, err := h.orders.PrintOrders(r.Context(), f)
	if err != nil {
		serviceError(w, err)
		return
	}
	httputil.OK(w, pagedResponse{Items: orders, Total: total, Limit: limit, Offset: offset})
}

// AdminGetPrintOrder returns any print order by ID. Once the order has been
// submitted, the partner's live fulfillment stage is included; a partner
// lookup failure is logged and the field omitted, never a hard error.
func (h *Handlers) AdminGetPrintOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.PrintOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		serviceError(w, err)
		return
	}
	resp := struct {
		*domain.PrintOrder
		FulfillmentStage string `json:"fulfillment_stage,omitempty"`
	}{PrintOrder: o}
	if h.prodigi != nil && o.ProviderOrderID != "" {
		po, err := h.prodigi.GetOrder(r.Context(), o.ProviderOrderID)
		if err != nil {
			logger.Warn("fulfillment status lookup failed",
				"print_order_id", o.ID, "provider_order_id", o.ProviderOrderID, "error", err.Error())
		} else {
			resp.FulfillmentStage = po.Status.Stage
		}
	}
	httputil.OK(w, resp)
}

// AdminTransitionPrintOrder moves a print order along the state machine.
// Disallowed transitions return 409.
func (h *Handlers) AdminTransitionPrintOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status domain.PrintOrderStatus `json:"status"`
		Reason string                  `json:"reason"`
	}
	if !httputil.Decode(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	admin := userID(r.Context())

	if err := h.orders.Transition(r.Context(), id, req.Status, req.Reason, admin); err != nil {
		serviceError(w, err)
		return
	}
	h.orders.RecordAdminAction(r.Context(), admin, "print_order.transition", id,
		fmt.Sprintf("to=%s reason=%s", req.Status, req.Reason))
	httputil.OK(w, map[string]string{"status": string(req.Status)})
}

// AdminCancelPrintOrder cancels an order and refunds the payment.
func (h *Handlers) AdminCancelPrintOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if !httputil.Decode(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	admin := userID(r.Context())

	if err := h.orders.Cancel(r.Context(), id, req.Reason, admin); err != nil {
		serviceError(w, err)
		return
	}
	h.orders.RecordAdminAction(r.Context(), admin, "print_order.cancel", id, req.Reason)
	httputil.OK(w, map[string]string{"status": string(domain.PrintOrderCancelled)})
}

// AdminAddOrderNote attaches a note to a print order.
func (h *Handlers) AdminAddOrderNote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Body string `json:"body"`
	}
	if !httputil.Decode(w, r, &req) {
		return
	}
	note, err := h.orders.AddNote(r.Context(), chi.URLParam(r, "id"), userID(r.Context()), req.Body)
	if err != nil {
		serviceError(w, err)
		return
	}
	httputil.Created(w, note)
}

// AdminListOrderNotes lists notes on a print order, newest first.
func (h *Handlers) AdminListOrderNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.orders.Notes(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		serviceError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"items": notes})
}

// AdminGetOrderHistory returns the full status trail for any order.
func (h *Handlers) AdminGetOrderHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.orders.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		serviceError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"items": history})
}
