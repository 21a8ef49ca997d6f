package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/saiyamvora13/vesabooks/internal/domain"
	"github.com/saiyamvora13/vesabooks/internal/pkg/httputil"
	"github.com/saiyamvora13/vesabooks/internal/pkg/logger"
	"github.com/saiyamvora13/vesabooks/internal/printpdf"
	"github.com/saiyamvora13/vesabooks/internal/service/order"
)

// Checkout opens a payment for the caller's cart. The cart is cleared
// once the payment intent and pending purchases are recorded; the client
// completes payment with the returned client secret.
func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	var req order.CheckoutRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	uid := userID(r.Context())

	items, err := h.carts.ItemsForCheckout(r.Context(), uid)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	summary, err := h.carts.Get(r.Context(), uid)
	if err != nil {
		serviceError(w, err)
		return
	}

	result, err := h.orders.Checkout(r.Context(), uid, req, items, summary.TotalCents)
	if err != nil {
		serviceError(w, err)
		return
	}
	if err := h.carts.Clear(r.Context(), uid); err != nil {
		logger.Warn("cart clear after checkout failed", "user_id", uid, "error", err)
	}
	httputil.Created(w, result)
}

// ListPurchases returns the caller's purchases, newest first.
func (h *Handlers) ListPurchases(w http.ResponseWriter, r *http.Request) {
	purchases, err := h.orders.Purchases(r.Context(), userID(r.Context()))
	if err != nil {
		serviceError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"items": purchases})
}

// GetPurchase returns one of the caller's purchases.
func (h *Handlers) GetPurchase(w http.ResponseWriter, r *http.Request) {
	p, err := h.orders.PurchaseForUser(r.Context(), userID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		serviceError(w, err)
		return
	}
	httputil.OK(w, p)
}

// DownloadPurchase renders the purchased storybook as a PDF. Only
// completed digital purchases are downloadable.
func (h *Handlers) DownloadPurchase(w http.ResponseWriter, r *http.Request) {
	p, err := h.orders.PurchaseForUser(r.Context(), userID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		serviceError(w, err)
		return
	}
	if p.Type != domain.ProductDigital {
		httputil.BadRequest(w, "only digital purchases are downloadable")
		return
	}
	if p.Status != domain.PurchaseCompleted {
		httputil.Forbidden(w, "purchase is not completed")
		return
	}
	book, err := h.storybooks.Load(r.Context(), p.StorybookID)
	if err != nil {
		serviceError(w, err)
		return
	}
	result, err := h.books.Build(r.Context(), book, domain.BookSize6x9)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.PDF(w, fmt.Sprintf("%s.pdf", p.OrderReference), result.PDF)
}

// DownloadInvoice renders an invoice PDF covering every purchase the
// caller made under one order reference.
func (h *Handlers) DownloadInvoice(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	uid := userID(r.Context())

	purchases, err := h.orders.Purchases(r.Context(), uid)
	if err != nil {
		serviceError(w, err)
		return
	}

	inv := &printpdf.Invoice{
		OrderReference: ref,
		IssuedAt:       time.Now(),
	}
	hasPrint := false
	for _, p := range purchases {
		if p.OrderReference != ref {
			continue
		}
		title := "Storybook"
		if book, err := h.storybooks.Load(r.Context(), p.StorybookID); err == nil {
			title = book.Title
		}
		desc := fmt.Sprintf("%s (digital)", title)
		if p.Type == domain.ProductPrint {
			desc = fmt.Sprintf("%s (print, %s)", title, p.BookSize)
			hasPrint = true
		}
		inv.Lines = append(inv.Lines, printpdf.InvoiceLine{
			Description: desc,
			Quantity:    p.Quantity,
			UnitCents:   p.PriceCents,
			TotalCents:  p.PriceCents * int64(p.Quantity),
		})
		inv.SubtotalCents += p.PriceCents * int64(p.Quantity)
		inv.Currency = p.Currency
		inv.IssuedAt = p.CreatedAt
	}
	if len(inv.Lines) == 0 {
		httputil.NotFound(w, "order not found")
		return
	}
	if hasPrint {
		inv.ShippingCents = h.config.Pricing.ShippingCents
	}
	inv.TotalCents = inv.SubtotalCents + inv.ShippingCents + inv.TaxCents

	data, err := printpdf.RenderInvoice(inv)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.PDF(w, fmt.Sprintf("invoice-%s.pdf", ref), data)
}

// ListPrintOrders returns the caller's print orders, paginated.
func (h *Handlers) ListPrintOrders(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r, 20, 100)
	orders, total, err := h.orders.PrintOrders(r.Context(), order.PrintOrderFilter{
		UserID: userID(r.Context()),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		serviceError(w, err)
		return
	}
	httputil.OK(w, pagedResponse{Items: orders, Total: total, Limit: limit, Offset: offset})
}

// GetPrintOrder returns one of the caller's print orders.
func (h *Handlers) GetPrintOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.PrintOrderForUser(r.Context(), userID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		serviceError(w, err)
		return
	}
	httputil.OK(w, o)
}

// GetPrintOrderHistory returns the status trail of a print order the
// caller owns.
func (h *Handlers) GetPrintOrderHistory(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.PrintOrderForUser(r.Context(), userID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		serviceError(w, err)
		return
	}
	history, err := h.orders.History(r.Context(), o.ID)
	if err != nil {
		serviceError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"items": history})
}
