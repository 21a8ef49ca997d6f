package api

import (
	"io"
	"net/http"

	"github.com/saiyamvora13/vesabooks/internal/pkg/httputil"
	"github.com/saiyamvora13/vesabooks/internal/pkg/logger"
)

// maxWebhookBody bounds inbound webhook payloads.
const maxWebhookBody = 1 << 20

// StripeWebhook receives payment events. The signature is verified
// synchronously; the event body is staged and applied by the worker, so
// the provider gets a fast 200 regardless of downstream latency.
func (h *Handlers) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if h.stripe == nil || h.stager == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "webhooks not configured")
		return
	}
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		httputil.BadRequest(w, "failed to read body")
		return
	}
	ev, err := h.stripe.VerifyWebhook(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		logger.Warn("stripe webhook rejected", "error", err)
		httputil.BadRequest(w, "invalid signature")
		return
	}
	if err := h.stager.Stage(r.Context(), "stripe", ev.Type, payload); err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]bool{"received": true})
}

// ProdigiWebhook receives fulfillment status callbacks.
func (h *Handlers) ProdigiWebhook(w http.ResponseWriter, r *http.Request) {
	if h.prodigi == nil || h.stager == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "webhooks not configured")
		return
	}
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		httputil.BadRequest(w, "failed to read body")
		return
	}
	ev, err := h.prodigi.VerifyCallback(payload, r.Header.Get("X-Prodigi-Signature"))
	if err != nil {
		logger.Warn("prodigi callback rejected", "error", err)
		httputil.BadRequest(w, "invalid signature")
		return
	}
	if err := h.stager.Stage(r.Context(), "prodigi", ev.Stage, payload); err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]bool{"received": true})
}
