package api

import (
	"context"

	"github.com/saiyamvora13/vesabooks/internal/config"
	"github.com/saiyamvora13/vesabooks/internal/printpdf"
	"github.com/saiyamvora13/vesabooks/internal/prodigi"
	"github.com/saiyamvora13/vesabooks/internal/service/cart"
	"github.com/saiyamvora13/vesabooks/internal/service/order"
	"github.com/saiyamvora13/vesabooks/internal/service/storybook"
	"github.com/saiyamvora13/vesabooks/internal/storage"
	"github.com/saiyamvora13/vesabooks/internal/stripepay"
)

// EventStager persists an inbound webhook event for asynchronous
// processing. Handlers verify signatures, stage the payload, and return
// 200 immediately; a worker applies the event later.
type EventStager interface {
	Stage(ctx context.Context, provider, eventType string, payload []byte) error
}

// Handlers contains all HTTP handlers and their dependencies.
type Handlers struct {
	storybooks *storybook.Service
	carts      *cart.Service
	orders     *order.Service
	stripe     *stripepay.Client
	prodigi    *prodigi.Client
	store      storage.Store
	stager     EventStager
	books      *printpdf.BookBuilder
	config     *config.Config
}

// NewHandlers creates a new Handlers instance. The PDF builder fetches
// page illustrations through the object store when the URL is a local
// path, and over HTTP otherwise.
func NewHandlers(books *storybook.Service, carts *cart.Service, orders *order.Service, store storage.Store, cfg *config.Config) *Handlers {
	h := &Handlers{
		storybooks: books,
		carts:      carts,
		orders:     orders,
		store:      store,
		config:     cfg,
	}
	h.books = printpdf.NewBookBuilder(storage.Fetcher(store))
	return h
}

// SetStripeClient sets the payment client used for webhook verification.
func (h *Handlers) SetStripeClient(c *stripepay.Client) { h.stripe = c }

// SetProdigiClient sets the fulfillment client used for callback verification.
func (h *Handlers) SetProdigiClient(c *prodigi.Client) { h.prodigi = c }

// SetEventStager sets the staging sink for verified webhook events.
func (h *Handlers) SetEventStager(s EventStager) { h.stager = s }
