package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/saiyamvora13/vesabooks/internal/domain"
	"github.com/saiyamvora13/vesabooks/internal/pkg/logger"
	"github.com/saiyamvora13/vesabooks/internal/printpdf"
	"github.com/saiyamvora13/vesabooks/internal/prodigi"
	"github.com/saiyamvora13/vesabooks/internal/service/order"
	"github.com/saiyamvora13/vesabooks/internal/storage"
)

// BookLoader loads a storybook with its pages for rendering.
type BookLoader interface {
	Load(ctx context.Context, id string) (*domain.Storybook, error)
}

// Fulfiller places orders with the print partner.
type Fulfiller interface {
	CreateOrder(ctx context.Context, req prodigi.OrderRequest) (string, error)
}

// PrintOrderSubmitter turns paid print orders into partner orders:
// render the book to a print-ready PDF, upload it, hand the partner a
// signed URL, and advance the order to in_progress. A failed submission
// leaves the order pending so the next tick retries it.
type PrintOrderSubmitter struct {
	orders    *order.Service
	books     BookLoader
	builder   *printpdf.BookBuilder
	store     storage.Store
	fulfiller Fulfiller
	interval  time.Duration
}

// NewPrintOrderSubmitter creates a submitter polling at the given interval.
func NewPrintOrderSubmitter(orders *order.Service, books BookLoader, builder *printpdf.BookBuilder, store storage.Store, fulfiller Fulfiller, interval time.Duration) *PrintOrderSubmitter {
	if interval <= 0 {
		interval = time.Minute
	}
	return &PrintOrderSubmitter{
		orders:    orders,
		books:     books,
		builder:   builder,
		store:     store,
		fulfiller: fulfiller,
		interval:  interval,
	}
}

// Run submits pending orders until the context is cancelled.
func (s *PrintOrderSubmitter) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	logger.Info("print order submitter started", "interval", s.interval.String())

	for {
		select {
		case <-ctx.Done():
			logger.Info("print order submitter stopped")
			return
		case <-ticker.C:
			if n, err := s.SubmitPending(ctx); err != nil {
				logger.Error("submit pass failed", "error", err)
			} else if n > 0 {
				logger.Info("print orders submitted", "count", n)
			}
		}
	}
}

// SubmitPending submits every order waiting for fulfillment. Per-order
// failures are logged and skipped; the order stays pending.
func (s *PrintOrderSubmitter) SubmitPending(ctx context.Context) (int, error) {
	pending, err := s.orders.PendingSubmission(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending orders: %w", err)
	}
	submitted := 0
	for i := range pending {
		o := &pending[i]
		if err := s.submit(ctx, o); err != nil {
			logger.Warn("print order submission failed",
				"print_order_id", o.ID, "order_reference", o.OrderReference, "error", err)
			continue
		}
		submitted++
	}
	return submitted, nil
}

func (s *PrintOrderSubmitter) submit(ctx context.Context, o *domain.PrintOrder) error {
	book, err := s.books.Load(ctx, o.StorybookID)
	if err != nil {
		return fmt.Errorf("load storybook: %w", err)
	}

	result, err := s.builder.Build(ctx, book, o.BookSize)
	if err != nil {
		return fmt.Errorf("render book pdf: %w", err)
	}
	if len(result.FailedImages) > 0 {
		logger.Warn("book rendered with missing illustrations",
			"print_order_id", o.ID, "missing", len(result.FailedImages))
	}

	key := fmt.Sprintf("print/%s.pdf", o.ID)
	if _, err := s.store.Put(ctx, key, result.PDF, "application/pdf"); err != nil {
		return fmt.Errorf("upload book pdf: %w", err)
	}
	pdfURL, err := s.store.SignedURL(ctx, key)
	if err != nil {
		return fmt.Errorf("sign pdf url: %w", err)
	}

	providerID, err := s.fulfiller.CreateOrder(ctx, prodigi.NewOrderRequest(o, pdfURL))
	if err != nil {
		return fmt.Errorf("create partner order: %w", err)
	}
	return s.orders.MarkSubmitted(ctx, o.ID, providerID)
}
