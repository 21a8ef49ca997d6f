// Package worker runs the background side of the store: webhook event
// processing, print order submission, and the stuck-order sweep.
package worker

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/saiyamvora13/vesabooks/internal/pkg/logger"
	"github.com/saiyamvora13/vesabooks/internal/prodigi"
	"github.com/saiyamvora13/vesabooks/internal/service/order"
	"github.com/saiyamvora13/vesabooks/internal/stripepay"
)

// WebhookReceiver stages verified provider events into a table so the
// HTTP handler can return 200 immediately. Processing happens
// asynchronously in WebhookProcessor.
type WebhookReceiver struct {
	db         *sql.DB
	insertStmt *sql.Stmt

	eventsStaged int64
}

// NewWebhookReceiver creates a receiver with a prepared insert.
func NewWebhookReceiver(db *sql.DB) (*WebhookReceiver, error) {
	stmt, err := db.Prepare(`
		INSERT INTO webhook_events (provider, event_type, payload, received_at)
		VALUES ($1, $2, $3, $4)
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare webhook insert: %w", err)
	}
	return &WebhookReceiver{db: db, insertStmt: stmt}, nil
}

// Stage persists one verified webhook event for later processing.
func (r *WebhookReceiver) Stage(ctx context.Context, provider, eventType string, payload []byte) error {
	if _, err := r.insertStmt.ExecContext(ctx, provider, eventType, payload, time.Now()); err != nil {
		return fmt.Errorf("stage webhook event: %w", err)
	}
	atomic.AddInt64(&r.eventsStaged, 1)
	return nil
}

// Staged returns how many events this receiver has staged.
func (r *WebhookReceiver) Staged() int64 {
	return atomic.LoadInt64(&r.eventsStaged)
}

// Close releases the prepared statement.
func (r *WebhookReceiver) Close() error {
	return r.insertStmt.Close()
}

// WebhookProcessor drains staged events and applies them to orders.
// Events that fail keep their error recorded and are not retried
// automatically; re-processing is an operator action.
type WebhookProcessor struct {
	db       *sql.DB
	orders   *order.Service
	interval time.Duration

	processed int64
	failed    int64
}

// NewWebhookProcessor creates a processor polling at the given interval.
func NewWebhookProcessor(db *sql.DB, orders *order.Service, interval time.Duration) *WebhookProcessor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &WebhookProcessor{db: db, orders: orders, interval: interval}
}

// Run polls for unprocessed events until the context is cancelled.
func (p *WebhookProcessor) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	logger.Info("webhook processor started", "interval", p.interval.String())

	for {
		select {
		case <-ctx.Done():
			logger.Info("webhook processor stopped",
				"processed", atomic.LoadInt64(&p.processed),
				"failed", atomic.LoadInt64(&p.failed))
			return
		case <-ticker.C:
			if n, err := p.ProcessBatch(ctx); err != nil {
				logger.Error("webhook batch failed", "error", err)
			} else if n > 0 {
				logger.Debug("webhook batch processed", "events", n)
			}
		}
	}
}

type stagedEvent struct {
	ID        int64
	Provider  string
	EventType string
	Payload   []byte
}

// ProcessBatch applies up to 100 staged events and marks each row
// processed, recording the error text for failures.
func (p *WebhookProcessor) ProcessBatch(ctx context.Context) (int, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, provider, event_type, payload
		FROM webhook_events
		WHERE processed_at IS NULL
		ORDER BY id
		LIMIT 100
	`)
	if err != nil {
		return 0, fmt.Errorf("list staged events: %w", err)
	}
	var events []stagedEvent
	for rows.Next() {
		var ev stagedEvent
		if err := rows.Scan(&ev.ID, &ev.Provider, &ev.EventType, &ev.Payload); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan staged event: %w", err)
		}
		events = append(events, ev)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, ev := range events {
		applyErr := p.apply(ctx, ev)
		errText := ""
		if applyErr != nil {
			errText = applyErr.Error()
			atomic.AddInt64(&p.failed, 1)
			logger.Warn("webhook event failed",
				"id", ev.ID, "provider", ev.Provider, "type", ev.EventType, "error", applyErr)
		} else {
			atomic.AddInt64(&p.processed, 1)
		}
		if _, err := p.db.ExecContext(ctx, `
			UPDATE webhook_events SET processed_at = $1, error = NULLIF($2, '') WHERE id = $3
		`, time.Now(), errText, ev.ID); err != nil {
			return 1, fmt.Errorf("mark event processed: %w", err)
		}
	}
	return len(events), nil
}

func (p *WebhookProcessor) apply(ctx context.Context, ev stagedEvent) error {
	switch ev.Provider {
	case "stripe":
		return p.applyStripe(ctx, ev)
	case "prodigi":
		return p.applyProdigi(ctx, ev)
	}
	return fmt.Errorf("unknown provider %q", ev.Provider)
}

func (p *WebhookProcessor) applyStripe(ctx context.Context, ev stagedEvent) error {
	var event stripepay.Event
	if err := json.Unmarshal(ev.Payload, &event); err != nil {
		return fmt.Errorf("parse stripe event: %w", err)
	}
	pi := event.Data.Object
	switch event.Type {
	case "payment_intent.succeeded":
		return p.orders.ConfirmPayment(ctx, pi.ID, pi.Metadata["email"])
	case "payment_intent.payment_failed", "payment_intent.canceled":
		return p.orders.FailPayment(ctx, pi.ID)
	}
	// Other event types are subscribed but carry nothing actionable.
	return nil
}

func (p *WebhookProcessor) applyProdigi(ctx context.Context, ev stagedEvent) error {
	var event prodigi.CallbackEvent
	if err := json.Unmarshal(ev.Payload, &event); err != nil {
		return fmt.Errorf("parse prodigi event: %w", err)
	}
	switch event.Stage {
	case prodigi.StageShipmentSent:
		return p.orders.MarkShipped(ctx, order.ShipmentUpdate{
			ProviderOrderID: event.OrderID,
			TrackingNumber:  event.Shipment.TrackingNumber,
			TrackingURL:     event.Shipment.TrackingURL,
			Carrier:         event.Shipment.Carrier,
		})
	case prodigi.StageComplete:
		return p.orders.MarkDelivered(ctx, event.OrderID)
	case prodigi.StageCancelled:
		return p.orders.CancelByProvider(ctx, event.OrderID, "cancelled by fulfillment partner")
	}
	return nil
}
