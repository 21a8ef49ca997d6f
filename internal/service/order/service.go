package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/saiyamvora13/vesabooks/internal/domain"
	"github.com/saiyamvora13/vesabooks/internal/orderref"
	"github.com/saiyamvora13/vesabooks/internal/pkg/logger"
)

// refAttempts bounds the collision retry when allocating an order reference.
const refAttempts = 5

// Actor names recorded in the status history for system-driven transitions.
const (
	actorSystem  = "system"
	actorSweeper = "stuck-order-sweeper"
	actorWebhook = "fulfillment-webhook"
)

// Service implements order business logic. Safe for concurrent use.
type Service struct {
	repo Repository
	pay  Payments
	mail Mailer
}

// NewService creates an order service. mail may be nil; confirmation email is
// then skipped.
func NewService(repo Repository, pay Payments, mail Mailer) *Service {
	return &Service{repo: repo, pay: pay, mail: mail}
}

// ShippingAddress is the destination for print items.
type ShippingAddress struct {
	Name    string `json:"name"`
	Line1   string `json:"line1"`
	Line2   string `json:"line2"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

func (a ShippingAddress) validate() error {
	if strings.TrimSpace(a.Name) == "" || strings.TrimSpace(a.Line1) == "" ||
		strings.TrimSpace(a.City) == "" || strings.TrimSpace(a.Zip) == "" ||
		strings.TrimSpace(a.Country) == "" {
		return fmt.Errorf("shipping name, line1, city, zip and country are required")
	}
	return nil
}

// CheckoutRequest carries everything needed to open a payment.
type CheckoutRequest struct {
	Email    string          `json:"email"`
	Currency string          `json:"currency"`
	Shipping ShippingAddress `json:"shipping"`
}

// CheckoutResult is returned to the client to complete payment.
type CheckoutResult struct {
	OrderReference  string `json:"order_reference"`
	PaymentIntentID string `json:"payment_intent_id"`
	ClientSecret    string `json:"client_secret"`
	TotalCents      int64  `json:"total_cents"`
	Currency        string `json:"currency"`
}

// Checkout opens a payment intent for the given cart lines and records a
// pending purchase per line. Print lines additionally get a print order in
// "creating"; it advances to "pending" only when the payment settles. All
// lines share one order reference, allocated with a collision retry.
func (s *Service) Checkout(ctx context.Context, userID string, req CheckoutRequest, items []domain.CartItem, totalCents int64) (*CheckoutResult, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("cart is empty")
	}
	if strings.TrimSpace(req.Email) == "" {
		return nil, fmt.Errorf("email is required")
	}
	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = "usd"
	}
	hasPrint := false
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if it.ProductType == domain.ProductPrint {
			hasPrint = true
		}
		// Purchases are keyed {payment_intent, storybook, type}, so two
		// lines for the same book and product type cannot both settle.
		// Reject the cart before any money is involved.
		key := it.StorybookID + "/" + string(it.ProductType)
		if seen[key] {
			return nil, fmt.Errorf("%w: storybook %s appears in more than one %s line; keep one size per book",
				ErrDuplicate, it.StorybookID, it.ProductType)
		}
		seen[key] = true
	}
	if hasPrint {
		if err := req.Shipping.validate(); err != nil {
			return nil, err
		}
	}

	ref, err := s.newOrderReference(ctx)
	if err != nil {
		return nil, err
	}

	intentID, clientSecret, err := s.pay.CreateIntent(ctx, totalCents, currency, map[string]string{
		"order_reference": ref,
		"user_id":         userID,
		"email":           req.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	purchases := make([]*domain.Purchase, 0, len(items))
	var printOrders []*domain.PrintOrder
	for _, it := range items {
		p := &domain.Purchase{
			ID:              uuid.New().String(),
			UserID:          userID,
			StorybookID:     it.StorybookID,
			Type:            it.ProductType,
			BookSize:        it.BookSize,
			Quantity:        it.Quantity,
			PriceCents:      it.PriceCents,
			Currency:        currency,
			Status:          domain.PurchasePending,
			PaymentIntentID: intentID,
			OrderReference:  ref,
			CustomerEmail:   req.Email,
		}
		purchases = append(purchases, p)
		if it.ProductType != domain.ProductPrint {
			continue
		}
		printOrders = append(printOrders, &domain.PrintOrder{
			PurchaseID:      p.ID,
			UserID:          userID,
			StorybookID:     it.StorybookID,
			OrderReference:  ref,
			Status:          domain.PrintOrderCreating,
			BookSize:        it.BookSize,
			Quantity:        it.Quantity,
			ShippingName:    req.Shipping.Name,
			ShippingLine1:   req.Shipping.Line1,
			ShippingLine2:   req.Shipping.Line2,
			ShippingCity:    req.Shipping.City,
			ShippingState:   req.Shipping.State,
			ShippingZip:     req.Shipping.Zip,
			ShippingCountry: req.Shipping.Country,
		})
	}

	if err := s.repo.CreateCheckout(ctx, purchases, printOrders); err != nil {
		// Nothing was persisted; close the intent so the customer cannot
		// pay for an order that does not exist.
		if cancelErr := s.pay.CancelIntent(ctx, intentID); cancelErr != nil {
			logger.Error("cancel intent after failed checkout",
				"payment_intent", intentID, "error", cancelErr.Error())
		}
		return nil, fmt.Errorf("record checkout: %w", err)
	}

	logger.Info("checkout opened",
		"order_reference", ref, "payment_intent", intentID,
		"items", len(items), "total_cents", totalCents)

	return &CheckoutResult{
		OrderReference:  ref,
		PaymentIntentID: intentID,
		ClientSecret:    clientSecret,
		TotalCents:      totalCents,
		Currency:        currency,
	}, nil
}

// newOrderReference allocates a reference not yet present in the purchases
// table. Collisions are vanishingly rare but retried anyway.
func (s *Service) newOrderReference(ctx context.Context) (string, error) {
	for i := 0; i < refAttempts; i++ {
		ref, err := orderref.New()
		if err != nil {
			return "", fmt.Errorf("generate order reference: %w", err)
		}
		exists, err := s.repo.OrderReferenceExists(ctx, ref)
		if err != nil {
			return "", fmt.Errorf("check order reference: %w", err)
		}
		if !exists {
			return ref, nil
		}
	}
	return "", fmt.Errorf("could not allocate a unique order reference after %d attempts", refAttempts)
}

// ConfirmPayment settles every purchase under a payment intent: purchases
// move to completed, their print orders advance from creating to pending, and
// the customer gets a confirmation email. Called from the payment webhook.
func (s *Service) ConfirmPayment(ctx context.Context, paymentIntentID, customerEmail string) error {
	purchases, err := s.repo.ListPurchasesByIntent(ctx, paymentIntentID)
	if err != nil {
		return fmt.Errorf("list purchases for intent: %w", err)
	}
	if len(purchases) == 0 {
		return ErrNotFound
	}

	var total int64
	for _, p := range purchases {
		if p.Status != domain.PurchasePending {
			// Webhooks can be delivered more than once.
			continue
		}
		if err := s.repo.SetPurchaseStatus(ctx, p.ID, domain.PurchaseCompleted); err != nil {
			return fmt.Errorf("complete purchase %s: %w", p.ID, err)
		}
		total += p.PriceCents * int64(p.Quantity)

		if p.Type != domain.ProductPrint {
			continue
		}
		o, err := s.repo.GetPrintOrderByPurchase(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("load print order for purchase %s: %w", p.ID, err)
		}
		if err := s.repo.Transition(ctx, o.ID, domain.PrintOrderCreating, domain.PrintOrderPending, "payment settled", actorSystem); err != nil {
			return fmt.Errorf("advance order %s: %w", o.ID, err)
		}
	}

	if s.mail != nil && customerEmail != "" && total > 0 {
		ref := purchases[0].OrderReference
		if err := s.mail.SendOrderConfirmation(ctx, customerEmail, ref, total, purchases[0].Currency); err != nil {
			// Mail failure must not fail settlement.
			logger.Error("send order confirmation", "order_reference", ref, "error", err.Error())
		}
	}
	return nil
}

// FailPayment marks every purchase under an intent failed and cancels any
// print orders still in creating. No refund is issued; nothing was captured.
func (s *Service) FailPayment(ctx context.Context, paymentIntentID string) error {
	purchases, err := s.repo.ListPurchasesByIntent(ctx, paymentIntentID)
	if err != nil {
		return fmt.Errorf("list purchases for intent: %w", err)
	}
	for _, p := range purchases {
		if p.Status != domain.PurchasePending {
			continue
		}
		if err := s.repo.SetPurchaseStatus(ctx, p.ID, domain.PurchaseFailed); err != nil {
			return fmt.Errorf("fail purchase %s: %w", p.ID, err)
		}
		if p.Type != domain.ProductPrint {
			continue
		}
		o, err := s.repo.GetPrintOrderByPurchase(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("load print order for purchase %s: %w", p.ID, err)
		}
		if err := s.repo.Transition(ctx, o.ID, domain.PrintOrderCreating, domain.PrintOrderCancelled, "payment failed", actorSystem); err != nil {
			return fmt.Errorf("cancel order %s: %w", o.ID, err)
		}
	}
	return nil
}

// Purchases returns a user's purchases, newest first.
func (s *Service) Purchases(ctx context.Context, userID string) ([]domain.Purchase, error) {
	return s.repo.ListPurchasesByUser(ctx, userID)
}

// PurchaseForUser returns one purchase if the user owns it.
func (s *Service) PurchaseForUser(ctx context.Context, userID, id string) (*domain.Purchase, error) {
	p, err := s.repo.GetPurchase(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, ErrNotFound
	}
	return p, nil
}

// PrintOrder returns one print order by ID.
func (s *Service) PrintOrder(ctx context.Context, id string) (*domain.PrintOrder, error) {
	return s.repo.GetPrintOrder(ctx, id)
}

// PrintOrderForUser returns one print order if the user owns it.
func (s *Service) PrintOrderForUser(ctx context.Context, userID, id string) (*domain.PrintOrder, error) {
	o, err := s.repo.GetPrintOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotFound
	}
	return o, nil
}

// PrintOrders lists print orders for the admin surface.
func (s *Service) PrintOrders(ctx context.Context, f PrintOrderFilter) ([]domain.PrintOrder, int, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 200 {
		f.Limit = 200
	}
	return s.repo.ListPrintOrders(ctx, f)
}

// Transition moves a print order along the state machine. The from status is
// re-checked inside the repository transaction, so a concurrent transition
// loses with ErrInvalidTransition rather than double-applying.
func (s *Service) Transition(ctx context.Context, id string, to domain.PrintOrderStatus, reason, actor string) error {
	o, err := s.repo.GetPrintOrder(ctx, id)
	if err != nil {
		return err
	}
	if !o.Status.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
	}
	return s.repo.Transition(ctx, id, o.Status, to, reason, actor)
}

// Cancel cancels a print order and refunds its payment. Terminal orders
// cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, id, reason, actor string) error {
	o, err := s.repo.GetPrintOrder(ctx, id)
	if err != nil {
		return err
	}
	if !o.Status.CanTransition(domain.PrintOrderCancelled) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, domain.PrintOrderCancelled)
	}
	if err := s.repo.Transition(ctx, id, o.Status, domain.PrintOrderCancelled, reason, actor); err != nil {
		return err
	}
	return s.refundPurchase(ctx, o)
}

// refundPurchase unwinds the payment behind a cancelled print order.
// Settled purchases are refunded. Pending ones usually mean the intent was
// never captured, so the intent is cancelled instead; refunding an
// uncaptured intent is rejected by the processor, and leaving it open would
// let the customer pay later for an order that no longer exists.
func (s *Service) refundPurchase(ctx context.Context, o *domain.PrintOrder) error {
	p, err := s.repo.GetPurchase(ctx, o.PurchaseID)
	if err != nil {
		return fmt.Errorf("load purchase for refund: %w", err)
	}
	switch p.Status {
	case domain.PurchaseCompleted:
		return s.refundIntent(ctx, p)
	case domain.PurchasePending:
		status, err := s.pay.IntentStatus(ctx, p.PaymentIntentID)
		if err != nil {
			return fmt.Errorf("check intent status: %w", err)
		}
		if status == "succeeded" {
			// Payment landed but the webhook has not been applied yet.
			return s.refundIntent(ctx, p)
		}
		if err := s.pay.CancelIntent(ctx, p.PaymentIntentID); err != nil {
			return fmt.Errorf("cancel payment intent: %w", err)
		}
		if err := s.repo.SetPurchaseStatus(ctx, p.ID, domain.PurchaseFailed); err != nil {
			return fmt.Errorf("mark purchase failed: %w", err)
		}
		logger.Info("payment intent cancelled", "purchase_id", p.ID, "order_reference", p.OrderReference)
		return nil
	default:
		return nil
	}
}

func (s *Service) refundIntent(ctx context.Context, p *domain.Purchase) error {
	if err := s.pay.Refund(ctx, p.PaymentIntentID); err != nil {
		return fmt.Errorf("refund payment: %w", err)
	}
	if err := s.repo.SetPurchaseStatus(ctx, p.ID, domain.PurchaseRefunded); err != nil {
		return fmt.Errorf("mark purchase refunded: %w", err)
	}
	logger.Info("purchase refunded", "purchase_id", p.ID, "order_reference", p.OrderReference)
	return nil
}

// PendingSubmission returns print orders waiting to be sent to the
// fulfillment partner.
func (s *Service) PendingSubmission(ctx context.Context) ([]domain.PrintOrder, error) {
	orders, _, err := s.repo.ListPrintOrders(ctx, PrintOrderFilter{Status: domain.PrintOrderPending, Limit: 200})
	return orders, err
}

// MarkSubmitted records the partner's order ID and advances the order to
// in_progress. Called by the print submission worker.
func (s *Service) MarkSubmitted(ctx context.Context, id, providerOrderID string) error {
	if err := s.repo.Transition(ctx, id, domain.PrintOrderPending, domain.PrintOrderInProgress, "submitted to fulfillment", actorSystem); err != nil {
		return err
	}
	return s.repo.SetProviderOrder(ctx, id, providerOrderID)
}

// ShipmentUpdate carries tracking details from a fulfillment webhook.
type ShipmentUpdate struct {
	ProviderOrderID string
	TrackingNumber  string
	TrackingURL     string
	Carrier         string
}

// MarkShipped applies a shipment webhook: records tracking, advances the
// order to shipped, and emails the customer their tracking link.
func (s *Service) MarkShipped(ctx context.Context, u ShipmentUpdate) error {
	o, err := s.repo.GetPrintOrderByProvider(ctx, u.ProviderOrderID)
	if err != nil {
		return err
	}
	if err := s.repo.Transition(ctx, o.ID, domain.PrintOrderInProgress, domain.PrintOrderShipped, "carrier picked up", actorWebhook); err != nil {
		return err
	}
	if err := s.repo.SetTracking(ctx, o.ID, u.TrackingNumber, u.TrackingURL, u.Carrier); err != nil {
		return err
	}

	if s.mail != nil {
		p, err := s.repo.GetPurchase(ctx, o.PurchaseID)
		if err != nil {
			return fmt.Errorf("load purchase for shipping notice: %w", err)
		}
		if p.CustomerEmail != "" {
			if err := s.mail.SendShippingNotice(ctx, p.CustomerEmail, o.OrderReference, u.Carrier, u.TrackingURL); err != nil {
				// Mail failure must not fail the shipment update.
				logger.Error("send shipping notice", "order_reference", o.OrderReference, "error", err.Error())
			}
		}
	}
	return nil
}

// MarkDelivered applies a delivery webhook.
func (s *Service) MarkDelivered(ctx context.Context, providerOrderID string) error {
	o, err := s.repo.GetPrintOrderByProvider(ctx, providerOrderID)
	if err != nil {
		return err
	}
	return s.repo.Transition(ctx, o.ID, domain.PrintOrderShipped, domain.PrintOrderDelivered, "carrier confirmed delivery", actorWebhook)
}

// CancelByProvider applies a provider-initiated cancellation webhook:
// the order is cancelled and the payment refunded.
func (s *Service) CancelByProvider(ctx context.Context, providerOrderID, reason string) error {
	o, err := s.repo.GetPrintOrderByProvider(ctx, providerOrderID)
	if err != nil {
		return err
	}
	return s.Cancel(ctx, o.ID, reason, actorWebhook)
}

// SweepStuck cancels and refunds print orders stuck in creating for longer
// than maxAge. A payment that never settles leaves its order in creating;
// after an hour we assume it never will. Returns the number swept.
func (s *Service) SweepStuck(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	stuck, err := s.repo.ListStuck(ctx, domain.PrintOrderCreating, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list stuck orders: %w", err)
	}

	swept := 0
	for _, o := range stuck {
		if err := s.repo.Transition(ctx, o.ID, domain.PrintOrderCreating, domain.PrintOrderCancelled,
			fmt.Sprintf("stuck in creating since %s", o.CreatedAt.UTC().Format(time.RFC3339)), actorSweeper); err != nil {
			logger.Error("sweep cancel failed", "print_order_id", o.ID, "error", err.Error())
			continue
		}
		if err := s.refundPurchase(ctx, &o); err != nil {
			logger.Error("sweep refund failed", "print_order_id", o.ID, "error", err.Error())
			continue
		}
		swept++
	}
	if swept > 0 {
		logger.Info("stuck order sweep complete", "swept", swept)
	}
	return swept, nil
}

// AddNote appends an admin note to a print order.
func (s *Service) AddNote(ctx context.Context, printOrderID, author, body string) (*domain.OrderNote, error) {
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("note body is required")
	}
	if _, err := s.repo.GetPrintOrder(ctx, printOrderID); err != nil {
		return nil, err
	}
	n := &domain.OrderNote{PrintOrderID: printOrderID, Author: author, Body: body}
	if err := s.repo.AddNote(ctx, n); err != nil {
		return nil, fmt.Errorf("add note: %w", err)
	}
	return n, nil
}

// Notes returns an order's notes, newest first.
func (s *Service) Notes(ctx context.Context, printOrderID string) ([]domain.OrderNote, error) {
	return s.repo.ListNotes(ctx, printOrderID)
}

// History returns an order's status transitions, oldest first.
func (s *Service) History(ctx context.Context, printOrderID string) ([]domain.OrderStatusHistory, error) {
	return s.repo.ListStatusHistory(ctx, printOrderID)
}

// RecordAdminAction appends to the admin audit log. Audit failures are logged
// but never block the action itself.
func (s *Service) RecordAdminAction(ctx context.Context, adminID, action, targetID, detail string) {
	err := s.repo.RecordAdminAction(ctx, &domain.AdminAuditLog{
		AdminID:  adminID,
		Action:   action,
		TargetID: targetID,
		Detail:   detail,
	})
	if err != nil {
		logger.Error("record admin action", "action", action, "error", err.Error())
	}
}
