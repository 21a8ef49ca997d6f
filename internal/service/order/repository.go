package order

import (
	"context"
	"time"

	"github.com/saiyamvora13/vesabooks/internal/domain"
)

// Repository defines the data access contract for purchases and print orders.
type Repository interface {
	// CreatePurchase inserts a purchase. A duplicate
	// {payment_intent_id, storybook_id, type} returns ErrDuplicate.
	CreatePurchase(ctx context.Context, p *domain.Purchase) error

	// CreateCheckout inserts all purchases and print orders for one checkout
	// in a single transaction: either every row lands or none do. Duplicate
	// purchase keys return ErrDuplicate.
	CreateCheckout(ctx context.Context, purchases []*domain.Purchase, orders []*domain.PrintOrder) error

	// GetPurchase returns one purchase, or ErrNotFound.
	GetPurchase(ctx context.Context, id string) (*domain.Purchase, error)

	// ListPurchasesByUser returns a user's purchases, newest first.
	ListPurchasesByUser(ctx context.Context, userID string) ([]domain.Purchase, error)

	// ListPurchasesByIntent returns all purchases created under one payment intent.
	ListPurchasesByIntent(ctx context.Context, paymentIntentID string) ([]domain.Purchase, error)

	// SetPurchaseStatus updates a purchase's settlement status.
	SetPurchaseStatus(ctx context.Context, id string, status domain.PurchaseStatus) error

	// OrderReferenceExists reports whether any purchase carries the reference.
	OrderReferenceExists(ctx context.Context, ref string) (bool, error)

	// CreatePrintOrder inserts a print order in its initial status.
	CreatePrintOrder(ctx context.Context, o *domain.PrintOrder) error

	// GetPrintOrder returns one print order, or ErrNotFound.
	GetPrintOrder(ctx context.Context, id string) (*domain.PrintOrder, error)

	// GetPrintOrderByProvider looks up the order a fulfillment webhook refers to.
	GetPrintOrderByProvider(ctx context.Context, providerOrderID string) (*domain.PrintOrder, error)

	// GetPrintOrderByPurchase returns the print order created for a purchase
	// line, or ErrNotFound for digital purchases.
	GetPrintOrderByPurchase(ctx context.Context, purchaseID string) (*domain.PrintOrder, error)

	// ListPrintOrders returns print orders matching the filter plus the total count.
	ListPrintOrders(ctx context.Context, f PrintOrderFilter) ([]domain.PrintOrder, int, error)

	// ListStuck returns non-terminal orders sitting in the given status since
	// before the cutoff.
	ListStuck(ctx context.Context, status domain.PrintOrderStatus, cutoff time.Time) ([]domain.PrintOrder, error)

	// Transition moves an order from one status to another and appends a
	// status-history row in the same transaction. Returns ErrInvalidTransition
	// if the order is no longer in the from status.
	Transition(ctx context.Context, id string, from, to domain.PrintOrderStatus, reason, actor string) error

	// SetProviderOrder records the fulfillment partner's order ID.
	SetProviderOrder(ctx context.Context, id, providerOrderID string) error

	// SetTracking records shipment tracking details.
	SetTracking(ctx context.Context, id, trackingNumber, trackingURL, carrier string) error

	// AddNote appends an admin note to a print order.
	AddNote(ctx context.Context, n *domain.OrderNote) error

	// ListNotes returns an order's notes, newest first.
	ListNotes(ctx context.Context, printOrderID string) ([]domain.OrderNote, error)

	// ListStatusHistory returns an order's transition trail, oldest first.
	ListStatusHistory(ctx context.Context, printOrderID string) ([]domain.OrderStatusHistory, error)

	// RecordAdminAction appends to the admin audit log.
	RecordAdminAction(ctx context.Context, a *domain.AdminAuditLog) error
}

// PrintOrderFilter controls pagination and filtering for print order lists.
type PrintOrderFilter struct {
	UserID string
	Status domain.PrintOrderStatus
	Limit  int
	Offset int
}

// Payments is the payment processor contract (payment intents and refunds).
type Payments interface {
	// CreateIntent opens a payment intent and returns its ID and client secret.
	CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (id, clientSecret string, err error)

	// IntentStatus returns the intent's current processor-side status.
	IntentStatus(ctx context.Context, paymentIntentID string) (string, error)

	// CancelIntent cancels an intent that has not been captured.
	CancelIntent(ctx context.Context, paymentIntentID string) error

	// Refund refunds the full amount of a captured payment intent.
	Refund(ctx context.Context, paymentIntentID string) error
}

// Mailer sends customer-facing transactional email.
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, to, orderRef string, totalCents int64, currency string) error
	SendShippingNotice(ctx context.Context, to, orderRef, carrier, trackingURL string) error
}
