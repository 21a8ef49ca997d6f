package domain

import "time"

// ProductType enumerates what a customer can buy for a storybook.
type ProductType string

const (
	ProductDigital ProductType = "digital"
	ProductPrint   ProductType = "print"
)

// BookSize enumerates the supported physical trim sizes.
type BookSize string

const (
	// BookSize6x9 is the standard 6"×9" portrait trade size.
	BookSize6x9 BookSize = "6x9"
	// BookSize8x8 is the square picture-book size.
	BookSize8x8 BookSize = "8x8"
)

// PurchaseStatus enumerates payment settlement states.
type PurchaseStatus string

const (
	PurchasePending   PurchaseStatus = "pending"
	PurchaseCompleted PurchaseStatus = "completed"
	PurchaseRefunded  PurchaseStatus = "refunded"
	PurchaseFailed    PurchaseStatus = "failed"
)

// Purchase records a settled (or settling) payment for one storybook product.
// Unique per {payment_intent_id, storybook_id, type} — enforced by the
// database, surfaced as ErrDuplicate by the repository.
type Purchase struct {
	ID              string         `json:"id" db:"id"`
	UserID          string         `json:"user_id" db:"user_id"`
	StorybookID     string         `json:"storybook_id" db:"storybook_id"`
	Type            ProductType    `json:"type" db:"type"`
	BookSize        BookSize       `json:"book_size" db:"book_size"`
	Quantity        int            `json:"quantity" db:"quantity"`
	PriceCents      int64          `json:"price_cents" db:"price_cents"`
	Currency        string         `json:"currency" db:"currency"`
	Status          PurchaseStatus `json:"status" db:"status"`
	PaymentIntentID string         `json:"payment_intent_id" db:"payment_intent_id"`
	OrderReference  string         `json:"order_reference" db:"order_reference"`
	CustomerEmail   string         `json:"-" db:"customer_email"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`
}

// CartItem is one line in a user's cart.
// Unique per {user_id, storybook_id, product_type, book_size}; adding the
// same product again increments Quantity instead of inserting a new row.
type CartItem struct {
	ID          string      `json:"id" db:"id"`
	UserID      string      `json:"user_id" db:"user_id"`
	StorybookID string      `json:"storybook_id" db:"storybook_id"`
	ProductType ProductType `json:"product_type" db:"product_type"`
	BookSize    BookSize    `json:"book_size" db:"book_size"`
	Quantity    int         `json:"quantity" db:"quantity"`
	PriceCents  int64       `json:"price_cents" db:"price_cents"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`

	// Joined for display; not stored on the cart row.
	StorybookTitle string `json:"storybook_title,omitempty" db:"-"`
	CoverImageURL  string `json:"cover_image_url,omitempty" db:"-"`
}

// PrintOrderStatus enumerates the print fulfillment state machine:
//
//	creating → pending → in_progress → shipped → delivered
//	    \________\____________\_____________→ cancelled
type PrintOrderStatus string

const (
	PrintOrderCreating   PrintOrderStatus = "creating"
	PrintOrderPending    PrintOrderStatus = "pending"
	PrintOrderInProgress PrintOrderStatus = "in_progress"
	PrintOrderShipped    PrintOrderStatus = "shipped"
	PrintOrderDelivered  PrintOrderStatus = "delivered"
	PrintOrderCancelled  PrintOrderStatus = "cancelled"
)

// printOrderTransitions is the allowed transition table. Delivered and
// cancelled are terminal.
var printOrderTransitions = map[PrintOrderStatus][]PrintOrderStatus{
	PrintOrderCreating:   {PrintOrderPending, PrintOrderCancelled},
	PrintOrderPending:    {PrintOrderInProgress, PrintOrderCancelled},
	PrintOrderInProgress: {PrintOrderShipped, PrintOrderCancelled},
	PrintOrderShipped:    {PrintOrderDelivered},
	PrintOrderDelivered:  {},
	PrintOrderCancelled:  {},
}

// CanTransition reports whether moving from s to next is allowed.
func (s PrintOrderStatus) CanTransition(next PrintOrderStatus) bool {
	for _, allowed := range printOrderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal returns true if the order is in a final state.
func (s PrintOrderStatus) IsTerminal() bool {
	return s == PrintOrderDelivered || s == PrintOrderCancelled
}

// PrintOrder tracks a physical book through the fulfillment partner.
type PrintOrder struct {
	ID              string           `json:"id" db:"id"`
	PurchaseID      string           `json:"purchase_id" db:"purchase_id"`
	UserID          string           `json:"user_id" db:"user_id"`
	StorybookID     string           `json:"storybook_id" db:"storybook_id"`
	OrderReference  string           `json:"order_reference" db:"order_reference"`
	Status          PrintOrderStatus `json:"status" db:"status"`
	BookSize        BookSize         `json:"book_size" db:"book_size"`
	Quantity        int              `json:"quantity" db:"quantity"`
	ProviderOrderID string           `json:"provider_order_id" db:"provider_order_id"`
	TrackingNumber  string           `json:"tracking_number" db:"tracking_number"`
	TrackingURL     string           `json:"tracking_url" db:"tracking_url"`
	Carrier         string           `json:"carrier" db:"carrier"`
	ShippingName    string           `json:"shipping_name" db:"shipping_name"`
	ShippingLine1   string           `json:"shipping_line1" db:"shipping_line1"`
	ShippingLine2   string           `json:"shipping_line2" db:"shipping_line2"`
	ShippingCity    string           `json:"shipping_city" db:"shipping_city"`
	ShippingState   string           `json:"shipping_state" db:"shipping_state"`
	ShippingZip     string           `json:"shipping_zip" db:"shipping_zip"`
	ShippingCountry string           `json:"shipping_country" db:"shipping_country"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at" db:"updated_at"`
}

// OrderNote is a free-form annotation on a print order, written by admins.
type OrderNote struct {
	ID           string    `json:"id" db:"id"`
	PrintOrderID string    `json:"print_order_id" db:"print_order_id"`
	Author       string    `json:"author" db:"author"`
	Body         string    `json:"body" db:"body"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// OrderStatusHistory is one row of the append-only audit trail. A row is
// written in the same transaction as every status transition.
type OrderStatusHistory struct {
	ID           string           `json:"id" db:"id"`
	PrintOrderID string           `json:"print_order_id" db:"print_order_id"`
	FromStatus   PrintOrderStatus `json:"from_status" db:"from_status"`
	ToStatus     PrintOrderStatus `json:"to_status" db:"to_status"`
	Reason       string           `json:"reason" db:"reason"`
	Actor        string           `json:"actor" db:"actor"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
}

// AdminAuditLog records privileged actions taken through /api/admin.
type AdminAuditLog struct {
	ID        string    `json:"id" db:"id"`
	AdminID   string    `json:"admin_id" db:"admin_id"`
	Action    string    `json:"action" db:"action"`
	TargetID  string    `json:"target_id" db:"target_id"`
	Detail    string    `json:"detail" db:"detail"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
