package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/saiyamvora13/vesabooks/internal/domain"
)

const maxQuantity = 25

// Pricing holds the unit prices in cents. Populated from config at startup.
type Pricing struct {
	DigitalCents  int64
	Print6x9Cents int64
	Print8x8Cents int64
	ShippingCents int64
}

// UnitPrice returns the price for one copy of the given product.
func (p Pricing) UnitPrice(t domain.ProductType, size domain.BookSize) (int64, error) {
	switch t {
	case domain.ProductDigital:
		return p.DigitalCents, nil
	case domain.ProductPrint:
		switch size {
		case domain.BookSize6x9:
			return p.Print6x9Cents, nil
		case domain.BookSize8x8:
			return p.Print8x8Cents, nil
		}
		return 0, fmt.Errorf("unknown book size %q", size)
	}
	return 0, fmt.Errorf("unknown product type %q", t)
}

// Service implements cart business logic. Safe for concurrent use.
type Service struct {
	repo    Repository
	books   BookCatalog
	pricing Pricing
}

// NewService creates a cart service.
func NewService(repo Repository, books BookCatalog, pricing Pricing) *Service {
	return &Service{repo: repo, books: books, pricing: pricing}
}

// AddRequest describes a product to put in the cart.
type AddRequest struct {
	StorybookID string             `json:"storybook_id"`
	ProductType domain.ProductType `json:"product_type"`
	BookSize    domain.BookSize    `json:"book_size"`
	Quantity    int                `json:"quantity"`
}

// Add puts a product in the user's cart. Adding a product already in the
// cart increments its quantity rather than creating a second line. The unit
// price is captured at add time.
func (s *Service) Add(ctx context.Context, userID string, req AddRequest) (*domain.CartItem, error) {
	if req.Quantity <= 0 {
		req.Quantity = 1
	}
	if req.Quantity > maxQuantity {
		return nil, fmt.Errorf("quantity exceeds maximum of %d", maxQuantity)
	}
	if req.ProductType == domain.ProductDigital {
		// Digital books have no physical size; normalize so the uniqueness
		// key does not split on a meaningless value.
		req.BookSize = ""
	} else if req.BookSize == "" {
		req.BookSize = domain.BookSize6x9
	}

	price, err := s.pricing.UnitPrice(req.ProductType, req.BookSize)
	if err != nil {
		return nil, err
	}

	book, err := s.books.GetByID(ctx, req.StorybookID)
	if err != nil {
		return nil, ErrBookNotFound
	}
	if book.UserID != userID && !book.IsPublic {
		return nil, ErrBookNotFound
	}

	item := &domain.CartItem{
		UserID:      userID,
		StorybookID: req.StorybookID,
		ProductType: req.ProductType,
		BookSize:    req.BookSize,
		Quantity:    req.Quantity,
		PriceCents:  price,
	}
	if err := s.repo.Upsert(ctx, item); err != nil {
		return nil, fmt.Errorf("add cart item: %w", err)
	}
	return item, nil
}

// SetQuantity changes an item's quantity. Zero or negative removes the item.
// Only the cart owner may modify it.
func (s *Service) SetQuantity(ctx context.Context, userID, itemID string, quantity int) error {
	if quantity > maxQuantity {
		return fmt.Errorf("quantity exceeds maximum of %d", maxQuantity)
	}
	item, err := s.repo.Get(ctx, itemID)
	if err != nil {
		return err
	}
	if item.UserID != userID {
		return ErrNotFound
	}
	if quantity <= 0 {
		return s.repo.Remove(ctx, itemID)
	}
	return s.repo.SetQuantity(ctx, itemID, quantity)
}

// Remove deletes one item from the user's cart.
func (s *Service) Remove(ctx context.Context, userID, itemID string) error {
	item, err := s.repo.Get(ctx, itemID)
	if err != nil {
		return err
	}
	if item.UserID != userID {
		return ErrNotFound
	}
	return s.repo.Remove(ctx, itemID)
}

// Clear empties the user's cart.
func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.repo.Clear(ctx, userID)
}

// Summary is a cart with its totals computed.
type Summary struct {
	Items         []domain.CartItem `json:"items"`
	SubtotalCents int64             `json:"subtotal_cents"`
	ShippingCents int64             `json:"shipping_cents"`
	TotalCents    int64             `json:"total_cents"`
}

// Get returns the user's cart with subtotal, shipping and total. Shipping is
// flat-rate and charged once if any line is a print product.
func (s *Service) Get(ctx context.Context, userID string) (*Summary, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart: %w", err)
	}
	sum := &Summary{Items: items}
	hasPrint := false
	for _, it := range items {
		sum.SubtotalCents += it.PriceCents * int64(it.Quantity)
		if it.ProductType == domain.ProductPrint {
			hasPrint = true
		}
	}
	if hasPrint {
		sum.ShippingCents = s.pricing.ShippingCents
	}
	sum.TotalCents = sum.SubtotalCents + sum.ShippingCents
	return sum, nil
}

// ItemsForCheckout returns the raw cart lines, erroring on an empty cart.
func (s *Service) ItemsForCheckout(ctx context.Context, userID string) ([]domain.CartItem, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart: %w", err)
	}
	if len(items) == 0 {
		return nil, errors.New("cart is empty")
	}
	return items, nil
}
