package cart

import (
	"context"

	"github.com/saiyamvora13/vesabooks/internal/domain"
)

// Repository defines the data access contract for carts.
type Repository interface {
	// Upsert inserts a cart item, or increments the quantity of the existing
	// row with the same {user, storybook, product type, book size}.
	Upsert(ctx context.Context, item *domain.CartItem) error

	// Get returns one cart item by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*domain.CartItem, error)

	// SetQuantity updates the quantity of an item. Returns ErrNotFound.
	SetQuantity(ctx context.Context, id string, quantity int) error

	// Remove deletes one cart item. Returns ErrNotFound.
	Remove(ctx context.Context, id string) error

	// Clear removes every item in a user's cart.
	Clear(ctx context.Context, userID string) error

	// ListByUser returns a user's cart items with storybook titles joined,
	// oldest first.
	ListByUser(ctx context.Context, userID string) ([]domain.CartItem, error)
}

// BookCatalog is the subset of the storybook store the cart needs: existence
// checks before adding a line.
type BookCatalog interface {
	GetByID(ctx context.Context, id string) (*domain.Storybook, error)
}
