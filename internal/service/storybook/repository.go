package storybook

import (
	"context"

	"github.com/saiyamvora13/vesabooks/internal/domain"
)

// Repository defines the data access contract for storybooks.
type Repository interface {
	// Create inserts a storybook and its pages. Assigns an ID if empty.
	Create(ctx context.Context, b *domain.Storybook) error

	// GetByID returns a storybook with its pages, or ErrNotFound.
	GetByID(ctx context.Context, id string) (*domain.Storybook, error)

	// Update rewrites the storybook's mutable fields and replaces its pages.
	Update(ctx context.Context, b *domain.Storybook) error

	// Delete removes a storybook and its pages. Returns ErrNotFound if absent.
	Delete(ctx context.Context, id string) error

	// ListByUser returns all storybooks owned by a user, newest first.
	ListByUser(ctx context.Context, userID string) ([]domain.Storybook, error)

	// ListPublic returns public, fully generated storybooks for the gallery,
	// newest first, plus the total count for pagination.
	ListPublic(ctx context.Context, limit, offset int) ([]domain.Storybook, int, error)

	// SetPublic flips the gallery visibility flag.
	SetPublic(ctx context.Context, id string, public bool) error

	// SetGenerationStatus records generation progress (generating, completed, failed).
	SetGenerationStatus(ctx context.Context, id, status string) error
}
