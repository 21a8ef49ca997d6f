package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/saiyamvora13/vesabooks/internal/domain"
	"github.com/saiyamvora13/vesabooks/internal/service/cart"
)

// CartRepo implements cart.Repository against PostgreSQL.
type CartRepo struct{ db *sql.DB }

// NewCartRepo creates a Postgres-backed cart repository.
func NewCartRepo(db *sql.DB) *CartRepo { return &CartRepo{db: db} }

// Upsert relies on the unique index over (user_id, storybook_id, product_type,
// book_size): a conflicting insert increments the existing row's quantity.
func (r *CartRepo) Upsert(ctx context.Context, item *domain.CartItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO cart_items (id, user_id, storybook_id, product_type, book_size, quantity, price_cents, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (user_id, storybook_id, product_type, book_size)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING id, quantity
	`, item.ID, item.UserID, item.StorybookID, item.ProductType, item.BookSize,
		item.Quantity, item.PriceCents).Scan(&item.ID, &item.Quantity)
	if err != nil {
		return fmt.Errorf("upsert cart item: %w", err)
	}
	return nil
}

func (r *CartRepo) Get(ctx context.Context, id string) (*domain.CartItem, error) {
	var it domain.CartItem
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, storybook_id, product_type, COALESCE(book_size, ''), quantity, price_cents, created_at
		FROM cart_items WHERE id = $1
	`, id).Scan(&it.ID, &it.UserID, &it.StorybookID, &it.ProductType, &it.BookSize,
		&it.Quantity, &it.PriceCents, &it.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cart.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cart item: %w", err)
	}
	return &it, nil
}

func (r *CartRepo) SetQuantity(ctx context.Context, id string, quantity int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE cart_items SET quantity = $2 WHERE id = $1`, id, quantity)
	if err != nil {
		return fmt.Errorf("set cart quantity: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return cart.ErrNotFound
	}
	return nil
}

func (r *CartRepo) Remove(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return cart.ErrNotFound
	}
	return nil
}

func (r *CartRepo) Clear(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (r *CartRepo) ListByUser(ctx context.Context, userID string) ([]domain.CartItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.user_id, c.storybook_id, c.product_type, COALESCE(c.book_size, ''),
		       c.quantity, c.price_cents, c.created_at,
		       s.title, COALESCE(s.cover_image_url, '')
		FROM cart_items c
		JOIN storybooks s ON s.id = c.storybook_id
		WHERE c.user_id = $1
		ORDER BY c.created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart: %w", err)
	}
	defer rows.Close()

	var out []domain.CartItem
	for rows.Next() {
		var it domain.CartItem
		if err := rows.Scan(&it.ID, &it.UserID, &it.StorybookID, &it.ProductType, &it.BookSize,
			&it.Quantity, &it.PriceCents, &it.CreatedAt,
			&it.StorybookTitle, &it.CoverImageURL); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
