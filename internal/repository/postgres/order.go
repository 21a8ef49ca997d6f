package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/saiyamvora13/vesabooks/internal/domain"
	"github.com/saiyamvora13/vesabooks/internal/service/order"
)

// uniqueViolation is the Postgres error code for a unique constraint breach.
const uniqueViolation = "23505"

// OrderRepo implements order.Repository against PostgreSQL.
type OrderRepo struct{ db *sql.DB }

// NewOrderRepo creates a Postgres-backed order repository.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertPurchase(ctx context.Context, db execer, p *domain.Purchase) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO purchases (id, user_id, storybook_id, type, book_size, quantity, price_cents, currency, status, payment_intent_id, order_reference, customer_email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
	`, p.ID, p.UserID, p.StorybookID, p.Type, p.BookSize, p.Quantity, p.PriceCents,
		p.Currency, p.Status, p.PaymentIntentID, p.OrderReference, p.CustomerEmail)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return order.ErrDuplicate
		}
		return fmt.Errorf("insert purchase: %w", err)
	}
	return nil
}

func (r *OrderRepo) CreatePurchase(ctx context.Context, p *domain.Purchase) error {
	return insertPurchase(ctx, r.db, p)
}

// CreateCheckout inserts every purchase and print order for one checkout in a
// single transaction, so a duplicate purchase key rolls back the whole batch.
func (r *OrderRepo) CreateCheckout(ctx context.Context, purchases []*domain.Purchase, orders []*domain.PrintOrder) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin checkout: %w", err)
	}
	defer tx.Rollback()

	for _, p := range purchases {
		if err := insertPurchase(ctx, tx, p); err != nil {
			return err
		}
	}
	for _, o := range orders {
		if err := insertPrintOrder(ctx, tx, o); err != nil {
			return err
		}
	}
	return tx.Commit()
}

const purchaseCols = `id, user_id, storybook_id, type, COALESCE(book_size, ''), quantity,
       price_cents, currency, status, payment_intent_id, order_reference, COALESCE(customer_email, ''), created_at, updated_at`

func scanPurchase(row interface{ Scan(...interface{}) error }) (*domain.Purchase, error) {
	var p domain.Purchase
	err := row.Scan(&p.ID, &p.UserID, &p.StorybookID, &p.Type, &p.BookSize, &p.Quantity,
		&p.PriceCents, &p.Currency, &p.Status, &p.PaymentIntentID, &p.OrderReference,
		&p.CustomerEmail, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *OrderRepo) GetPurchase(ctx context.Context, id string) (*domain.Purchase, error) {
	p, err := scanPurchase(r.db.QueryRowContext(ctx,
		`SELECT `+purchaseCols+` FROM purchases WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get purchase: %w", err)
	}
	return p, nil
}

func (r *OrderRepo) listPurchases(ctx context.Context, where string, arg interface{}) ([]domain.Purchase, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+purchaseCols+` FROM purchases WHERE `+where+` ORDER BY created_at DESC`, arg)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()

	var out []domain.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *OrderRepo) ListPurchasesByUser(ctx context.Context, userID string) ([]domain.Purchase, error) {
	return r.listPurchases(ctx, "user_id = $1", userID)
}

func (r *OrderRepo) ListPurchasesByIntent(ctx context.Context, paymentIntentID string) ([]domain.Purchase, error) {
	return r.listPurchases(ctx, "payment_intent_id = $1", paymentIntentID)
}

func (r *OrderRepo) SetPurchaseStatus(ctx context.Context, id string, status domain.PurchaseStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE purchases SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("set purchase status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return order.ErrNotFound
	}
	return nil
}

func (r *OrderRepo) OrderReferenceExists(ctx context.Context, ref string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM purchases WHERE order_reference = $1)`, ref).Scan(&exists)
	return exists, err
}

func insertPrintOrder(ctx context.Context, db execer, o *domain.PrintOrder) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO print_orders (id, purchase_id, user_id, storybook_id, order_reference, status, book_size, quantity,
		                          shipping_name, shipping_line1, shipping_line2, shipping_city, shipping_state, shipping_zip, shipping_country,
		                          created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())
	`, o.ID, o.PurchaseID, o.UserID, o.StorybookID, o.OrderReference, o.Status, o.BookSize, o.Quantity,
		o.ShippingName, o.ShippingLine1, o.ShippingLine2, o.ShippingCity, o.ShippingState, o.ShippingZip, o.ShippingCountry)
	if err != nil {
		return fmt.Errorf("insert print order: %w", err)
	}
	return nil
}

func (r *OrderRepo) CreatePrintOrder(ctx context.Context, o *domain.PrintOrder) error {
	return insertPrintOrder(ctx, r.db, o)
}

const printOrderCols = `id, purchase_id, user_id, storybook_id, order_reference, status,
       COALESCE(book_size, ''), quantity,
       COALESCE(provider_order_id, ''), COALESCE(tracking_number, ''), COALESCE(tracking_url, ''), COALESCE(carrier, ''),
       shipping_name, shipping_line1, COALESCE(shipping_line2, ''), shipping_city,
       COALESCE(shipping_state, ''), shipping_zip, shipping_country, created_at, updated_at`

func scanPrintOrder(row interface{ Scan(...interface{}) error }) (*domain.PrintOrder, error) {
	var o domain.PrintOrder
	err := row.Scan(&o.ID, &o.PurchaseID, &o.UserID, &o.StorybookID, &o.OrderReference, &o.Status,
		&o.BookSize, &o.Quantity,
		&o.ProviderOrderID, &o.TrackingNumber, &o.TrackingURL, &o.Carrier,
		&o.ShippingName, &o.ShippingLine1, &o.ShippingLine2, &o.ShippingCity,
		&o.ShippingState, &o.ShippingZip, &o.ShippingCountry, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepo) getPrintOrder(ctx context.Context, where string, arg interface{}) (*domain.PrintOrder, error) {
	o, err := scanPrintOrder(r.db.QueryRowContext(ctx,
		`SELECT `+printOrderCols+` FROM print_orders WHERE `+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get print order: %w", err)
	}
	return o, nil
}

func (r *OrderRepo) GetPrintOrder(ctx context.Context, id string) (*domain.PrintOrder, error) {
	return r.getPrintOrder(ctx, "id = $1", id)
}

func (r *OrderRepo) GetPrintOrderByProvider(ctx context.Context, providerOrderID string) (*domain.PrintOrder, error) {
	return r.getPrintOrder(ctx, "provider_order_id = $1", providerOrderID)
}

func (r *OrderRepo) GetPrintOrderByPurchase(ctx context.Context, purchaseID string) (*domain.PrintOrder, error) {
	return r.getPrintOrder(ctx, "purchase_id = $1", purchaseID)
}

func (r *OrderRepo) ListPrintOrders(ctx context.Context, f order.PrintOrderFilter) ([]domain.PrintOrder, int, error) {
	where := "1=1"
	args := []interface{}{}
	if f.UserID != "" {
		args = append(args, f.UserID)
		where += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM print_orders WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count print orders: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = total
	}
	args = append(args, limit, f.Offset)
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s FROM print_orders WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		printOrderCols, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list print orders: %w", err)
	}
	defer rows.Close()

	var out []domain.PrintOrder
	for rows.Next() {
		o, err := scanPrintOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan print order: %w", err)
		}
		out = append(out, *o)
	}
	return out, total, rows.Err()
}

func (r *OrderRepo) ListStuck(ctx context.Context, status domain.PrintOrderStatus, cutoff time.Time) ([]domain.PrintOrder, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+printOrderCols+` FROM print_orders WHERE status = $1 AND created_at < $2 ORDER BY created_at`,
		status, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list stuck orders: %w", err)
	}
	defer rows.Close()

	var out []domain.PrintOrder
	for rows.Next() {
		o, err := scanPrintOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stuck order: %w", err)
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// Transition moves an order between statuses and appends the history row in
// the same transaction. The WHERE status = from guard makes concurrent
// transitions lose cleanly instead of double-applying.
func (r *OrderRepo) Transition(ctx context.Context, id string, from, to domain.PrintOrderStatus, reason, actor string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE print_orders SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`,
		id, from, to)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return order.ErrInvalidTransition
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO order_status_history (id, print_order_id, from_status, to_status, reason, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`, uuid.New().String(), id, from, to, reason, actor)
	if err != nil {
		return fmt.Errorf("insert status history: %w", err)
	}
	return tx.Commit()
}

func (r *OrderRepo) SetProviderOrder(ctx context.Context, id, providerOrderID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE print_orders SET provider_order_id = $2, updated_at = NOW() WHERE id = $1`,
		id, providerOrderID)
	if err != nil {
		return fmt.Errorf("set provider order: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return order.ErrNotFound
	}
	return nil
}

func (r *OrderRepo) SetTracking(ctx context.Context, id, trackingNumber, trackingURL, carrier string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE print_orders SET tracking_number = $2, tracking_url = $3, carrier = $4, updated_at = NOW()
		WHERE id = $1
	`, id, trackingNumber, trackingURL, carrier)
	if err != nil {
		return fmt.Errorf("set tracking: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return order.ErrNotFound
	}
	return nil
}

func (r *OrderRepo) AddNote(ctx context.Context, n *domain.OrderNote) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO order_notes (id, print_order_id, author, body, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, n.ID, n.PrintOrderID, n.Author, n.Body)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

func (r *OrderRepo) ListNotes(ctx context.Context, printOrderID string) ([]domain.OrderNote, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, print_order_id, author, body, created_at
		FROM order_notes WHERE print_order_id = $1 ORDER BY created_at DESC
	`, printOrderID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var out []domain.OrderNote
	for rows.Next() {
		var n domain.OrderNote
		if err := rows.Scan(&n.ID, &n.PrintOrderID, &n.Author, &n.Body, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *OrderRepo) ListStatusHistory(ctx context.Context, printOrderID string) ([]domain.OrderStatusHistory, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, print_order_id, from_status, to_status, COALESCE(reason, ''), actor, created_at
		FROM order_status_history WHERE print_order_id = $1 ORDER BY created_at
	`, printOrderID)
	if err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	defer rows.Close()

	var out []domain.OrderStatusHistory
	for rows.Next() {
		var h domain.OrderStatusHistory
		if err := rows.Scan(&h.ID, &h.PrintOrderID, &h.FromStatus, &h.ToStatus, &h.Reason, &h.Actor, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan status history: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *OrderRepo) RecordAdminAction(ctx context.Context, a *domain.AdminAuditLog) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO admin_audit_log (id, admin_id, action, target_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`, a.ID, a.AdminID, a.Action, a.TargetID, a.Detail)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}
