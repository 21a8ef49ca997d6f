package api

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/saiyamvora13/vesabooks/internal/domain"
	"github.com/saiyamvora13/vesabooks/internal/service/cart"
	"github.com/saiyamvora13/vesabooks/internal/service/order"
	"github.com/saiyamvora13/vesabooks/internal/service/storybook"
)

// In-memory repositories backing the services under test.

type memBookRepo struct {
	mu    sync.Mutex
	seq   int
	books map[string]*domain.Storybook
}

func newMemBookRepo() *memBookRepo {
	return &memBookRepo{books: make(map[string]*domain.Storybook)}
}

func (r *memBookRepo) Create(_ context.Context, b *domain.Storybook) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if b.ID == "" {
		b.ID = fmt.Sprintf("book-%d", r.seq)
	}
	b.CreatedAt = time.Now()
	cp := *b
	r.books[b.ID] = &cp
	return nil
}

func (r *memBookRepo) GetByID(_ context.Context, id string) (*domain.Storybook, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[id]
	if !ok {
		return nil, storybook.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *memBookRepo) Update(_ context.Context, b *domain.Storybook) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.books[b.ID]; !ok {
		return storybook.ErrNotFound
	}
	cp := *b
	r.books[b.ID] = &cp
	return nil
}

func (r *memBookRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.books[id]; !ok {
		return storybook.ErrNotFound
	}
	delete(r.books, id)
	return nil
}

func (r *memBookRepo) ListByUser(_ context.Context, userID string) ([]domain.Storybook, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Storybook
	for _, b := range r.books {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *memBookRepo) ListPublic(_ context.Context, limit, offset int) ([]domain.Storybook, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []domain.Storybook
	for _, b := range r.books {
		if b.IsPublic && b.GenerationStatus == storybook.StatusCompleted {
			all = append(all, *b)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := len(all)
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (r *memBookRepo) SetPublic(_ context.Context, id string, public bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[id]
	if !ok {
		return storybook.ErrNotFound
	}
	b.IsPublic = public
	return nil
}

func (r *memBookRepo) SetGenerationStatus(_ context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[id]
	if !ok {
		return storybook.ErrNotFound
	}
	b.GenerationStatus = status
	return nil
}

type memCartRepo struct {
	mu    sync.Mutex
	seq   int
	items map[string]*domain.CartItem
	books *memBookRepo
}

func newMemCartRepo(books *memBookRepo) *memCartRepo {
	return &memCartRepo{items: make(map[string]*domain.CartItem), books: books}
}

func (r *memCartRepo) Upsert(_ context.Context, item *domain.CartItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.items {
		if it.UserID == item.UserID && it.StorybookID == item.StorybookID &&
			it.ProductType == item.ProductType && it.BookSize == item.BookSize {
			it.Quantity += item.Quantity
			item.ID = it.ID
			item.Quantity = it.Quantity
			return nil
		}
	}
	r.seq++
	item.ID = fmt.Sprintf("item-%d", r.seq)
	cp := *item
	r.items[item.ID] = &cp
	return nil
}

func (r *memCartRepo) Get(_ context.Context, id string) (*domain.CartItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok {
		return nil, cart.ErrNotFound
	}
	cp := *it
	return &cp, nil
}

func (r *memCartRepo) SetQuantity(_ context.Context, id string, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok {
		return cart.ErrNotFound
	}
	it.Quantity = quantity
	return nil
}

func (r *memCartRepo) Remove(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return cart.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *memCartRepo) Clear(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, it := range r.items {
		if it.UserID == userID {
			delete(r.items, id)
		}
	}
	return nil
}

func (r *memCartRepo) ListByUser(_ context.Context, userID string) ([]domain.CartItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.CartItem
	for _, it := range r.items {
		if it.UserID == userID {
			out = append(out, *it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memOrderRepo struct {
	mu        sync.Mutex
	seq       int
	purchases map[string]*domain.Purchase
	orders    map[string]*domain.PrintOrder
	notes     []domain.OrderNote
	history   []domain.OrderStatusHistory
	audit     []domain.AdminAuditLog
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{
		purchases: make(map[string]*domain.Purchase),
		orders:    make(map[string]*domain.PrintOrder),
	}
}

func (r *memOrderRepo) nextID(prefix string) string {
	r.seq++
	return fmt.Sprintf("%s-%d", prefix, r.seq)
}

func (r *memOrderRepo) CreatePurchase(_ context.Context, p *domain.Purchase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ex := range r.purchases {
		if ex.PaymentIntentID == p.PaymentIntentID && ex.StorybookID == p.StorybookID && ex.Type == p.Type {
			return order.ErrDuplicate
		}
	}
	p.ID = r.nextID("pur")
	p.CreatedAt = time.Now()
	cp := *p
	r.purchases[p.ID] = &cp
	return nil
}

func (r *memOrderRepo) CreateCheckout(_ context.Context, purchases []*domain.Purchase, orders []*domain.PrintOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool)
	for _, ex := range r.purchases {
		seen[ex.PaymentIntentID+"/"+ex.StorybookID+"/"+string(ex.Type)] = true
	}
	for _, p := range purchases {
		key := p.PaymentIntentID + "/" + p.StorybookID + "/" + string(p.Type)
		if seen[key] {
			return order.ErrDuplicate
		}
		seen[key] = true
	}
	for _, p := range purchases {
		if p.ID == "" {
			p.ID = r.nextID("pur")
		}
		p.CreatedAt = time.Now()
		cp := *p
		r.purchases[p.ID] = &cp
	}
	for _, o := range orders {
		if o.ID == "" {
			o.ID = r.nextID("po")
		}
		o.CreatedAt = time.Now()
		co := *o
		r.orders[o.ID] = &co
	}
	return nil
}

func (r *memOrderRepo) GetPurchase(_ context.Context, id string) (*domain.Purchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.purchases[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memOrderRepo) ListPurchasesByUser(_ context.Context, userID string) ([]domain.Purchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Purchase
	for _, p := range r.purchases {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *memOrderRepo) ListPurchasesByIntent(_ context.Context, intentID string) ([]domain.Purchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Purchase
	for _, p := range r.purchases {
		if p.PaymentIntentID == intentID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *memOrderRepo) SetPurchaseStatus(_ context.Context, id string, status domain.PurchaseStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.purchases[id]
	if !ok {
		return order.ErrNotFound
	}
	p.Status = status
	return nil
}

func (r *memOrderRepo) OrderReferenceExists(_ context.Context, ref string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.purchases {
		if p.OrderReference == ref {
			return true, nil
		}
	}
	return false, nil
}

func (r *memOrderRepo) CreatePrintOrder(_ context.Context, o *domain.PrintOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o.ID = r.nextID("po")
	o.CreatedAt = time.Now()
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *memOrderRepo) GetPrintOrder(_ context.Context, id string) (*domain.PrintOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *memOrderRepo) GetPrintOrderByProvider(_ context.Context, providerOrderID string) (*domain.PrintOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.ProviderOrderID == providerOrderID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, order.ErrNotFound
}

func (r *memOrderRepo) GetPrintOrderByPurchase(_ context.Context, purchaseID string) (*domain.PrintOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.PurchaseID == purchaseID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, order.ErrNotFound
}

func (r *memOrderRepo) ListPrintOrders(_ context.Context, f order.PrintOrderFilter) ([]domain.PrintOrder, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []domain.PrintOrder
	for _, o := range r.orders {
		if f.UserID != "" && o.UserID != f.UserID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		all = append(all, *o)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := len(all)
	if f.Offset >= len(all) {
		return nil, total, nil
	}
	all = all[f.Offset:]
	if f.Limit > 0 && f.Limit < len(all) {
		all = all[:f.Limit]
	}
	return all, total, nil
}

func (r *memOrderRepo) ListStuck(_ context.Context, status domain.PrintOrderStatus, cutoff time.Time) ([]domain.PrintOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.PrintOrder
	for _, o := range r.orders {
		if o.Status == status && o.CreatedAt.Before(cutoff) {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *memOrderRepo) Transition(_ context.Context, id string, from, to domain.PrintOrderStatus, reason, actor string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	if o.Status != from {
		return order.ErrInvalidTransition
	}
	o.Status = to
	r.history = append(r.history, domain.OrderStatusHistory{
		ID: r.nextID("h"), PrintOrderID: id, FromStatus: from, ToStatus: to,
		Reason: reason, Actor: actor, CreatedAt: time.Now(),
	})
	return nil
}

func (r *memOrderRepo) SetProviderOrder(_ context.Context, id, providerOrderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	o.ProviderOrderID = providerOrderID
	return nil
}

func (r *memOrderRepo) SetTracking(_ context.Context, id, trackingNumber, trackingURL, carrier string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	o.TrackingNumber = trackingNumber
	o.TrackingURL = trackingURL
	o.Carrier = carrier
	return nil
}

func (r *memOrderRepo) AddNote(_ context.Context, n *domain.OrderNote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n.ID = r.nextID("note")
	n.CreatedAt = time.Now()
	r.notes = append(r.notes, *n)
	return nil
}

func (r *memOrderRepo) ListNotes(_ context.Context, printOrderID string) ([]domain.OrderNote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.OrderNote
	for _, n := range r.notes {
		if n.PrintOrderID == printOrderID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *memOrderRepo) ListStatusHistory(_ context.Context, printOrderID string) ([]domain.OrderStatusHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.OrderStatusHistory
	for _, h := range r.history {
		if h.PrintOrderID == printOrderID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r *memOrderRepo) RecordAdminAction(_ context.Context, a *domain.AdminAuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.ID = r.nextID("audit")
	a.CreatedAt = time.Now()
	r.audit = append(r.audit, *a)
	return nil
}

// fakePayments opens fake intents and records refunds.
type fakePayments struct {
	mu      sync.Mutex
	seq     int
	refunds []string
	cancels []string
}

func (f *fakePayments) CreateIntent(_ context.Context, _ int64, _ string, _ map[string]string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	id := fmt.Sprintf("pi_%d", f.seq)
	return id, id + "_secret", nil
}

func (f *fakePayments) IntentStatus(_ context.Context, _ string) (string, error) {
	return "requires_payment_method", nil
}

func (f *fakePayments) CancelIntent(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels = append(f.cancels, id)
	return nil
}

func (f *fakePayments) Refund(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refunds = append(f.refunds, id)
	return nil
}

type fakeMailer struct{}

func (fakeMailer) SendOrderConfirmation(context.Context, string, string, int64, string) error {
	return nil
}

func (fakeMailer) SendShippingNotice(context.Context, string, string, string, string) error {
	return nil
}

// fakeStager records staged webhook events.
type fakeStager struct {
	mu     sync.Mutex
	staged []string
}

func (f *fakeStager) Stage(_ context.Context, provider, eventType string, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.staged = append(f.staged, provider+":"+eventType)
	return nil
}
