package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/saiyamvora13/vesabooks/internal/domain"
)

// mockRepo is an in-memory cart repository keyed the way the unique index is.
type mockRepo struct {
	mu    sync.Mutex
	next  int
	items map[string]*domain.CartItem // by ID
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[string]*domain.CartItem)}
}

func lineKey(it *domain.CartItem) string {
	return fmt.Sprintf("%s|%s|%s|%s", it.UserID, it.StorybookID, it.ProductType, it.BookSize)
}

func (m *mockRepo) Upsert(_ context.Context, item *domain.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if lineKey(existing) == lineKey(item) {
			existing.Quantity += item.Quantity
			*item = *existing
			return nil
		}
	}
	m.next++
	item.ID = fmt.Sprintf("item-%03d", m.next)
	cp := *item
	m.items[item.ID] = &cp
	return nil
}

func (m *mockRepo) Get(_ context.Context, id string) (*domain.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *it
	return &cp, nil
}

func (m *mockRepo) SetQuantity(_ context.Context, id string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	it.Quantity = quantity
	return nil
}

func (m *mockRepo) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *mockRepo) Clear(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, it := range m.items {
		if it.UserID == userID {
			delete(m.items, id)
		}
	}
	return nil
}

func (m *mockRepo) ListByUser(_ context.Context, userID string) ([]domain.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.CartItem
	for _, it := range m.items {
		if it.UserID == userID {
			out = append(out, *it)
		}
	}
	return out, nil
}

// mockCatalog serves a fixed set of storybooks.
type mockCatalog struct {
	books map[string]*domain.Storybook
}

func (m *mockCatalog) GetByID(_ context.Context, id string) (*domain.Storybook, error) {
	b, ok := m.books[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return b, nil
}

var testPricing = Pricing{
	DigitalCents:  999,
	Print6x9Cents: 3499,
	Print8x8Cents: 3999,
	ShippingCents: 599,
}

func newTestService(repo *mockRepo) *Service {
	catalog := &mockCatalog{books: map[string]*domain.Storybook{
		"book-1": {ID: "book-1", UserID: "user-1", Title: "Mine"},
		"book-2": {ID: "book-2", UserID: "someone-else", Title: "Public", IsPublic: true},
	}}
	return NewService(repo, catalog, testPricing)
}

func TestAdd_SameProductIncrementsQuantity(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	req := AddRequest{StorybookID: "book-1", ProductType: domain.ProductPrint, BookSize: domain.BookSize6x9, Quantity: 1}
	if _, err := svc.Add(ctx, "user-1", req); err != nil {
		t.Fatalf("Add #1: %v", err)
	}
	if _, err := svc.Add(ctx, "user-1", req); err != nil {
		t.Fatalf("Add #2: %v", err)
	}

	items, _ := repo.ListByUser(ctx, "user-1")
	if len(items) != 1 {
		t.Fatalf("expected 1 cart line, got %d", len(items))
	}
	if items[0].Quantity != 2 {
		t.Errorf("expected quantity 2, got %d", items[0].Quantity)
	}
}

func TestAdd_DifferentSizeIsSeparateLine(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	_, _ = svc.Add(ctx, "user-1", AddRequest{StorybookID: "book-1", ProductType: domain.ProductPrint, BookSize: domain.BookSize6x9})
	_, _ = svc.Add(ctx, "user-1", AddRequest{StorybookID: "book-1", ProductType: domain.ProductPrint, BookSize: domain.BookSize8x8})

	items, _ := repo.ListByUser(ctx, "user-1")
	if len(items) != 2 {
		t.Fatalf("expected 2 cart lines, got %d", len(items))
	}
}

func TestAdd_DigitalNormalizesBookSize(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	_, _ = svc.Add(ctx, "user-1", AddRequest{StorybookID: "book-1", ProductType: domain.ProductDigital, BookSize: domain.BookSize6x9})
	_, _ = svc.Add(ctx, "user-1", AddRequest{StorybookID: "book-1", ProductType: domain.ProductDigital, BookSize: domain.BookSize8x8})

	items, _ := repo.ListByUser(ctx, "user-1")
	if len(items) != 1 {
		t.Fatalf("expected digital sizes to collapse into 1 line, got %d", len(items))
	}
	if items[0].PriceCents != testPricing.DigitalCents {
		t.Errorf("expected digital price %d, got %d", testPricing.DigitalCents, items[0].PriceCents)
	}
}

func TestAdd_UnknownOrPrivateBook(t *testing.T) {
	svc := newTestService(newMockRepo())
	ctx := context.Background()

	if _, err := svc.Add(ctx, "user-1", AddRequest{StorybookID: "nope", ProductType: domain.ProductDigital}); !errors.Is(err, ErrBookNotFound) {
		t.Errorf("expected ErrBookNotFound, got %v", err)
	}
	// book-1 is private to user-1.
	if _, err := svc.Add(ctx, "user-9", AddRequest{StorybookID: "book-1", ProductType: domain.ProductDigital}); !errors.Is(err, ErrBookNotFound) {
		t.Errorf("expected ErrBookNotFound for private book, got %v", err)
	}
	// book-2 is public, anyone can buy it.
	if _, err := svc.Add(ctx, "user-9", AddRequest{StorybookID: "book-2", ProductType: domain.ProductDigital}); err != nil {
		t.Errorf("public book add: %v", err)
	}
}

func TestSetQuantity_ZeroRemoves(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	item, err := svc.Add(ctx, "user-1", AddRequest{StorybookID: "book-1", ProductType: domain.ProductDigital})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := svc.SetQuantity(ctx, "user-1", item.ID, 3); err != nil {
		t.Fatalf("SetQuantity: %v", err)
	}
	got, _ := repo.Get(ctx, item.ID)
	if got.Quantity != 3 {
		t.Errorf("expected quantity 3, got %d", got.Quantity)
	}

	if err := svc.SetQuantity(ctx, "user-1", item.ID, 0); err != nil {
		t.Fatalf("SetQuantity(0): %v", err)
	}
	if _, err := repo.Get(ctx, item.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected item removed, got %v", err)
	}
}

func TestSetQuantity_OtherUsersItem(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	item, _ := svc.Add(ctx, "user-1", AddRequest{StorybookID: "book-1", ProductType: domain.ProductDigital})

	if err := svc.SetQuantity(ctx, "user-9", item.ID, 5); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign item, got %v", err)
	}
	if err := svc.Remove(ctx, "user-9", item.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign remove, got %v", err)
	}
}

func TestGet_TotalsAndShipping(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	_, _ = svc.Add(ctx, "user-1", AddRequest{StorybookID: "book-1", ProductType: domain.ProductDigital})
	sum, err := svc.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sum.ShippingCents != 0 {
		t.Errorf("digital-only cart should have no shipping, got %d", sum.ShippingCents)
	}
	if sum.TotalCents != testPricing.DigitalCents {
		t.Errorf("expected total %d, got %d", testPricing.DigitalCents, sum.TotalCents)
	}

	_, _ = svc.Add(ctx, "user-1", AddRequest{StorybookID: "book-1", ProductType: domain.ProductPrint, BookSize: domain.BookSize6x9, Quantity: 2})
	sum, _ = svc.Get(ctx, "user-1")
	if sum.ShippingCents != testPricing.ShippingCents {
		t.Errorf("expected shipping %d, got %d", testPricing.ShippingCents, sum.ShippingCents)
	}
	want := testPricing.DigitalCents + 2*testPricing.Print6x9Cents + testPricing.ShippingCents
	if sum.TotalCents != want {
		t.Errorf("expected total %d, got %d", want, sum.TotalCents)
	}
}

func TestItemsForCheckout_EmptyCart(t *testing.T) {
	svc := newTestService(newMockRepo())

	if _, err := svc.ItemsForCheckout(context.Background(), "user-1"); err == nil {
		t.Error("expected error for empty cart")
	}
}
