package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/saiyamvora13/vesabooks/internal/domain"
	"github.com/saiyamvora13/vesabooks/internal/service/cart"
	"github.com/saiyamvora13/vesabooks/internal/service/storybook"
)

func TestStorybookCreate_InsertsBookAndPagesInOneTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewStorybookRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO storybooks").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO storybook_pages").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO storybook_pages").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b := &domain.Storybook{
		UserID: "user-1", Title: "The Brave Little Fox",
		Orientation: domain.OrientationPortrait, GenerationStatus: "generating",
		Pages: []domain.StoryPage{
			{PageNumber: 1, Text: "Once"},
			{PageNumber: 2, Text: "Upon"},
		},
	}
	if err := repo.Create(context.Background(), b); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if b.ID == "" {
		t.Error("expected an ID to be assigned")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestStorybookGetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewStorybookRepo(db)

	mock.ExpectQuery("SELECT (.+) FROM storybooks WHERE id").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, storybook.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStorybookSetPublic_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewStorybookRepo(db)

	mock.ExpectExec("UPDATE storybooks SET is_public").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.SetPublic(context.Background(), "missing", true); !errors.Is(err, storybook.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCartUpsert_ReturnsMergedQuantity(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewCartRepo(db)

	// Conflict path: the row already existed with quantity 2, we add 1.
	mock.ExpectQuery("INSERT INTO cart_items").
		WillReturnRows(sqlmock.NewRows([]string{"id", "quantity"}).AddRow("existing-id", 3))

	item := &domain.CartItem{
		UserID: "user-1", StorybookID: "book-1",
		ProductType: domain.ProductPrint, BookSize: domain.BookSize6x9, Quantity: 1,
	}
	if err := repo.Upsert(context.Background(), item); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if item.ID != "existing-id" || item.Quantity != 3 {
		t.Errorf("expected merged row (existing-id, 3), got (%s, %d)", item.ID, item.Quantity)
	}
}

func TestCartGet_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewCartRepo(db)

	mock.ExpectQuery("SELECT (.+) FROM cart_items WHERE id").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := repo.Get(context.Background(), "missing"); !errors.Is(err, cart.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
