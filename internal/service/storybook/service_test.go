package storybook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"sync"
	"testing"

	"github.com/saiyamvora13/vesabooks/internal/domain"
	"github.com/saiyamvora13/vesabooks/internal/share"
)

// mockRepo is an in-memory repository for testing.
type mockRepo struct {
	mu    sync.RWMutex
	next  int
	store map[string]*domain.Storybook
}

func newMockRepo() *mockRepo {
	return &mockRepo{store: make(map[string]*domain.Storybook)}
}

func (m *mockRepo) Create(_ context.Context, b *domain.Storybook) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == "" {
		m.next++
		b.ID = fmt.Sprintf("book-%03d", m.next)
	}
	cp := *b
	m.store[b.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id string) (*domain.Storybook, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, b *domain.Storybook) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[b.ID]; !ok {
		return ErrNotFound
	}
	cp := *b
	m.store[b.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return ErrNotFound
	}
	delete(m.store, id)
	return nil
}

func (m *mockRepo) ListByUser(_ context.Context, userID string) ([]domain.Storybook, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Storybook
	for _, b := range m.store {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *mockRepo) ListPublic(_ context.Context, limit, offset int) ([]domain.Storybook, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var all []domain.Storybook
	for _, b := range m.store {
		if b.IsPublic && b.GenerationStatus == StatusCompleted {
			all = append(all, *b)
		}
	}
	total := len(all)
	if offset > len(all) {
		offset = len(all)
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (m *mockRepo) SetPublic(_ context.Context, id string, public bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.store[id]
	if !ok {
		return ErrNotFound
	}
	b.IsPublic = public
	return nil
}

func (m *mockRepo) SetGenerationStatus(_ context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.store[id]
	if !ok {
		return ErrNotFound
	}
	b.GenerationStatus = status
	return nil
}

// mockGen returns canned story content. With realImages set it produces
// decodable PNGs instead of placeholder bytes.
type mockGen struct {
	failIllustration bool
	realImages       bool
}

func (g *mockGen) GenerateStory(_ context.Context, prompt string, pageCount int) (string, []domain.StoryPage, error) {
	pages := make([]domain.StoryPage, pageCount)
	for i := range pages {
		pages[i] = domain.StoryPage{PageNumber: i + 1, Text: fmt.Sprintf("Page %d of %s", i+1, prompt)}
	}
	return "The Brave Little Fox", pages, nil
}

func (g *mockGen) GenerateIllustration(_ context.Context, prompt string) ([]byte, error) {
	if g.failIllustration {
		return nil, errors.New("model overloaded")
	}
	if g.realImages {
		var buf bytes.Buffer
		if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1024, 768))); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return []byte("png-bytes"), nil
}

// mockStore records uploads and returns deterministic URLs.
type mockStore struct {
	mu   sync.Mutex
	keys []string
}

func (m *mockStore) PutImage(_ context.Context, key string, _ []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, key)
	return "https://cdn.example.com/" + key, nil
}

func newTestService(repo *mockRepo) *Service {
	return NewService(repo, &mockGen{}, &mockStore{}, nil)
}

func TestGenerate_CreatesCompletedBook(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	book, err := svc.Generate(context.Background(), "user-1", GenerateRequest{Prompt: "a fox", PageCount: 3})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if book.GenerationStatus != StatusCompleted {
		t.Errorf("expected status %q, got %q", StatusCompleted, book.GenerationStatus)
	}
	if book.Title == "" {
		t.Error("expected a generated title")
	}
	if len(book.Pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(book.Pages))
	}
	for _, p := range book.Pages {
		if p.ImageURL == "" {
			t.Errorf("page %d missing image URL", p.PageNumber)
		}
	}
	if book.CoverImageURL == "" || book.BackCoverImageURL == "" {
		t.Error("expected cover and back cover URLs")
	}
}

func TestGenerate_StoresCoverThumbnail(t *testing.T) {
	repo := newMockRepo()
	store := &mockStore{}
	svc := NewService(repo, &mockGen{realImages: true}, store, nil)

	book, err := svc.Generate(context.Background(), "user-1", GenerateRequest{Prompt: "a fox", PageCount: 2})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if book.CoverThumbURL == "" {
		t.Fatal("expected a cover thumbnail URL")
	}
	wantKey := book.ID + "/cover-thumb.png"
	found := false
	for _, k := range store.keys {
		if k == wantKey {
			found = true
		}
	}
	if !found {
		t.Errorf("expected upload of %q, got keys %v", wantKey, store.keys)
	}
}

func TestGenerate_IllustrationFailure_MarksFailed(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &mockGen{failIllustration: true}, &mockStore{}, nil)

	book, err := svc.Generate(context.Background(), "user-1", GenerateRequest{Prompt: "a fox", PageCount: 2})
	if err == nil {
		t.Fatal("expected error when illustration fails")
	}
	stored, gerr := repo.GetByID(context.Background(), book.ID)
	if gerr != nil {
		t.Fatalf("GetByID: %v", gerr)
	}
	if stored.GenerationStatus != StatusFailed {
		t.Errorf("expected stored status %q, got %q", StatusFailed, stored.GenerationStatus)
	}
}

func TestGenerate_ValidatesInput(t *testing.T) {
	svc := newTestService(newMockRepo())
	ctx := context.Background()

	if _, err := svc.Generate(ctx, "user-1", GenerateRequest{Prompt: "  ", PageCount: 3}); err == nil {
		t.Error("expected error for blank prompt")
	}
	if _, err := svc.Generate(ctx, "user-1", GenerateRequest{Prompt: "ok", PageCount: 0}); err == nil {
		t.Error("expected error for zero pages")
	}
	if _, err := svc.Generate(ctx, "user-1", GenerateRequest{Prompt: "ok", PageCount: maxPages + 1}); err == nil {
		t.Error("expected error for too many pages")
	}
}

func TestGet_EnforcesVisibility(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	private := &domain.Storybook{UserID: "owner", Title: "Private"}
	_ = repo.Create(ctx, private)

	if _, err := svc.Get(ctx, "owner", private.ID); err != nil {
		t.Errorf("owner read: %v", err)
	}
	if _, err := svc.Get(ctx, "stranger", private.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden for stranger, got %v", err)
	}

	_ = repo.SetPublic(ctx, private.ID, true)
	if _, err := svc.Get(ctx, "stranger", private.ID); err != nil {
		t.Errorf("public read: %v", err)
	}
}

func TestGallery_ClampsPagination(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		b := &domain.Storybook{UserID: "u", Title: "B", IsPublic: true, GenerationStatus: StatusCompleted}
		_ = repo.Create(ctx, b)
	}

	books, total, err := svc.Gallery(ctx, -1, -1)
	if err != nil {
		t.Fatalf("Gallery: %v", err)
	}
	if total != 5 {
		t.Errorf("expected total=5, got %d", total)
	}
	if len(books) != 5 {
		t.Errorf("expected 5 books with default limit, got %d", len(books))
	}

	books, _, _ = svc.Gallery(ctx, 2, 0)
	if len(books) != 2 {
		t.Errorf("expected 2 books with limit=2, got %d", len(books))
	}
}

func TestUpdateAndDelete_OwnerOnly(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	b := &domain.Storybook{UserID: "owner", Title: "Old"}
	_ = repo.Create(ctx, b)

	if _, err := svc.Update(ctx, "stranger", b.ID, UpdateRequest{Title: "Hacked"}); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	updated, err := svc.Update(ctx, "owner", b.ID, UpdateRequest{Title: "New"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "New" {
		t.Errorf("expected title New, got %q", updated.Title)
	}

	if err := svc.Delete(ctx, "stranger", b.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	if err := svc.Delete(ctx, "owner", b.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, b.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestShareToken_RoundTrip(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	b := &domain.Storybook{
		UserID: "owner",
		Title:  "The Brave Little Fox",
		Pages: []domain.StoryPage{
			{PageNumber: 1, Text: "Once upon a time.", ImageURL: "https://cdn.example.com/p1.png"},
		},
	}
	_ = repo.Create(ctx, b)

	token, err := svc.ShareToken(ctx, "owner", b.ID)
	if err != nil {
		t.Fatalf("ShareToken: %v", err)
	}

	payload, err := svc.DecodeShareToken(token)
	if err != nil {
		t.Fatalf("DecodeShareToken: %v", err)
	}
	if payload.Title != b.Title {
		t.Errorf("expected title %q, got %q", b.Title, payload.Title)
	}
	if len(payload.Pages) != 1 || payload.Pages[0].Text != "Once upon a time." {
		t.Errorf("unexpected pages: %+v", payload.Pages)
	}

	if _, err := svc.ShareToken(ctx, "stranger", b.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}

	if _, err := svc.DecodeShareToken("not-a-token"); !errors.Is(err, share.ErrBadPayload) {
		t.Errorf("expected ErrBadPayload, got %v", err)
	}
}
