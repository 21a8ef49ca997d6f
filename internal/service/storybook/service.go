package storybook

import (
	"context"
	"fmt"
	"strings"

	"github.com/saiyamvora13/vesabooks/internal/compositor"
	"github.com/saiyamvora13/vesabooks/internal/domain"
	"github.com/saiyamvora13/vesabooks/internal/pkg/logger"
	"github.com/saiyamvora13/vesabooks/internal/share"
)

// coverThumbWidth bounds the gallery cover variant.
const coverThumbWidth = 512

// Generation status values stored on the storybook row.
const (
	StatusGenerating = "generating"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

const (
	minPages = 1
	maxPages = 50

	galleryDefaultLimit = 20
	galleryMaxLimit     = 100
)

// Generator produces story text and illustrations from prompts.
type Generator interface {
	// GenerateStory returns a title and pages for the given prompt.
	GenerateStory(ctx context.Context, prompt string, pageCount int) (string, []domain.StoryPage, error)

	// GenerateIllustration renders one illustration as encoded image bytes.
	GenerateIllustration(ctx context.Context, prompt string) ([]byte, error)
}

// ImageStore persists image bytes and returns a serving URL.
type ImageStore interface {
	PutImage(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// TitleCompositor draws the book title onto a cover illustration.
type TitleCompositor interface {
	OverlayTitle(cover []byte, title string) ([]byte, error)
}

// Service implements storybook business logic. Safe for concurrent use.
type Service struct {
	repo  Repository
	gen   Generator
	store ImageStore
	comp  TitleCompositor
}

// NewService creates a storybook service. gen, store and comp may be nil in
// deployments that do not generate books (the read-only API paths still work).
func NewService(repo Repository, gen Generator, store ImageStore, comp TitleCompositor) *Service {
	return &Service{repo: repo, gen: gen, store: store, comp: comp}
}

// GenerateRequest describes a new book to generate.
type GenerateRequest struct {
	Prompt      string             `json:"prompt"`
	PageCount   int                `json:"page_count"`
	Orientation domain.Orientation `json:"orientation"`
}

// Generate creates a storybook from a prompt: story text first, then one
// illustration per page plus front and back covers, with the title drawn onto
// the front cover. The book is persisted in "generating" state up front so a
// crashed generation is visible rather than silently absent.
func (s *Service) Generate(ctx context.Context, userID string, req GenerateRequest) (*domain.Storybook, error) {
	if s.gen == nil || s.store == nil {
		return nil, fmt.Errorf("generation is not configured")
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, fmt.Errorf("prompt is required")
	}
	if req.PageCount < minPages || req.PageCount > maxPages {
		return nil, fmt.Errorf("page count must be between %d and %d", minPages, maxPages)
	}
	orientation := req.Orientation
	if orientation == "" {
		orientation = domain.OrientationPortrait
	}

	title, pages, err := s.gen.GenerateStory(ctx, prompt, req.PageCount)
	if err != nil {
		return nil, fmt.Errorf("generate story: %w", err)
	}

	book := &domain.Storybook{
		UserID:           userID,
		Title:            title,
		Orientation:      orientation,
		Pages:            pages,
		GenerationStatus: StatusGenerating,
	}
	if err := s.repo.Create(ctx, book); err != nil {
		return nil, fmt.Errorf("create storybook: %w", err)
	}

	if err := s.illustrate(ctx, book, prompt); err != nil {
		logger.Error("storybook generation failed", "storybook_id", book.ID, "error", err.Error())
		if serr := s.repo.SetGenerationStatus(ctx, book.ID, StatusFailed); serr != nil {
			logger.Error("mark storybook failed", "storybook_id", book.ID, "error", serr.Error())
		}
		book.GenerationStatus = StatusFailed
		return book, fmt.Errorf("illustrate storybook: %w", err)
	}

	if err := s.repo.Update(ctx, book); err != nil {
		return nil, fmt.Errorf("save illustrated storybook: %w", err)
	}
	if err := s.repo.SetGenerationStatus(ctx, book.ID, StatusCompleted); err != nil {
		return nil, fmt.Errorf("mark storybook completed: %w", err)
	}
	book.GenerationStatus = StatusCompleted
	return book, nil
}

// illustrate fills in cover and page image URLs on book in place.
func (s *Service) illustrate(ctx context.Context, book *domain.Storybook, prompt string) error {
	cover, err := s.gen.GenerateIllustration(ctx, "cover illustration for: "+prompt)
	if err != nil {
		return fmt.Errorf("cover: %w", err)
	}
	if s.comp != nil {
		titled, err := s.comp.OverlayTitle(cover, book.Title)
		if err != nil {
			// Keep the plain cover rather than fail the whole book.
			logger.Warn("cover title overlay failed", "storybook_id", book.ID, "error", err.Error())
		} else {
			cover = titled
		}
	}
	url, err := s.store.PutImage(ctx, book.ID+"/cover.png", cover, "image/png")
	if err != nil {
		return fmt.Errorf("store cover: %w", err)
	}
	book.CoverImageURL = url

	// Gallery and library lists serve a downscaled cover; the full-size
	// one is only needed by the reader and the print pipeline.
	if thumb, err := compositor.Resize(cover, coverThumbWidth); err != nil {
		logger.Warn("cover thumbnail failed", "storybook_id", book.ID, "error", err.Error())
	} else if url, err := s.store.PutImage(ctx, book.ID+"/cover-thumb.png", thumb, "image/png"); err != nil {
		logger.Warn("store cover thumbnail failed", "storybook_id", book.ID, "error", err.Error())
	} else {
		book.CoverThumbURL = url
	}

	back, err := s.gen.GenerateIllustration(ctx, "back cover illustration for: "+prompt)
	if err != nil {
		return fmt.Errorf("back cover: %w", err)
	}
	if url, err = s.store.PutImage(ctx, book.ID+"/back.png", back, "image/png"); err != nil {
		return fmt.Errorf("store back cover: %w", err)
	}
	book.BackCoverImageURL = url

	for i := range book.Pages {
		img, err := s.gen.GenerateIllustration(ctx, book.Pages[i].Text)
		if err != nil {
			return fmt.Errorf("page %d: %w", book.Pages[i].PageNumber, err)
		}
		key := fmt.Sprintf("%s/page-%d.png", book.ID, book.Pages[i].PageNumber)
		url, err := s.store.PutImage(ctx, key, img, "image/png")
		if err != nil {
			return fmt.Errorf("store page %d: %w", book.Pages[i].PageNumber, err)
		}
		book.Pages[i].ImageURL = url
	}
	return nil
}

// Get returns a storybook if the requester owns it or it is public.
func (s *Service) Get(ctx context.Context, requesterID, id string) (*domain.Storybook, error) {
	book, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if book.UserID != requesterID && !book.IsPublic {
		return nil, ErrForbidden
	}
	return book, nil
}

// Load returns a storybook regardless of visibility. Callers must have
// verified entitlement some other way, e.g. a completed purchase.
func (s *Service) Load(ctx context.Context, id string) (*domain.Storybook, error) {
	return s.repo.GetByID(ctx, id)
}

// ListMine returns the requester's storybooks, newest first.
func (s *Service) ListMine(ctx context.Context, userID string) ([]domain.Storybook, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Gallery returns public completed storybooks with pagination.
func (s *Service) Gallery(ctx context.Context, limit, offset int) ([]domain.Storybook, int, error) {
	if limit <= 0 {
		limit = galleryDefaultLimit
	}
	if limit > galleryMaxLimit {
		limit = galleryMaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListPublic(ctx, limit, offset)
}

// UpdateRequest carries the owner-editable fields.
type UpdateRequest struct {
	Title string             `json:"title"`
	Pages []domain.StoryPage `json:"pages"`
}

// Update edits a storybook's title and page text. Owner only.
func (s *Service) Update(ctx context.Context, userID, id string, req UpdateRequest) (*domain.Storybook, error) {
	book, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if t := strings.TrimSpace(req.Title); t != "" {
		book.Title = t
	}
	if req.Pages != nil {
		book.Pages = req.Pages
	}
	if err := s.repo.Update(ctx, book); err != nil {
		return nil, fmt.Errorf("update storybook: %w", err)
	}
	return book, nil
}

// Delete removes a storybook. Owner only.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// SetPublic toggles gallery visibility. Owner only.
func (s *Service) SetPublic(ctx context.Context, userID, id string, public bool) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return s.repo.SetPublic(ctx, id, public)
}

// ShareToken returns a compressed URL-safe token encoding the storybook's
// text and image references, readable without an account.
func (s *Service) ShareToken(ctx context.Context, userID, id string) (string, error) {
	book, err := s.owned(ctx, userID, id)
	if err != nil {
		return "", err
	}
	token, err := share.Encode(share.FromStorybook(book))
	if err != nil {
		return "", fmt.Errorf("encode share token: %w", err)
	}
	return token, nil
}

// DecodeShareToken resolves a share token back into a displayable payload.
func (s *Service) DecodeShareToken(token string) (share.Payload, error) {
	return share.Decode(token)
}

func (s *Service) owned(ctx context.Context, userID, id string) (*domain.Storybook, error) {
	book, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if book.UserID != userID {
		return nil, ErrForbidden
	}
	return book, nil
}
