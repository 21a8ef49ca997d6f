package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/saiyamvora13/vesabooks/internal/domain"
	"github.com/saiyamvora13/vesabooks/internal/service/storybook"
)

// StorybookRepo implements storybook.Repository against PostgreSQL.
type StorybookRepo struct{ db *sql.DB }

// NewStorybookRepo creates a Postgres-backed storybook repository.
func NewStorybookRepo(db *sql.DB) *StorybookRepo { return &StorybookRepo{db: db} }

func (r *StorybookRepo) Create(ctx context.Context, b *domain.Storybook) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create storybook: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO storybooks (id, user_id, title, orientation, cover_image_url, cover_thumb_url, back_cover_image_url, is_public, generation_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
	`, b.ID, b.UserID, b.Title, b.Orientation, b.CoverImageURL, b.CoverThumbURL, b.BackCoverImageURL, b.IsPublic, b.GenerationStatus)
	if err != nil {
		return fmt.Errorf("insert storybook: %w", err)
	}
	if err := insertPages(ctx, tx, b.ID, b.Pages); err != nil {
		return err
	}
	return tx.Commit()
}

func insertPages(ctx context.Context, tx *sql.Tx, bookID string, pages []domain.StoryPage) error {
	for _, p := range pages {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO storybook_pages (storybook_id, page_number, text, image_url)
			VALUES ($1, $2, $3, $4)
		`, bookID, p.PageNumber, p.Text, p.ImageURL)
		if err != nil {
			return fmt.Errorf("insert page %d: %w", p.PageNumber, err)
		}
	}
	return nil
}

func (r *StorybookRepo) GetByID(ctx context.Context, id string) (*domain.Storybook, error) {
	var b domain.Storybook
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, orientation,
		       COALESCE(cover_image_url, ''), COALESCE(cover_thumb_url, ''), COALESCE(back_cover_image_url, ''),
		       is_public, generation_status, created_at, updated_at
		FROM storybooks WHERE id = $1
	`, id).Scan(&b.ID, &b.UserID, &b.Title, &b.Orientation,
		&b.CoverImageURL, &b.CoverThumbURL, &b.BackCoverImageURL, &b.IsPublic, &b.GenerationStatus,
		&b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storybook.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get storybook: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT page_number, text, COALESCE(image_url, '')
		FROM storybook_pages WHERE storybook_id = $1 ORDER BY page_number
	`, id)
	if err != nil {
		return nil, fmt.Errorf("get storybook pages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p domain.StoryPage
		if err := rows.Scan(&p.PageNumber, &p.Text, &p.ImageURL); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		b.Pages = append(b.Pages, p)
	}
	return &b, rows.Err()
}

func (r *StorybookRepo) Update(ctx context.Context, b *domain.Storybook) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update storybook: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE storybooks
		SET title = $2, orientation = $3, cover_image_url = $4, cover_thumb_url = $5, back_cover_image_url = $6, updated_at = NOW()
		WHERE id = $1
	`, b.ID, b.Title, b.Orientation, b.CoverImageURL, b.CoverThumbURL, b.BackCoverImageURL)
	if err != nil {
		return fmt.Errorf("update storybook: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storybook.ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM storybook_pages WHERE storybook_id = $1`, b.ID); err != nil {
		return fmt.Errorf("clear pages: %w", err)
	}
	if err := insertPages(ctx, tx, b.ID, b.Pages); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *StorybookRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM storybooks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete storybook: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storybook.ErrNotFound
	}
	return nil
}

const storybookCols = `id, user_id, title, orientation,
       COALESCE(cover_image_url, ''), COALESCE(cover_thumb_url, ''), COALESCE(back_cover_image_url, ''),
       is_public, generation_status, created_at, updated_at`

func scanStorybooks(rows *sql.Rows) ([]domain.Storybook, error) {
	defer rows.Close()
	var out []domain.Storybook
	for rows.Next() {
		var b domain.Storybook
		if err := rows.Scan(&b.ID, &b.UserID, &b.Title, &b.Orientation,
			&b.CoverImageURL, &b.CoverThumbURL, &b.BackCoverImageURL, &b.IsPublic, &b.GenerationStatus,
			&b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan storybook: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListByUser returns list rows without pages; GetByID loads the full book.
func (r *StorybookRepo) ListByUser(ctx context.Context, userID string) ([]domain.Storybook, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+storybookCols+` FROM storybooks WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list storybooks: %w", err)
	}
	return scanStorybooks(rows)
}

func (r *StorybookRepo) ListPublic(ctx context.Context, limit, offset int) ([]domain.Storybook, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM storybooks WHERE is_public = true AND generation_status = 'completed'`,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count gallery: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+storybookCols+`
		FROM storybooks
		WHERE is_public = true AND generation_status = 'completed'
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list gallery: %w", err)
	}
	books, err := scanStorybooks(rows)
	return books, total, err
}

func (r *StorybookRepo) SetPublic(ctx context.Context, id string, public bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE storybooks SET is_public = $2, updated_at = NOW() WHERE id = $1`, id, public)
	if err != nil {
		return fmt.Errorf("set storybook visibility: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storybook.ErrNotFound
	}
	return nil
}

func (r *StorybookRepo) SetGenerationStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE storybooks SET generation_status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("set generation status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storybook.ErrNotFound
	}
	return nil
}
