package domain

import "time"

// Orientation enumerates the page aspect of a storybook.
type Orientation string

const (
	OrientationPortrait  Orientation = "portrait"
	OrientationLandscape Orientation = "landscape"
)

// StoryPage is a single spread of a storybook: illustration plus text.
// PageNumber is 1-based and unique within a storybook.
type StoryPage struct {
	PageNumber int    `json:"page_number" db:"page_number"`
	Text       string `json:"text" db:"text"`
	ImageURL   string `json:"image_url" db:"image_url"`
}

// Storybook represents a generated children's book.
type Storybook struct {
	ID                string      `json:"id" db:"id"`
	UserID            string      `json:"user_id" db:"user_id"`
	Title             string      `json:"title" db:"title"`
	Orientation       Orientation `json:"orientation" db:"orientation"`
	CoverImageURL     string      `json:"cover_image_url" db:"cover_image_url"`
	CoverThumbURL     string      `json:"cover_thumb_url" db:"cover_thumb_url"`
	BackCoverImageURL string      `json:"back_cover_image_url" db:"back_cover_image_url"`
	Pages             []StoryPage `json:"pages"`
	IsPublic          bool        `json:"is_public" db:"is_public"`
	GenerationStatus  string      `json:"generation_status" db:"generation_status"`
	CreatedAt         time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at" db:"updated_at"`
}

// PageCount returns the number of story pages.
func (s *Storybook) PageCount() int { return len(s.Pages) }
