// Package share encodes storybook payloads into URL-safe strings so a story
// can be shared by link without a database row. The payload is JSON,
// flate-compressed, then base64url-encoded. A one-byte version prefix keeps
// old links decodable if the format changes.
package share

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/saiyamvora13/vesabooks/internal/domain"
)

// formatVersion is prepended to the compressed payload before encoding.
const formatVersion = 1

// MaxEncodedLen caps share links at a length browsers and chat apps still
// accept. Stories beyond this should be shared by id instead.
const MaxEncodedLen = 8000

// ErrTooLarge is returned when the encoded payload exceeds MaxEncodedLen.
var ErrTooLarge = errors.New("story too large for a share link")

// ErrBadPayload is returned when a share string cannot be decoded.
var ErrBadPayload = errors.New("malformed share payload")

// Payload is the subset of a storybook embedded in a share link.
// Image URLs are included as-is; they point at public object storage.
type Payload struct {
	Title         string             `json:"t"`
	CoverImageURL string             `json:"c,omitempty"`
	Orientation   domain.Orientation `json:"o,omitempty"`
	Pages         []PagePayload      `json:"p"`
}

// PagePayload is one story page inside a share link.
type PagePayload struct {
	Text     string `json:"x"`
	ImageURL string `json:"i,omitempty"`
}

// FromStorybook builds a share payload from a storybook.
func FromStorybook(s *domain.Storybook) Payload {
	p := Payload{
		Title:         s.Title,
		CoverImageURL: s.CoverImageURL,
		Orientation:   s.Orientation,
	}
	for _, pg := range s.Pages {
		p.Pages = append(p.Pages, PagePayload{Text: pg.Text, ImageURL: pg.ImageURL})
	}
	return p
}

// Encode serializes, compresses, and base64url-encodes the payload.
func Encode(p Payload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal share payload: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteByte(formatVersion)
	fw, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return "", fmt.Errorf("init compressor: %w", err)
	}
	if _, err := fw.Write(raw); err != nil {
		return "", fmt.Errorf("compress share payload: %w", err)
	}
	if err := fw.Close(); err != nil {
		return "", fmt.Errorf("flush compressor: %w", err)
	}

	out := base64.RawURLEncoding.EncodeToString(buf.Bytes())
	if len(out) > MaxEncodedLen {
		return "", ErrTooLarge
	}
	return out, nil
}

// Decode reverses Encode. Unknown versions and corrupt data return
// ErrBadPayload.
func Decode(s string) (Payload, error) {
	var p Payload

	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil || len(raw) < 2 {
		return p, ErrBadPayload
	}
	if raw[0] != formatVersion {
		return p, ErrBadPayload
	}

	fr := flate.NewReader(bytes.NewReader(raw[1:]))
	defer fr.Close()
	decompressed, err := io.ReadAll(io.LimitReader(fr, 1<<20))
	if err != nil {
		return p, ErrBadPayload
	}

	if err := json.Unmarshal(decompressed, &p); err != nil {
		return p, ErrBadPayload
	}
	return p, nil
}
