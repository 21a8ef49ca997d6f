// Package storage persists generated assets (page illustrations, covers,
// print-ready PDFs) and hands out URLs for serving them. Production uses S3;
// local development writes to a directory on disk.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/saiyamvora13/vesabooks/internal/config"
)

// Store is the object storage contract.
type Store interface {
	// Put writes an object and returns its serving URL.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)

	// Get reads an object back.
	Get(ctx context.Context, key string) ([]byte, error)

	// SignedURL returns a time-limited URL an external party (the print
	// partner) can fetch the object from.
	SignedURL(ctx context.Context, key string) (string, error)
}

// New builds the store selected by config.
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Type {
	case "s3":
		return NewS3Store(ctx, cfg)
	case "local", "":
		return NewLocalStore(cfg.LocalPath, cfg.PublicURL)
	}
	return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
}

// PutImage stores image bytes under the images/ prefix. It adapts any Store
// to the signature the storybook generator wants.
type ImageStore struct{ Store }

// NewImageStore wraps a store for image uploads.
func NewImageStore(s Store) *ImageStore { return &ImageStore{Store: s} }

// PutImage writes an image and returns its serving URL.
func (s *ImageStore) PutImage(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	return s.Put(ctx, "images/"+key, data, contentType)
}

// Fetcher resolves an asset URL to its bytes. Local store paths
// (/files/<key>) are read straight from the store; absolute URLs are
// fetched over HTTP. PDF rendering uses this to load illustrations.
func Fetcher(store Store) func(ctx context.Context, url string) ([]byte, error) {
	return func(ctx context.Context, url string) ([]byte, error) {
		if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return nil, err
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return nil, fmt.Errorf("fetch image: status %d", resp.StatusCode)
			}
			return readAll(resp.Body)
		}
		key := strings.TrimPrefix(strings.TrimPrefix(url, "/files/"), "/")
		return store.Get(ctx, key)
	}
}

func readAll(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading object: %w", err)
	}
	return data, nil
}
