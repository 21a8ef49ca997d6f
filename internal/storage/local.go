package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes objects under a directory on disk. Serving URLs point at
// the API's /files/ route.
type LocalStore struct {
	root      string
	publicURL string
}

// NewLocalStore creates a directory-backed store, creating root if needed.
func NewLocalStore(root, publicURL string) (*LocalStore, error) {
	if root == "" {
		root = "./data/storage"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage dir: %w", err)
	}
	return &LocalStore{root: root, publicURL: strings.TrimSuffix(publicURL, "/")}, nil
}

// Root returns the directory objects are written under, for the file server.
func (s *LocalStore) Root() string { return s.root }

// cleanKey rejects path traversal and absolute keys.
func (s *LocalStore) cleanKey(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("empty object key")
	}
	return filepath.Join(s.root, clean), nil
}

func (s *LocalStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	path, err := s.cleanKey(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating object dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing object: %w", err)
	}
	return s.url(key), nil
}

func (s *LocalStore) Get(_ context.Context, key string) ([]byte, error) {
	path, err := s.cleanKey(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading object: %w", err)
	}
	return data, nil
}

// SignedURL on local storage is just the public URL; there is nothing to sign.
func (s *LocalStore) SignedURL(_ context.Context, key string) (string, error) {
	return s.url(key), nil
}

func (s *LocalStore) url(key string) string {
	base := s.publicURL
	if base == "" {
		base = "/files"
	}
	return base + "/" + strings.TrimPrefix(key, "/")
}
