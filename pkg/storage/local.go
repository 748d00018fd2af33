package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore persists blobs on disk under a base directory and serves them from a public base URL.
type LocalStore struct {
	baseDir       string
	publicBaseURL string
	folder        string
}

// NewLocalStore ensures the base directory exists and returns a handle.
func NewLocalStore(baseDir, publicBaseURL, folder string) (*LocalStore, error) {
	if baseDir == "" {
		baseDir = "./media"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create media directory: %w", err)
	}
	return &LocalStore{
		baseDir:       baseDir,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		folder:        folder,
	}, nil
}

// Upload copies the reader into a new file and returns its public address.
func (s *LocalStore) Upload(ctx context.Context, r io.Reader, meta UploadMeta) (StoredObject, error) {
	if err := ctx.Err(); err != nil {
		return StoredObject{}, err
	}
	externalID := newExternalID(s.folder, meta.Filename)
	key, err := objectKey(externalID, meta.Resource)
	if err != nil {
		return StoredObject{}, err
	}
	path := s.resolve(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return StoredObject{}, fmt.Errorf("prepare media directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return StoredObject{}, fmt.Errorf("create media file: %w", err)
	}
	if _, err := io.Copy(file, r); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return StoredObject{}, fmt.Errorf("write media file: %w", err)
	}
	if err := file.Close(); err != nil {
		return StoredObject{}, fmt.Errorf("close media file: %w", err)
	}
	return StoredObject{URL: s.publicBaseURL + "/" + key, ExternalID: externalID}, nil
}

// Delete removes a stored blob if present.
func (s *LocalStore) Delete(ctx context.Context, externalID string, kind ResourceKind) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := objectKey(externalID, kind)
	if err != nil {
		return err
	}
	if err := os.Remove(s.resolve(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete media file: %w", err)
	}
	return nil
}

// Open returns a read-only handle for the blob stored under key.
func (s *LocalStore) Open(key string) (*os.File, error) {
	cleaned := filepath.Clean("/" + key)
	if strings.Contains(key, "..") || cleaned == "/" {
		return nil, os.ErrNotExist
	}
	file, err := os.Open(s.resolve(cleaned))
	if err != nil {
		return nil, fmt.Errorf("open media file: %w", err)
	}
	return file, nil
}

// Path exposes the underlying path of a key (useful for debugging).
func (s *LocalStore) Path(key string) string {
	return s.resolve(key)
}

func (s *LocalStore) resolve(key string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(strings.TrimPrefix(key, "/")))
}
