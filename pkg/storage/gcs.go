package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/noah-isme/course-media-api/pkg/config"
)

const (
	gcsUploadTimeout = 10 * time.Minute
	gcsDeleteTimeout = 30 * time.Second
)

// GCSStore uploads blobs to a Google Cloud Storage bucket.
type GCSStore struct {
	client    *storage.Client
	bucket    string
	cdnDomain string
	folder    string
}

// NewGCSStore creates a storage client from the configured credentials.
func NewGCSStore(ctx context.Context, cfg config.GCSConfig, folder string) (*GCSStore, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("missing GCS_BUCKET")
	}
	opts := clientOptions(cfg)
	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSStore{
		client:    client,
		bucket:    cfg.Bucket,
		cdnDomain: strings.TrimRight(strings.TrimSpace(cfg.CDNDomain), "/"),
		folder:    folder,
	}, nil
}

func clientOptions(cfg config.GCSConfig) []option.ClientOption {
	if creds := strings.TrimSpace(cfg.CredentialsJSON); creds != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	if file := strings.TrimSpace(cfg.CredentialsFile); file != "" {
		return []option.ClientOption{option.WithCredentialsFile(file)}
	}
	return nil
}

// Upload streams the reader into a new object.
func (s *GCSStore) Upload(ctx context.Context, r io.Reader, meta UploadMeta) (StoredObject, error) {
	externalID := newExternalID(s.folder, meta.Filename)
	key, err := objectKey(externalID, meta.Resource)
	if err != nil {
		return StoredObject{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, gcsUploadTimeout)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	if meta.ContentType != "" {
		w.ContentType = meta.ContentType
	}
	w.CacheControl = "public, max-age=31536000, immutable"
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return StoredObject{}, fmt.Errorf("write object %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return StoredObject{}, fmt.Errorf("close object writer %q: %w", key, err)
	}
	return StoredObject{URL: s.publicURL(key), ExternalID: externalID}, nil
}

// Delete removes the object. A missing object is not an error.
func (s *GCSStore) Delete(ctx context.Context, externalID string, kind ResourceKind) error {
	key, err := objectKey(externalID, kind)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, gcsDeleteTimeout)
	defer cancel()
	if err := s.client.Bucket(s.bucket).Object(key).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete object %q in bucket %q: %w", key, s.bucket, err)
	}
	return nil
}

// Close releases the storage client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) publicURL(key string) string {
	key = strings.TrimLeft(key, "/")
	if s.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", s.cdnDomain, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, key)
}
