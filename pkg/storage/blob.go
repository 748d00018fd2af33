package storage

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ResourceKind selects image or video handling on the blob backend.
type ResourceKind string

// Resource kinds understood by the blob stores.
const (
	ResourceImage ResourceKind = "image"
	ResourceVideo ResourceKind = "video"
)

// UploadMeta describes a payload handed to a blob store.
type UploadMeta struct {
	Filename    string
	ContentType string
	Size        int64
	Resource    ResourceKind
}

// StoredObject is the durable address of an uploaded blob.
type StoredObject struct {
	URL        string `json:"url"`
	ExternalID string `json:"external_id"`
}

func normaliseResource(kind ResourceKind) ResourceKind {
	if kind == ResourceVideo {
		return ResourceVideo
	}
	return ResourceImage
}

// newExternalID returns folder/<uuid><ext> keeping the original extension.
func newExternalID(folder, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	name := uuid.NewString() + ext
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return name
	}
	return folder + "/" + name
}

// objectKey maps an external id to the backend key under its resource prefix.
func objectKey(externalID string, kind ResourceKind) (string, error) {
	cleaned := path.Clean("/" + strings.TrimSpace(externalID))
	if cleaned == "/" || strings.Contains(externalID, "..") {
		return "", fmt.Errorf("invalid external id %q", externalID)
	}
	return string(normaliseResource(kind)) + cleaned, nil
}
