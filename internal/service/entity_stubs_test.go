package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/course-media-api/internal/dto"
	"github.com/noah-isme/course-media-api/internal/models"
	appErrors "github.com/noah-isme/course-media-api/pkg/errors"
)

type mediaCall struct {
	owner   models.OwnerRef
	kind    models.MediaKind
	changes dto.MediaChanges
}

type stubMediaCoordinator struct {
	attachments []models.Attachment
	failKinds   map[models.MediaKind]error
	applied     []mediaCall
	pageLookups int
}

func (s *stubMediaCoordinator) ListActive(ctx context.Context, owner models.OwnerRef, kind models.MediaKind) ([]models.Attachment, error) {
	var result []models.Attachment
	for _, attachment := range s.attachments {
		if attachment.Owner() == owner && (kind == "" || attachment.MediaKind == kind) {
			result = append(result, attachment)
		}
	}
	return result, nil
}

func (s *stubMediaCoordinator) ListActiveByOwners(ctx context.Context, ownerKind models.OwnerKind, ownerIDs []int64, kind models.MediaKind) (map[int64][]models.Attachment, error) {
	s.pageLookups++
	grouped := make(map[int64][]models.Attachment)
	for _, id := range ownerIDs {
		for _, attachment := range s.attachments {
			if attachment.OwnerKind == ownerKind && attachment.OwnerID == id && (kind == "" || attachment.MediaKind == kind) {
				grouped[id] = append(grouped[id], attachment)
			}
		}
	}
	return grouped, nil
}

func (s *stubMediaCoordinator) ApplyChanges(ctx context.Context, owner models.OwnerRef, kind models.MediaKind, changes dto.MediaChanges) ([]models.Attachment, error) {
	s.applied = append(s.applied, mediaCall{owner: owner, kind: kind, changes: changes})
	if err, ok := s.failKinds[kind]; ok {
		return nil, err
	}
	created := make([]models.Attachment, 0, len(changes.Files))
	for i, file := range changes.Files {
		attachment := models.Attachment{
			ID:         int64(len(s.attachments) + 1),
			OwnerKind:  owner.Kind(),
			OwnerID:    owner.ID(),
			URL:        "https://cdn.test/" + file.Filename,
			MediaKind:  kind,
			OrderIndex: i + 1,
			Status:     models.StatusActive,
		}
		s.attachments = append(s.attachments, attachment)
		created = append(created, attachment)
	}
	return created, nil
}

type memoryCacheRepo struct {
	mu      sync.Mutex
	entries map[string][]byte
	deletes []string
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: map[string][]byte{}}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = payload
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}

func uploadNamed(name string) dto.Upload {
	return fileUpload(name, pngHeader)
}
