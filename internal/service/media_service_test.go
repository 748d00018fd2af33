package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/course-media-api/internal/dto"
	"github.com/noah-isme/course-media-api/internal/models"
	appErrors "github.com/noah-isme/course-media-api/pkg/errors"
	"github.com/noah-isme/course-media-api/pkg/imaging"
	"github.com/noah-isme/course-media-api/pkg/storage"
)

var (
	pngHeader = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)
	mp4Header = append([]byte("\x00\x00\x00\x18ftypmp42\x00\x00\x00\x00mp42isom"), make([]byte, 64)...)
)

func fileUpload(name string, content []byte) dto.Upload {
	return dto.Upload{
		Filename: name,
		Size:     int64(len(content)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(content)), nil
		},
	}
}

type memoryAttachmentRepo struct {
	mu        sync.Mutex
	rows      []models.Attachment
	appendErr error
	deleted   [][]int64
	calls     []string
}

func (m *memoryAttachmentRepo) ListActive(ctx context.Context, owner models.OwnerRef, kind models.MediaKind) ([]models.Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []models.Attachment
	for _, row := range m.rows {
		if row.Owner() == owner && row.Status.IsActive() && (kind == "" || row.MediaKind == kind) {
			result = append(result, row)
		}
	}
	return result, nil
}

func (m *memoryAttachmentRepo) ListActiveByOwners(ctx context.Context, ownerKind models.OwnerKind, ownerIDs []int64, kind models.MediaKind) (map[int64][]models.Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	grouped := make(map[int64][]models.Attachment)
	for _, id := range ownerIDs {
		for _, row := range m.rows {
			if row.OwnerKind == ownerKind && row.OwnerID == id && row.Status.IsActive() && (kind == "" || row.MediaKind == kind) {
				grouped[id] = append(grouped[id], row)
			}
		}
	}
	return grouped, nil
}

func (m *memoryAttachmentRepo) NextOrderIndex(ctx context.Context, exec sqlx.ExtContext, owner models.OwnerRef, kind models.MediaKind) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nextLocked(owner, kind), nil
}

func (m *memoryAttachmentRepo) nextLocked(owner models.OwnerRef, kind models.MediaKind) int {
	highest := 0
	for _, row := range m.rows {
		if row.Owner() == owner && row.MediaKind == kind && row.OrderIndex > highest {
			highest = row.OrderIndex
		}
	}
	return highest + 1
}

func (m *memoryAttachmentRepo) AppendBatch(ctx context.Context, exec sqlx.ExtContext, owner models.OwnerRef, kind models.MediaKind, blobs []models.Attachment) ([]models.Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "append")
	if m.appendErr != nil {
		return nil, m.appendErr
	}
	next := m.nextLocked(owner, kind)
	created := make([]models.Attachment, 0, len(blobs))
	for i, blob := range blobs {
		row := models.Attachment{
			ID:         int64(len(m.rows) + 1),
			OwnerKind:  owner.Kind(),
			OwnerID:    owner.ID(),
			URL:        blob.URL,
			ExternalID: blob.ExternalID,
			MediaKind:  kind,
			OrderIndex: next + i,
			Status:     models.StatusActive,
			CreatedAt:  time.Now(),
		}
		m.rows = append(m.rows, row)
		created = append(created, row)
	}
	return created, nil
}

func (m *memoryAttachmentRepo) SoftDelete(ctx context.Context, exec sqlx.ExtContext, ids []int64) (int64, error) {
	return m.softDelete(ids, func(models.Attachment) bool { return true })
}

func (m *memoryAttachmentRepo) SoftDeleteOwned(ctx context.Context, exec sqlx.ExtContext, owner models.OwnerRef, kind models.MediaKind, ids []int64) (int64, error) {
	return m.softDelete(ids, func(row models.Attachment) bool { return row.Owner() == owner && row.MediaKind == kind })
}

func (m *memoryAttachmentRepo) softDelete(ids []int64, match func(models.Attachment) bool) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "delete")
	m.deleted = append(m.deleted, ids)
	var count int64
	for _, id := range ids {
		for i := range m.rows {
			if m.rows[i].ID == id && m.rows[i].Status.IsActive() && match(m.rows[i]) {
				m.rows[i].Status = models.StatusDeleted
				count++
			}
		}
	}
	return count, nil
}

func (m *memoryAttachmentRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type fakeBlobStore struct {
	mu       sync.Mutex
	failOn   map[string]error
	uploads  []storage.UploadMeta
	deleted  []string
	sequence int
}

func (f *fakeBlobStore) Upload(ctx context.Context, r io.Reader, meta storage.UploadMeta) (storage.StoredObject, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return storage.StoredObject{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, meta)
	if err, ok := f.failOn[meta.Filename]; ok {
		return storage.StoredObject{}, err
	}
	f.sequence++
	id := fmt.Sprintf("course_management/blob-%d", f.sequence)
	return storage.StoredObject{URL: "https://cdn.test/" + id, ExternalID: id}, nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, externalID string, kind storage.ResourceKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, string(kind)+":"+externalID)
	return nil
}

type stubOwners struct {
	missing map[models.OwnerRef]bool
}

func (s stubOwners) ActiveOwnerExists(ctx context.Context, owner models.OwnerRef) (bool, error) {
	return !s.missing[owner], nil
}

type stubNormalizer struct{}

func (stubNormalizer) Normalize(data []byte, filename string) (imaging.Result, error) {
	return imaging.Result{Data: []byte("RIFFwebp"), Filename: "normalised.webp", ContentType: "image/webp"}, nil
}

func TestFilterUploadable(t *testing.T) {
	files := FilterUploadable([]dto.Upload{
		{},
		fileUpload("cover.png", pngHeader),
		{Filename: "empty.png", Size: 0},
	})
	require.Len(t, files, 1)
	assert.Equal(t, "cover.png", files[0].Filename)
}

func TestMediaServiceAttachManyFreshScope(t *testing.T) {
	repo := &memoryAttachmentRepo{}
	blobs := &fakeBlobStore{failOn: map[string]error{}}
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	svc := NewMediaService(repo, blobs, tx, nil, nil, MediaOptions{UploadConcurrency: 3}, NewMetricsService(), zap.NewNop())

	created, err := svc.AttachMany(context.Background(), models.CourseOwner(1), models.MediaThumbnail, []dto.Upload{
		fileUpload("a.png", pngHeader),
		fileUpload("b.png", pngHeader),
		fileUpload("c.png", pngHeader),
	})
	require.NoError(t, err)
	require.Len(t, created, 3)
	for i, attachment := range created {
		assert.Equal(t, i+1, attachment.OrderIndex)
		assert.Equal(t, models.StatusActive, attachment.Status)
		assert.NotEmpty(t, attachment.ExternalID)
	}
	assert.Len(t, blobs.uploads, 3)
	assert.Equal(t, storage.ResourceImage, blobs.uploads[0].Resource)
	assert.Equal(t, "image/png", blobs.uploads[0].ContentType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMediaServiceAttachKeepsInputOrder(t *testing.T) {
	repo := &memoryAttachmentRepo{}
	blobs := &fakeBlobStore{failOn: map[string]error{}}
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	svc := NewMediaService(repo, blobs, tx, nil, nil, MediaOptions{UploadConcurrency: 1}, nil, nil)

	created, err := svc.AttachMany(context.Background(), models.LessonOwner(2), models.MediaVideo, []dto.Upload{
		fileUpload("first.mp4", mp4Header),
		fileUpload("second.mp4", mp4Header),
	})
	require.NoError(t, err)
	assert.Equal(t, "course_management/blob-1", created[0].ExternalID)
	assert.Equal(t, "course_management/blob-2", created[1].ExternalID)
	assert.Equal(t, storage.ResourceVideo, blobs.uploads[0].Resource)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMediaServiceAttachDeleteAttachNeverReusesIndex(t *testing.T) {
	repo := &memoryAttachmentRepo{}
	blobs := &fakeBlobStore{failOn: map[string]error{}}
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()
	svc := NewMediaService(repo, blobs, tx, nil, nil, MediaOptions{UploadConcurrency: 2}, nil, nil)
	ctx := context.Background()
	owner := models.StudentOwner(5)

	first, err := svc.AttachMany(ctx, owner, models.MediaAvatar, []dto.Upload{fileUpload("a.png", pngHeader), fileUpload("b.png", pngHeader)})
	require.NoError(t, err)

	second, err := svc.ApplyChanges(ctx, owner, models.MediaAvatar, dto.MediaChanges{
		DeleteIDs: []int64{first[0].ID, first[1].ID},
		Files:     []dto.Upload{fileUpload("c.png", pngHeader)},
	})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, 3, second[0].OrderIndex)
	assert.Equal(t, []string{"append", "delete", "append"}, repo.calls)

	active, err := svc.ListActive(ctx, owner, models.MediaAvatar)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second[0].ID, active[0].ID)

	next, err := svc.NextOrderIndex(ctx, owner, models.MediaAvatar)
	require.NoError(t, err)
	assert.Equal(t, 4, next)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMediaServiceAttachFailingLastUploadPersistsNothing(t *testing.T) {
	repo := &memoryAttachmentRepo{}
	blobs := &fakeBlobStore{failOn: map[string]error{"broken.png": errors.New("503 from blob store")}}
	tx, mock := newTxProviderMock(t)
	svc := NewMediaService(repo, blobs, tx, nil, nil, MediaOptions{UploadConcurrency: 1, CleanupOrphans: true}, nil, nil)

	created, err := svc.AttachMany(context.Background(), models.CourseOwner(1), models.MediaThumbnail, []dto.Upload{
		fileUpload("ok.png", pngHeader),
		fileUpload("broken.png", pngHeader),
	})
	require.Error(t, err)
	assert.Nil(t, created)
	assert.ErrorIs(t, err, appErrors.ErrUpstreamUpload)
	assert.Equal(t, 0, repo.count())
	assert.Len(t, blobs.uploads, 2)
	assert.Equal(t, []string{"image:course_management/blob-1"}, blobs.deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMediaServiceAttachFailureWithoutCleanupLeavesOrphan(t *testing.T) {
	repo := &memoryAttachmentRepo{}
	blobs := &fakeBlobStore{failOn: map[string]error{"broken.mp4": errors.New("timeout")}}
	tx, _ := newTxProviderMock(t)
	svc := NewMediaService(repo, blobs, tx, nil, nil, MediaOptions{UploadConcurrency: 1}, nil, nil)

	_, err := svc.AttachMany(context.Background(), models.LessonOwner(1), models.MediaVideo, []dto.Upload{
		fileUpload("ok.mp4", mp4Header),
		fileUpload("broken.mp4", mp4Header),
	})
	require.Error(t, err)
	assert.Equal(t, 0, repo.count())
	assert.Empty(t, blobs.deleted)
}

func TestMediaServiceAttachPersistFailureRollsBack(t *testing.T) {
	repo := &memoryAttachmentRepo{appendErr: errors.New("duplicate key value violates unique constraint")}
	blobs := &fakeBlobStore{failOn: map[string]error{}}
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()
	svc := NewMediaService(repo, blobs, tx, nil, nil, MediaOptions{CleanupOrphans: true}, nil, nil)

	_, err := svc.AttachMany(context.Background(), models.CourseOwner(1), models.MediaThumbnail, []dto.Upload{fileUpload("a.png", pngHeader)})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	assert.Len(t, blobs.deleted, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMediaServiceAttachValidation(t *testing.T) {
	repo := &memoryAttachmentRepo{}
	blobs := &fakeBlobStore{failOn: map[string]error{}}
	tx, mock := newTxProviderMock(t)
	owners := stubOwners{missing: map[models.OwnerRef]bool{models.CourseOwner(404): true}}
	svc := NewMediaService(repo, blobs, tx, owners, nil, MediaOptions{MaxFileSizeBytes: 1024}, nil, nil)
	ctx := context.Background()

	_, err := svc.AttachMany(ctx, models.CourseOwner(1), models.MediaVideo, []dto.Upload{fileUpload("a.mp4", mp4Header)})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.AttachMany(ctx, models.OwnerRef{}, models.MediaThumbnail, []dto.Upload{fileUpload("a.png", pngHeader)})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.AttachMany(ctx, models.CourseOwner(404), models.MediaThumbnail, []dto.Upload{fileUpload("a.png", pngHeader)})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.AttachMany(ctx, models.CourseOwner(1), models.MediaThumbnail, []dto.Upload{fileUpload("a.png", make([]byte, 2048))})
	require.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Equal(t, MessageMediaTooLarge, appErrors.FromError(err).Message)

	_, err = svc.AttachMany(ctx, models.LessonOwner(1), models.MediaVideo, []dto.Upload{fileUpload("fake.mp4", pngHeader)})
	require.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Equal(t, MessageMediaTypeInvalid, appErrors.FromError(err).Message)

	assert.Empty(t, blobs.uploads)
	assert.Equal(t, 0, repo.count())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMediaServiceAttachEmptyBatch(t *testing.T) {
	blobs := &fakeBlobStore{}
	tx, mock := newTxProviderMock(t)
	svc := NewMediaService(&memoryAttachmentRepo{}, blobs, tx, stubOwners{}, nil, MediaOptions{}, nil, nil)

	created, err := svc.AttachMany(context.Background(), models.CourseOwner(1), models.MediaThumbnail, []dto.Upload{{}, {Filename: "x.png"}})
	require.NoError(t, err)
	assert.NotNil(t, created)
	assert.Empty(t, created)
	assert.Empty(t, blobs.uploads)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMediaServiceAttachNormalisesImages(t *testing.T) {
	repo := &memoryAttachmentRepo{}
	blobs := &fakeBlobStore{failOn: map[string]error{}}
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	svc := NewMediaService(repo, blobs, tx, nil, stubNormalizer{}, MediaOptions{}, nil, nil)

	_, err := svc.AttachMany(context.Background(), models.StudentOwner(1), models.MediaAvatar, []dto.Upload{fileUpload("me.png", pngHeader)})
	require.NoError(t, err)
	require.Len(t, blobs.uploads, 1)
	assert.Equal(t, "normalised.webp", blobs.uploads[0].Filename)
	assert.Equal(t, "image/webp", blobs.uploads[0].ContentType)
	assert.Equal(t, int64(8), blobs.uploads[0].Size)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMediaServiceSoftDeleteSkipsUnknownAndDuplicates(t *testing.T) {
	repo := &memoryAttachmentRepo{rows: []models.Attachment{
		{ID: 1, OwnerKind: models.OwnerCourse, OwnerID: 1, MediaKind: models.MediaThumbnail, OrderIndex: 1, Status: models.StatusActive},
		{ID: 2, OwnerKind: models.OwnerCourse, OwnerID: 2, MediaKind: models.MediaThumbnail, OrderIndex: 1, Status: models.StatusActive},
	}}
	svc := NewMediaService(repo, &fakeBlobStore{}, nil, nil, nil, MediaOptions{}, nil, nil)
	ctx := context.Background()

	count, err := svc.SoftDelete(ctx, []int64{1, 1, 99})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = svc.SoftDeleteOwned(ctx, models.CourseOwner(1), models.MediaThumbnail, []int64{2})
	require.NoError(t, err)
	assert.Zero(t, count)

	grouped, err := svc.ListActiveByOwners(ctx, models.OwnerCourse, []int64{1, 2}, models.MediaThumbnail)
	require.NoError(t, err)
	assert.Empty(t, grouped[1])
	assert.Len(t, grouped[2], 1)
}
