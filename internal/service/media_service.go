package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/course-media-api/internal/dto"
	"github.com/noah-isme/course-media-api/internal/models"
	appErrors "github.com/noah-isme/course-media-api/pkg/errors"
	"github.com/noah-isme/course-media-api/pkg/imaging"
	"github.com/noah-isme/course-media-api/pkg/jobs"
	"github.com/noah-isme/course-media-api/pkg/storage"
)

const orphanCleanupTimeout = 30 * time.Second

// Message keys for media failures.
const (
	MessageMediaUploadFailed = "media.upload.failed"
	MessageMediaTooLarge     = "media.file.too.large"
	MessageMediaTypeInvalid  = "media.type.invalid"
	MessageMediaKindInvalid  = "media.kind.not.allowed"
	MessageMediaOwnerInvalid = "media.owner.invalid"
)

type attachmentRepository interface {
	ListActive(ctx context.Context, owner models.OwnerRef, kind models.MediaKind) ([]models.Attachment, error)
	ListActiveByOwners(ctx context.Context, ownerKind models.OwnerKind, ownerIDs []int64, kind models.MediaKind) (map[int64][]models.Attachment, error)
	NextOrderIndex(ctx context.Context, exec sqlx.ExtContext, owner models.OwnerRef, kind models.MediaKind) (int, error)
	AppendBatch(ctx context.Context, exec sqlx.ExtContext, owner models.OwnerRef, kind models.MediaKind, blobs []models.Attachment) ([]models.Attachment, error)
	SoftDelete(ctx context.Context, exec sqlx.ExtContext, ids []int64) (int64, error)
	SoftDeleteOwned(ctx context.Context, exec sqlx.ExtContext, owner models.OwnerRef, kind models.MediaKind, ids []int64) (int64, error)
}

// BlobStore materialises upload bytes into durable blobs.
type BlobStore interface {
	Upload(ctx context.Context, r io.Reader, meta storage.UploadMeta) (storage.StoredObject, error)
	Delete(ctx context.Context, externalID string, kind storage.ResourceKind) error
}

// ImageNormalizer re-encodes still images before upload.
type ImageNormalizer interface {
	Normalize(data []byte, filename string) (imaging.Result, error)
}

type ownerResolver interface {
	ActiveOwnerExists(ctx context.Context, owner models.OwnerRef) (bool, error)
}

// MediaOptions tunes upload handling.
type MediaOptions struct {
	UploadConcurrency int
	MaxFileSizeBytes  int64
	CleanupOrphans    bool
	// Cleanup receives orphan deletions when set; otherwise they run inline.
	Cleanup CleanupDispatcher
}

// MediaService maintains ordered, soft-deletable attachment collections and
// bridges uploads to the blob store.
type MediaService struct {
	repo       attachmentRepository
	blobs      BlobStore
	tx         txProvider
	owners     ownerResolver
	normalizer ImageNormalizer
	opts       MediaOptions
	metrics    *MetricsService
	logger     *zap.Logger
}

// NewMediaService wires the media engine. owners and normalizer are optional.
func NewMediaService(
	repo attachmentRepository,
	blobs BlobStore,
	tx txProvider,
	owners ownerResolver,
	normalizer ImageNormalizer,
	opts MediaOptions,
	metrics *MetricsService,
	logger *zap.Logger,
) *MediaService {
	if opts.UploadConcurrency <= 0 {
		opts.UploadConcurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaService{
		repo:       repo,
		blobs:      blobs,
		tx:         tx,
		owners:     owners,
		normalizer: normalizer,
		opts:       opts,
		metrics:    metrics,
		logger:     logger,
	}
}

// FilterUploadable drops empty placeholder entries.
func FilterUploadable(candidates []dto.Upload) []dto.Upload {
	files := make([]dto.Upload, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.IsPlaceholder() {
			continue
		}
		files = append(files, candidate)
	}
	return files
}

// ListActive returns the owner's active attachments, optionally of one kind.
func (s *MediaService) ListActive(ctx context.Context, owner models.OwnerRef, kind models.MediaKind) ([]models.Attachment, error) {
	if !owner.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, MessageMediaOwnerInvalid)
	}
	attachments, err := s.repo.ListActive(ctx, owner, kind)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attachments")
	}
	if attachments == nil {
		attachments = []models.Attachment{}
	}
	return attachments, nil
}

// ListActiveByOwners groups active attachments of a page of owners by owner id.
func (s *MediaService) ListActiveByOwners(ctx context.Context, ownerKind models.OwnerKind, ownerIDs []int64, kind models.MediaKind) (map[int64][]models.Attachment, error) {
	grouped, err := s.repo.ListActiveByOwners(ctx, ownerKind, ownerIDs, kind)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attachments")
	}
	return grouped, nil
}

// NextOrderIndex reports the index the next attachment of the scope would receive.
// AttachMany recomputes it under the scope lock; this value is informational.
func (s *MediaService) NextOrderIndex(ctx context.Context, owner models.OwnerRef, kind models.MediaKind) (int, error) {
	if !owner.Valid() {
		return 0, appErrors.Clone(appErrors.ErrValidation, MessageMediaOwnerInvalid)
	}
	next, err := s.repo.NextOrderIndex(ctx, nil, owner, kind)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute order index")
	}
	return next, nil
}

// AttachMany uploads the files and, only when every upload succeeded, persists one
// active attachment per file with consecutive order indices.
func (s *MediaService) AttachMany(ctx context.Context, owner models.OwnerRef, kind models.MediaKind, candidates []dto.Upload) ([]models.Attachment, error) {
	if err := checkScope(owner, kind); err != nil {
		return nil, err
	}
	files := FilterUploadable(candidates)
	if len(files) == 0 {
		return []models.Attachment{}, nil
	}
	if err := s.resolveOwner(ctx, owner); err != nil {
		return nil, err
	}

	contentTypes := make([]string, len(files))
	for i, file := range files {
		contentType, err := s.inspect(kind, file)
		if err != nil {
			return nil, err
		}
		contentTypes[i] = contentType
	}

	uploaded := make([]*storage.StoredObject, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.UploadConcurrency)
	for i := range files {
		i := i
		g.Go(func() error {
			obj, err := s.uploadOne(gctx, kind, files[i], contentTypes[i])
			if err != nil {
				return fmt.Errorf("upload %s: %w", files[i].Filename, err)
			}
			uploaded[i] = &obj
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.cleanupOrphans(ctx, kind, uploaded)
		return nil, appErrors.Wrap(err, appErrors.ErrUpstreamUpload.Code, appErrors.ErrUpstreamUpload.Status, MessageMediaUploadFailed)
	}

	blobs := make([]models.Attachment, len(uploaded))
	for i, obj := range uploaded {
		blobs[i] = models.Attachment{URL: obj.URL, ExternalID: obj.ExternalID}
	}
	created, err := s.persist(ctx, owner, kind, blobs)
	if err != nil {
		s.cleanupOrphans(ctx, kind, uploaded)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save attachments")
	}
	s.logger.Info("attachments created",
		zap.String("owner", owner.String()),
		zap.String("media_kind", string(kind)),
		zap.Int("count", len(created)),
		zap.Int("first_index", created[0].OrderIndex),
	)
	return created, nil
}

// SoftDelete marks the given active attachments deleted. Unknown ids are skipped.
func (s *MediaService) SoftDelete(ctx context.Context, ids []int64) (int64, error) {
	count, err := s.repo.SoftDelete(ctx, nil, ids)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete attachments")
	}
	return count, nil
}

// SoftDeleteOwned is SoftDelete limited to attachments of the owner and kind.
func (s *MediaService) SoftDeleteOwned(ctx context.Context, owner models.OwnerRef, kind models.MediaKind, ids []int64) (int64, error) {
	if !owner.Valid() {
		return 0, appErrors.Clone(appErrors.ErrValidation, MessageMediaOwnerInvalid)
	}
	count, err := s.repo.SoftDeleteOwned(ctx, nil, owner, kind, ids)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete attachments")
	}
	if count < int64(len(ids)) {
		s.logger.Debug("attachment delete skipped ids",
			zap.String("owner", owner.String()),
			zap.String("media_kind", string(kind)),
			zap.Int("requested", len(ids)),
			zap.Int64("deleted", count),
		)
	}
	return count, nil
}

// ApplyChanges removes the listed attachments and then appends the new files,
// so new indices are computed after the deletions.
func (s *MediaService) ApplyChanges(ctx context.Context, owner models.OwnerRef, kind models.MediaKind, changes dto.MediaChanges) ([]models.Attachment, error) {
	if len(changes.DeleteIDs) > 0 {
		if _, err := s.SoftDeleteOwned(ctx, owner, kind, changes.DeleteIDs); err != nil {
			return nil, err
		}
	}
	return s.AttachMany(ctx, owner, kind, changes.Files)
}

func checkScope(owner models.OwnerRef, kind models.MediaKind) error {
	if !owner.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, MessageMediaOwnerInvalid)
	}
	if !owner.Kind().Accepts(kind) {
		return appErrors.WithDetails(appErrors.ErrValidation, MessageMediaKindInvalid, string(owner.Kind())+"."+string(kind))
	}
	return nil
}

func (s *MediaService) resolveOwner(ctx context.Context, owner models.OwnerRef) error {
	if s.owners == nil {
		return nil
	}
	exists, err := s.owners.ActiveOwnerExists(ctx, owner)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve attachment owner")
	}
	if !exists {
		return appErrors.Clone(appErrors.ErrNotFound, string(owner.Kind())+".not.found")
	}
	return nil
}

// inspect enforces the size limit and sniffs the content type from the file header.
func (s *MediaService) inspect(kind models.MediaKind, file dto.Upload) (string, error) {
	if s.opts.MaxFileSizeBytes > 0 && file.Size > s.opts.MaxFileSizeBytes {
		return "", appErrors.WithDetails(appErrors.ErrValidation, MessageMediaTooLarge, file.Filename)
	}
	rc, err := file.Open()
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, MessageMediaTypeInvalid)
	}
	defer rc.Close() //nolint:errcheck

	detected, err := mimetype.DetectReader(rc)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, MessageMediaTypeInvalid)
	}
	contentType := detected.String()
	want := "image/"
	if kind.IsVideo() {
		want = "video/"
	}
	if !strings.HasPrefix(contentType, want) {
		return "", appErrors.WithDetails(appErrors.ErrValidation, MessageMediaTypeInvalid, file.Filename, contentType)
	}
	return contentType, nil
}

func (s *MediaService) uploadOne(ctx context.Context, kind models.MediaKind, file dto.Upload, contentType string) (storage.StoredObject, error) {
	rc, err := file.Open()
	if err != nil {
		return storage.StoredObject{}, fmt.Errorf("open upload: %w", err)
	}
	defer rc.Close() //nolint:errcheck

	meta := storage.UploadMeta{
		Filename:    file.Filename,
		ContentType: contentType,
		Size:        file.Size,
		Resource:    resourceKind(kind),
	}
	var body io.Reader = rc
	if s.normalizer != nil && !kind.IsVideo() && imaging.Supports(contentType) {
		data, err := io.ReadAll(rc)
		if err != nil {
			return storage.StoredObject{}, fmt.Errorf("read upload: %w", err)
		}
		body = bytes.NewReader(data)
		if result, normErr := s.normalizer.Normalize(data, file.Filename); normErr != nil {
			s.logger.Warn("image normalisation skipped", zap.String("filename", file.Filename), zap.Error(normErr))
		} else {
			body = bytes.NewReader(result.Data)
			meta.Filename = result.Filename
			meta.ContentType = result.ContentType
			meta.Size = int64(len(result.Data))
		}
	}

	start := time.Now()
	obj, err := s.blobs.Upload(ctx, body, meta)
	s.metrics.ObserveBlobUpload(kind, err == nil, time.Since(start))
	if err != nil {
		return storage.StoredObject{}, err
	}
	return obj, nil
}

func (s *MediaService) persist(ctx context.Context, owner models.OwnerRef, kind models.MediaKind, blobs []models.Attachment) (created []models.Attachment, err error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin attachment transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	created, err = s.repo.AppendBatch(ctx, tx, owner, kind, blobs)
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit attachments: %w", err)
	}
	return created, nil
}

// cleanupOrphans deletes blobs uploaded by a batch that persisted no rows.
func (s *MediaService) cleanupOrphans(ctx context.Context, kind models.MediaKind, uploaded []*storage.StoredObject) {
	if !s.opts.CleanupOrphans {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), orphanCleanupTimeout)
	defer cancel()
	for _, obj := range uploaded {
		if obj == nil {
			continue
		}
		blob := OrphanBlob{ExternalID: obj.ExternalID, Resource: resourceKind(kind)}
		if s.opts.Cleanup != nil {
			err := s.opts.Cleanup.Enqueue(jobs.Job{ID: blob.ExternalID, Type: orphanCleanupJobType, Payload: blob})
			if err == nil {
				continue
			}
			s.logger.Warn("orphan cleanup enqueue failed, deleting inline", zap.String("external_id", blob.ExternalID), zap.Error(err))
		}
		err := s.blobs.Delete(ctx, blob.ExternalID, blob.Resource)
		s.metrics.RecordOrphanCleanup(err == nil)
		if err != nil {
			s.logger.Warn("orphan blob cleanup failed",
				zap.String("external_id", blob.ExternalID),
				zap.String("media_kind", string(kind)),
				zap.Error(err),
			)
		}
	}
}

func resourceKind(kind models.MediaKind) storage.ResourceKind {
	if kind.IsVideo() {
		return storage.ResourceVideo
	}
	return storage.ResourceImage
}

// mediaFailure converts a media error into the report attached to an owner save.
func mediaFailure(kind models.MediaKind, err error) models.MediaFailure {
	appErr := appErrors.FromError(err)
	return models.MediaFailure{MediaKind: kind, Code: appErr.Code, Message: appErr.Message}
}
