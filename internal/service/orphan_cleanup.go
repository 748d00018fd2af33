package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/course-media-api/pkg/jobs"
	"github.com/noah-isme/course-media-api/pkg/storage"
)

const orphanCleanupJobType = "media.orphan.delete"

// CleanupDispatcher accepts orphan blob deletions for background processing.
type CleanupDispatcher interface {
	Enqueue(job jobs.Job) error
}

// OrphanBlob identifies a blob that no attachment row references.
type OrphanBlob struct {
	ExternalID string
	Resource   storage.ResourceKind
}

// OrphanCleanupWorker deletes orphan blobs handed over by the media service.
// Returned errors make the queue retry the job.
type OrphanCleanupWorker struct {
	blobs   BlobStore
	metrics *MetricsService
	logger  *zap.Logger
}

// NewOrphanCleanupWorker constructs the worker.
func NewOrphanCleanupWorker(blobs BlobStore, metrics *MetricsService, logger *zap.Logger) *OrphanCleanupWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrphanCleanupWorker{blobs: blobs, metrics: metrics, logger: logger}
}

// Handle processes one queued deletion.
func (w *OrphanCleanupWorker) Handle(ctx context.Context, job jobs.Job) error {
	blob, ok := job.Payload.(OrphanBlob)
	if !ok {
		w.logger.Error("unexpected orphan cleanup payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	err := w.blobs.Delete(ctx, blob.ExternalID, blob.Resource)
	w.metrics.RecordOrphanCleanup(err == nil)
	if err != nil {
		return err
	}
	w.logger.Debug("orphan blob deleted", zap.String("external_id", blob.ExternalID), zap.Int("attempt", job.Attempt))
	return nil
}

// Abandon records a deletion the queue gave up on. The blob stays in the
// store and is logged with enough detail to remove it by hand.
func (w *OrphanCleanupWorker) Abandon(job jobs.Job, err error) {
	blob, _ := job.Payload.(OrphanBlob)
	w.logger.Error("orphan blob left in store",
		zap.String("job_id", job.ID),
		zap.String("external_id", blob.ExternalID),
		zap.String("resource", string(blob.Resource)),
		zap.Int("attempts", job.Attempt),
		zap.Error(err),
	)
}
