package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/course-media-api/internal/dto"
	"github.com/noah-isme/course-media-api/internal/models"
)

type mediaCoordinator interface {
	ListActive(ctx context.Context, owner models.OwnerRef, kind models.MediaKind) ([]models.Attachment, error)
	ListActiveByOwners(ctx context.Context, ownerKind models.OwnerKind, ownerIDs []int64, kind models.MediaKind) (map[int64][]models.Attachment, error)
	ApplyChanges(ctx context.Context, owner models.OwnerRef, kind models.MediaKind, changes dto.MediaChanges) ([]models.Attachment, error)
}

// ownerMedia applies media changes on behalf of an owner save. Failures are
// collected instead of returned so the owner fields stay saved.
type ownerMedia struct {
	media  mediaCoordinator
	logger *zap.Logger
}

func (o ownerMedia) apply(ctx context.Context, owner models.OwnerRef, kind models.MediaKind, changes dto.MediaChanges, failures *[]models.MediaFailure) {
	if o.media == nil || changes.Empty() {
		return
	}
	if _, err := o.media.ApplyChanges(ctx, owner, kind, changes); err != nil {
		o.logger.Warn("owner media update failed",
			zap.String("owner", owner.String()),
			zap.String("media_kind", string(kind)),
			zap.Error(err),
		)
		*failures = append(*failures, mediaFailure(kind, err))
	}
}

func (o ownerMedia) list(ctx context.Context, owner models.OwnerRef, kind models.MediaKind) ([]models.Attachment, error) {
	if o.media == nil {
		return []models.Attachment{}, nil
	}
	return o.media.ListActive(ctx, owner, kind)
}

// listPage fetches the active media of a page of owners in one batched lookup.
func (o ownerMedia) listPage(ctx context.Context, ownerKind models.OwnerKind, ids []int64, kind models.MediaKind) (map[int64][]models.Attachment, error) {
	if o.media == nil || len(ids) == 0 {
		return map[int64][]models.Attachment{}, nil
	}
	return o.media.ListActiveByOwners(ctx, ownerKind, ids, kind)
}

func orEmpty(attachments []models.Attachment) []models.Attachment {
	if attachments == nil {
		return []models.Attachment{}
	}
	return attachments
}

func newPagination(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
