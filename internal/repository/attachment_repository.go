package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/course-media-api/internal/models"
)

const attachmentColumns = "id, owner_kind, owner_id, url, external_id, media_kind, order_index, status, created_at"

// AttachmentRepository persists polymorphic media attachments.
type AttachmentRepository struct {
	db *sqlx.DB
}

// NewAttachmentRepository constructs the repository.
func NewAttachmentRepository(db *sqlx.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

func (r *AttachmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListActive returns active attachments of the owner ordered by index. An empty kind returns every kind.
func (r *AttachmentRepository) ListActive(ctx context.Context, owner models.OwnerRef, kind models.MediaKind) ([]models.Attachment, error) {
	query := "SELECT " + attachmentColumns + " FROM attachments WHERE owner_kind = $1 AND owner_id = $2 AND status = $3"
	args := []interface{}{owner.Kind(), owner.ID(), models.StatusActive}
	if kind != "" {
		query += " AND media_kind = $4"
		args = append(args, kind)
	}
	query += " ORDER BY media_kind, order_index ASC"

	var attachments []models.Attachment
	if err := r.db.SelectContext(ctx, &attachments, query, args...); err != nil {
		return nil, fmt.Errorf("list attachments for %s: %w", owner, err)
	}
	return attachments, nil
}

// ListActiveByOwners groups active attachments of many owners of one kind by owner id.
func (r *AttachmentRepository) ListActiveByOwners(ctx context.Context, ownerKind models.OwnerKind, ownerIDs []int64, kind models.MediaKind) (map[int64][]models.Attachment, error) {
	grouped := make(map[int64][]models.Attachment, len(ownerIDs))
	if len(ownerIDs) == 0 {
		return grouped, nil
	}
	query := "SELECT " + attachmentColumns + " FROM attachments WHERE owner_kind = $1 AND owner_id = ANY($2) AND status = $3"
	if kind != "" {
		query += " AND media_kind = $4"
	}
	query += " ORDER BY owner_id, media_kind, order_index ASC"

	for _, chunk := range chunkIDs(ownerIDs) {
		args := []interface{}{ownerKind, pq.Array(chunk), models.StatusActive}
		if kind != "" {
			args = append(args, kind)
		}
		var rows []models.Attachment
		if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
			return nil, fmt.Errorf("list attachments for %s owners: %w", ownerKind, err)
		}
		for _, row := range rows {
			grouped[row.OwnerID] = append(grouped[row.OwnerID], row)
		}
	}
	return grouped, nil
}

// NextOrderIndex returns one above the highest index ever assigned in the scope, deleted rows included.
func (r *AttachmentRepository) NextOrderIndex(ctx context.Context, exec sqlx.ExtContext, owner models.OwnerRef, kind models.MediaKind) (int, error) {
	const query = `SELECT COALESCE(MAX(order_index), 0) + 1 FROM attachments WHERE owner_kind = $1 AND owner_id = $2 AND media_kind = $3`
	var next int
	if err := sqlx.GetContext(ctx, r.exec(exec), &next, query, owner.Kind(), owner.ID(), kind); err != nil {
		return 0, fmt.Errorf("compute next order index for %s/%s: %w", owner, kind, err)
	}
	return next, nil
}

// AppendBatch inserts the uploaded blobs as active attachments with consecutive order indices.
// It must run inside a transaction: the scope lock is released on commit or rollback.
func (r *AttachmentRepository) AppendBatch(ctx context.Context, exec sqlx.ExtContext, owner models.OwnerRef, kind models.MediaKind, blobs []models.Attachment) ([]models.Attachment, error) {
	if len(blobs) == 0 {
		return []models.Attachment{}, nil
	}
	target := r.exec(exec)

	const lockQuery = `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`
	if _, err := target.ExecContext(ctx, lockQuery, orderScopeKey(owner, kind)); err != nil {
		return nil, fmt.Errorf("lock attachment scope %s/%s: %w", owner, kind, err)
	}

	next, err := r.NextOrderIndex(ctx, target, owner, kind)
	if err != nil {
		return nil, err
	}

	const insertQuery = `INSERT INTO attachments (owner_kind, owner_id, media_kind, url, external_id, order_index, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	now := time.Now().UTC()
	created := make([]models.Attachment, 0, len(blobs))
	for i, blob := range blobs {
		attachment := models.Attachment{
			OwnerKind:  owner.Kind(),
			OwnerID:    owner.ID(),
			URL:        blob.URL,
			ExternalID: blob.ExternalID,
			MediaKind:  kind,
			OrderIndex: next + i,
			Status:     models.StatusActive,
			CreatedAt:  now,
		}
		row := target.QueryRowxContext(ctx, insertQuery,
			attachment.OwnerKind, attachment.OwnerID, attachment.MediaKind, attachment.URL,
			attachment.ExternalID, attachment.OrderIndex, attachment.Status, attachment.CreatedAt)
		if err := row.Scan(&attachment.ID); err != nil {
			return nil, fmt.Errorf("insert attachment %d for %s/%s: %w", attachment.OrderIndex, owner, kind, err)
		}
		created = append(created, attachment)
	}
	return created, nil
}

// SoftDelete marks the active attachments among ids as deleted. Unknown or already deleted ids are skipped.
func (r *AttachmentRepository) SoftDelete(ctx context.Context, exec sqlx.ExtContext, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	const query = `UPDATE attachments SET status = $1 WHERE id = ANY($2) AND status = $3`
	result, err := r.exec(exec).ExecContext(ctx, query, models.StatusDeleted, pq.Array(ids), models.StatusActive)
	if err != nil {
		return 0, fmt.Errorf("soft delete attachments: %w", err)
	}
	return result.RowsAffected()
}

// SoftDeleteOwned is SoftDelete restricted to one owner and media kind.
func (r *AttachmentRepository) SoftDeleteOwned(ctx context.Context, exec sqlx.ExtContext, owner models.OwnerRef, kind models.MediaKind, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	const query = `UPDATE attachments SET status = $1
WHERE id = ANY($2) AND status = $3 AND owner_kind = $4 AND owner_id = $5 AND media_kind = $6`
	result, err := r.exec(exec).ExecContext(ctx, query, models.StatusDeleted, pq.Array(ids), models.StatusActive, owner.Kind(), owner.ID(), kind)
	if err != nil {
		return 0, fmt.Errorf("soft delete %s attachments of %s: %w", kind, owner, err)
	}
	return result.RowsAffected()
}

func orderScopeKey(owner models.OwnerRef, kind models.MediaKind) string {
	return fmt.Sprintf("attachments:%s:%s", owner, kind)
}
