package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-media-api/internal/models"
)

const lessonColumns = "id, course_id, title, status, created_at, updated_at"

// LessonRepository manages persistence for lessons.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository constructs a LessonRepository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// ListByCourse returns a page of active lessons of a course.
func (r *LessonRepository) ListByCourse(ctx context.Context, filter models.LessonFilter) ([]models.Lesson, int, error) {
	args := []interface{}{filter.CourseID, models.StatusActive}
	conditions := []string{"course_id = $1", "status = $2"}
	if strings.TrimSpace(filter.Keyword) != "" {
		args = append(args, likePattern(filter.Keyword))
		conditions = append(conditions, fmt.Sprintf("LOWER(title) LIKE $%d", len(args)))
	}
	where := " WHERE " + strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"id":         "id",
		"title":      "title",
		"created_at": "created_at",
	}
	column, order := orderClause(allowedSorts, filter.SortBy, "id", filter.SortOrder, "ASC")
	limit, offset := paging(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s FROM lessons%s ORDER BY %s %s LIMIT %d OFFSET %d", lessonColumns, where, column, order, limit, offset)
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list lessons: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM lessons"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count lessons: %w", err)
	}
	return lessons, total, nil
}

// FindActiveByID fetches an active lesson. Missing and deleted rows yield sql.ErrNoRows.
func (r *LessonRepository) FindActiveByID(ctx context.Context, id int64) (*models.Lesson, error) {
	query := "SELECT " + lessonColumns + " FROM lessons WHERE id = $1 AND status = $2"
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, query, id, models.StatusActive); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// Create inserts a new active lesson.
func (r *LessonRepository) Create(ctx context.Context, lesson *models.Lesson) error {
	now := time.Now().UTC()
	lesson.Status = models.StatusActive
	lesson.CreatedAt = now
	lesson.UpdatedAt = now
	const query = `INSERT INTO lessons (course_id, title, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, lesson.CourseID, lesson.Title, lesson.Status, lesson.CreatedAt, lesson.UpdatedAt).Scan(&lesson.ID); err != nil {
		return fmt.Errorf("create lesson: %w", err)
	}
	return nil
}

// Update modifies an active lesson. A missing or deleted row yields sql.ErrNoRows.
func (r *LessonRepository) Update(ctx context.Context, lesson *models.Lesson) error {
	lesson.UpdatedAt = time.Now().UTC()
	const query = `UPDATE lessons SET course_id = $1, title = $2, updated_at = $3
WHERE id = $4 AND status = $5 RETURNING created_at`
	row := r.db.QueryRowxContext(ctx, query, lesson.CourseID, lesson.Title, lesson.UpdatedAt, lesson.ID, models.StatusActive)
	if err := row.Scan(&lesson.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("update lesson: %w", err)
	}
	lesson.Status = models.StatusActive
	return nil
}

// SoftDelete marks an active lesson as deleted.
func (r *LessonRepository) SoftDelete(ctx context.Context, id int64) error {
	const query = `UPDATE lessons SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	return softDeleteRow(ctx, r.db, "lesson", query, id)
}
