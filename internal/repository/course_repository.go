package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/course-media-api/internal/models"
)

const courseColumns = "id, name, code, description, status, created_at, updated_at"

// CourseRepository manages persistence for courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns a page of active courses matching the filter.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	args := []interface{}{models.StatusActive}
	conditions := []string{"status = $1"}
	if strings.TrimSpace(filter.Keyword) != "" {
		args = append(args, likePattern(filter.Keyword))
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(code) LIKE $%d OR LOWER(description) LIKE $%d)", n, n, n))
	}
	where := " WHERE " + strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"id":         "id",
		"name":       "name",
		"code":       "code",
		"created_at": "created_at",
		"updated_at": "updated_at",
	}
	column, order := orderClause(allowedSorts, filter.SortBy, "id", filter.SortOrder, "DESC")
	limit, offset := paging(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s FROM courses%s ORDER BY %s %s LIMIT %d OFFSET %d", courseColumns, where, column, order, limit, offset)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM courses"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// ListActive returns every active course ordered by name.
func (r *CourseRepository) ListActive(ctx context.Context) ([]models.Course, error) {
	query := "SELECT " + courseColumns + " FROM courses WHERE status = $1 ORDER BY name, id"
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, models.StatusActive); err != nil {
		return nil, fmt.Errorf("list active courses: %w", err)
	}
	return courses, nil
}

// FindActiveByID fetches an active course. Missing and deleted rows yield sql.ErrNoRows.
func (r *CourseRepository) FindActiveByID(ctx context.Context, id int64) (*models.Course, error) {
	query := "SELECT " + courseColumns + " FROM courses WHERE id = $1 AND status = $2"
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id, models.StatusActive); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindByIDs returns the courses with the given ids regardless of status.
func (r *CourseRepository) FindByIDs(ctx context.Context, ids []int64) ([]models.Course, error) {
	courses := make([]models.Course, 0, len(ids))
	query := "SELECT " + courseColumns + " FROM courses WHERE id = ANY($1)"
	for _, chunk := range chunkIDs(ids) {
		var rows []models.Course
		if err := r.db.SelectContext(ctx, &rows, query, pq.Array(chunk)); err != nil {
			return nil, fmt.Errorf("find courses by ids: %w", err)
		}
		courses = append(courses, rows...)
	}
	return courses, nil
}

// ExistsActiveByCode checks whether another active course uses the code.
func (r *CourseRepository) ExistsActiveByCode(ctx context.Context, code string, excludeID int64) (bool, error) {
	query := "SELECT 1 FROM courses WHERE code = $1 AND status = $2"
	args := []interface{}{code, models.StatusActive}
	if excludeID > 0 {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check course code: %w", err)
	}
	return true, nil
}

// Create inserts a new active course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	now := time.Now().UTC()
	course.Status = models.StatusActive
	course.CreatedAt = now
	course.UpdatedAt = now
	const query = `INSERT INTO courses (name, code, description, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, course.Name, course.Code, course.Description, course.Status, course.CreatedAt, course.UpdatedAt).Scan(&course.ID); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update modifies an active course. A missing or deleted row yields sql.ErrNoRows.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET name = $1, code = $2, description = $3, updated_at = $4
WHERE id = $5 AND status = $6 RETURNING created_at`
	row := r.db.QueryRowxContext(ctx, query, course.Name, course.Code, course.Description, course.UpdatedAt, course.ID, models.StatusActive)
	if err := row.Scan(&course.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("update course: %w", err)
	}
	course.Status = models.StatusActive
	return nil
}

// SoftDelete marks an active course as deleted. A missing or deleted row yields sql.ErrNoRows.
func (r *CourseRepository) SoftDelete(ctx context.Context, id int64) error {
	const query = `UPDATE courses SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	return softDeleteRow(ctx, r.db, "course", query, id)
}

func softDeleteRow(ctx context.Context, db *sqlx.DB, entity, query string, id int64) error {
	result, err := db.ExecContext(ctx, query, models.StatusDeleted, time.Now().UTC(), id, models.StatusActive)
	if err != nil {
		return fmt.Errorf("delete %s: %w", entity, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", entity, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
