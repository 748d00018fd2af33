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

const studentColumns = "id, name, gender, email, phone, status, created_at, updated_at"

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns active students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	args := []interface{}{models.StatusActive}
	conditions := []string{"status = $1"}
	if filter.Gender != "" {
		args = append(args, filter.Gender)
		conditions = append(conditions, fmt.Sprintf("gender = $%d", len(args)))
	}
	if strings.TrimSpace(filter.Keyword) != "" {
		args = append(args, likePattern(filter.Keyword))
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(email) LIKE $%d OR LOWER(phone) LIKE $%d)", n, n, n))
	}
	where := " WHERE " + strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"id":         "id",
		"name":       "name",
		"email":      "email",
		"created_at": "created_at",
		"updated_at": "updated_at",
	}
	column, order := orderClause(allowedSorts, filter.SortBy, "id", filter.SortOrder, "DESC")
	limit, offset := paging(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s FROM students%s ORDER BY %s %s LIMIT %d OFFSET %d", studentColumns, where, column, order, limit, offset)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM students"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// ListActive returns every active student ordered by name.
func (r *StudentRepository) ListActive(ctx context.Context) ([]models.Student, error) {
	query := "SELECT " + studentColumns + " FROM students WHERE status = $1 ORDER BY name, id"
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, models.StatusActive); err != nil {
		return nil, fmt.Errorf("list active students: %w", err)
	}
	return students, nil
}

// FindActiveByID fetches an active student. Missing and deleted rows yield sql.ErrNoRows.
func (r *StudentRepository) FindActiveByID(ctx context.Context, id int64) (*models.Student, error) {
	query := "SELECT " + studentColumns + " FROM students WHERE id = $1 AND status = $2"
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id, models.StatusActive); err != nil {
		return nil, err
	}
	return &student, nil
}

// ExistsActiveByEmail checks if another active student uses the email.
func (r *StudentRepository) ExistsActiveByEmail(ctx context.Context, email string, excludeID int64) (bool, error) {
	return r.existsActiveBy(ctx, "email", email, excludeID)
}

// ExistsActiveByPhone checks if another active student uses the phone.
func (r *StudentRepository) ExistsActiveByPhone(ctx context.Context, phone string, excludeID int64) (bool, error) {
	return r.existsActiveBy(ctx, "phone", phone, excludeID)
}

func (r *StudentRepository) existsActiveBy(ctx context.Context, column, value string, excludeID int64) (bool, error) {
	query := fmt.Sprintf("SELECT 1 FROM students WHERE %s = $1 AND status = $2", column)
	args := []interface{}{value, models.StatusActive}
	if excludeID > 0 {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check student %s: %w", column, err)
	}
	return true, nil
}

// Create inserts a new active student.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	now := time.Now().UTC()
	student.Status = models.StatusActive
	student.CreatedAt = now
	student.UpdatedAt = now
	const query = `INSERT INTO students (name, gender, email, phone, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	row := r.db.QueryRowxContext(ctx, query, student.Name, student.Gender, student.Email, student.Phone, student.Status, student.CreatedAt, student.UpdatedAt)
	if err := row.Scan(&student.ID); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies an active student. A missing or deleted row yields sql.ErrNoRows.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET name = $1, gender = $2, email = $3, phone = $4, updated_at = $5
WHERE id = $6 AND status = $7 RETURNING created_at`
	row := r.db.QueryRowxContext(ctx, query, student.Name, student.Gender, student.Email, student.Phone, student.UpdatedAt, student.ID, models.StatusActive)
	if err := row.Scan(&student.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("update student: %w", err)
	}
	student.Status = models.StatusActive
	return nil
}

// SoftDelete marks an active student as deleted.
func (r *StudentRepository) SoftDelete(ctx context.Context, id int64) error {
	const query = `UPDATE students SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	return softDeleteRow(ctx, r.db, "student", query, id)
}
