package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-media-api/internal/models"
)

// EnrollmentRepository handles persistence of student-course links.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

func (r *EnrollmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ExistsActive reports whether the pair already has an active enrollment.
func (r *EnrollmentRepository) ExistsActive(ctx context.Context, exec sqlx.ExtContext, studentID, courseID int64) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2 AND status = $3 LIMIT 1`
	var exists int
	if err := sqlx.GetContext(ctx, r.exec(exec), &exists, query, studentID, courseID, models.StatusActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment %d/%d: %w", studentID, courseID, err)
	}
	return true, nil
}

// InsertActive creates an active enrollment unless one already exists for the pair.
// It returns false without error when the active pair index rejected the row.
func (r *EnrollmentRepository) InsertActive(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) (bool, error) {
	if enrollment == nil {
		return false, fmt.Errorf("enrollment payload is nil")
	}
	now := time.Now().UTC()
	enrollment.Status = models.StatusActive
	enrollment.CreatedAt = now
	enrollment.UpdatedAt = now

	const query = `INSERT INTO enrollments (student_id, course_id, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (student_id, course_id) WHERE status = 'ACTIVE' DO NOTHING
RETURNING id`
	row := r.exec(exec).QueryRowxContext(ctx, query, enrollment.StudentID, enrollment.CourseID, enrollment.Status, enrollment.CreatedAt, enrollment.UpdatedAt)
	if err := row.Scan(&enrollment.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("insert enrollment %d/%d: %w", enrollment.StudentID, enrollment.CourseID, err)
	}
	return true, nil
}

// SoftDeleteActiveByStudent marks every active enrollment of the student as deleted.
func (r *EnrollmentRepository) SoftDeleteActiveByStudent(ctx context.Context, exec sqlx.ExtContext, studentID int64) (int64, error) {
	const query = `UPDATE enrollments SET status = $1, updated_at = $2 WHERE student_id = $3 AND status = $4`
	result, err := r.exec(exec).ExecContext(ctx, query, models.StatusDeleted, time.Now().UTC(), studentID, models.StatusActive)
	if err != nil {
		return 0, fmt.Errorf("soft delete enrollments of student %d: %w", studentID, err)
	}
	return result.RowsAffected()
}

// SoftDeletePair marks the active enrollment of the pair as deleted.
func (r *EnrollmentRepository) SoftDeletePair(ctx context.Context, exec sqlx.ExtContext, studentID, courseID int64) (int64, error) {
	const query = `UPDATE enrollments SET status = $1, updated_at = $2 WHERE student_id = $3 AND course_id = $4 AND status = $5`
	result, err := r.exec(exec).ExecContext(ctx, query, models.StatusDeleted, time.Now().UTC(), studentID, courseID, models.StatusActive)
	if err != nil {
		return 0, fmt.Errorf("soft delete enrollment %d/%d: %w", studentID, courseID, err)
	}
	return result.RowsAffected()
}

// ListActiveByStudent returns the student's active enrollments ordered by creation.
func (r *EnrollmentRepository) ListActiveByStudent(ctx context.Context, studentID int64) ([]models.Enrollment, error) {
	const query = `SELECT id, student_id, course_id, status, created_at, updated_at
FROM enrollments WHERE student_id = $1 AND status = $2 ORDER BY created_at, id`
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID, models.StatusActive); err != nil {
		return nil, fmt.Errorf("list enrollments of student %d: %w", studentID, err)
	}
	return enrollments, nil
}

// ListActiveStudentsByCourse returns active students holding an active enrollment in the course.
func (r *EnrollmentRepository) ListActiveStudentsByCourse(ctx context.Context, courseID int64) ([]models.Student, error) {
	const query = `SELECT s.id, s.name, s.gender, s.email, s.phone, s.status, s.created_at, s.updated_at
FROM enrollments e
JOIN students s ON s.id = e.student_id
WHERE e.course_id = $1 AND e.status = $2 AND s.status = $2
ORDER BY s.name, s.id`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, courseID, models.StatusActive); err != nil {
		return nil, fmt.Errorf("list students of course %d: %w", courseID, err)
	}
	return students, nil
}
