package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-media-api/internal/models"
)

func newEnrollmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnrollmentRepositoryExistsActive(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	query := regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2 AND status = $3 LIMIT 1")
	mock.ExpectQuery(query).WithArgs(int64(1), int64(2), models.StatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(1))
	mock.ExpectQuery(query).WithArgs(int64(1), int64(3), models.StatusActive).
		WillReturnError(sql.ErrNoRows)

	exists, err := repo.ExistsActive(context.Background(), nil, 1, 2)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsActive(context.Background(), nil, 1, 3)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryInsertActive(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (student_id, course_id) WHERE status = 'ACTIVE' DO NOTHING")).
		WithArgs(int64(1), int64(2), models.StatusActive, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(40)))

	enrollment := &models.Enrollment{StudentID: 1, CourseID: 2}
	inserted, err := repo.InsertActive(context.Background(), nil, enrollment)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, int64(40), enrollment.ID)
	assert.Equal(t, models.StatusActive, enrollment.Status)
	assert.False(t, enrollment.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryInsertActiveConflict(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery("INSERT INTO enrollments").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	inserted, err := repo.InsertActive(context.Background(), nil, &models.Enrollment{StudentID: 1, CourseID: 2})
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryInsertActiveError(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery("INSERT INTO enrollments").WillReturnError(errors.New("deadlock detected"))

	inserted, err := repo.InsertActive(context.Background(), nil, &models.Enrollment{StudentID: 1, CourseID: 2})
	require.Error(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositorySoftDeletes(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET status = $1, updated_at = $2 WHERE student_id = $3 AND status = $4")).
		WithArgs(models.StatusDeleted, sqlmock.AnyArg(), int64(5), models.StatusActive).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET status = $1, updated_at = $2 WHERE student_id = $3 AND course_id = $4 AND status = $5")).
		WithArgs(models.StatusDeleted, sqlmock.AnyArg(), int64(5), int64(9), models.StatusActive).
		WillReturnResult(sqlmock.NewResult(0, 0))

	count, err := repo.SoftDeleteActiveByStudent(context.Background(), nil, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = repo.SoftDeletePair(context.Background(), nil, 5, 9)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListActiveByStudent(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollments WHERE student_id = $1 AND status = $2 ORDER BY created_at, id")).
		WithArgs(int64(5), models.StatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "course_id", "status", "created_at", "updated_at"}).
			AddRow(int64(1), int64(5), int64(10), "ACTIVE", now, now))

	enrollments, err := repo.ListActiveByStudent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	assert.Equal(t, int64(10), enrollments[0].CourseID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListActiveStudentsByCourse(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("JOIN students s ON s.id = e.student_id")).
		WithArgs(int64(10), models.StatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "gender", "email", "phone", "status", "created_at", "updated_at"}).
			AddRow(int64(5), "Lan", "0", "lan@example.com", "0912345678", "ACTIVE", now, now))

	students, err := repo.ListActiveStudentsByCourse(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "Lan", students[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}
