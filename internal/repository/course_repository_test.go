package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-media-api/internal/models"
)

func newCourseRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var courseRowColumns = []string{"id", "name", "code", "description", "status", "created_at", "updated_at"}

func TestCourseRepositoryList(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)
	now := time.Now()

	where := " WHERE status = $1 AND (LOWER(name) LIKE $2 OR LOWER(code) LIKE $2 OR LOWER(description) LIKE $2)"
	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+courseColumns+" FROM courses"+where+" ORDER BY name ASC LIMIT 10 OFFSET 10")).
		WithArgs(models.StatusActive, `%50\%%`).
		WillReturnRows(sqlmock.NewRows(courseRowColumns).AddRow(int64(1), "Math", "MATH101", "", "ACTIVE", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM courses"+where)).
		WithArgs(models.StatusActive, `%50\%%`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	courses, total, err := repo.List(context.Background(), models.CourseFilter{Keyword: "50%", Page: 2, PageSize: 10, SortBy: "name", SortOrder: "asc"})
	require.NoError(t, err)
	assert.Len(t, courses, 1)
	assert.Equal(t, 11, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListDefaults(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM courses WHERE status = $1 ORDER BY id DESC LIMIT 20 OFFSET 0")).
		WithArgs(models.StatusActive).
		WillReturnRows(sqlmock.NewRows(courseRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM courses WHERE status = $1")).
		WithArgs(models.StatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	courses, total, err := repo.List(context.Background(), models.CourseFilter{SortBy: "password"})
	require.NoError(t, err)
	assert.Empty(t, courses)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryFindActiveByIDMissing(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM courses WHERE id = $1 AND status = $2")).
		WithArgs(int64(3), models.StatusActive).
		WillReturnRows(sqlmock.NewRows(courseRowColumns))

	_, err := repo.FindActiveByID(context.Background(), 3)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryFindByIDs(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM courses WHERE id = ANY($1)")).
		WithArgs(pq.Array([]int64{1, 2})).
		WillReturnRows(sqlmock.NewRows(courseRowColumns).
			AddRow(int64(2), "Physics", "PHY", "", "DELETED", now, now).
			AddRow(int64(1), "Math", "MATH", "", "ACTIVE", now, now))

	courses, err := repo.FindByIDs(context.Background(), []int64{1, 2})
	require.NoError(t, err)
	assert.Len(t, courses, 2)

	courses, err = repo.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, courses)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryExistsActiveByCode(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM courses WHERE code = $1 AND status = $2 AND id <> $3 LIMIT 1")).
		WithArgs("MATH101", models.StatusActive, int64(4)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM courses WHERE code = $1 AND status = $2 LIMIT 1")).
		WithArgs("MATH101", models.StatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(1))

	exists, err := repo.ExistsActiveByCode(context.Background(), "MATH101", 4)
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = repo.ExistsActiveByCode(context.Background(), "MATH101", 0)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryCreateAndUpdate(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO courses").
		WithArgs("Math", "MATH101", "Algebra", models.StatusActive, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(12)))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE courses SET name = $1, code = $2, description = $3, updated_at = $4")).
		WithArgs("Math II", "MATH102", "Algebra", sqlmock.AnyArg(), int64(12), models.StatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))
	mock.ExpectQuery("UPDATE courses SET").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}))

	course := &models.Course{Name: "Math", Code: "MATH101", Description: "Algebra"}
	require.NoError(t, repo.Create(context.Background(), course))
	assert.Equal(t, int64(12), course.ID)

	course.Name, course.Code = "Math II", "MATH102"
	require.NoError(t, repo.Update(context.Background(), course))
	assert.Equal(t, created, course.CreatedAt)

	err := repo.Update(context.Background(), &models.Course{ID: 99})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositorySoftDelete(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	query := regexp.QuoteMeta("UPDATE courses SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4")
	mock.ExpectExec(query).WithArgs(models.StatusDeleted, sqlmock.AnyArg(), int64(1), models.StatusActive).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).WithArgs(models.StatusDeleted, sqlmock.AnyArg(), int64(2), models.StatusActive).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.SoftDelete(context.Background(), 1))
	assert.ErrorIs(t, repo.SoftDelete(context.Background(), 2), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
