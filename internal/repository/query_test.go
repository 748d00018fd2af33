package repository

import (
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c:\\dir`, escapeLike(`c:\dir`))
	assert.Equal(t, `%go\_lang%`, likePattern(" Go_Lang "))
}

func TestPaging(t *testing.T) {
	limit, offset := paging(0, 0)
	assert.Equal(t, 20, limit)
	assert.Equal(t, 0, offset)

	limit, offset = paging(3, 10)
	assert.Equal(t, 10, limit)
	assert.Equal(t, 20, offset)

	limit, _ = paging(1, 500)
	assert.Equal(t, 20, limit)
}

func TestOrderClause(t *testing.T) {
	allowed := map[string]string{"name": "c.name"}
	column, order := orderClause(allowed, "name", "c.id", "asc", "DESC")
	assert.Equal(t, "c.name", column)
	assert.Equal(t, "ASC", order)

	column, order = orderClause(allowed, "drop table", "c.id", "sideways", "DESC")
	assert.Equal(t, "c.id", column)
	assert.Equal(t, "DESC", order)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(fmt.Errorf("boom")))
}

func TestViolatedConstraint(t *testing.T) {
	err := fmt.Errorf("create student: %w", &pq.Error{Code: "23505", Constraint: "uq_students_email_active"})
	assert.Equal(t, "uq_students_email_active", ViolatedConstraint(err))
	assert.Empty(t, ViolatedConstraint(&pq.Error{Code: "23503", Constraint: "fk_lessons_course"}))
	assert.Empty(t, ViolatedConstraint(nil))
}

func TestChunkIDs(t *testing.T) {
	ids := make([]int64, 250)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	chunks := chunkIDs(ids)
	assert.Len(t, chunks, 3)
	assert.Len(t, chunks[2], 50)
	assert.Empty(t, chunkIDs(nil))
}
