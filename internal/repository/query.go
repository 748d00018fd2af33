package repository

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	idChunkSize     = 100
)

const pgUniqueViolation = "23505"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike quotes LIKE metacharacters so keywords match literally.
func escapeLike(keyword string) string {
	return likeEscaper.Replace(keyword)
}

func likePattern(keyword string) string {
	return "%" + strings.ToLower(escapeLike(strings.TrimSpace(keyword))) + "%"
}

// paging clamps page/size and returns limit and offset.
func paging(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > maxPageSize {
		size = defaultPageSize
	}
	return size, (page - 1) * size
}

// orderClause resolves a whitelisted sort column and direction.
func orderClause(allowed map[string]string, sortBy, fallbackColumn, sortOrder, fallbackOrder string) (string, string) {
	column, ok := allowed[sortBy]
	if !ok {
		column = fallbackColumn
	}
	order := strings.ToUpper(sortOrder)
	if order != "ASC" && order != "DESC" {
		order = fallbackOrder
	}
	return column, order
}

// IsUniqueViolation reports whether err is a postgres unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUniqueViolation
	}
	return false
}

// ViolatedConstraint returns the constraint named by a unique violation, or "".
func ViolatedConstraint(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
		return pqErr.Constraint
	}
	return ""
}

func chunkIDs(ids []int64) [][]int64 {
	chunks := make([][]int64, 0, (len(ids)+idChunkSize-1)/idChunkSize)
	for start := 0; start < len(ids); start += idChunkSize {
		end := start + idChunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
