package models

import (
	"database/sql/driver"
	"fmt"
)

// RecordStatus is the soft-delete state shared by every persisted record.
type RecordStatus string

// Possible record statuses.
const (
	StatusActive  RecordStatus = "ACTIVE"
	StatusDeleted RecordStatus = "DELETED"
)

// IsActive reports whether the record has not been soft-deleted.
func (s RecordStatus) IsActive() bool {
	return s == StatusActive
}

// Value implements driver.Valuer.
func (s RecordStatus) Value() (driver.Value, error) {
	switch s {
	case StatusActive, StatusDeleted:
		return string(s), nil
	default:
		return nil, fmt.Errorf("invalid record status %q", string(s))
	}
}

// Scan implements sql.Scanner.
func (s *RecordStatus) Scan(src interface{}) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("unsupported record status type %T", src)
	}
	switch RecordStatus(raw) {
	case StatusActive, StatusDeleted:
		*s = RecordStatus(raw)
		return nil
	default:
		return fmt.Errorf("invalid record status %q", raw)
	}
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
