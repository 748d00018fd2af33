package models

import "time"

// Course is a catalog entry students enroll into.
type Course struct {
	ID          int64        `db:"id" json:"id"`
	Name        string       `db:"name" json:"name"`
	Code        string       `db:"code" json:"code"`
	Description string       `db:"description" json:"description"`
	Status      RecordStatus `db:"status" json:"status"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
}

// CourseFilter encapsulates allowed search parameters for listing courses.
type CourseFilter struct {
	Keyword   string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// CourseDetail is a course with its active thumbnails.
type CourseDetail struct {
	Course
	Thumbnails  []Attachment   `json:"thumbnails"`
	MediaErrors []MediaFailure `json:"media_errors,omitempty"`
}
