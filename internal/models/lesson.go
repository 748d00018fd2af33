package models

import "time"

// Lesson belongs to a course and carries thumbnails and videos.
type Lesson struct {
	ID        int64        `db:"id" json:"id"`
	CourseID  int64        `db:"course_id" json:"course_id"`
	Title     string       `db:"title" json:"title"`
	Status    RecordStatus `db:"status" json:"status"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}

// LessonFilter narrows lessons of a course.
type LessonFilter struct {
	CourseID  int64
	Keyword   string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// LessonDetail is a lesson with its active media.
type LessonDetail struct {
	Lesson
	Thumbnails  []Attachment   `json:"thumbnails"`
	Videos      []Attachment   `json:"videos"`
	MediaErrors []MediaFailure `json:"media_errors,omitempty"`
}
