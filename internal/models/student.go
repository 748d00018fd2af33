package models

import "time"

// Gender values accepted for students.
const (
	GenderMale   = "1"
	GenderFemale = "0"
)

// Student represents a learner that can enroll into courses.
type Student struct {
	ID        int64        `db:"id" json:"id"`
	Name      string       `db:"name" json:"name"`
	Gender    string       `db:"gender" json:"gender"`
	Email     string       `db:"email" json:"email"`
	Phone     string       `db:"phone" json:"phone"`
	Status    RecordStatus `db:"status" json:"status"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Keyword   string
	Gender    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// StudentDetail is a student with their active avatars.
type StudentDetail struct {
	Student
	Avatars     []Attachment   `json:"avatars"`
	MediaErrors []MediaFailure `json:"media_errors,omitempty"`
}
