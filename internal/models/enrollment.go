package models

import "time"

// Message keys returned to callers for localisation.
const (
	MessageEnrollmentCreated = "enrollment.created"
	MessageEnrollmentExists  = "enrollment.already.exists"
	MessageEnrollmentDeleted = "enrollment.deleted"
	MessageCourseNotFound    = "course.not.found"
	MessageStudentNotFound   = "student.not.found"
	MessageEnrollmentMissing = "enrollment.not.found"
)

// BatchItemReason classifies a failed batch item.
type BatchItemReason string

// Failure reasons for batch items.
const (
	ReasonNone            BatchItemReason = ""
	ReasonAlreadyEnrolled BatchItemReason = "already-enrolled"
	ReasonCourseNotFound  BatchItemReason = "course-not-found"
)

// Enrollment links a student to a course. At most one ACTIVE row exists per pair.
type Enrollment struct {
	ID        int64        `db:"id" json:"id"`
	StudentID int64        `db:"student_id" json:"student_id"`
	CourseID  int64        `db:"course_id" json:"course_id"`
	Status    RecordStatus `db:"status" json:"status"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}

// BatchItem is the outcome for one requested course.
type BatchItem struct {
	CourseID   int64           `json:"course_id"`
	CourseCode string          `json:"course_code,omitempty"`
	CourseName string          `json:"course_name,omitempty"`
	Success    bool            `json:"success"`
	Reason     BatchItemReason `json:"reason,omitempty"`
	Message    string          `json:"message"`
}

// BatchResult aggregates per-course outcomes of an enrollment batch.
type BatchResult struct {
	StudentID    int64       `json:"student_id"`
	StudentName  string      `json:"student_name"`
	Items        []BatchItem `json:"courses"`
	SuccessCount int         `json:"success_count"`
	FailCount    int         `json:"fail_count"`
}

// NewBatchResult starts an empty result for the student.
func NewBatchResult(student Student, capacity int) *BatchResult {
	return &BatchResult{
		StudentID:   student.ID,
		StudentName: student.Name,
		Items:       make([]BatchItem, 0, capacity),
	}
}

// Add appends an item and updates the counters.
func (r *BatchResult) Add(item BatchItem) {
	r.Items = append(r.Items, item)
	if item.Success {
		r.SuccessCount++
		return
	}
	r.FailCount++
}

// EnrollmentView is one active enrollment of a student with course context.
type EnrollmentView struct {
	StudentID    int64        `json:"student_id"`
	StudentName  string       `json:"student_name"`
	StudentEmail string       `json:"student_email"`
	StudentPhone string       `json:"student_phone"`
	Gender       string       `json:"gender"`
	CourseID     int64        `json:"course_id"`
	CourseCode   string       `json:"course_code"`
	CourseName   string       `json:"course_name"`
	Status       RecordStatus `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}
