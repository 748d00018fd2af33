package dto

// EnrollmentRequest links one student to a list of courses.
type EnrollmentRequest struct {
	StudentID int64   `json:"student_id" validate:"required,gt=0"`
	CourseIDs []int64 `json:"course_ids" validate:"required,min=1,dive,gt=0"`
}

// UnenrollResponse confirms a removed enrollment.
type UnenrollResponse struct {
	StudentID int64  `json:"student_id"`
	CourseID  int64  `json:"course_id"`
	Message   string `json:"message"`
}
