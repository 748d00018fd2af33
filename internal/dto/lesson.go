package dto

// LessonRequest carries the editable lesson fields.
type LessonRequest struct {
	CourseID int64  `form:"course_id" json:"course_id" validate:"required,gt=0"`
	Title    string `form:"title" json:"title" validate:"required,min=3,max=255"`
}

// LessonListQuery holds lesson list parameters.
type LessonListQuery struct {
	Keyword       string `form:"keyword"`
	Page          int    `form:"page"`
	PageSize      int    `form:"size"`
	SortBy        string `form:"sort_by"`
	SortDirection string `form:"sort_direction"`
}
