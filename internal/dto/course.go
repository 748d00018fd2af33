package dto

// CourseRequest carries the editable course fields.
type CourseRequest struct {
	Name        string `form:"name" json:"name" validate:"required,min=3,max=255"`
	Code        string `form:"code" json:"code" validate:"required,coursecode"`
	Description string `form:"description" json:"description" validate:"max=500"`
}

// CourseListQuery holds course list parameters.
type CourseListQuery struct {
	Keyword       string `form:"keyword"`
	Page          int    `form:"page"`
	PageSize      int    `form:"size"`
	SortBy        string `form:"sort_by"`
	SortDirection string `form:"sort_direction"`
}
