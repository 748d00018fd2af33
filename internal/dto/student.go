package dto

// StudentRequest carries the editable student fields.
type StudentRequest struct {
	Name   string `form:"name" json:"name" validate:"required,min=2,max=255"`
	Gender string `form:"gender" json:"gender" validate:"omitempty,oneof=0 1"`
	Email  string `form:"email" json:"email" validate:"required,email,max=255"`
	Phone  string `form:"phone" json:"phone" validate:"omitempty,vnphone"`
}

// StudentListQuery holds student list parameters.
type StudentListQuery struct {
	Keyword       string `form:"keyword"`
	Gender        string `form:"gender"`
	Page          int    `form:"page"`
	PageSize      int    `form:"size"`
	SortBy        string `form:"sort_by"`
	SortDirection string `form:"sort_direction"`
}
