package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-media-api/internal/dto"
	"github.com/noah-isme/course-media-api/internal/middleware"
	"github.com/noah-isme/course-media-api/internal/models"
	"github.com/noah-isme/course-media-api/internal/service"
	"github.com/noah-isme/course-media-api/pkg/response"
)

type studentService interface {
	List(ctx context.Context, query dto.StudentListQuery) ([]models.StudentDetail, *models.Pagination, error)
	Selection(ctx context.Context) ([]models.Student, error)
	Get(ctx context.Context, id int64) (*models.StudentDetail, error)
	Create(ctx context.Context, req dto.StudentRequest, avatars []dto.Upload) (*models.StudentDetail, error)
	Update(ctx context.Context, id int64, req dto.StudentRequest, avatars dto.MediaChanges) (*models.StudentDetail, error)
	Delete(ctx context.Context, id int64) error
}

// StudentHandler exposes student endpoints.
type StudentHandler struct {
	students studentService
	exports  exportService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students studentService, exports exportService) *StudentHandler {
	return &StudentHandler{students: students, exports: exports}
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Param keyword query string false "Search by name, email or phone"
// @Param gender query string false "0 female, 1 male"
// @Param page query int false "Page"
// @Param size query int false "Page size"
// @Param sort_by query string false "Sort column"
// @Param sort_direction query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	var query dto.StudentListQuery
	if err := bindQuery(c, &query); err != nil {
		response.Error(c, err)
		return
	}
	students, pagination, err := h.students.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination, middleware.ExtractMeta(c))
}

// Selection godoc
// @Summary List active students for pickers
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /students/selection [get]
func (h *StudentHandler) Selection(c *gin.Context) {
	students, err := h.students.Selection(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// Export godoc
// @Summary Export active students
// @Tags Students
// @Produce octet-stream
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /students/export [get]
func (h *StudentHandler) Export(c *gin.Context) {
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exports.Students(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	sendExport(c, file)
}

// Get godoc
// @Summary Get student detail
// @Tags Students
// @Produce json
// @Param id path int true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	student, err := h.students.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Create godoc
// @Summary Create student
// @Tags Students
// @Accept multipart/form-data
// @Produce json
// @Param name formData string true "Name"
// @Param email formData string true "Email"
// @Param phone formData string false "Phone"
// @Param gender formData string false "0 female, 1 male"
// @Param avatar formData file false "Avatar image"
// @Success 201 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var req dto.StudentRequest
	if err := bindForm(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	avatars, err := formUploads(c, fieldAvatar)
	if err != nil {
		response.Error(c, err)
		return
	}
	student, err := h.students.Create(c.Request.Context(), req, avatars)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Update godoc
// @Summary Update student
// @Tags Students
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Student ID"
// @Param name formData string true "Name"
// @Param email formData string true "Email"
// @Param phone formData string false "Phone"
// @Param gender formData string false "0 female, 1 male"
// @Param avatar formData file false "Avatar image to append"
// @Param delete_avatar_ids formData string false "Comma separated avatar ids to remove"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.StudentRequest
	if err := bindForm(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	avatars, err := formMediaChanges(c, fieldAvatar, fieldDeleteAvatarIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	student, err := h.students.Update(c.Request.Context(), id, req, avatars)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Delete godoc
// @Summary Delete student
// @Tags Students
// @Param id path int true "Student ID"
// @Success 204
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.students.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
