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

type courseService interface {
	List(ctx context.Context, query dto.CourseListQuery) ([]models.CourseDetail, *models.Pagination, error)
	Selection(ctx context.Context) ([]models.Course, error)
	Get(ctx context.Context, id int64) (*models.CourseDetail, error)
	Create(ctx context.Context, req dto.CourseRequest, thumbnails []dto.Upload) (*models.CourseDetail, error)
	Update(ctx context.Context, id int64, req dto.CourseRequest, thumbnails dto.MediaChanges) (*models.CourseDetail, error)
	Delete(ctx context.Context, id int64) error
}

type exportService interface {
	Courses(ctx context.Context, format service.ExportFormat) (*service.ExportFile, error)
	Students(ctx context.Context, format service.ExportFormat) (*service.ExportFile, error)
}

// CourseHandler exposes course endpoints.
type CourseHandler struct {
	courses courseService
	exports exportService
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(courses courseService, exports exportService) *CourseHandler {
	return &CourseHandler{courses: courses, exports: exports}
}

// List godoc
// @Summary List courses
// @Tags Courses
// @Produce json
// @Param keyword query string false "Search by name, code or description"
// @Param page query int false "Page"
// @Param size query int false "Page size"
// @Param sort_by query string false "Sort column"
// @Param sort_direction query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	var query dto.CourseListQuery
	if err := bindQuery(c, &query); err != nil {
		response.Error(c, err)
		return
	}
	courses, pagination, err := h.courses.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, pagination, middleware.ExtractMeta(c))
}

// Selection godoc
// @Summary List active courses for pickers
// @Tags Courses
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /courses/selection [get]
func (h *CourseHandler) Selection(c *gin.Context) {
	courses, err := h.courses.Selection(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// Export godoc
// @Summary Export active courses
// @Tags Courses
// @Produce octet-stream
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /courses/export [get]
func (h *CourseHandler) Export(c *gin.Context) {
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exports.Courses(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	sendExport(c, file)
}

// Get godoc
// @Summary Get course detail
// @Tags Courses
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	course, err := h.courses.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Create godoc
// @Summary Create course
// @Tags Courses
// @Accept multipart/form-data
// @Produce json
// @Param name formData string true "Name"
// @Param code formData string true "Code"
// @Param description formData string false "Description"
// @Param thumbnails formData file false "Thumbnail images"
// @Success 201 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	var req dto.CourseRequest
	if err := bindForm(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	thumbnails, err := formUploads(c, fieldThumbnails)
	if err != nil {
		response.Error(c, err)
		return
	}
	course, err := h.courses.Create(c.Request.Context(), req, thumbnails)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Update godoc
// @Summary Update course
// @Tags Courses
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Course ID"
// @Param name formData string true "Name"
// @Param code formData string true "Code"
// @Param description formData string false "Description"
// @Param thumbnails formData file false "Thumbnail images to append"
// @Param delete_thumbnail_ids formData string false "Comma separated attachment ids to remove"
// @Success 200 {object} response.Envelope
// @Router /courses/{id} [put]
func (h *CourseHandler) Update(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.CourseRequest
	if err := bindForm(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	thumbnails, err := formMediaChanges(c, fieldThumbnails, fieldDeleteThumbnailIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	course, err := h.courses.Update(c.Request.Context(), id, req, thumbnails)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Delete godoc
// @Summary Delete course
// @Tags Courses
// @Param id path int true "Course ID"
// @Success 204
// @Router /courses/{id} [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.courses.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func sendExport(c *gin.Context, file *service.ExportFile) {
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
