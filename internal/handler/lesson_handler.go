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

type lessonService interface {
	ListByCourse(ctx context.Context, courseID int64, query dto.LessonListQuery) ([]models.LessonDetail, *models.Pagination, error)
	Get(ctx context.Context, id int64) (*models.LessonDetail, error)
	Create(ctx context.Context, req dto.LessonRequest, thumbnails, videos []dto.Upload) (*models.LessonDetail, error)
	Update(ctx context.Context, id int64, req dto.LessonRequest, media service.LessonMedia) (*models.LessonDetail, error)
	Delete(ctx context.Context, id int64) error
}

// LessonHandler exposes lesson endpoints.
type LessonHandler struct {
	lessons lessonService
}

// NewLessonHandler constructs LessonHandler.
func NewLessonHandler(lessons lessonService) *LessonHandler {
	return &LessonHandler{lessons: lessons}
}

// ListByCourse godoc
// @Summary List lessons of a course
// @Tags Lessons
// @Produce json
// @Param id path int true "Course ID"
// @Param keyword query string false "Search by title"
// @Param page query int false "Page"
// @Param size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/lessons [get]
func (h *LessonHandler) ListByCourse(c *gin.Context) {
	courseID, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var query dto.LessonListQuery
	if err := bindQuery(c, &query); err != nil {
		response.Error(c, err)
		return
	}
	lessons, pagination, err := h.lessons.ListByCourse(c.Request.Context(), courseID, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lessons, pagination, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get lesson detail
// @Tags Lessons
// @Produce json
// @Param id path int true "Lesson ID"
// @Success 200 {object} response.Envelope
// @Router /lessons/{id} [get]
func (h *LessonHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	lesson, err := h.lessons.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lesson, nil)
}

// Create godoc
// @Summary Create lesson
// @Tags Lessons
// @Accept multipart/form-data
// @Produce json
// @Param course_id formData int true "Course ID"
// @Param title formData string true "Title"
// @Param thumbnails formData file false "Thumbnail images"
// @Param videos formData file false "Lesson videos"
// @Success 201 {object} response.Envelope
// @Router /lessons [post]
func (h *LessonHandler) Create(c *gin.Context) {
	var req dto.LessonRequest
	if err := bindForm(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	thumbnails, err := formUploads(c, fieldThumbnails)
	if err != nil {
		response.Error(c, err)
		return
	}
	videos, err := formUploads(c, fieldVideos)
	if err != nil {
		response.Error(c, err)
		return
	}
	lesson, err := h.lessons.Create(c.Request.Context(), req, thumbnails, videos)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lesson)
}

// Update godoc
// @Summary Update lesson
// @Tags Lessons
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Lesson ID"
// @Param course_id formData int true "Course ID"
// @Param title formData string true "Title"
// @Param thumbnails formData file false "Thumbnail images to append"
// @Param videos formData file false "Videos to append"
// @Param delete_thumbnail_ids formData string false "Comma separated thumbnail ids to remove"
// @Param delete_video_ids formData string false "Comma separated video ids to remove"
// @Success 200 {object} response.Envelope
// @Router /lessons/{id} [put]
func (h *LessonHandler) Update(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.LessonRequest
	if err := bindForm(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	thumbnails, err := formMediaChanges(c, fieldThumbnails, fieldDeleteThumbnailIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	videos, err := formMediaChanges(c, fieldVideos, fieldDeleteVideoIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	lesson, err := h.lessons.Update(c.Request.Context(), id, req, service.LessonMedia{Thumbnails: thumbnails, Videos: videos})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lesson, nil)
}

// Delete godoc
// @Summary Delete lesson
// @Tags Lessons
// @Param id path int true "Lesson ID"
// @Success 204
// @Router /lessons/{id} [delete]
func (h *LessonHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.lessons.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
