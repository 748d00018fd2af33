package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-media-api/internal/dto"
	"github.com/noah-isme/course-media-api/internal/models"
	"github.com/noah-isme/course-media-api/internal/service"
)

type lessonServiceMock struct {
	courseID int64
	media    service.LessonMedia
}

func (m *lessonServiceMock) ListByCourse(ctx context.Context, courseID int64, query dto.LessonListQuery) ([]models.LessonDetail, *models.Pagination, error) {
	m.courseID = courseID
	return []models.LessonDetail{}, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func (m *lessonServiceMock) Get(ctx context.Context, id int64) (*models.LessonDetail, error) {
	return &models.LessonDetail{Lesson: models.Lesson{ID: id}}, nil
}

func (m *lessonServiceMock) Create(ctx context.Context, req dto.LessonRequest, thumbnails, videos []dto.Upload) (*models.LessonDetail, error) {
	return &models.LessonDetail{Lesson: models.Lesson{ID: 1, CourseID: req.CourseID, Title: req.Title}}, nil
}

func (m *lessonServiceMock) Update(ctx context.Context, id int64, req dto.LessonRequest, media service.LessonMedia) (*models.LessonDetail, error) {
	m.media = media
	return &models.LessonDetail{Lesson: models.Lesson{ID: id}}, nil
}

func (m *lessonServiceMock) Delete(ctx context.Context, id int64) error {
	return nil
}

type studentServiceMock struct{}

func (studentServiceMock) List(ctx context.Context, query dto.StudentListQuery) ([]models.StudentDetail, *models.Pagination, error) {
	return []models.StudentDetail{}, &models.Pagination{}, nil
}

func (studentServiceMock) Selection(ctx context.Context) ([]models.Student, error) {
	return []models.Student{}, nil
}

func (studentServiceMock) Get(ctx context.Context, id int64) (*models.StudentDetail, error) {
	return &models.StudentDetail{Student: models.Student{ID: id}}, nil
}

func (studentServiceMock) Create(ctx context.Context, req dto.StudentRequest, avatars []dto.Upload) (*models.StudentDetail, error) {
	return &models.StudentDetail{}, nil
}

func (studentServiceMock) Update(ctx context.Context, id int64, req dto.StudentRequest, avatars dto.MediaChanges) (*models.StudentDetail, error) {
	return &models.StudentDetail{}, nil
}

func (studentServiceMock) Delete(ctx context.Context, id int64) error {
	return nil
}

func newTestRouter(courses *courseServiceMock, lessons *lessonServiceMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	exports := &exportServiceMock{}
	RegisterRoutes(r.Group("/api/v1"), Handlers{
		Courses:     NewCourseHandler(courses, exports),
		Lessons:     NewLessonHandler(lessons),
		Students:    NewStudentHandler(studentServiceMock{}, exports),
		Enrollments: NewEnrollmentHandler(&enrollmentServiceMock{}),
		Metrics:     NewMetricsHandler(service.NewMetricsService(), nil),
	})
	return r
}

func TestRegisterRoutesStaticSegmentsWinOverIDs(t *testing.T) {
	courses := &courseServiceMock{}
	r := newTestRouter(courses, &lessonServiceMock{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/courses/selection", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, courses.selections)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/students/export?format=csv", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
}

func TestRegisterRoutesLessonsUnderCourse(t *testing.T) {
	lessons := &lessonServiceMock{}
	r := newTestRouter(&courseServiceMock{}, lessons)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/courses/12/lessons?page=1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(12), lessons.courseID)
}

func TestRegisterRoutesMediaDisabledWithoutLocalBackend(t *testing.T) {
	r := newTestRouter(&courseServiceMock{}, &lessonServiceMock{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/media/image/a.png", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestLessonHandlerUpdateSplitsMediaKinds(t *testing.T) {
	gin.SetMode(gin.TestMode)
	lessons := &lessonServiceMock{}
	handler := NewLessonHandler(lessons)

	c, w := newMultipartContext(t, http.MethodPut, "/lessons/3",
		map[string]string{"course_id": "1", "title": "Goroutines", "delete_video_ids": "8"},
		multipartFile{field: fieldThumbnails, filename: "cover.png", content: []byte("img")},
	)
	c.Params = gin.Params{{Key: "id", Value: "3"}}
	handler.Update(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, lessons.media.Thumbnails.Files, 1)
	assert.Empty(t, lessons.media.Thumbnails.DeleteIDs)
	assert.Equal(t, []int64{8}, lessons.media.Videos.DeleteIDs)
	assert.Empty(t, lessons.media.Videos.Files)
}
