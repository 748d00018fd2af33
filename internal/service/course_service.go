package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-media-api/internal/dto"
	"github.com/noah-isme/course-media-api/internal/models"
	"github.com/noah-isme/course-media-api/internal/repository"
	appErrors "github.com/noah-isme/course-media-api/pkg/errors"
)

const (
	courseSelectionCacheKey = "courses:selection"
	courseCachePattern      = "courses:*"
)

// DetailCourseCodeDuplicate flags a code already used by an active course.
const DetailCourseCodeDuplicate = "course.code.duplicate"

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	ListActive(ctx context.Context) ([]models.Course, error)
	FindActiveByID(ctx context.Context, id int64) (*models.Course, error)
	ExistsActiveByCode(ctx context.Context, code string, excludeID int64) (bool, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	SoftDelete(ctx context.Context, id int64) error
}

// CourseService handles course use-cases and their thumbnails.
type CourseService struct {
	repo      courseRepository
	media     ownerMedia
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs the course service. media and cache are optional.
func NewCourseService(repo courseRepository, media mediaCoordinator, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{
		repo:      repo,
		media:     ownerMedia{media: media, logger: logger},
		cache:     cache,
		validator: validate,
		logger:    logger,
	}
}

// List returns a page of courses with their active thumbnails.
func (s *CourseService) List(ctx context.Context, query dto.CourseListQuery) ([]models.CourseDetail, *models.Pagination, error) {
	filter := models.CourseFilter{
		Keyword:   query.Keyword,
		Page:      query.Page,
		PageSize:  query.PageSize,
		SortBy:    query.SortBy,
		SortOrder: query.SortDirection,
	}
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	ids := make([]int64, len(courses))
	for i, course := range courses {
		ids[i] = course.ID
	}
	thumbnails, err := s.media.listPage(ctx, models.OwnerCourse, ids, models.MediaThumbnail)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course thumbnails")
	}
	details := make([]models.CourseDetail, len(courses))
	for i, course := range courses {
		details[i] = models.CourseDetail{Course: course, Thumbnails: orEmpty(thumbnails[course.ID])}
	}
	return details, newPagination(filter.Page, filter.PageSize, total), nil
}

// Selection returns every active course, cached when a cache is configured.
func (s *CourseService) Selection(ctx context.Context) ([]models.Course, error) {
	var cached []models.Course
	if hit, _ := s.cache.Get(ctx, courseSelectionCacheKey, &cached); hit {
		return cached, nil
	}
	courses, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	if courses == nil {
		courses = []models.Course{}
	}
	_ = s.cache.Set(ctx, courseSelectionCacheKey, courses, 0)
	return courses, nil
}

// Get returns an active course with its thumbnails.
func (s *CourseService) Get(ctx context.Context, id int64) (*models.CourseDetail, error) {
	course, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, course, nil)
}

// Create registers a course and attaches the uploaded thumbnails.
func (s *CourseService) Create(ctx context.Context, req dto.CourseRequest, thumbnails []dto.Upload) (*models.CourseDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if err := s.ensureCodeAvailable(ctx, req.Code, 0); err != nil {
		return nil, err
	}
	course := &models.Course{Name: req.Name, Code: req.Code, Description: req.Description}
	if err := s.repo.Create(ctx, course); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, duplicateCourseCode()
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.invalidate(ctx)

	var failures []models.MediaFailure
	s.media.apply(ctx, models.CourseOwner(course.ID), models.MediaThumbnail, dto.MediaChanges{Files: thumbnails}, &failures)
	return s.detail(ctx, course, failures)
}

// Update modifies an active course and applies thumbnail changes.
func (s *CourseService) Update(ctx context.Context, id int64, req dto.CourseRequest, thumbnails dto.MediaChanges) (*models.CourseDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Code != course.Code {
		if err := s.ensureCodeAvailable(ctx, req.Code, id); err != nil {
			return nil, err
		}
	}
	course.Name = req.Name
	course.Code = req.Code
	course.Description = req.Description
	if err := s.repo.Update(ctx, course); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, models.MessageCourseNotFound)
		case repository.IsUniqueViolation(err):
			return nil, duplicateCourseCode()
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	s.invalidate(ctx)

	var failures []models.MediaFailure
	s.media.apply(ctx, models.CourseOwner(course.ID), models.MediaThumbnail, thumbnails, &failures)
	return s.detail(ctx, course, failures)
}

// Delete soft-deletes an active course. Its thumbnails are left in place.
func (s *CourseService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, models.MessageCourseNotFound)
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	s.invalidate(ctx)
	s.logger.Info("course deleted", zap.Int64("course_id", id))
	return nil
}

func (s *CourseService) find(ctx context.Context, id int64) (*models.Course, error) {
	course, err := s.repo.FindActiveByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, models.MessageCourseNotFound)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

func (s *CourseService) ensureCodeAvailable(ctx context.Context, code string, excludeID int64) error {
	exists, err := s.repo.ExistsActiveByCode(ctx, code, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate course code")
	}
	if exists {
		return duplicateCourseCode()
	}
	return nil
}

func (s *CourseService) detail(ctx context.Context, course *models.Course, failures []models.MediaFailure) (*models.CourseDetail, error) {
	thumbnails, err := s.media.list(ctx, models.CourseOwner(course.ID), models.MediaThumbnail)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course thumbnails")
	}
	return &models.CourseDetail{Course: *course, Thumbnails: orEmpty(thumbnails), MediaErrors: failures}, nil
}

func (s *CourseService) invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, courseCachePattern)
}

func duplicateCourseCode() error {
	return appErrors.WithDetails(appErrors.ErrDuplicate, "course code already used", DetailCourseCodeDuplicate)
}
