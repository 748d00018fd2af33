package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-media-api/internal/dto"
	"github.com/noah-isme/course-media-api/internal/models"
	appErrors "github.com/noah-isme/course-media-api/pkg/errors"
)

// MessageLessonNotFound is returned when a lesson is absent or deleted.
const MessageLessonNotFound = "lesson.not.found"

type lessonRepository interface {
	ListByCourse(ctx context.Context, filter models.LessonFilter) ([]models.Lesson, int, error)
	FindActiveByID(ctx context.Context, id int64) (*models.Lesson, error)
	Create(ctx context.Context, lesson *models.Lesson) error
	Update(ctx context.Context, lesson *models.Lesson) error
	SoftDelete(ctx context.Context, id int64) error
}

// LessonMedia groups the two media kinds a lesson carries.
type LessonMedia struct {
	Thumbnails dto.MediaChanges
	Videos     dto.MediaChanges
}

// LessonService handles lesson use-cases.
type LessonService struct {
	repo      lessonRepository
	courses   activeCourseFinder
	media     ownerMedia
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLessonService constructs the lesson service.
func NewLessonService(repo lessonRepository, courses activeCourseFinder, media mediaCoordinator, validate *validator.Validate, logger *zap.Logger) *LessonService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LessonService{
		repo:      repo,
		courses:   courses,
		media:     ownerMedia{media: media, logger: logger},
		validator: validate,
		logger:    logger,
	}
}

// ListByCourse returns a page of lessons of an active course with their media.
func (s *LessonService) ListByCourse(ctx context.Context, courseID int64, query dto.LessonListQuery) ([]models.LessonDetail, *models.Pagination, error) {
	if err := s.ensureCourse(ctx, courseID); err != nil {
		return nil, nil, err
	}
	filter := models.LessonFilter{
		CourseID:  courseID,
		Keyword:   query.Keyword,
		Page:      query.Page,
		PageSize:  query.PageSize,
		SortBy:    query.SortBy,
		SortOrder: query.SortDirection,
	}
	lessons, total, err := s.repo.ListByCourse(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lessons")
	}
	ids := make([]int64, len(lessons))
	for i, lesson := range lessons {
		ids[i] = lesson.ID
	}
	media, err := s.media.listPage(ctx, models.OwnerLesson, ids, "")
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson media")
	}
	details := make([]models.LessonDetail, len(lessons))
	for i, lesson := range lessons {
		details[i] = splitLessonMedia(lesson, media[lesson.ID], nil)
	}
	return details, newPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns an active lesson with its media.
func (s *LessonService) Get(ctx context.Context, id int64) (*models.LessonDetail, error) {
	lesson, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, lesson, nil)
}

// Create registers a lesson under an active course and attaches its media.
func (s *LessonService) Create(ctx context.Context, req dto.LessonRequest, thumbnails, videos []dto.Upload) (*models.LessonDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload")
	}
	if err := s.ensureCourse(ctx, req.CourseID); err != nil {
		return nil, err
	}
	lesson := &models.Lesson{CourseID: req.CourseID, Title: req.Title}
	if err := s.repo.Create(ctx, lesson); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lesson")
	}
	return s.applyMedia(ctx, lesson, LessonMedia{
		Thumbnails: dto.MediaChanges{Files: thumbnails},
		Videos:     dto.MediaChanges{Files: videos},
	})
}

// Update modifies an active lesson and applies its media changes.
func (s *LessonService) Update(ctx context.Context, id int64, req dto.LessonRequest, media LessonMedia) (*models.LessonDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload")
	}
	lesson, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.CourseID != lesson.CourseID {
		if err := s.ensureCourse(ctx, req.CourseID); err != nil {
			return nil, err
		}
	}
	lesson.CourseID = req.CourseID
	lesson.Title = req.Title
	if err := s.repo.Update(ctx, lesson); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, MessageLessonNotFound)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update lesson")
	}
	return s.applyMedia(ctx, lesson, media)
}

// Delete soft-deletes an active lesson.
func (s *LessonService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, MessageLessonNotFound)
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete lesson")
	}
	s.logger.Info("lesson deleted", zap.Int64("lesson_id", id))
	return nil
}

func (s *LessonService) applyMedia(ctx context.Context, lesson *models.Lesson, media LessonMedia) (*models.LessonDetail, error) {
	var failures []models.MediaFailure
	owner := models.LessonOwner(lesson.ID)
	s.media.apply(ctx, owner, models.MediaThumbnail, media.Thumbnails, &failures)
	s.media.apply(ctx, owner, models.MediaVideo, media.Videos, &failures)
	return s.detail(ctx, lesson, failures)
}

func (s *LessonService) find(ctx context.Context, id int64) (*models.Lesson, error) {
	lesson, err := s.repo.FindActiveByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, MessageLessonNotFound)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}
	return lesson, nil
}

func (s *LessonService) ensureCourse(ctx context.Context, courseID int64) error {
	if _, err := s.courses.FindActiveByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, models.MessageCourseNotFound)
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return nil
}

func (s *LessonService) detail(ctx context.Context, lesson *models.Lesson, failures []models.MediaFailure) (*models.LessonDetail, error) {
	attachments, err := s.media.list(ctx, models.LessonOwner(lesson.ID), "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson media")
	}
	detail := splitLessonMedia(*lesson, attachments, failures)
	return &detail, nil
}

func splitLessonMedia(lesson models.Lesson, attachments []models.Attachment, failures []models.MediaFailure) models.LessonDetail {
	detail := models.LessonDetail{
		Lesson:      lesson,
		Thumbnails:  []models.Attachment{},
		Videos:      []models.Attachment{},
		MediaErrors: failures,
	}
	for _, attachment := range attachments {
		switch attachment.MediaKind {
		case models.MediaThumbnail:
			detail.Thumbnails = append(detail.Thumbnails, attachment)
		case models.MediaVideo:
			detail.Videos = append(detail.Videos, attachment)
		}
	}
	return detail
}
