package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-media-api/internal/dto"
	"github.com/noah-isme/course-media-api/internal/models"
	"github.com/noah-isme/course-media-api/internal/repository"
	appErrors "github.com/noah-isme/course-media-api/pkg/errors"
)

const (
	studentSelectionCacheKey = "students:selection"
	studentCachePattern      = "students:*"
)

// Detail keys for student uniqueness violations.
const (
	DetailStudentEmailDuplicate = "student.email.duplicate"
	DetailStudentPhoneDuplicate = "student.phone.duplicate"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	ListActive(ctx context.Context) ([]models.Student, error)
	FindActiveByID(ctx context.Context, id int64) (*models.Student, error)
	ExistsActiveByEmail(ctx context.Context, email string, excludeID int64) (bool, error)
	ExistsActiveByPhone(ctx context.Context, phone string, excludeID int64) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	SoftDelete(ctx context.Context, id int64) error
}

// StudentService handles student use-cases and avatars.
type StudentService struct {
	repo      studentRepository
	media     ownerMedia
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, media mediaCoordinator, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		repo:      repo,
		media:     ownerMedia{media: media, logger: logger},
		cache:     cache,
		validator: validate,
		logger:    logger,
	}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, query dto.StudentListQuery) ([]models.StudentDetail, *models.Pagination, error) {
	filter := models.StudentFilter{
		Keyword:   query.Keyword,
		Gender:    query.Gender,
		Page:      query.Page,
		PageSize:  query.PageSize,
		SortBy:    query.SortBy,
		SortOrder: query.SortDirection,
	}
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	ids := make([]int64, len(students))
	for i, student := range students {
		ids[i] = student.ID
	}
	avatars, err := s.media.listPage(ctx, models.OwnerStudent, ids, models.MediaAvatar)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student avatars")
	}
	details := make([]models.StudentDetail, len(students))
	for i, student := range students {
		details[i] = models.StudentDetail{Student: student, Avatars: orEmpty(avatars[student.ID])}
	}
	return details, newPagination(filter.Page, filter.PageSize, total), nil
}

// Selection returns every active student.
func (s *StudentService) Selection(ctx context.Context) ([]models.Student, error) {
	var cached []models.Student
	if hit, _ := s.cache.Get(ctx, studentSelectionCacheKey, &cached); hit {
		return cached, nil
	}
	students, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	if students == nil {
		students = []models.Student{}
	}
	_ = s.cache.Set(ctx, studentSelectionCacheKey, students, 0)
	return students, nil
}

// Get returns detailed student information.
func (s *StudentService) Get(ctx context.Context, id int64) (*models.StudentDetail, error) {
	student, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, student, nil)
}

// Create registers a new student and attaches the avatar upload.
func (s *StudentService) Create(ctx context.Context, req dto.StudentRequest, avatars []dto.Upload) (*models.StudentDetail, error) {
	req = normaliseStudentRequest(req)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if err := s.ensureUnique(ctx, req.Email, req.Phone, 0); err != nil {
		return nil, err
	}
	student := &models.Student{Name: req.Name, Gender: req.Gender, Email: req.Email, Phone: req.Phone}
	if err := s.repo.Create(ctx, student); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, duplicateStudent(repository.ViolatedConstraint(err))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.invalidate(ctx)

	var failures []models.MediaFailure
	s.media.apply(ctx, models.StudentOwner(student.ID), models.MediaAvatar, dto.MediaChanges{Files: avatars}, &failures)
	return s.detail(ctx, student, failures)
}

// Update modifies an existing student record and applies avatar changes.
func (s *StudentService) Update(ctx context.Context, id int64, req dto.StudentRequest, avatars dto.MediaChanges) (*models.StudentDetail, error) {
	req = normaliseStudentRequest(req)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	email, phone := req.Email, req.Phone
	if strings.EqualFold(email, student.Email) {
		email = ""
	}
	if phone == student.Phone {
		phone = ""
	}
	if err := s.ensureUnique(ctx, email, phone, id); err != nil {
		return nil, err
	}
	student.Name = req.Name
	student.Gender = req.Gender
	student.Email = req.Email
	student.Phone = req.Phone
	if err := s.repo.Update(ctx, student); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, models.MessageStudentNotFound)
		case repository.IsUniqueViolation(err):
			return nil, duplicateStudent(repository.ViolatedConstraint(err))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	s.invalidate(ctx)

	var failures []models.MediaFailure
	s.media.apply(ctx, models.StudentOwner(student.ID), models.MediaAvatar, avatars, &failures)
	return s.detail(ctx, student, failures)
}

// Delete soft-deletes an active student. Enrollments and avatars are kept.
func (s *StudentService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, models.MessageStudentNotFound)
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	s.invalidate(ctx)
	s.logger.Info("student deleted", zap.Int64("student_id", id))
	return nil
}

func (s *StudentService) find(ctx context.Context, id int64) (*models.Student, error) {
	student, err := s.repo.FindActiveByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, models.MessageStudentNotFound)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// ensureUnique checks email and phone against other active students. Empty
// values are skipped. Every violated field is reported in one error.
func (s *StudentService) ensureUnique(ctx context.Context, email, phone string, excludeID int64) error {
	var details []string
	if email != "" {
		exists, err := s.repo.ExistsActiveByEmail(ctx, email, excludeID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate email")
		}
		if exists {
			details = append(details, DetailStudentEmailDuplicate)
		}
	}
	if phone != "" {
		exists, err := s.repo.ExistsActiveByPhone(ctx, phone, excludeID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate phone")
		}
		if exists {
			details = append(details, DetailStudentPhoneDuplicate)
		}
	}
	if len(details) > 0 {
		return appErrors.WithDetails(appErrors.ErrDuplicate, "student already exists", details...)
	}
	return nil
}

func (s *StudentService) detail(ctx context.Context, student *models.Student, failures []models.MediaFailure) (*models.StudentDetail, error) {
	avatars, err := s.media.list(ctx, models.StudentOwner(student.ID), models.MediaAvatar)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student avatars")
	}
	return &models.StudentDetail{Student: *student, Avatars: orEmpty(avatars), MediaErrors: failures}, nil
}

func (s *StudentService) invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, studentCachePattern)
}

func normaliseStudentRequest(req dto.StudentRequest) dto.StudentRequest {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Gender == "" {
		req.Gender = models.GenderMale
	}
	return req
}

func duplicateStudent(constraint string) error {
	detail := DetailStudentEmailDuplicate
	if strings.Contains(constraint, "phone") {
		detail = DetailStudentPhoneDuplicate
	}
	return appErrors.WithDetails(appErrors.ErrDuplicate, "student already exists", detail)
}
