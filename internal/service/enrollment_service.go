package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/course-media-api/internal/dto"
	"github.com/noah-isme/course-media-api/internal/models"
	appErrors "github.com/noah-isme/course-media-api/pkg/errors"
)

// Batch operation labels used for metrics and logs.
const (
	batchOperationEnroll     = "enroll"
	batchOperationReplaceAll = "replace_all"
)

type enrollmentRepository interface {
	ExistsActive(ctx context.Context, exec sqlx.ExtContext, studentID, courseID int64) (bool, error)
	InsertActive(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) (bool, error)
	SoftDeleteActiveByStudent(ctx context.Context, exec sqlx.ExtContext, studentID int64) (int64, error)
	SoftDeletePair(ctx context.Context, exec sqlx.ExtContext, studentID, courseID int64) (int64, error)
	ListActiveByStudent(ctx context.Context, studentID int64) ([]models.Enrollment, error)
	ListActiveStudentsByCourse(ctx context.Context, courseID int64) ([]models.Student, error)
}

type enrollmentCourseReader interface {
	FindActiveByID(ctx context.Context, id int64) (*models.Course, error)
	FindByIDs(ctx context.Context, ids []int64) ([]models.Course, error)
}

// EnrollmentService reconciles a student's course links batch by batch.
type EnrollmentService struct {
	repo      enrollmentRepository
	students  activeStudentFinder
	courses   enrollmentCourseReader
	tx        txProvider
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(
	repo enrollmentRepository,
	students activeStudentFinder,
	courses enrollmentCourseReader,
	tx txProvider,
	validate *validator.Validate,
	metrics *MetricsService,
	logger *zap.Logger,
) *EnrollmentService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:      repo,
		students:  students,
		courses:   courses,
		tx:        tx,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
	}
}

// Enroll links the student to every listed course that is active and not
// already linked. Each course id yields exactly one item, in input order.
func (s *EnrollmentService) Enroll(ctx context.Context, req dto.EnrollmentRequest) (*models.BatchResult, error) {
	return s.reconcile(ctx, batchOperationEnroll, req)
}

// ReplaceAll soft-deletes every active enrollment of the student and then links
// the listed courses, all within one transaction.
func (s *EnrollmentService) ReplaceAll(ctx context.Context, req dto.EnrollmentRequest) (*models.BatchResult, error) {
	return s.reconcile(ctx, batchOperationReplaceAll, req)
}

func (s *EnrollmentService) reconcile(ctx context.Context, operation string, req dto.EnrollmentRequest) (result *models.BatchResult, err error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	student, err := s.loadStudent(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin enrollment transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	precheck := true
	if operation == batchOperationReplaceAll {
		removed, delErr := s.repo.SoftDeleteActiveByStudent(ctx, tx, student.ID)
		if delErr != nil {
			return nil, appErrors.Wrap(delErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear enrollments")
		}
		s.logger.Debug("enrollments cleared", zap.Int64("student_id", student.ID), zap.Int64("removed", removed))
		precheck = false
	}

	result = models.NewBatchResult(*student, len(req.CourseIDs))
	for _, courseID := range req.CourseIDs {
		item, itemErr := s.enrollOne(ctx, tx, student.ID, courseID, precheck)
		if itemErr != nil {
			return nil, appErrors.Wrap(itemErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save enrollments")
		}
		result.Add(item)
	}

	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit enrollments")
	}

	s.metrics.RecordBatchResult(operation, result)
	s.logger.Info("enrollment batch applied",
		zap.String("operation", operation),
		zap.Int64("student_id", student.ID),
		zap.Int("success", result.SuccessCount),
		zap.Int("failed", result.FailCount),
	)
	return result, nil
}

// enrollOne folds one course id into an item. Expected failures become failed
// items; only infrastructure errors are returned.
func (s *EnrollmentService) enrollOne(ctx context.Context, exec sqlx.ExtContext, studentID, courseID int64, precheck bool) (models.BatchItem, error) {
	item := models.BatchItem{CourseID: courseID}

	course, err := s.courses.FindActiveByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			item.Reason = models.ReasonCourseNotFound
			item.Message = models.MessageCourseNotFound
			return item, nil
		}
		return item, fmt.Errorf("load course %d: %w", courseID, err)
	}
	item.CourseCode = course.Code
	item.CourseName = course.Name

	if precheck {
		exists, err := s.repo.ExistsActive(ctx, exec, studentID, courseID)
		if err != nil {
			return item, err
		}
		if exists {
			item.Reason = models.ReasonAlreadyEnrolled
			item.Message = models.MessageEnrollmentExists
			return item, nil
		}
	}

	inserted, err := s.repo.InsertActive(ctx, exec, &models.Enrollment{StudentID: studentID, CourseID: courseID})
	if err != nil {
		return item, err
	}
	if !inserted {
		item.Reason = models.ReasonAlreadyEnrolled
		item.Message = models.MessageEnrollmentExists
		return item, nil
	}
	item.Success = true
	item.Message = models.MessageEnrollmentCreated
	return item, nil
}

// ListByCourse returns the students actively enrolled in an active course.
func (s *EnrollmentService) ListByCourse(ctx context.Context, courseID int64) ([]models.Student, error) {
	if _, err := s.courses.FindActiveByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, models.MessageCourseNotFound)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	students, err := s.repo.ListActiveStudentsByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrolled students")
	}
	if students == nil {
		students = []models.Student{}
	}
	return students, nil
}

// ListByStudent returns one view per active enrollment of an active student.
// Courses are resolved in one batched lookup.
func (s *EnrollmentService) ListByStudent(ctx context.Context, studentID int64) ([]models.EnrollmentView, error) {
	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	enrollments, err := s.repo.ListActiveByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	views := make([]models.EnrollmentView, 0, len(enrollments))
	if len(enrollments) == 0 {
		return views, nil
	}

	ids := make([]int64, 0, len(enrollments))
	seen := make(map[int64]struct{}, len(enrollments))
	for _, enrollment := range enrollments {
		if _, ok := seen[enrollment.CourseID]; ok {
			continue
		}
		seen[enrollment.CourseID] = struct{}{}
		ids = append(ids, enrollment.CourseID)
	}
	courses, err := s.courses.FindByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrolled courses")
	}
	byID := make(map[int64]models.Course, len(courses))
	for _, course := range courses {
		byID[course.ID] = course
	}

	for _, enrollment := range enrollments {
		course, ok := byID[enrollment.CourseID]
		if !ok {
			s.logger.Error("enrollment references missing course",
				zap.Int64("enrollment_id", enrollment.ID),
				zap.Int64("student_id", studentID),
				zap.Int64("course_id", enrollment.CourseID),
			)
			return nil, appErrors.WithDetails(appErrors.ErrDataIntegrity, "enrollment references missing course", fmt.Sprintf("course:%d", enrollment.CourseID))
		}
		views = append(views, models.EnrollmentView{
			StudentID:    student.ID,
			StudentName:  student.Name,
			StudentEmail: student.Email,
			StudentPhone: student.Phone,
			Gender:       student.Gender,
			CourseID:     course.ID,
			CourseCode:   course.Code,
			CourseName:   course.Name,
			Status:       enrollment.Status,
			CreatedAt:    enrollment.CreatedAt,
			UpdatedAt:    enrollment.UpdatedAt,
		})
	}
	return views, nil
}

// Unenroll soft-deletes the active enrollment of the pair.
func (s *EnrollmentService) Unenroll(ctx context.Context, studentID, courseID int64) (*dto.UnenrollResponse, error) {
	affected, err := s.repo.SoftDeletePair(ctx, nil, studentID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete enrollment")
	}
	if affected == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, models.MessageEnrollmentMissing)
	}
	s.logger.Info("enrollment deleted", zap.Int64("student_id", studentID), zap.Int64("course_id", courseID))
	return &dto.UnenrollResponse{StudentID: studentID, CourseID: courseID, Message: models.MessageEnrollmentDeleted}, nil
}

func (s *EnrollmentService) loadStudent(ctx context.Context, id int64) (*models.Student, error) {
	student, err := s.students.FindActiveByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, models.MessageStudentNotFound)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}
