package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/course-media-api/internal/models"
	appErrors "github.com/noah-isme/course-media-api/pkg/errors"
	"github.com/noah-isme/course-media-api/pkg/export"
)

// ExportFormat selects the rendered file type.
type ExportFormat string

// Supported export formats.
const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ParseExportFormat resolves a query value, defaulting to csv.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ExportFormatCSV:
		return ExportFormatCSV, nil
	case ExportFormatPDF:
		return ExportFormatPDF, nil
	default:
		return "", appErrors.WithDetails(appErrors.ErrValidation, "unsupported export format", raw)
	}
}

type activeCourseLister interface {
	ListActive(ctx context.Context) ([]models.Course, error)
}

type activeStudentLister interface {
	ListActive(ctx context.Context) ([]models.Student, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFile is a rendered export ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders course and student listings.
type ExportService struct {
	courses  activeCourseLister
	students activeStudentLister
	csv      csvRenderer
	pdf      pdfRenderer
	logger   *zap.Logger
	now      func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(courses activeCourseLister, students activeStudentLister, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{courses: courses, students: students, csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// Courses renders every active course.
func (s *ExportService) Courses(ctx context.Context, format ExportFormat) (*ExportFile, error) {
	courses, err := s.courses.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}
	rows := make([]map[string]string, 0, len(courses))
	for i, course := range courses {
		rows = append(rows, map[string]string{
			"No":          fmt.Sprintf("%d", i+1),
			"Code":        course.Code,
			"Name":        course.Name,
			"Description": course.Description,
			"Created At":  formatExportTime(course.CreatedAt),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"No", "Code", "Name", "Description", "Created At"},
		Rows:    rows,
	}
	return s.render(dataset, "courses", "Course List", format)
}

// Students renders every active student.
func (s *ExportService) Students(ctx context.Context, format ExportFormat) (*ExportFile, error) {
	students, err := s.students.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	rows := make([]map[string]string, 0, len(students))
	for i, student := range students {
		rows = append(rows, map[string]string{
			"No":         fmt.Sprintf("%d", i+1),
			"Name":       student.Name,
			"Gender":     genderLabel(student.Gender),
			"Email":      student.Email,
			"Phone":      student.Phone,
			"Created At": formatExportTime(student.CreatedAt),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"No", "Name", "Gender", "Email", "Phone", "Created At"},
		Rows:    rows,
	}
	return s.render(dataset, "students", "Student List", format)
}

func (s *ExportService) render(dataset export.Dataset, name, title string, format ExportFormat) (*ExportFile, error) {
	var (
		payload     []byte
		contentType string
		err         error
	)
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
		contentType = "text/csv"
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
		contentType = "application/pdf"
	default:
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "unsupported export format", string(format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	filename := fmt.Sprintf("%s_%s.%s", name, s.now().UTC().Format("20060102_150405"), format)
	s.logger.Info("export rendered", zap.String("file", filename), zap.Int("rows", len(dataset.Rows)))
	return &ExportFile{Filename: filename, ContentType: contentType, Data: payload}, nil
}

func genderLabel(gender string) string {
	switch gender {
	case models.GenderMale:
		return "Male"
	case models.GenderFemale:
		return "Female"
	default:
		return ""
	}
}

func formatExportTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
