package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/noah-isme/course-media-api/internal/models"
)

type activeCourseFinder interface {
	FindActiveByID(ctx context.Context, id int64) (*models.Course, error)
}

type activeLessonFinder interface {
	FindActiveByID(ctx context.Context, id int64) (*models.Lesson, error)
}

type activeStudentFinder interface {
	FindActiveByID(ctx context.Context, id int64) (*models.Student, error)
}

// OwnerDirectory resolves attachment owners against the entity stores.
type OwnerDirectory struct {
	courses  activeCourseFinder
	lessons  activeLessonFinder
	students activeStudentFinder
}

// NewOwnerDirectory constructs the directory.
func NewOwnerDirectory(courses activeCourseFinder, lessons activeLessonFinder, students activeStudentFinder) *OwnerDirectory {
	return &OwnerDirectory{courses: courses, lessons: lessons, students: students}
}

// ActiveOwnerExists reports whether the referenced owner exists and is active.
func (d *OwnerDirectory) ActiveOwnerExists(ctx context.Context, owner models.OwnerRef) (bool, error) {
	var err error
	switch owner.Kind() {
	case models.OwnerCourse:
		_, err = d.courses.FindActiveByID(ctx, owner.ID())
	case models.OwnerLesson:
		_, err = d.lessons.FindActiveByID(ctx, owner.ID())
	case models.OwnerStudent:
		_, err = d.students.FindActiveByID(ctx, owner.ID())
	default:
		return false, fmt.Errorf("unknown owner kind %q", owner.Kind())
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
