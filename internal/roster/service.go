package roster

import (
	"context"

	"classtrack/internal/apperr"
	"classtrack/internal/store"
)

// Service exposes the student, course, and enrollment operations.
type Service struct {
	students    *Students
	courses     *Courses
	enrollments *Enrollments
}

// NewService creates a service backed by the entity repositories.
func NewService(students *Students, courses *Courses, enrollments *Enrollments) *Service {
	return &Service{students: students, courses: courses, enrollments: enrollments}
}

// AddStudent inserts a new student. Fails with Conflict when the roll is taken.
func (s *Service) AddStudent(ctx context.Context, roll, name string, email *string) error {
	if roll == "" || name == "" {
		return apperr.Validationf("roll and name are required")
	}
	if err := s.students.Insert(ctx, roll, name, email); err != nil {
		if store.IsUniqueConstraint(err) {
			return apperr.Conflictf("student roll %s", roll)
		}
		return apperr.Storage(err)
	}
	return nil
}

// AddCourse inserts a new course. Fails with Conflict when the code is taken.
func (s *Service) AddCourse(ctx context.Context, code, title string, teacher *string) error {
	if code == "" || title == "" {
		return apperr.Validationf("code and title are required")
	}
	if err := s.courses.Insert(ctx, code, title, teacher); err != nil {
		if store.IsUniqueConstraint(err) {
			return apperr.Conflictf("course code %s", code)
		}
		return apperr.Storage(err)
	}
	return nil
}

// Enroll associates a student with a course. Enrolling twice is a no-op.
func (s *Service) Enroll(ctx context.Context, roll, courseCode string) error {
	student, err := s.students.ByRoll(ctx, roll)
	if err != nil {
		return apperr.Storage(err)
	}
	if student == nil {
		return apperr.NotFoundf("student %s", roll)
	}
	course, err := s.courses.ByCode(ctx, courseCode)
	if err != nil {
		return apperr.Storage(err)
	}
	if course == nil {
		return apperr.NotFoundf("course %s", courseCode)
	}
	if err := s.enrollments.Upsert(ctx, student.ID, course.ID); err != nil {
		return apperr.Storage(err)
	}
	return nil
}

// StudentByRoll returns the student for a roll, NotFound when absent.
func (s *Service) StudentByRoll(ctx context.Context, roll string) (*Student, error) {
	student, err := s.students.ByRoll(ctx, roll)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	if student == nil {
		return nil, apperr.NotFoundf("student %s", roll)
	}
	return student, nil
}

// CourseByCode returns the course for a code, NotFound when absent.
func (s *Service) CourseByCode(ctx context.Context, code string) (*Course, error) {
	course, err := s.courses.ByCode(ctx, code)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	if course == nil {
		return nil, apperr.NotFoundf("course %s", code)
	}
	return course, nil
}
