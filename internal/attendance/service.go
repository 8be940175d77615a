package attendance

import (
	"context"
	"time"

	"classtrack/internal/apperr"
	"classtrack/internal/roster"
)

// Status is an attendance status code.
type Status string

// Attendance status codes. Late counts as attended for percentage purposes.
const (
	StatusPresent Status = "P"
	StatusAbsent  Status = "A"
	StatusLate    Status = "L"
)

// Valid reports whether the status is one of P, A, L.
func (s Status) Valid() bool {
	return s == StatusPresent || s == StatusAbsent || s == StatusLate
}

// Mark is one (roll, status) pair to record.
type Mark struct {
	Roll   string
	Status Status
}

// SessionMeta carries the optional session attributes supplied at mark time.
type SessionMeta struct {
	StartTime *string
	EndTime   *string
	Topic     *string
}

// Service records attendance against resolved sessions.
type Service struct {
	sessions    *Sessions
	marks       *Marks
	students    *roster.Students
	courses     *roster.Courses
	enrollments *roster.Enrollments
	now         func() time.Time
}

// NewService creates a service backed by the session and attendance repos.
func NewService(sessions *Sessions, marks *Marks, students *roster.Students, courses *roster.Courses, enrollments *roster.Enrollments) *Service {
	return &Service{
		sessions:    sessions,
		marks:       marks,
		students:    students,
		courses:     courses,
		enrollments: enrollments,
		now:         time.Now,
	}
}

// MarkBatch resolves the session for (course, date, start) and upserts one
// attendance row per mark. The whole batch is validated first and written in
// a single transaction: a bad status, unknown roll, or missing enrollment
// anywhere in the batch leaves no attendance rows behind.
func (s *Service) MarkBatch(ctx context.Context, courseCode, date string, ms []Mark, meta SessionMeta) error {
	course, err := s.courses.ByCode(ctx, courseCode)
	if err != nil {
		return apperr.Storage(err)
	}
	if course == nil {
		return apperr.NotFoundf("course %s", courseCode)
	}

	sessionID, err := s.sessions.Ensure(ctx, course.ID, date, meta.StartTime, meta.EndTime, meta.Topic)
	if err != nil {
		return apperr.Storage(err)
	}

	rolls := make([]string, len(ms))
	for i, m := range ms {
		rolls[i] = m.Roll
	}
	rollToID, err := s.students.IDsByRolls(ctx, rolls)
	if err != nil {
		return apperr.Storage(err)
	}

	markedAt := s.now().Format("2006-01-02T15:04:05")
	entries := make([]Entry, 0, len(ms))
	for _, m := range ms {
		if !m.Status.Valid() {
			return apperr.Validationf("status must be one of P, A, L")
		}
		studentID, ok := rollToID[m.Roll]
		if !ok {
			return apperr.NotFoundf("student %s", m.Roll)
		}
		enrolled, err := s.enrollments.Exists(ctx, studentID, course.ID)
		if err != nil {
			return apperr.Storage(err)
		}
		if !enrolled {
			return apperr.Validationf("student %s not enrolled in %s", m.Roll, courseCode)
		}
		entries = append(entries, Entry{
			SessionID: sessionID,
			StudentID: studentID,
			Status:    m.Status,
			MarkedAt:  markedAt,
		})
	}

	if err := s.marks.UpsertBatch(ctx, entries); err != nil {
		return apperr.Storage(err)
	}
	return nil
}
