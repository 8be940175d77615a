// Package seed loads a small demonstration dataset through the real services.
package seed

import (
	"context"
	"time"

	"classtrack/internal/attendance"
	"classtrack/internal/roster"
)

func ptr(s string) *string { return &s }

// Run inserts three students, two courses, five enrollments, and two marked
// sessions dated today. It fails if run twice (duplicate rolls/codes).
func Run(ctx context.Context, rosterSvc *roster.Service, attSvc *attendance.Service) error {
	students := []struct {
		roll, name, email string
	}{
		{"CS001", "Alice Johnson", "alice@example.com"},
		{"CS002", "Bob Smith", "bob@example.com"},
		{"CS003", "Charlie Lee", "charlie@example.com"},
	}
	for _, s := range students {
		if err := rosterSvc.AddStudent(ctx, s.roll, s.name, ptr(s.email)); err != nil {
			return err
		}
	}

	if err := rosterSvc.AddCourse(ctx, "CSE101", "Intro to CS", ptr("Dr. Gupta")); err != nil {
		return err
	}
	if err := rosterSvc.AddCourse(ctx, "MAT201", "Discrete Math", ptr("Dr. Rao")); err != nil {
		return err
	}

	enrollments := [][2]string{
		{"CS001", "CSE101"},
		{"CS002", "CSE101"},
		{"CS003", "CSE101"},
		{"CS001", "MAT201"},
		{"CS003", "MAT201"},
	}
	for _, e := range enrollments {
		if err := rosterSvc.Enroll(ctx, e[0], e[1]); err != nil {
			return err
		}
	}

	today := time.Now().Format("2006-01-02")
	err := attSvc.MarkBatch(ctx, "CSE101", today, []attendance.Mark{
		{Roll: "CS001", Status: attendance.StatusPresent},
		{Roll: "CS002", Status: attendance.StatusAbsent},
		{Roll: "CS003", Status: attendance.StatusLate},
	}, attendance.SessionMeta{
		StartTime: ptr("09:00"),
		EndTime:   ptr("10:00"),
		Topic:     ptr("Introduction"),
	})
	if err != nil {
		return err
	}
	return attSvc.MarkBatch(ctx, "MAT201", today, []attendance.Mark{
		{Roll: "CS001", Status: attendance.StatusPresent},
		{Roll: "CS003", Status: attendance.StatusPresent},
	}, attendance.SessionMeta{
		StartTime: ptr("11:00"),
		EndTime:   ptr("12:00"),
		Topic:     ptr("Sets"),
	})
}
