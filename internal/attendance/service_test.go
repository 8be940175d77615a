package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"classtrack/internal/apperr"
	"classtrack/internal/roster"
	"classtrack/internal/store"
)

type fixture struct {
	db       *store.DB
	sessions *Sessions
	marks    *Marks
	svc      *Service
	roster   *roster.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	students := roster.NewStudents(db.Client)
	courses := roster.NewCourses(db.Client)
	enrollments := roster.NewEnrollments(db.Client)
	sessions := NewSessions(db.Client)
	marks := NewMarks(db.Client)

	return &fixture{
		db:       db,
		sessions: sessions,
		marks:    marks,
		svc:      NewService(sessions, marks, students, courses, enrollments),
		roster:   roster.NewService(students, courses, enrollments),
	}
}

func (f *fixture) seedCourse(t *testing.T, rolls ...string) {
	t.Helper()
	ctx := context.Background()
	if err := f.roster.AddCourse(ctx, "CSE101", "Intro to CS", nil); err != nil {
		t.Fatalf("add course: %v", err)
	}
	for _, roll := range rolls {
		if err := f.roster.AddStudent(ctx, roll, "Student "+roll, nil); err != nil {
			t.Fatalf("add student %s: %v", roll, err)
		}
		if err := f.roster.Enroll(ctx, roll, "CSE101"); err != nil {
			t.Fatalf("enroll %s: %v", roll, err)
		}
	}
}

func ptr(s string) *string { return &s }

func TestMarkBatch_SameTriple_ReusesSession(t *testing.T) {
	f := newFixture(t)
	f.seedCourse(t, "CS001")
	ctx := context.Background()

	meta := SessionMeta{StartTime: ptr("09:00"), EndTime: ptr("10:00"), Topic: ptr("Intro")}
	for i := 0; i < 2; i++ {
		err := f.svc.MarkBatch(ctx, "CSE101", "2024-01-10", []Mark{{Roll: "CS001", Status: StatusPresent}}, meta)
		if err != nil {
			t.Fatalf("mark %d: %v", i+1, err)
		}
	}

	count, err := f.sessions.CountForCourse(ctx, 1)
	if err != nil {
		t.Fatalf("count sessions: %v", err)
	}
	if count != 1 {
		t.Errorf("expected one session for repeated (course, date, start), got %d", count)
	}
}

func TestMarkBatch_Remark_LastWriteWins(t *testing.T) {
	f := newFixture(t)
	f.seedCourse(t, "CS001")
	ctx := context.Background()

	meta := SessionMeta{StartTime: ptr("09:00")}
	if err := f.svc.MarkBatch(ctx, "CSE101", "2024-01-10", []Mark{{Roll: "CS001", Status: StatusAbsent}}, meta); err != nil {
		t.Fatalf("first mark: %v", err)
	}
	if err := f.svc.MarkBatch(ctx, "CSE101", "2024-01-10", []Mark{{Roll: "CS001", Status: StatusPresent}}, meta); err != nil {
		t.Fatalf("second mark: %v", err)
	}

	sessionID, err := f.sessions.Ensure(ctx, 1, "2024-01-10", ptr("09:00"), nil, nil)
	if err != nil {
		t.Fatalf("resolve session: %v", err)
	}
	row, err := f.marks.Get(ctx, sessionID, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if row == nil || row.Status != StatusPresent {
		t.Errorf("expected overwritten status P, got %+v", row)
	}
	n, err := f.marks.CountForSession(ctx, sessionID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("expected exactly one attendance row per (session, student), got %d", n)
	}
}

func TestSessions_Ensure_KeepsFirstMetadata(t *testing.T) {
	f := newFixture(t)
	f.seedCourse(t)
	ctx := context.Background()

	id1, err := f.sessions.Ensure(ctx, 1, "2024-01-10", ptr("09:00"), ptr("10:00"), ptr("Intro"))
	if err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	id2, err := f.sessions.Ensure(ctx, 1, "2024-01-10", ptr("09:00"), ptr("11:00"), ptr("Changed"))
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected same session id, got %d and %d", id1, id2)
	}

	var topic string
	if err := f.db.Client.QueryRow(`SELECT topic FROM sessions WHERE id = ?`, id1).Scan(&topic); err != nil {
		t.Fatalf("read topic: %v", err)
	}
	if topic != "Intro" {
		t.Errorf("later metadata must not overwrite first creation, got topic %q", topic)
	}
}

func TestSessions_Ensure_NilStartIsSingleton(t *testing.T) {
	f := newFixture(t)
	f.seedCourse(t)
	ctx := context.Background()

	id1, err := f.sessions.Ensure(ctx, 1, "2024-01-10", nil, nil, nil)
	if err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	id2, err := f.sessions.Ensure(ctx, 1, "2024-01-10", nil, nil, nil)
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if id1 != id2 {
		t.Errorf("session without start time must be a singleton per (course, date): %d vs %d", id1, id2)
	}
}

func TestMarkBatch_NotEnrolled_FailsAtomically(t *testing.T) {
	f := newFixture(t)
	f.seedCourse(t, "CS001")
	ctx := context.Background()
	if err := f.roster.AddStudent(ctx, "CS099", "Outsider", nil); err != nil {
		t.Fatalf("add outsider: %v", err)
	}

	err := f.svc.MarkBatch(ctx, "CSE101", "2024-01-10", []Mark{
		{Roll: "CS001", Status: StatusPresent},
		{Roll: "CS099", Status: StatusPresent},
	}, SessionMeta{StartTime: ptr("09:00")})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error for non-enrolled student, got %v", err)
	}

	var count int
	if err := f.db.Client.QueryRow(`SELECT COUNT(*) FROM attendance`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("failed batch must leave no attendance rows, got %d", count)
	}
}

func TestMarkBatch_BadStatus_Validation(t *testing.T) {
	f := newFixture(t)
	f.seedCourse(t, "CS001")

	err := f.svc.MarkBatch(context.Background(), "CSE101", "2024-01-10",
		[]Mark{{Roll: "CS001", Status: "X"}}, SessionMeta{})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for status X, got %v", err)
	}
}

func TestMarkBatch_UnknownCourse_NotFound(t *testing.T) {
	f := newFixture(t)

	err := f.svc.MarkBatch(context.Background(), "NOPE", "2024-01-10",
		[]Mark{{Roll: "CS001", Status: StatusPresent}}, SessionMeta{})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found for unknown course, got %v", err)
	}
}

func TestMarkBatch_MarkedAtSecondPrecision(t *testing.T) {
	f := newFixture(t)
	f.seedCourse(t, "CS001")
	ctx := context.Background()

	fixed := time.Date(2024, 1, 10, 9, 15, 30, 999, time.Local)
	f.svc.now = func() time.Time { return fixed }
	if err := f.svc.MarkBatch(ctx, "CSE101", "2024-01-10", []Mark{{Roll: "CS001", Status: StatusPresent}}, SessionMeta{}); err != nil {
		t.Fatalf("mark: %v", err)
	}

	var markedAt string
	if err := f.db.Client.QueryRow(`SELECT marked_at FROM attendance`).Scan(&markedAt); err != nil {
		t.Fatalf("read marked_at: %v", err)
	}
	if markedAt != "2024-01-10T09:15:30" {
		t.Errorf("marked_at = %q, want second-precision ISO form", markedAt)
	}
}
