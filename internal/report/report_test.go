package report

import (
	"context"
	"errors"
	"testing"

	"classtrack/internal/apperr"
	"classtrack/internal/attendance"
	"classtrack/internal/roster"
	"classtrack/internal/store"
)

type fixture struct {
	reports *Repository
	roster  *roster.Service
	marks   *attendance.Service
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

	return &fixture{
		reports: NewRepository(db.Client),
		roster:  roster.NewService(students, courses, enrollments),
		marks: attendance.NewService(
			attendance.NewSessions(db.Client), attendance.NewMarks(db.Client),
			students, courses, enrollments),
	}
}

func ptr(s string) *string { return &s }

// seedScenario loads the CSE101 scenario: three enrolled students, one
// session on 2024-01-10 at 09:00, marked P/A/L.
func seedScenario(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()
	for _, s := range []struct{ roll, name string }{
		{"CS001", "Alice Johnson"}, {"CS002", "Bob Smith"}, {"CS003", "Charlie Lee"},
	} {
		if err := f.roster.AddStudent(ctx, s.roll, s.name, nil); err != nil {
			t.Fatalf("add student %s: %v", s.roll, err)
		}
	}
	if err := f.roster.AddCourse(ctx, "CSE101", "Intro to CS", nil); err != nil {
		t.Fatalf("add course: %v", err)
	}
	for _, roll := range []string{"CS001", "CS002", "CS003"} {
		if err := f.roster.Enroll(ctx, roll, "CSE101"); err != nil {
			t.Fatalf("enroll %s: %v", roll, err)
		}
	}
	err := f.marks.MarkBatch(ctx, "CSE101", "2024-01-10", []attendance.Mark{
		{Roll: "CS001", Status: attendance.StatusPresent},
		{Roll: "CS002", Status: attendance.StatusAbsent},
		{Roll: "CS003", Status: attendance.StatusLate},
	}, attendance.SessionMeta{StartTime: ptr("09:00")})
	if err != nil {
		t.Fatalf("mark: %v", err)
	}
}

func TestPercentage(t *testing.T) {
	cases := []struct {
		present, late, total int
		want                 float64
	}{
		{1, 0, 1, 100},
		{0, 1, 1, 100},
		{0, 0, 1, 0},
		{0, 0, 0, 0},
		{1, 0, 3, 33.33},
		{2, 1, 3, 100},
		{1, 1, 3, 66.67},
	}
	for _, c := range cases {
		if got := Percentage(c.present, c.late, c.total); got != c.want {
			t.Errorf("Percentage(%d, %d, %d) = %v, want %v", c.present, c.late, c.total, got, c.want)
		}
	}
}

func TestCourseReport_Scenario(t *testing.T) {
	f := newFixture(t)
	seedScenario(t, f)

	rep, err := f.reports.Course(context.Background(), "CSE101")
	if err != nil {
		t.Fatalf("course report: %v", err)
	}
	if rep.TotalSessions != 1 {
		t.Errorf("TotalSessions = %d, want 1", rep.TotalSessions)
	}
	if rep.TotalStudents != 3 {
		t.Errorf("TotalStudents = %d, want 3", rep.TotalStudents)
	}
	want := []CourseRow{
		{Roll: "CS001", Name: "Alice Johnson", Present: 1, Absent: 0, Late: 0, Percentage: 100},
		{Roll: "CS002", Name: "Bob Smith", Present: 0, Absent: 1, Late: 0, Percentage: 0},
		{Roll: "CS003", Name: "Charlie Lee", Present: 0, Absent: 0, Late: 1, Percentage: 100},
	}
	if len(rep.Rows) != len(want) {
		t.Fatalf("got %d rows, want %d", len(rep.Rows), len(want))
	}
	for i, w := range want {
		if rep.Rows[i] != w {
			t.Errorf("row %d = %+v, want %+v", i, rep.Rows[i], w)
		}
	}
}

func TestCourseReport_EnrolledWithoutAttendance_ZeroCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.roster.AddStudent(ctx, "CS010", "Dana", nil); err != nil {
		t.Fatalf("add student: %v", err)
	}
	if err := f.roster.AddCourse(ctx, "PHY110", "Mechanics", nil); err != nil {
		t.Fatalf("add course: %v", err)
	}
	if err := f.roster.Enroll(ctx, "CS010", "PHY110"); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	rep, err := f.reports.Course(ctx, "PHY110")
	if err != nil {
		t.Fatalf("course report: %v", err)
	}
	if rep.TotalSessions != 0 {
		t.Errorf("TotalSessions = %d, want 0", rep.TotalSessions)
	}
	if len(rep.Rows) != 1 {
		t.Fatalf("enrolled student must appear with zero counts, got %d rows", len(rep.Rows))
	}
	row := rep.Rows[0]
	if row.Present != 0 || row.Absent != 0 || row.Late != 0 || row.Percentage != 0 {
		t.Errorf("expected all-zero row, got %+v", row)
	}
}

func TestCourseReport_IgnoresOtherCourses(t *testing.T) {
	f := newFixture(t)
	seedScenario(t, f)
	ctx := context.Background()

	// CS001 also attends MAT201; those marks must not leak into CSE101 counts.
	if err := f.roster.AddCourse(ctx, "MAT201", "Discrete Math", nil); err != nil {
		t.Fatalf("add course: %v", err)
	}
	if err := f.roster.Enroll(ctx, "CS001", "MAT201"); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	err := f.marks.MarkBatch(ctx, "MAT201", "2024-01-10", []attendance.Mark{
		{Roll: "CS001", Status: attendance.StatusPresent},
	}, attendance.SessionMeta{StartTime: ptr("11:00")})
	if err != nil {
		t.Fatalf("mark: %v", err)
	}

	rep, err := f.reports.Course(ctx, "CSE101")
	if err != nil {
		t.Fatalf("course report: %v", err)
	}
	if rep.Rows[0].Present != 1 {
		t.Errorf("CS001 present in CSE101 = %d, want 1 (other-course marks excluded)", rep.Rows[0].Present)
	}
}

func TestCourseReport_UnknownCourse_NotFound(t *testing.T) {
	f := newFixture(t)
	if _, err := f.reports.Course(context.Background(), "NOPE"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestStudentReport_PerCourseRows(t *testing.T) {
	f := newFixture(t)
	seedScenario(t, f)
	ctx := context.Background()

	// Second course with sessions but no marks for CS001: percentage 0.00.
	if err := f.roster.AddCourse(ctx, "MAT201", "Discrete Math", nil); err != nil {
		t.Fatalf("add course: %v", err)
	}
	if err := f.roster.Enroll(ctx, "CS001", "MAT201"); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	rep, err := f.reports.Student(ctx, "CS001")
	if err != nil {
		t.Fatalf("student report: %v", err)
	}
	if rep.Name != "Alice Johnson" {
		t.Errorf("Name = %q", rep.Name)
	}
	if len(rep.Rows) != 2 {
		t.Fatalf("got %d rows, want 2 (ordered by course code)", len(rep.Rows))
	}
	if rep.Rows[0].CourseCode != "CSE101" || rep.Rows[1].CourseCode != "MAT201" {
		t.Fatalf("rows out of order: %+v", rep.Rows)
	}
	if rep.Rows[0].Present != 1 || rep.Rows[0].Percentage != 100 {
		t.Errorf("CSE101 row = %+v, want present=1 pct=100", rep.Rows[0])
	}
	if rep.Rows[1].TotalSessions != 0 || rep.Rows[1].Percentage != 0 {
		t.Errorf("MAT201 row = %+v, want zero sessions and 0.00 pct", rep.Rows[1])
	}
}

func TestStudentReport_UnknownRoll_NotFound(t *testing.T) {
	f := newFixture(t)
	if _, err := f.reports.Student(context.Background(), "NOPE"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestDailyReport_ZeroSessions_NoRowsNoError(t *testing.T) {
	f := newFixture(t)
	rows, err := f.reports.Daily(context.Background(), "1999-12-31", "")
	if err != nil {
		t.Fatalf("daily report: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected zero rows for a date with no sessions, got %d", len(rows))
	}
}

func TestDailyReport_RowsAndCourseFilter(t *testing.T) {
	f := newFixture(t)
	seedScenario(t, f)
	ctx := context.Background()

	rows, err := f.reports.Daily(ctx, "2024-01-10", "")
	if err != nil {
		t.Fatalf("daily report: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0].Roll != "CS001" || rows[0].Status != "P" {
		t.Errorf("first row = %+v, want CS001/P", rows[0])
	}

	filtered, err := f.reports.Daily(ctx, "2024-01-10", "CSE101")
	if err != nil {
		t.Fatalf("filtered daily report: %v", err)
	}
	if len(filtered) != 3 {
		t.Errorf("course filter changed row count unexpectedly: %d", len(filtered))
	}
}

func TestDailyReport_SessionWithoutMarks_BlankStudentFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.roster.AddCourse(ctx, "CSE101", "Intro to CS", nil); err != nil {
		t.Fatalf("add course: %v", err)
	}
	// Create a session directly with no attendance rows.
	res, err := f.reports.db.ExecContext(ctx,
		`INSERT INTO sessions(course_id, session_date, start_time) VALUES(1, '2024-01-10', '09:00')`)
	if err != nil {
		t.Fatalf("insert session: %v", err)
	}
	if _, err := res.LastInsertId(); err != nil {
		t.Fatalf("session id: %v", err)
	}

	rows, err := f.reports.Daily(ctx, "2024-01-10", "")
	if err != nil {
		t.Fatalf("daily report: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("session with no marks must yield one row, got %d", len(rows))
	}
	row := rows[0]
	if row.Roll != "" || row.Name != "" || row.Status != "" {
		t.Errorf("expected blank student fields, got %+v", row)
	}
	if row.CourseCode != "CSE101" || row.StartTime != "09:00" {
		t.Errorf("session fields wrong: %+v", row)
	}
}
