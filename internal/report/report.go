// Package report computes the read-only attendance reports.
package report

import (
	"context"
	"database/sql"
	"errors"
	"math"

	"classtrack/internal/apperr"
)

// CourseRow is one student's totals within a course report.
type CourseRow struct {
	Roll       string  `json:"roll"`
	Name       string  `json:"name"`
	Present    int     `json:"present"`
	Absent     int     `json:"absent"`
	Late       int     `json:"late"`
	Percentage float64 `json:"percentage"`
}

// CourseReport aggregates attendance per student for one course.
type CourseReport struct {
	Code          string      `json:"code"`
	TotalSessions int         `json:"total_sessions"`
	TotalStudents int         `json:"total_students"`
	Rows          []CourseRow `json:"rows"`
}

// StudentCourseRow is one course's totals within a student report.
type StudentCourseRow struct {
	CourseCode    string  `json:"course_code"`
	Present       int     `json:"present"`
	Absent        int     `json:"absent"`
	Late          int     `json:"late"`
	TotalSessions int     `json:"total_sessions"`
	Percentage    float64 `json:"percentage"`
}

// StudentReport aggregates one student's attendance across enrolled courses.
type StudentReport struct {
	Roll string             `json:"roll"`
	Name string             `json:"name"`
	Rows []StudentCourseRow `json:"rows"`
}

// DailyRow is one (session, student) line of the daily report. Student fields
// are blank when a session has no attendance rows at all.
type DailyRow struct {
	CourseCode string `json:"course_code"`
	SessionID  int64  `json:"session_id"`
	StartTime  string `json:"start_time"`
	Topic      string `json:"topic"`
	Roll       string `json:"roll"`
	Name       string `json:"name"`
	Status     string `json:"status"`
}

// Repository runs the report queries against the store.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a report repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Percentage computes (present+late)/total*100 rounded to two decimals,
// and 0 when no sessions were held.
func Percentage(present, late, totalSessions int) float64 {
	if totalSessions <= 0 {
		return 0
	}
	pct := float64(present+late) / float64(totalSessions) * 100
	return math.Round(pct*100) / 100
}

// Course returns per-student attendance totals for one course, ordered by
// roll. Enrolled students with no attendance rows appear with zero counts;
// attendance from the student's other courses is not counted.
func (r *Repository) Course(ctx context.Context, courseCode string) (*CourseReport, error) {
	var courseID int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM courses WHERE code = ?`, courseCode).Scan(&courseID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFoundf("course %s", courseCode)
	}
	if err != nil {
		return nil, apperr.Storage(err)
	}

	rep := &CourseReport{Code: courseCode}
	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE course_id = ?`, courseID).Scan(&rep.TotalSessions)
	if err != nil {
		return nil, apperr.Storage(err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT s.roll, s.name,
		       COALESCE(SUM(CASE WHEN a.status = 'P' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN a.status = 'A' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN a.status = 'L' THEN 1 ELSE 0 END), 0)
		FROM students s
		JOIN enrollments e ON e.student_id = s.id AND e.course_id = ?
		LEFT JOIN attendance a ON a.student_id = s.id
			AND a.session_id IN (SELECT id FROM sessions WHERE course_id = ?)
		GROUP BY s.id
		ORDER BY s.roll
	`, courseID, courseID)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer rows.Close()
	for rows.Next() {
		var row CourseRow
		if err := rows.Scan(&row.Roll, &row.Name, &row.Present, &row.Absent, &row.Late); err != nil {
			return nil, apperr.Storage(err)
		}
		row.Percentage = Percentage(row.Present, row.Late, rep.TotalSessions)
		rep.Rows = append(rep.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage(err)
	}
	rep.TotalStudents = len(rep.Rows)
	return rep, nil
}

// Student returns one row per course the student is enrolled in, ordered by
// course code. Each course's percentage is over that course's total sessions.
func (r *Repository) Student(ctx context.Context, roll string) (*StudentReport, error) {
	rep := &StudentReport{Roll: roll}
	var studentID int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name FROM students WHERE roll = ?`, roll).Scan(&studentID, &rep.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFoundf("student %s", roll)
	}
	if err != nil {
		return nil, apperr.Storage(err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT c.code,
		       COALESCE(SUM(CASE WHEN a.status = 'P' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN a.status = 'A' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN a.status = 'L' THEN 1 ELSE 0 END), 0),
		       (SELECT COUNT(*) FROM sessions s2 WHERE s2.course_id = c.id)
		FROM courses c
		JOIN enrollments e ON e.course_id = c.id AND e.student_id = ?
		LEFT JOIN sessions se ON se.course_id = c.id
		LEFT JOIN attendance a ON a.session_id = se.id AND a.student_id = ?
		GROUP BY c.id
		ORDER BY c.code
	`, studentID, studentID)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer rows.Close()
	for rows.Next() {
		var row StudentCourseRow
		if err := rows.Scan(&row.CourseCode, &row.Present, &row.Absent, &row.Late, &row.TotalSessions); err != nil {
			return nil, apperr.Storage(err)
		}
		row.Percentage = Percentage(row.Present, row.Late, row.TotalSessions)
		rep.Rows = append(rep.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage(err)
	}
	return rep, nil
}

// Daily returns the session log for one date, optionally filtered to a
// course, ordered by course code, start time, roll. A session with no
// attendance rows yields a single line with blank student fields.
func (r *Repository) Daily(ctx context.Context, date, courseCode string) ([]DailyRow, error) {
	query := `
		SELECT c.code, se.id, se.start_time, se.topic, s.roll, s.name, a.status
		FROM sessions se
		JOIN courses c ON c.id = se.course_id
		LEFT JOIN attendance a ON a.session_id = se.id
		LEFT JOIN students s ON s.id = a.student_id
		WHERE se.session_date = ?`
	args := []any{date}
	if courseCode != "" {
		var courseID int64
		err := r.db.QueryRowContext(ctx,
			`SELECT id FROM courses WHERE code = ?`, courseCode).Scan(&courseID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFoundf("course %s", courseCode)
		}
		if err != nil {
			return nil, apperr.Storage(err)
		}
		query += ` AND se.course_id = ?`
		args = append(args, courseID)
	}
	query += ` ORDER BY c.code, se.start_time, s.roll`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer rows.Close()
	var out []DailyRow
	for rows.Next() {
		var row DailyRow
		var start, topic, roll, name, status sql.NullString
		if err := rows.Scan(&row.CourseCode, &row.SessionID, &start, &topic, &roll, &name, &status); err != nil {
			return nil, apperr.Storage(err)
		}
		row.StartTime = start.String
		row.Topic = topic.String
		row.Roll = roll.String
		row.Name = name.String
		row.Status = status.String
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage(err)
	}
	return out, nil
}
