package attendance

import (
	"context"
	"database/sql"
	"errors"
)

// Session is one scheduled meeting of a course.
type Session struct {
	ID        int64   `json:"id"`
	CourseID  int64   `json:"course_id"`
	Date      string  `json:"date"`
	StartTime *string `json:"start_time,omitempty"`
	EndTime   *string `json:"end_time,omitempty"`
	Topic     *string `json:"topic,omitempty"`
}

// Sessions persists session rows.
type Sessions struct {
	db *sql.DB
}

// NewSessions creates a session repo.
func NewSessions(db *sql.DB) *Sessions {
	return &Sessions{db: db}
}

// Ensure resolves (course, date, start_time) to its session id, creating the
// row if absent. End time and topic only persist on first creation; later
// calls with the same triple reuse the existing row untouched.
func (r *Sessions) Ensure(ctx context.Context, courseID int64, date string, startTime, endTime, topic *string) (int64, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO sessions(course_id, session_date, start_time, end_time, topic)
		VALUES(?,?,?,?,?)
	`, courseID, date, startTime, endTime, topic)
	if err != nil {
		return 0, err
	}
	// IS matches NULL start times against each other, so a session without a
	// start time stays a singleton per (course, date).
	var id int64
	err = r.db.QueryRowContext(ctx, `
		SELECT id FROM sessions
		WHERE course_id = ? AND session_date = ? AND start_time IS ?
	`, courseID, date, startTime).Scan(&id)
	return id, err
}

// CountForCourse returns the number of sessions held for a course.
func (r *Sessions) CountForCourse(ctx context.Context, courseID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE course_id = ?`, courseID).Scan(&n)
	return n, err
}

// Entry is one attendance row to upsert.
type Entry struct {
	SessionID int64
	StudentID int64
	Status    Status
	MarkedAt  string
}

// Row is a stored attendance row.
type Row struct {
	SessionID int64  `json:"session_id"`
	StudentID int64  `json:"student_id"`
	Status    Status `json:"status"`
	MarkedAt  string `json:"marked_at"`
}

// Marks persists attendance rows.
type Marks struct {
	db *sql.DB
}

// NewMarks creates an attendance repo.
func NewMarks(db *sql.DB) *Marks {
	return &Marks{db: db}
}

// UpsertBatch writes all entries in one transaction; either every entry lands
// or none do. Re-marking a (session, student) pair overwrites status and
// marked-at, keeping exactly one row per pair.
func (r *Marks) UpsertBatch(ctx context.Context, entries []Entry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO attendance(session_id, student_id, status, marked_at)
			VALUES(?,?,?,?)
			ON CONFLICT(session_id, student_id) DO UPDATE SET
				status = excluded.status,
				marked_at = excluded.marked_at
		`, e.SessionID, e.StudentID, e.Status, e.MarkedAt); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Get returns the attendance row for a (session, student) pair, nil when absent.
func (r *Marks) Get(ctx context.Context, sessionID, studentID int64) (*Row, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT session_id, student_id, status, marked_at
		FROM attendance WHERE session_id = ? AND student_id = ?
	`, sessionID, studentID)
	var a Row
	if err := row.Scan(&a.SessionID, &a.StudentID, &a.Status, &a.MarkedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// CountForSession returns the number of attendance rows for a session.
func (r *Marks) CountForSession(ctx context.Context, sessionID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attendance WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}
