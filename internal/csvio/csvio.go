// Package csvio implements the trusted CSV export/import side door.
// Import bypasses business-rule validation and preserves identifiers
// verbatim so a prior export restores exactly.
package csvio

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"classtrack/internal/apperr"
)

// Transfer moves the five tables between the store and a directory of CSVs.
type Transfer struct {
	db *sql.DB
}

// NewTransfer creates a bulk transfer over the store.
func NewTransfer(db *sql.DB) *Transfer {
	return &Transfer{db: db}
}

type tableSpec struct {
	file    string
	query   string
	headers []string
}

var tables = []tableSpec{
	{
		file:    "students.csv",
		query:   `SELECT id, roll, name, email FROM students ORDER BY roll`,
		headers: []string{"id", "roll", "name", "email"},
	},
	{
		file:    "courses.csv",
		query:   `SELECT id, code, title, teacher FROM courses ORDER BY code`,
		headers: []string{"id", "code", "title", "teacher"},
	},
	{
		file:    "enrollments.csv",
		query:   `SELECT student_id, course_id FROM enrollments ORDER BY course_id, student_id`,
		headers: []string{"student_id", "course_id"},
	},
	{
		file:    "sessions.csv",
		query:   `SELECT id, course_id, session_date, start_time, end_time, topic FROM sessions ORDER BY session_date, course_id`,
		headers: []string{"id", "course_id", "session_date", "start_time", "end_time", "topic"},
	},
	{
		file:    "attendance.csv",
		query:   `SELECT session_id, student_id, status, marked_at FROM attendance ORDER BY session_id, student_id`,
		headers: []string{"session_id", "student_id", "status", "marked_at"},
	},
}

// Export writes one CSV per table into dir, creating dir if absent.
// NULL columns are written as empty fields.
func (t *Transfer) Export(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperr.Storage(err)
	}
	for _, spec := range tables {
		if err := t.exportTable(ctx, dir, spec); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transfer) exportTable(ctx context.Context, dir string, spec tableSpec) error {
	rows, err := t.db.QueryContext(ctx, spec.query)
	if err != nil {
		return apperr.Storage(err)
	}
	defer rows.Close()

	f, err := os.Create(filepath.Join(dir, spec.file))
	if err != nil {
		return apperr.Storage(err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(spec.headers); err != nil {
		return apperr.Storage(err)
	}
	record := make([]string, len(spec.headers))
	scan := make([]any, len(spec.headers))
	vals := make([]sql.NullString, len(spec.headers))
	for i := range vals {
		scan[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(scan...); err != nil {
			return apperr.Storage(err)
		}
		for i, v := range vals {
			record[i] = v.String
		}
		if err := w.Write(record); err != nil {
			return apperr.Storage(err)
		}
	}
	if err := rows.Err(); err != nil {
		return apperr.Storage(err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return apperr.Storage(err)
	}
	return f.Close()
}

// Import reads whichever of the five CSVs exist in dir and loads them in one
// transaction. Students, courses, and sessions are insert-or-replace keyed by
// their stated ids; enrollments insert-or-ignore; attendance insert-or-replace
// on its composite key. Empty fields restore as NULL.
func (t *Transfer) Import(ctx context.Context, dir string) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Storage(err)
	}
	steps := []struct {
		file string
		load func(*sql.Tx, [][]string) error
	}{
		{"students.csv", importStudents},
		{"courses.csv", importCourses},
		{"enrollments.csv", importEnrollments},
		{"sessions.csv", importSessions},
		{"attendance.csv", importAttendance},
	}
	for _, step := range steps {
		records, err := readCSV(filepath.Join(dir, step.file))
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		if records == nil {
			continue
		}
		if err := step.load(tx, records); err != nil {
			_ = tx.Rollback()
			return apperr.Storage(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return apperr.Storage(err)
	}
	return nil
}

// readCSV returns the data records of path (header stripped), or nil when the
// file does not exist.
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, apperr.Storage(fmt.Errorf("%s: %w", filepath.Base(path), err))
	}
	if len(records) <= 1 {
		return [][]string{}, nil
	}
	return records[1:], nil
}

// nullable maps an empty CSV field back to NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func importStudents(tx *sql.Tx, records [][]string) error {
	for _, rec := range records {
		if len(rec) < 4 {
			return fmt.Errorf("students.csv: short record")
		}
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO students(id, roll, name, email) VALUES(?,?,?,?)`,
			rec[0], rec[1], rec[2], nullable(rec[3])); err != nil {
			return err
		}
	}
	return nil
}

func importCourses(tx *sql.Tx, records [][]string) error {
	for _, rec := range records {
		if len(rec) < 4 {
			return fmt.Errorf("courses.csv: short record")
		}
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO courses(id, code, title, teacher) VALUES(?,?,?,?)`,
			rec[0], rec[1], rec[2], nullable(rec[3])); err != nil {
			return err
		}
	}
	return nil
}

func importEnrollments(tx *sql.Tx, records [][]string) error {
	for _, rec := range records {
		if len(rec) < 2 {
			return fmt.Errorf("enrollments.csv: short record")
		}
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO enrollments(student_id, course_id) VALUES(?,?)`,
			rec[0], rec[1]); err != nil {
			return err
		}
	}
	return nil
}

func importSessions(tx *sql.Tx, records [][]string) error {
	for _, rec := range records {
		if len(rec) < 6 {
			return fmt.Errorf("sessions.csv: short record")
		}
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO sessions(id, course_id, session_date, start_time, end_time, topic) VALUES(?,?,?,?,?,?)`,
			rec[0], rec[1], rec[2], nullable(rec[3]), nullable(rec[4]), nullable(rec[5])); err != nil {
			return err
		}
	}
	return nil
}

func importAttendance(tx *sql.Tx, records [][]string) error {
	for _, rec := range records {
		if len(rec) < 4 {
			return fmt.Errorf("attendance.csv: short record")
		}
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO attendance(session_id, student_id, status, marked_at) VALUES(?,?,?,?)`,
			rec[0], rec[1], rec[2], rec[3]); err != nil {
			return err
		}
	}
	return nil
}
