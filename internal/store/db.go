package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// DB wraps sql.DB for the local SQLite attendance store.
type DB struct {
	Client *sql.DB
}

// Open opens the SQLite database at path with foreign keys enforced.
// Use ":memory:" for an in-memory database (tests).
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// An in-memory database exists per connection; keep the pool at one
	// so every statement sees the same schema and rows.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	return &DB{Client: db}, db.PingContext(context.Background())
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}

// Migrate creates the schema if absent. Safe to call on every invocation.
func (d *DB) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS students (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			roll TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			email TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS courses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			code TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			teacher TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS enrollments (
			student_id INTEGER NOT NULL,
			course_id INTEGER NOT NULL,
			PRIMARY KEY (student_id, course_id),
			FOREIGN KEY (student_id) REFERENCES students(id) ON DELETE CASCADE,
			FOREIGN KEY (course_id) REFERENCES courses(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			course_id INTEGER NOT NULL,
			session_date TEXT NOT NULL,
			start_time TEXT,
			end_time TEXT,
			topic TEXT,
			UNIQUE(course_id, session_date, start_time),
			FOREIGN KEY (course_id) REFERENCES courses(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS attendance (
			session_id INTEGER NOT NULL,
			student_id INTEGER NOT NULL,
			status TEXT NOT NULL CHECK (status IN ('P','A','L')),
			marked_at TEXT NOT NULL,
			PRIMARY KEY (session_id, student_id),
			FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE,
			FOREIGN KEY (student_id) REFERENCES students(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_students_roll ON students(roll);`,
		`CREATE INDEX IF NOT EXISTS idx_courses_code ON courses(code);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_course_date ON sessions(course_id, session_date);`,
		`CREATE INDEX IF NOT EXISTS idx_attendance_session ON attendance(session_id);`,
	}
	for _, stmt := range statements {
		if _, err := d.Client.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// IsConstraint reports whether err is a SQLite constraint violation
// (unique, foreign key, or check).
func IsConstraint(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.Code == sqlite3.ErrConstraint
	}
	return false
}

// IsUniqueConstraint reports whether err is specifically a unique-key violation.
func IsUniqueConstraint(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
