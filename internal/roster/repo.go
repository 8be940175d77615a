package roster

import (
	"context"
	"database/sql"
	"errors"
)

// Student is a registered student.
type Student struct {
	ID    int64   `json:"id"`
	Roll  string  `json:"roll"`
	Name  string  `json:"name"`
	Email *string `json:"email,omitempty"`
}

// Course is a course students enroll in.
type Course struct {
	ID      int64   `json:"id"`
	Code    string  `json:"code"`
	Title   string  `json:"title"`
	Teacher *string `json:"teacher,omitempty"`
}

// Students persists student rows.
type Students struct {
	db *sql.DB
}

// NewStudents creates a student repo.
func NewStudents(db *sql.DB) *Students {
	return &Students{db: db}
}

// Insert adds a new student row. Roll uniqueness is enforced by the store.
func (r *Students) Insert(ctx context.Context, roll, name string, email *string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO students(roll, name, email) VALUES(?,?,?)`,
		roll, name, email)
	return err
}

// ByRoll returns the student with the given roll, or nil when absent.
func (r *Students) ByRoll(ctx context.Context, roll string) (*Student, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, roll, name, email FROM students WHERE roll = ?`, roll)
	var s Student
	if err := row.Scan(&s.ID, &s.Roll, &s.Name, &s.Email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// IDsByRolls resolves a batch of rolls to student ids in one query.
// Rolls that do not exist are simply missing from the result map.
func (r *Students) IDsByRolls(ctx context.Context, rolls []string) (map[string]int64, error) {
	ids := make(map[string]int64, len(rolls))
	if len(rolls) == 0 {
		return ids, nil
	}
	query := `SELECT id, roll FROM students WHERE roll IN (?` + repeat(",?", len(rolls)-1) + `)`
	args := make([]any, len(rolls))
	for i, roll := range rolls {
		args[i] = roll
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var roll string
		if err := rows.Scan(&id, &roll); err != nil {
			return nil, err
		}
		ids[roll] = id
	}
	return ids, rows.Err()
}

// Count returns the number of student rows.
func (r *Students) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM students`).Scan(&n)
	return n, err
}

// Courses persists course rows.
type Courses struct {
	db *sql.DB
}

// NewCourses creates a course repo.
func NewCourses(db *sql.DB) *Courses {
	return &Courses{db: db}
}

// Insert adds a new course row. Code uniqueness is enforced by the store.
func (r *Courses) Insert(ctx context.Context, code, title string, teacher *string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO courses(code, title, teacher) VALUES(?,?,?)`,
		code, title, teacher)
	return err
}

// ByCode returns the course with the given code, or nil when absent.
func (r *Courses) ByCode(ctx context.Context, code string) (*Course, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, code, title, teacher FROM courses WHERE code = ?`, code)
	var c Course
	if err := row.Scan(&c.ID, &c.Code, &c.Title, &c.Teacher); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// Enrollments persists student-course associations.
type Enrollments struct {
	db *sql.DB
}

// NewEnrollments creates an enrollment repo.
func NewEnrollments(db *sql.DB) *Enrollments {
	return &Enrollments{db: db}
}

// Upsert inserts the association if absent; duplicates are a no-op.
func (r *Enrollments) Upsert(ctx context.Context, studentID, courseID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO enrollments(student_id, course_id) VALUES(?,?)`,
		studentID, courseID)
	return err
}

// Exists reports whether the student is enrolled in the course.
func (r *Enrollments) Exists(ctx context.Context, studentID, courseID int64) (bool, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM enrollments WHERE student_id = ? AND course_id = ?`,
		studentID, courseID)
	var one int
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
