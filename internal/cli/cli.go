// Package cli wires the classtrack commands. The command boundary alone
// decides process exit codes: Conflict exits 2, other failures exit 1.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"classtrack/internal/apperr"
	"classtrack/internal/attendance"
	"classtrack/internal/config"
	"classtrack/internal/csvio"
	"classtrack/internal/report"
	"classtrack/internal/roster"
	"classtrack/internal/store"
)

// app carries the open store and services behind the command tree.
// The database is opened lazily so argument validation never touches it.
type app struct {
	cfg    config.App
	dbPath string
	db     *store.DB

	roster   *roster.Service
	marks    *attendance.Service
	reports  *report.Repository
	transfer *csvio.Transfer
}

// database opens the store on first use and ensures the schema exists.
func (a *app) database(ctx context.Context) (*store.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := store.Open(a.dbPath)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, apperr.Storage(err)
	}
	a.db = db

	students := roster.NewStudents(db.Client)
	courses := roster.NewCourses(db.Client)
	enrollments := roster.NewEnrollments(db.Client)
	sessions := attendance.NewSessions(db.Client)
	marks := attendance.NewMarks(db.Client)

	a.roster = roster.NewService(students, courses, enrollments)
	a.marks = attendance.NewService(sessions, marks, students, courses, enrollments)
	a.reports = report.NewRepository(db.Client)
	a.transfer = csvio.NewTransfer(db.Client)
	return a.db, nil
}

func (a *app) close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	a := &app{cfg: config.Load()}

	root := &cobra.Command{
		Use:           "classtrack",
		Short:         "Student attendance tracking over a local SQLite store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.dbPath, "db", a.cfg.DBPath, "SQLite database file path")

	root.AddCommand(
		a.initDBCmd(),
		a.addStudentCmd(),
		a.addCourseCmd(),
		a.enrollCmd(),
		a.markCmd(),
		a.reportCourseCmd(),
		a.reportStudentCmd(),
		a.reportDailyCmd(),
		a.exportCmd(),
		a.importCmd(),
		a.seedCmd(),
		a.serveCmd(),
	)

	err := root.Execute()
	a.close()
	if err == nil {
		return 0
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	// A constraint violation reaching the store layer unguarded still
	// signals like a conflict.
	if errors.Is(err, apperr.ErrConflict) || store.IsConstraint(err) {
		return 2
	}
	return 1
}
