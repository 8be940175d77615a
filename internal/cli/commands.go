package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"classtrack/internal/apperr"
	"classtrack/internal/attendance"
	"classtrack/internal/httpapi"
	"classtrack/internal/seed"
)

func validDate(value string) error {
	if _, err := time.Parse("2006-01-02", value); err != nil {
		return apperr.Validationf("date must be in YYYY-MM-DD format")
	}
	return nil
}

func validTime(value string) error {
	if _, err := time.Parse("15:04", value); err != nil {
		return apperr.Validationf("time must be in HH:MM 24h format")
	}
	return nil
}

// optFlag returns nil for an unset optional flag, so empty stays NULL in the store.
func optFlag(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func (a *app) initDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Initialize database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.database(cmd.Context()); err != nil {
				return err
			}
			fmt.Printf("Initialized database at %s\n", a.dbPath)
			return nil
		},
	}
}

func (a *app) addStudentCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "add-student <roll> <name>",
		Short: "Add a student",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.database(cmd.Context()); err != nil {
				return err
			}
			if err := a.roster.AddStudent(cmd.Context(), args[0], args[1], optFlag(email)); err != nil {
				return err
			}
			fmt.Printf("Added student %s - %s\n", args[0], args[1])
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "student email")
	return cmd
}

func (a *app) addCourseCmd() *cobra.Command {
	var teacher string
	cmd := &cobra.Command{
		Use:   "add-course <code> <title>",
		Short: "Add a course",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.database(cmd.Context()); err != nil {
				return err
			}
			if err := a.roster.AddCourse(cmd.Context(), args[0], args[1], optFlag(teacher)); err != nil {
				return err
			}
			fmt.Printf("Added course %s - %s\n", args[0], args[1])
			return nil
		},
	}
	cmd.Flags().StringVar(&teacher, "teacher", "", "course teacher")
	return cmd
}

func (a *app) enrollCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enroll <roll> <course_code>",
		Short: "Enroll a student to a course",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.database(cmd.Context()); err != nil {
				return err
			}
			if err := a.roster.Enroll(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("Enrolled %s to %s\n", args[0], args[1])
			return nil
		},
	}
}

// parseMarks turns ROLL:STATUS tokens into marks, upcasing the status.
func parseMarks(tokens []string) ([]attendance.Mark, error) {
	marks := make([]attendance.Mark, 0, len(tokens))
	for _, tok := range tokens {
		roll, status, ok := strings.Cut(tok, ":")
		if !ok {
			return nil, apperr.Validationf("invalid mark format, use ROLL:STATUS, e.g., CS001:P")
		}
		marks = append(marks, attendance.Mark{
			Roll:   roll,
			Status: attendance.Status(strings.ToUpper(status)),
		})
	}
	return marks, nil
}

func (a *app) markCmd() *cobra.Command {
	var start, end, topic string
	cmd := &cobra.Command{
		Use:   "mark <course_code> <date> <ROLL:STATUS>...",
		Short: "Mark attendance for a course session",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validDate(args[1]); err != nil {
				return err
			}
			for _, v := range []string{start, end} {
				if v != "" {
					if err := validTime(v); err != nil {
						return err
					}
				}
			}
			marks, err := parseMarks(args[2:])
			if err != nil {
				return err
			}
			if _, err := a.database(cmd.Context()); err != nil {
				return err
			}
			err = a.marks.MarkBatch(cmd.Context(), args[0], args[1], marks, attendance.SessionMeta{
				StartTime: optFlag(start),
				EndTime:   optFlag(end),
				Topic:     optFlag(topic),
			})
			if err != nil {
				return err
			}
			fmt.Println("Attendance saved")
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "session start time (HH:MM)")
	cmd.Flags().StringVar(&end, "end", "", "session end time (HH:MM)")
	cmd.Flags().StringVar(&topic, "topic", "", "session topic")
	return cmd
}

func (a *app) reportCourseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report-course <course_code>",
		Short: "Course attendance stats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.database(cmd.Context()); err != nil {
				return err
			}
			rep, err := a.reports.Course(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Course %s - Students: %d, Sessions: %d\n", rep.Code, rep.TotalStudents, rep.TotalSessions)
			fmt.Println("Roll, Name, Present, Absent, Late, Percentage")
			for _, row := range rep.Rows {
				fmt.Printf("%s, %s, %d, %d, %d, %.2f\n", row.Roll, row.Name, row.Present, row.Absent, row.Late, row.Percentage)
			}
			return nil
		},
	}
}

func (a *app) reportStudentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report-student <roll>",
		Short: "Student attendance across courses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.database(cmd.Context()); err != nil {
				return err
			}
			rep, err := a.reports.Student(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Student %s - %s\n", rep.Roll, rep.Name)
			fmt.Println("Course, Present, Absent, Late, Percentage")
			for _, row := range rep.Rows {
				fmt.Printf("%s, %d, %d, %d, %.2f\n", row.CourseCode, row.Present, row.Absent, row.Late, row.Percentage)
			}
			return nil
		},
	}
}

func (a *app) reportDailyCmd() *cobra.Command {
	var course string
	cmd := &cobra.Command{
		Use:   "report-daily <date>",
		Short: "Daily session log, optionally filtered by course",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validDate(args[0]); err != nil {
				return err
			}
			if _, err := a.database(cmd.Context()); err != nil {
				return err
			}
			rows, err := a.reports.Daily(cmd.Context(), args[0], course)
			if err != nil {
				return err
			}
			fmt.Println("Course, SessionID, StartTime, Topic, Roll, Name, Status")
			for _, row := range rows {
				fmt.Printf("%s, %d, %s, %s, %s, %s, %s\n",
					row.CourseCode, row.SessionID, row.StartTime, row.Topic, row.Roll, row.Name, row.Status)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&course, "course", "", "restrict to one course code")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export-csv <output_dir>",
		Short: "Export tables to CSV files in a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.database(cmd.Context()); err != nil {
				return err
			}
			if err := a.transfer.Export(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Exported CSVs to %s\n", args[0])
			return nil
		},
	}
}

func (a *app) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import-csv <input_dir>",
		Short: "Import tables from CSV files in a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.database(cmd.Context()); err != nil {
				return err
			}
			if err := a.transfer.Import(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Imported CSVs from %s\n", args[0])
			return nil
		},
	}
}

func (a *app) seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert sample data for quick testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.database(cmd.Context()); err != nil {
				return err
			}
			if err := seed.Run(cmd.Context(), a.roster, a.marks); err != nil {
				return err
			}
			fmt.Println("Seeded sample data")
			return nil
		},
	}
}

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the reports over HTTP (read-only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.database(cmd.Context())
			if err != nil {
				return err
			}
			return httpapi.NewServer(a.cfg, db, a.reports).Run()
		},
	}
}
