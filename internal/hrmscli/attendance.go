package hrmscli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/phillip-england/hrms/internal/archive"
	"github.com/phillip-england/hrms/internal/models"
	"github.com/phillip-england/hrms/internal/views"
	"github.com/spf13/cobra"
)

var errNotToday = errors.New("attendance can only be marked for today")

func (a *app) attendanceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "attendance",
		Aliases: []string{"att"},
		Short:   "Show and mark daily attendance",
	}
	cmd.AddCommand(a.attendanceShowCommand(), a.attendanceMarkCommand())
	return cmd
}

func (a *app) attendanceView() (*views.AttendanceView, error) {
	opts, err := a.viewOptions()
	if err != nil {
		return nil, err
	}
	return views.NewAttendanceView(a.api(), opts...), nil
}

// parseDay reads a YYYY-MM-DD flag value, falling back to today when empty.
func parseDay(raw string, today models.Date) (models.Date, error) {
	if strings.TrimSpace(raw) == "" {
		return today, nil
	}
	return models.ParseDate(raw)
}

func (a *app) attendanceShowCommand() *cobra.Command {
	var (
		day    string
		search string
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show every employee's status on a date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := a.attendanceView()
			if err != nil {
				return err
			}
			date, err := parseDay(day, view.Today())
			if err != nil {
				return err
			}
			rows, err := view.Load(cmd.Context(), date)
			if err != nil {
				return fmt.Errorf("failed to load attendance data: %w", err)
			}

			a.printf("%s", renderTitle("Attendance for "+date.LongDisplay()))
			if !view.IsToday() {
				a.printf("Viewing a past date, marking is disabled.\n")
			}
			rows = views.Filter(rows, search, views.AttendanceSearchFields)
			if len(rows) == 0 {
				a.printf("No employees found.\n")
				return nil
			}
			out := make([][]string, 0, len(rows))
			for _, row := range rows {
				out = append(out, []string{row.EmployeeCode, row.EmployeeName, row.Department, string(row.Status)})
			}
			a.printf("%s", renderTable([]string{"Employee ID", "Name", "Department", "Status"}, out, 3))

			present, absent, notMarked := archive.Day{Date: date, Rows: rows}.Counts()
			a.printf("%d present, %d absent, %d not marked\n", present, absent, notMarked)
			return nil
		},
	}
	cmd.Flags().StringVar(&day, "date", "", "date to show (YYYY-MM-DD), defaults to today")
	cmd.Flags().StringVarP(&search, "search", "s", "", "filter by name or employee ID")
	return cmd
}

func (a *app) attendanceMarkCommand() *cobra.Command {
	var day string
	cmd := &cobra.Command{
		Use:   "mark <id|code> <present|absent>",
		Short: "Mark today's attendance for one employee",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := models.ParseStatus(args[1])
			if err != nil {
				return err
			}
			view, err := a.attendanceView()
			if err != nil {
				return err
			}
			date, err := parseDay(day, view.Today())
			if err != nil {
				return err
			}
			if !date.Equal(view.Today()) {
				return errNotToday
			}
			rows, err := view.Load(cmd.Context(), date)
			if err != nil {
				return fmt.Errorf("failed to load attendance data: %w", err)
			}

			ref := strings.TrimSpace(args[0])
			target, ok := views.AttendanceRow{}, false
			for _, row := range rows {
				if row.EmployeeRef == ref || strings.EqualFold(row.EmployeeCode, ref) {
					target, ok = row, true
					break
				}
			}
			if !ok {
				return fmt.Errorf("employee %q not found", ref)
			}

			row, err := view.Mark(cmd.Context(), target.EmployeeRef, status)
			switch {
			case errors.Is(err, views.ErrNoChange):
				a.printf("%s is already marked %s\n", row.EmployeeName, row.Status)
				return nil
			case errors.Is(err, views.ErrNotToday):
				return errNotToday
			case err != nil:
				return fmt.Errorf("failed to mark attendance: %w", err)
			}
			a.printf("Marked %s as %s\n", row.EmployeeName, row.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&day, "date", "", "date to mark (YYYY-MM-DD); only today is accepted")
	return cmd
}

func (a *app) dashboardCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show today's counts and who is not marked yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.viewOptions()
			if err != nil {
				return err
			}
			d := views.LoadDashboard(cmd.Context(), a.api(), opts...)

			a.printf("%s", renderTitle("Dashboard"))
			if d.StatsState == views.StateFailed {
				a.printf("Failed to load dashboard stats: %v\n", d.StatsErr)
			} else {
				a.printf("%s", renderTable([]string{"Metric", "Value"}, [][]string{
					{"Total Employees", strconv.Itoa(d.Stats.TotalEmployees)},
					{"Present Today", strconv.Itoa(d.Stats.PresentToday)},
					{"Absent Today", strconv.Itoa(d.Stats.AbsentToday)},
					{"Not Marked Attendance", strconv.Itoa(d.NotMarked)},
					{"Total Departments", strconv.Itoa(d.Stats.TotalDepartments)},
				}, -1))
				if d.Inconsistent() {
					a.printf("%s", renderWarning("Warning: today's counts do not add up.", d.IntegrityErr.Error()))
				}
			}

			a.printf("\n%s", renderTitle("Employees Not Marked Today"))
			switch {
			case d.NotMarkedState == views.StateFailed:
				a.printf("Unable to load employees not marked today: %v\n", d.NotMarkedErr)
			case len(d.NotMarkedEmployees) == 0:
				a.printf("Everyone has been marked today.\n")
			default:
				out := make([][]string, 0, len(d.NotMarkedEmployees))
				for _, emp := range d.NotMarkedEmployees {
					out = append(out, []string{emp.EmployeeID, emp.FullName, emp.Department})
				}
				a.printf("%s", renderTable([]string{"Employee ID", "Name", "Department"}, out, -1))
			}
			return nil
		},
	}
}
