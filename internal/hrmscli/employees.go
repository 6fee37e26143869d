package hrmscli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/phillip-england/hrms/internal/models"
	"github.com/phillip-england/hrms/internal/spreadsheet"
	"github.com/phillip-england/hrms/internal/views"
	"github.com/spf13/cobra"
)

var errNotAdded = errors.New("employee not added")

func (a *app) employeesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "employees",
		Aliases: []string{"emp"},
		Short:   "Manage the employee directory",
	}
	cmd.AddCommand(
		a.employeesListCommand(),
		a.employeesAddCommand(),
		a.employeesDeleteCommand(),
		a.employeesShowCommand(),
		a.employeesImportCommand(),
		a.employeesExportCommand(),
	)
	return cmd
}

func (a *app) directory() (*views.Directory, error) {
	opts, err := a.viewOptions()
	if err != nil {
		return nil, err
	}
	return views.NewDirectory(a.api(), opts...), nil
}

// resolveEmployee matches ref against the internal ID or the EMP code.
func resolveEmployee(rows []models.Employee, ref string) (models.Employee, bool) {
	ref = strings.TrimSpace(ref)
	for _, emp := range rows {
		if emp.ID == ref || strings.EqualFold(emp.EmployeeID, ref) {
			return emp, true
		}
	}
	return models.Employee{}, false
}

func employeeRows(rows []models.Employee) [][]string {
	out := make([][]string, 0, len(rows))
	for _, emp := range rows {
		out = append(out, []string{emp.EmployeeID, emp.FullName, emp.Email, emp.Department, emp.CreatedAt.Display()})
	}
	return out
}

func (a *app) employeesListCommand() *cobra.Command {
	var (
		search     string
		department string
		page       int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List employees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := a.directory()
			if err != nil {
				return err
			}
			rows, err := dir.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load employees: %w", err)
			}
			rows = views.FilterDepartment(views.Filter(rows, search, views.EmployeeSearchFields), department)
			if len(rows) == 0 {
				a.printf("No employees found.\n")
				return nil
			}

			caption := fmt.Sprintf("%d employees", len(rows))
			if page > 0 {
				p := views.Paginate(rows, page, a.cfg.PageSize)
				rows = p.Rows
				caption = p.Caption()
			}
			a.printf("%s", renderTable([]string{"Employee ID", "Full Name", "Email", "Department", "Created"}, employeeRows(rows), -1))
			a.printf("%s\n", caption)
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "filter by name, email or employee ID")
	cmd.Flags().StringVarP(&department, "department", "d", "", "only this department")
	cmd.Flags().IntVarP(&page, "page", "p", 0, "show one page of page_size rows")
	return cmd
}

func (a *app) employeesAddCommand() *cobra.Command {
	var in models.EmployeeInput
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an employee",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := a.directory()
			if err != nil {
				return err
			}
			if _, err := dir.Load(cmd.Context()); err != nil {
				return fmt.Errorf("failed to load employees: %w", err)
			}
			created, err := dir.Create(cmd.Context(), in)
			var invalid models.ValidationErrors
			if errors.As(err, &invalid) {
				fields := make([]string, 0, len(invalid))
				for field := range invalid {
					fields = append(fields, field)
				}
				sort.Strings(fields)
				for _, field := range fields {
					fmt.Fprintf(a.errOut, "  %s: %s\n", field, invalid[field])
				}
				return errNotAdded
			}
			if created == nil {
				return err
			}
			a.printf("Employee added successfully: %s %s\n", created.EmployeeID, created.FullName)
			if err != nil {
				fmt.Fprintf(a.errOut, "warning: directory refresh failed: %v\n", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&in.FullName, "name", "", "full name")
	cmd.Flags().StringVar(&in.Email, "email", "", "email address")
	cmd.Flags().StringVar(&in.Department, "department", "", "department")
	cmd.Flags().StringVar(&in.EmployeeID, "code", "", "employee code, EMPnnn is generated when empty")
	return cmd
}

func (a *app) employeesDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id|code>",
		Short: "Delete an employee and their attendance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := a.directory()
			if err != nil {
				return err
			}
			rows, err := dir.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load employees: %w", err)
			}
			emp, ok := resolveEmployee(rows, args[0])
			if !ok {
				return fmt.Errorf("employee %q not found", args[0])
			}
			if err := dir.Delete(cmd.Context(), emp.ID); err != nil {
				return err
			}
			a.printf("Employee deleted successfully: %s %s\n", emp.EmployeeID, emp.FullName)
			return nil
		},
	}
}

func (a *app) employeesShowCommand() *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "show <id|code>",
		Short: "Show an employee's attendance totals and history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := a.directory()
			if err != nil {
				return err
			}
			rows, err := dir.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load employees: %w", err)
			}
			emp, ok := resolveEmployee(rows, args[0])
			if !ok {
				return fmt.Errorf("employee %q not found", args[0])
			}

			opts, err := a.viewOptions()
			if err != nil {
				return err
			}
			stats, err := views.NewEmployeeDetail(a.api(), opts...).Load(cmd.Context(), emp.ID)
			if err != nil {
				return fmt.Errorf("employee not found or data unavailable: %w", err)
			}

			a.printf("%s", renderTitle(fmt.Sprintf("%s (%s)", stats.FullName, stats.EmployeeID)))
			a.printf("%s · %s\n\n", stats.Department, stats.Email)
			a.printf("%s", renderTable(
				[]string{"Present", "Absent", "Attendance"},
				[][]string{{
					strconv.Itoa(stats.TotalPresent),
					strconv.Itoa(stats.TotalAbsent),
					strconv.FormatFloat(stats.AttendancePercentage, 'f', 2, 64) + "%",
				}},
				-1,
			))
			if !stats.HistoryIncluded() {
				a.printf("Attendance history unavailable.\n")
				return nil
			}
			history := views.FilterHistory(stats.Attendances, month)
			if len(history) == 0 {
				a.printf("No attendance records.\n")
				return nil
			}
			out := make([][]string, 0, len(history))
			for _, rec := range history {
				out = append(out, []string{rec.Date.LongDisplay(), string(rec.Status.RowStatus())})
			}
			a.printf("%s", renderTable([]string{"Date", "Status"}, out, 1))
			return nil
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "only records from this month (YYYY-MM)")
	return cmd
}

func (a *app) employeesImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.xlsx|file.xls>",
		Short: "Create employees from a roster spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			sheet, err := spreadsheet.ReadRows(file, filepath.Base(args[0]))
			if err != nil {
				return fmt.Errorf("unable to read roster: %w", err)
			}
			roster, err := spreadsheet.ParseRoster(sheet)
			if err != nil {
				return fmt.Errorf("unable to read roster: %w", err)
			}

			dir, err := a.directory()
			if err != nil {
				return err
			}
			existing, err := dir.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load employees: %w", err)
			}
			result, err := spreadsheet.ImportRoster(cmd.Context(), a.api(), roster, existing, a.logger)
			if err != nil {
				return fmt.Errorf("import interrupted: %w", err)
			}

			a.printf("Roster imported: %s\n", result.Summary())
			issues := append(append([]spreadsheet.RowIssue{}, result.Skipped...), result.Failed...)
			if len(issues) == 0 {
				return nil
			}
			out := make([][]string, 0, len(issues))
			for _, issue := range issues {
				out = append(out, []string{strconv.Itoa(issue.Line), issue.Name, issue.Message})
			}
			a.printf("%s", renderTable([]string{"Row", "Name", "Problem"}, out, -1))
			return nil
		},
	}
}

func (a *app) employeesExportCommand() *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "export <file.xlsx>",
		Short: "Write the directory to a spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := a.directory()
			if err != nil {
				return err
			}
			rows, err := dir.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load employees: %w", err)
			}
			rows = views.Filter(rows, search, views.EmployeeSearchFields)
			if err := writeFile(args[0], func(f *os.File) error {
				return spreadsheet.WriteEmployees(f, rows)
			}); err != nil {
				return err
			}
			a.printf("wrote %d employees to %s\n", len(rows), args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "filter by name, email or employee ID")
	return cmd
}

func writeFile(path string, write func(f *os.File) error) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
