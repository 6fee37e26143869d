package views

import (
	"context"
	"errors"
	"strings"

	"github.com/phillip-england/hrms/internal/models"
	"go.uber.org/zap"
)

type EmployeeAPI interface {
	ListEmployees(ctx context.Context) ([]models.Employee, error)
	CreateEmployee(ctx context.Context, in models.EmployeeInput) (*models.Employee, error)
	DeleteEmployee(ctx context.Context, id string) error
}

func EmployeeSearchFields(e models.Employee) []string {
	return []string{e.FullName, e.Email, e.EmployeeID}
}

// Directory is the employee list screen.
type Directory struct {
	api    EmployeeAPI
	opts   options
	loader *Loader[struct{}, models.Employee]
}

func NewDirectory(api EmployeeAPI, opts ...Option) *Directory {
	d := &Directory{api: api, opts: buildOptions(opts)}
	d.loader = NewLoader(func(ctx context.Context, _ struct{}) ([]models.Employee, error) {
		return api.ListEmployees(ctx)
	})
	return d
}

func (d *Directory) Load(ctx context.Context) ([]models.Employee, error) {
	rows, err := d.loader.Load(ctx, struct{}{})
	if err != nil && !errors.Is(err, ErrStale) {
		d.opts.logger.Warn("failed to load employees", zap.Error(err))
	}
	return rows, err
}

func (d *Directory) Rows() []models.Employee { return d.loader.Rows() }

func (d *Directory) State() State { return d.loader.State() }

func (d *Directory) Err() error { return d.loader.Err() }

// Create validates in locally and sends it only when valid. A missing
// employee code is filled with the next EMP number after the loaded list.
// Validation problems come back as models.ValidationErrors. On an API error
// the loaded rows are left as they were.
func (d *Directory) Create(ctx context.Context, in models.EmployeeInput) (*models.Employee, error) {
	in = in.Normalize()
	if errs := in.Validate(); errs != nil {
		return nil, errs
	}
	if in.EmployeeID == "" {
		in.EmployeeID = models.NextEmployeeCode(d.loader.Rows())
	}

	created, err := d.api.CreateEmployee(ctx, in)
	if err != nil {
		d.opts.logger.Warn("failed to add employee", zap.String("email", in.Email), zap.Error(err))
		return nil, err
	}

	if d.opts.policies.EmployeeCreate == Reload {
		if _, err := d.Load(ctx); err != nil {
			return created, err
		}
		return created, nil
	}
	err = d.loader.Patch(struct{}{}, func(rows []models.Employee) []models.Employee {
		return append(rows, *created)
	})
	if err != nil {
		return created, err
	}
	return created, nil
}

// Delete removes the employee through the API and then drops exactly the row
// whose ID matches.
func (d *Directory) Delete(ctx context.Context, id string) error {
	if err := d.api.DeleteEmployee(ctx, id); err != nil {
		d.opts.logger.Warn("failed to delete employee", zap.String("id", id), zap.Error(err))
		return err
	}
	if d.opts.policies.EmployeeDelete == Reload {
		_, err := d.Load(ctx)
		return err
	}
	return d.loader.Patch(struct{}{}, func(rows []models.Employee) []models.Employee {
		return RemoveEmployee(rows, id)
	})
}

func RemoveEmployee(rows []models.Employee, id string) []models.Employee {
	out := rows[:0]
	for _, emp := range rows {
		if emp.ID != id {
			out = append(out, emp)
		}
	}
	return out
}

// FilterDepartment keeps employees whose department equals dept, ignoring
// case. An empty dept keeps everything.
func FilterDepartment(rows []models.Employee, dept string) []models.Employee {
	dept = strings.TrimSpace(dept)
	if dept == "" {
		return rows
	}
	out := []models.Employee{}
	for _, emp := range rows {
		if strings.EqualFold(emp.Department, dept) {
			out = append(out, emp)
		}
	}
	return out
}

func Departments(rows []models.Employee) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, emp := range rows {
		if emp.Department == "" {
			continue
		}
		if _, ok := seen[emp.Department]; ok {
			continue
		}
		seen[emp.Department] = struct{}{}
		out = append(out, emp.Department)
	}
	return out
}
