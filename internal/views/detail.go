package views

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/phillip-england/hrms/internal/apiclient"
	"github.com/phillip-england/hrms/internal/models"
	"go.uber.org/zap"
)

type DetailAPI interface {
	EmployeeAttendance(ctx context.Context, id string) (*models.EmployeeWithStats, error)
}

// EmployeeDetail is one employee's totals and attendance history, keyed by
// the employee ID from the route.
type EmployeeDetail struct {
	opts   options
	loader *Loader[string, models.EmployeeWithStats]
}

func NewEmployeeDetail(api DetailAPI, opts ...Option) *EmployeeDetail {
	return &EmployeeDetail{
		opts: buildOptions(opts),
		loader: NewLoader(func(ctx context.Context, id string) ([]models.EmployeeWithStats, error) {
			stats, err := api.EmployeeAttendance(ctx, id)
			if err != nil {
				return nil, err
			}
			if stats == nil || stats.ID == "" {
				return nil, fmt.Errorf("%w: empty employee payload for %s", apiclient.ErrNotFound, id)
			}
			return []models.EmployeeWithStats{*stats}, nil
		}),
	}
}

// Load returns the employee, or an error matching apiclient.ErrNotFound when
// the ID does not exist or the API answers without an employee, in which case
// State reports StateNotFound.
func (d *EmployeeDetail) Load(ctx context.Context, id string) (*models.EmployeeWithStats, error) {
	rows, err := d.loader.Load(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrStale) {
			d.opts.logger.Warn("failed to load employee attendance", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrRowNotFound
	}
	return &rows[0], nil
}

func (d *EmployeeDetail) State() State { return d.loader.State() }

func (d *EmployeeDetail) Err() error { return d.loader.Err() }

// FilterHistory keeps the records whose date falls in month (YYYY-MM). An
// empty month keeps all of them. Records are returned newest first.
func FilterHistory(records []models.AttendanceRecord, month string) []models.AttendanceRecord {
	out := make([]models.AttendanceRecord, 0, len(records))
	for _, rec := range records {
		if month == "" || rec.Date.Month() == month {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[j].Date.Before(out[i].Date) })
	return out
}

// HistoryMonths lists the distinct YYYY-MM values in records, newest first.
func HistoryMonths(records []models.AttendanceRecord) []string {
	seen := map[string]struct{}{}
	months := []string{}
	for _, rec := range records {
		m := rec.Date.Month()
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		months = append(months, m)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(months)))
	return months
}
