package views

import (
	"context"
	"errors"
	"fmt"

	"github.com/phillip-england/hrms/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrInconsistentStats = errors.New("dashboard counts are inconsistent")

type DashboardAPI interface {
	DashboardStats(ctx context.Context) (*models.DashboardStats, error)
	NotMarkedToday(ctx context.Context) ([]models.Employee, error)
}

// DeriveNotMarked returns total - (present + absent). A negative value is
// returned unchanged together with ErrInconsistentStats.
func DeriveNotMarked(stats models.DashboardStats) (int, error) {
	n := stats.NotMarked()
	if n < 0 {
		return n, fmt.Errorf("%w: %d employees, %d present, %d absent",
			ErrInconsistentStats, stats.TotalEmployees, stats.PresentToday, stats.AbsentToday)
	}
	return n, nil
}

type Dashboard struct {
	Stats        models.DashboardStats
	StatsState   State
	StatsErr     error
	NotMarked    int
	IntegrityErr error

	NotMarkedEmployees []models.Employee
	NotMarkedState     State
	NotMarkedErr       error
}

func (d *Dashboard) Inconsistent() bool {
	return d.IntegrityErr != nil
}

// LoadDashboard fetches the snapshot and the not-marked list side by side.
// Each half fails on its own; neither error aborts the other request.
func LoadDashboard(ctx context.Context, api DashboardAPI, opts ...Option) *Dashboard {
	o := buildOptions(opts)
	d := &Dashboard{StatsState: StateLoading, NotMarkedState: StateLoading}

	var g errgroup.Group
	g.Go(func() error {
		stats, err := api.DashboardStats(ctx)
		if err != nil {
			o.logger.Warn("failed to load dashboard stats", zap.Error(err))
			d.StatsState = StateFailed
			d.StatsErr = err
			return nil
		}
		d.Stats = *stats
		d.StatsState = StateLoaded
		d.NotMarked, d.IntegrityErr = DeriveNotMarked(*stats)
		if d.IntegrityErr != nil {
			o.logger.Warn("dashboard snapshot is inconsistent",
				zap.Int("total_employees", stats.TotalEmployees),
				zap.Int("present_today", stats.PresentToday),
				zap.Int("absent_today", stats.AbsentToday),
				zap.Int("not_marked", d.NotMarked),
			)
		}
		return nil
	})
	g.Go(func() error {
		employees, err := api.NotMarkedToday(ctx)
		if err != nil {
			o.logger.Warn("failed to load not marked employees", zap.Error(err))
			d.NotMarkedState = StateFailed
			d.NotMarkedErr = err
			return nil
		}
		d.NotMarkedEmployees = employees
		d.NotMarkedState = stateFor(len(employees))
		return nil
	})
	_ = g.Wait()
	return d
}
