// Package archive exports attendance over a date range as xz-compressed JSON.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/phillip-england/hrms/internal/models"
	"github.com/phillip-england/hrms/internal/views"
	"github.com/ulikunitz/xz"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	MaxDays     = 366
	fetchLimit  = 4
	FileSuffix  = ".json.xz"
	contentType = "application/x-xz"
)

var (
	ErrRangeOrder    = errors.New("archive range ends before it starts")
	ErrRangeTooLarge = fmt.Errorf("archive range exceeds %d days", MaxDays)
)

type Source interface {
	ListEmployees(ctx context.Context) ([]models.Employee, error)
	ListAttendance(ctx context.Context, date models.Date) ([]models.AttendanceRecord, error)
}

type Snapshot struct {
	GeneratedAt time.Time         `json:"generated_at"`
	From        models.Date       `json:"from"`
	To          models.Date       `json:"to"`
	Employees   []models.Employee `json:"employees"`
	Days        []Day             `json:"days"`
}

type Day struct {
	Date models.Date           `json:"date"`
	Rows []views.AttendanceRow `json:"rows"`
}

// Counts tallies the rows of one day by status.
func (d Day) Counts() (present, absent, notMarked int) {
	for _, row := range d.Rows {
		switch row.Status {
		case models.RowPresent:
			present++
		case models.RowAbsent:
			absent++
		default:
			notMarked++
		}
	}
	return present, absent, notMarked
}

func ContentType() string { return contentType }

// Days lists every date from from to to inclusive.
func Days(from, to models.Date) ([]models.Date, error) {
	if to.Before(from) {
		return nil, ErrRangeOrder
	}
	out := []models.Date{}
	for d := from; !to.Before(d); d = d.AddDays(1) {
		if len(out) == MaxDays {
			return nil, ErrRangeTooLarge
		}
		out = append(out, d)
	}
	return out, nil
}

// Build fetches the roster once and each day's attendance with bounded
// concurrency, then merges them into per-day rows.
func Build(ctx context.Context, src Source, from, to models.Date, logger *zap.Logger) (*Snapshot, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dates, err := Days(from, to)
	if err != nil {
		return nil, err
	}
	employees, err := src.ListEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}

	days := make([]Day, len(dates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchLimit)
	for i, date := range dates {
		i, date := i, date
		g.Go(func() error {
			records, err := src.ListAttendance(gctx, date)
			if err != nil {
				return fmt.Errorf("attendance for %s: %w", date, err)
			}
			days[i] = Day{Date: date, Rows: views.MergeAttendance(employees, records, date)}
			logger.Debug("archived day", zap.String("date", date.String()), zap.Int("records", len(records)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Snapshot{
		GeneratedAt: time.Now().UTC(),
		From:        from,
		To:          to,
		Employees:   employees,
		Days:        days,
	}, nil
}

func Write(w io.Writer, snap *Snapshot) error {
	xw, err := xz.NewWriter(w)
	if err != nil {
		return fmt.Errorf("open xz writer: %w", err)
	}
	enc := json.NewEncoder(xw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		_ = xw.Close()
		return fmt.Errorf("encode archive: %w", err)
	}
	return xw.Close()
}

func Read(r io.Reader) (*Snapshot, error) {
	xr, err := xz.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xz reader: %w", err)
	}
	var snap Snapshot
	if err := json.NewDecoder(xr).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode archive: %w", err)
	}
	return &snap, nil
}
