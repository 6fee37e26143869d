package views

import (
	"context"
	"errors"
	"time"

	"github.com/phillip-england/hrms/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNotToday    = errors.New("attendance can only be marked for today")
	ErrNoChange    = errors.New("attendance already has that status")
	ErrRowBusy     = errors.New("attendance update already in progress for this employee")
	ErrRowNotFound = errors.New("employee is not in the loaded list")
	ErrFutureDate  = errors.New("attendance cannot be shown for a future date")
)

type AttendanceAPI interface {
	ListEmployees(ctx context.Context) ([]models.Employee, error)
	ListAttendance(ctx context.Context, date models.Date) ([]models.AttendanceRecord, error)
	MarkAttendance(ctx context.Context, in models.AttendanceInput) (*models.AttendanceRecord, error)
}

// AttendanceRow is one employee's standing on the selected date.
type AttendanceRow struct {
	EmployeeRef  string           `json:"id"`
	AttendanceID string           `json:"attendance_id,omitempty"`
	EmployeeCode string           `json:"employee_id"`
	EmployeeName string           `json:"employee_name"`
	Department   string           `json:"department"`
	Date         models.Date      `json:"date"`
	Status       models.RowStatus `json:"status"`
	Busy         bool             `json:"busy"`
}

func AttendanceSearchFields(r AttendanceRow) []string {
	return []string{r.EmployeeName, r.EmployeeCode}
}

// RowActions describes which controls a row offers.
type RowActions struct {
	CanMarkPresent bool
	CanMarkAbsent  bool
	Note           string
}

// Actions hides marking on any day but today, and disables the control for
// the status the row already has or while the row is busy.
func (r AttendanceRow) Actions(isToday bool) RowActions {
	if !isToday {
		note := "Already marked"
		if r.Status == models.RowNotMarked {
			note = "Past date"
		}
		return RowActions{Note: note}
	}
	return RowActions{
		CanMarkPresent: !r.Busy && r.Status != models.RowPresent,
		CanMarkAbsent:  !r.Busy && r.Status != models.RowAbsent,
	}
}

// MergeAttendance joins employees to the records for date by employee ID.
// Rows keep employee order; an employee with no record on date is NotMarked.
func MergeAttendance(employees []models.Employee, records []models.AttendanceRecord, date models.Date) []AttendanceRow {
	byEmployee := make(map[string]models.AttendanceRecord, len(records))
	for _, rec := range records {
		if !rec.Date.IsZero() && !rec.Date.Equal(date) {
			continue
		}
		byEmployee[rec.EmployeeID] = rec
	}

	rows := make([]AttendanceRow, 0, len(employees))
	for _, emp := range employees {
		row := AttendanceRow{
			EmployeeRef:  emp.ID,
			EmployeeCode: emp.EmployeeID,
			EmployeeName: emp.FullName,
			Department:   emp.Department,
			Date:         date,
			Status:       models.RowNotMarked,
		}
		if rec, ok := byEmployee[emp.ID]; ok {
			row.AttendanceID = rec.ID
			row.Status = rec.Status.RowStatus()
		}
		rows = append(rows, row)
	}
	return rows
}

type options struct {
	clock    func() time.Time
	logger   *zap.Logger
	policies Policies
	locks    *RowLocks
}

type Option func(*options)

func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithPolicies(p Policies) Option {
	return func(o *options) { o.policies = p }
}

// WithRowLocks shares the in-flight guard for attendance marks.
func WithRowLocks(locks *RowLocks) Option {
	return func(o *options) { o.locks = locks }
}

func buildOptions(opts []Option) options {
	o := options{clock: time.Now, logger: zap.NewNop(), policies: DefaultPolicies()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.locks == nil {
		o.locks = NewRowLocks()
	}
	return o
}

// AttendanceView is the attendance screen: every employee with their status
// for one selected date.
type AttendanceView struct {
	api    AttendanceAPI
	opts   options
	loader *Loader[models.Date, AttendanceRow]
}

func NewAttendanceView(api AttendanceAPI, opts ...Option) *AttendanceView {
	v := &AttendanceView{
		api:  api,
		opts: buildOptions(opts),
	}
	v.loader = NewLoader(v.fetch)
	return v
}

func (v *AttendanceView) fetch(ctx context.Context, date models.Date) ([]AttendanceRow, error) {
	var (
		employees []models.Employee
		records   []models.AttendanceRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		employees, err = v.api.ListEmployees(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		records, err = v.api.ListAttendance(gctx, date)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return MergeAttendance(employees, records, date), nil
}

func (v *AttendanceView) Today() models.Date {
	return models.DateOf(v.opts.clock())
}

// Load replaces the rows with a fresh join for date. A load superseded by a
// later call returns ErrStale. Dates after today are refused with
// ErrFutureDate before anything is fetched.
func (v *AttendanceView) Load(ctx context.Context, date models.Date) ([]AttendanceRow, error) {
	if v.Today().Before(date) {
		return nil, ErrFutureDate
	}
	rows, err := v.loader.Load(ctx, date)
	if err != nil {
		if !errors.Is(err, ErrStale) {
			v.opts.logger.Warn("failed to load attendance data", zap.String("date", date.String()), zap.Error(err))
		}
		return nil, err
	}
	return v.withBusy(rows), nil
}

func (v *AttendanceView) Date() models.Date { return v.loader.Key() }

func (v *AttendanceView) IsToday() bool {
	return v.loader.Key().Equal(v.Today())
}

func (v *AttendanceView) State() State { return v.loader.State() }

func (v *AttendanceView) Err() error { return v.loader.Err() }

func (v *AttendanceView) Rows() []AttendanceRow {
	return v.withBusy(v.loader.Rows())
}

func (v *AttendanceView) withBusy(rows []AttendanceRow) []AttendanceRow {
	for i := range rows {
		rows[i].Busy = v.opts.locks.Held(rows[i].EmployeeRef)
	}
	return rows
}

// Mark records status for one employee on the loaded date. Nothing is sent
// when the date is not today, the row already has status, or the row has a
// mark in flight. On failure the row keeps its previous status, and every
// error except ErrRowNotFound comes back with that unchanged row.
func (v *AttendanceView) Mark(ctx context.Context, employeeRef string, status models.Status) (AttendanceRow, error) {
	state := v.loader.State()
	if state != StateLoaded && state != StateEmpty {
		return AttendanceRow{}, ErrNotLoaded
	}
	row, ok := findRow(v.withBusy(v.loader.Rows()), employeeRef)
	if !ok {
		return AttendanceRow{}, ErrRowNotFound
	}
	date := v.loader.Key()
	if !date.Equal(v.Today()) {
		return row, ErrNotToday
	}
	if row.Status == status.RowStatus() {
		return row, ErrNoChange
	}

	if !v.opts.locks.TryLock(employeeRef) {
		row.Busy = true
		return row, ErrRowBusy
	}
	defer v.opts.locks.Unlock(employeeRef)

	rec, err := v.api.MarkAttendance(ctx, models.AttendanceInput{
		EmployeeID: employeeRef,
		Date:       date,
		Status:     status,
	})
	if err != nil {
		v.opts.logger.Warn("failed to mark attendance",
			zap.String("employee", employeeRef),
			zap.String("date", date.String()),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return row, err
	}

	if v.opts.policies.AttendanceMark == Reload {
		rows, err := v.loader.Load(ctx, date)
		if err != nil {
			return row, err
		}
		if updated, ok := findRow(rows, employeeRef); ok {
			return updated, nil
		}
		return row, ErrRowNotFound
	}

	row.Status = status.RowStatus()
	if rec != nil && rec.ID != "" {
		row.AttendanceID = rec.ID
	}
	err = v.loader.Patch(date, func(rows []AttendanceRow) []AttendanceRow {
		for i := range rows {
			if rows[i].EmployeeRef == employeeRef {
				rows[i].Status = row.Status
				rows[i].AttendanceID = row.AttendanceID
			}
		}
		return rows
	})
	if err != nil && !errors.Is(err, ErrStale) {
		return row, err
	}
	return row, nil
}

func findRow(rows []AttendanceRow, employeeRef string) (AttendanceRow, bool) {
	for _, r := range rows {
		if r.EmployeeRef == employeeRef {
			return r, true
		}
	}
	return AttendanceRow{}, false
}
