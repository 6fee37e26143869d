package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

type Status string

const (
	StatusPresent Status = "PRESENT"
	StatusAbsent  Status = "ABSENT"
)

// RowStatus is the display status of a merged attendance row. NotMarked is
// never stored; it means no record exists for the employee on that date.
type RowStatus string

const (
	RowPresent   RowStatus = "Present"
	RowAbsent    RowStatus = "Absent"
	RowNotMarked RowStatus = "Not Marked"
)

func ParseStatus(raw string) (Status, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(StatusPresent):
		return StatusPresent, nil
	case string(StatusAbsent):
		return StatusAbsent, nil
	default:
		return "", fmt.Errorf("invalid attendance status %q", raw)
	}
}

func (s Status) RowStatus() RowStatus {
	switch s {
	case StatusPresent:
		return RowPresent
	case StatusAbsent:
		return RowAbsent
	default:
		return RowNotMarked
	}
}

// Status maps a row status back to the stored value. NotMarked has none.
func (s RowStatus) Status() (Status, bool) {
	switch s {
	case RowPresent:
		return StatusPresent, true
	case RowAbsent:
		return StatusAbsent, true
	default:
		return "", false
	}
}

// Date is a calendar day with no time component.
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate accepts YYYY-MM-DD and tolerates a trailing time portion, which the
// list endpoint emits for stored dates.
func ParseDate(raw string) (Date, error) {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) > len(DateLayout) {
		trimmed = trimmed[:len(DateLayout)]
	}
	parsed, err := time.Parse(DateLayout, trimmed)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", raw)
	}
	return DateOf(parsed), nil
}

func (d Date) IsZero() bool { return d.t.IsZero() }

func (d Date) Equal(other Date) bool { return d.t.Equal(other.t) }

func (d Date) Before(other Date) bool { return d.t.Before(other.t) }

func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

func (d Date) Time() time.Time { return d.t }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

// Month returns the YYYY-MM prefix used by the history month filter.
func (d Date) Month() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format("2006-01")
}

func (d Date) Display() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format("Jan 2, 2006")
}

func (d Date) LongDisplay() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format("Mon, Jan 2, 2006")
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*d = Date{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if strings.TrimSpace(raw) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Timestamp decodes server datetimes that may omit a zone offset.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		ts.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		ts.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			ts.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", raw)
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(ts.Time.Format(time.RFC3339Nano))
}

func (ts Timestamp) Display() string {
	if ts.IsZero() {
		return ""
	}
	return ts.Time.Format("Jan 2, 2006 3:04 PM")
}

type Employee struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employee_id"`
	FullName   string    `json:"full_name"`
	Email      string    `json:"email"`
	Department string    `json:"department"`
	CreatedAt  Timestamp `json:"created_at"`
	UpdatedAt  Timestamp `json:"updated_at"`
}

type AttendanceRecord struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employee_id"`
	Date       Date      `json:"date"`
	Status     Status    `json:"status"`
	CreatedAt  Timestamp `json:"created_at"`
	UpdatedAt  Timestamp `json:"updated_at"`
	Employee   *Employee `json:"employee,omitempty"`
}

// EmployeeWithStats is the detail payload. Attendances is nil when the API
// omitted the history entirely, and empty when the employee has none.
type EmployeeWithStats struct {
	Employee
	TotalPresent         int                `json:"total_present"`
	TotalAbsent          int                `json:"total_absent"`
	AttendancePercentage float64            `json:"attendance_percentage"`
	Attendances          []AttendanceRecord `json:"attendances"`
}

func (e EmployeeWithStats) HistoryIncluded() bool {
	return e.Attendances != nil
}

type DashboardStats struct {
	TotalEmployees   int `json:"total_employees"`
	PresentToday     int `json:"present_today"`
	AbsentToday      int `json:"absent_today"`
	TotalDepartments int `json:"total_departments"`
}

// NotMarked is derived, never clamped. A negative result means the snapshot
// is internally inconsistent.
func (s DashboardStats) NotMarked() int {
	return s.TotalEmployees - (s.PresentToday + s.AbsentToday)
}

type AttendanceInput struct {
	EmployeeID string `json:"employee_id"`
	Date       Date   `json:"date"`
	Status     Status `json:"status"`
}
