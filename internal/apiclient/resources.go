package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/phillip-england/hrms/internal/models"
)

func (c *Client) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	employees, err := Call[[]models.Employee](ctx, c, http.MethodGet, "/api/employees/", nil)
	if err != nil {
		return nil, err
	}
	if employees == nil {
		employees = []models.Employee{}
	}
	return employees, nil
}

func (c *Client) CreateEmployee(ctx context.Context, in models.EmployeeInput) (*models.Employee, error) {
	created, err := Call[models.Employee](ctx, c, http.MethodPost, "/api/employees/", in)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) DeleteEmployee(ctx context.Context, id string) error {
	return c.Do(ctx, http.MethodDelete, "/api/employees/"+url.PathEscape(id), nil, nil)
}

func (c *Client) EmployeeAttendance(ctx context.Context, id string) (*models.EmployeeWithStats, error) {
	stats, err := Call[models.EmployeeWithStats](ctx, c, http.MethodGet, "/api/employees/"+url.PathEscape(id)+"/attendance", nil)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) ListAttendance(ctx context.Context, date models.Date) ([]models.AttendanceRecord, error) {
	query := url.Values{}
	query.Set("date", date.String())
	records, err := Call[[]models.AttendanceRecord](ctx, c, http.MethodGet, "/api/attendance/?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []models.AttendanceRecord{}
	}
	return records, nil
}

func (c *Client) MarkAttendance(ctx context.Context, in models.AttendanceInput) (*models.AttendanceRecord, error) {
	record, err := Call[models.AttendanceRecord](ctx, c, http.MethodPost, "/api/attendance/", in)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (c *Client) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	stats, err := Call[models.DashboardStats](ctx, c, http.MethodGet, "/api/dashboard/stats", nil)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) NotMarkedToday(ctx context.Context) ([]models.Employee, error) {
	employees, err := Call[[]models.Employee](ctx, c, http.MethodGet, "/api/dashboard/not-marked", nil)
	if err != nil {
		return nil, err
	}
	if employees == nil {
		employees = []models.Employee{}
	}
	return employees, nil
}
