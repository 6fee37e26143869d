package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/phillip-england/hrms/internal/fakeapi"
	"github.com/phillip-england/hrms/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreAnyFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreAnyFunction("net/http.(*persistConn).writeLoop"),
	)
}

func TestDoSendsJSONHeadersAndToken(t *testing.T) {
	var gotAuth, gotType, gotRequestID, gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotRequestID = r.Header.Get("X-Request-ID")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer ts.Close()

	c := New(Config{BaseURL: ts.URL + "/", Token: "secret"})
	out, err := Call[map[string]string](context.Background(), c, http.MethodGet, "api/health", nil)
	require.NoError(t, err)

	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "application/json", gotType)
	assert.NotEmpty(t, gotRequestID)
	assert.Equal(t, "/api/health", gotPath)
}

func TestDoOmitsAuthorizationWithoutToken(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	c := New(Config{BaseURL: ts.URL})
	require.NoError(t, c.Do(context.Background(), http.MethodDelete, "/api/employees/1", nil, nil))
	assert.Empty(t, gotAuth)
}

func TestErrorPrefersServerDetail(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"Email already exists"}`))
	}))
	defer ts.Close()

	err := New(Config{BaseURL: ts.URL}).Do(context.Background(), http.MethodPost, "/api/employees/", map[string]string{}, nil)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Email already exists", err.Error())
}

func TestErrorFallsBackToStatusText(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<html>bad gateway</html>`))
	}))
	defer ts.Close()

	err := New(Config{BaseURL: ts.URL}).Do(context.Background(), http.MethodGet, "/api/employees/", nil, nil)
	require.Error(t, err)
	assert.Equal(t, "API Error: Bad Gateway", err.Error())
}

func TestValidationDetailListIsFlattened(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":[{"loc":["body","email"],"msg":"value is not a valid email address"}]}`))
	}))
	defer ts.Close()

	err := New(Config{BaseURL: ts.URL}).Do(context.Background(), http.MethodPost, "/api/employees/", struct{}{}, nil)
	assert.EqualError(t, err, "value is not a valid email address")
}

func TestUnauthorizedAndNotFoundAreDistinguishable(t *testing.T) {
	status := http.StatusUnauthorized
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer ts.Close()
	c := New(Config{BaseURL: ts.URL})

	err := c.Do(context.Background(), http.MethodGet, "/api/dashboard/stats", nil, nil)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.NotErrorIs(t, err, ErrNotFound)

	status = http.StatusNotFound
	err = c.Do(context.Background(), http.MethodGet, "/api/employees/x/attendance", nil, nil)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

func TestTransportFailure(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	baseURL := ts.URL
	ts.Close()

	err := New(Config{BaseURL: baseURL, Timeout: time.Second}).Do(context.Background(), http.MethodGet, "/api/employees/", nil, nil)
	assert.ErrorIs(t, err, ErrTransport)
	var apiErr *Error
	assert.False(t, errors.As(err, &apiErr))
}

func TestCanceledContextIsTransportFailure(t *testing.T) {
	fake := fakeapi.New()
	release := fake.Block("GET /api/employees/")
	defer release()
	ts := fake.Start(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Config{BaseURL: ts.URL}).ListEmployees(ctx)
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResourceRoundTrip(t *testing.T) {
	fake := fakeapi.New()
	ts := fake.Start(t)
	c := New(Config{BaseURL: ts.URL})
	ctx := context.Background()

	created, err := c.CreateEmployee(ctx, models.EmployeeInput{EmployeeID: "EMP001", FullName: "Jane Doe", Email: "jane@example.com", Department: "HR"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	_, err = c.CreateEmployee(ctx, models.EmployeeInput{EmployeeID: "EMP002", FullName: "Jane Two", Email: "jane@example.com", Department: "HR"})
	assert.EqualError(t, err, "Email already exists")

	today := models.NewDate(2025, time.March, 3)
	_, err = c.MarkAttendance(ctx, models.AttendanceInput{EmployeeID: created.ID, Date: today, Status: models.StatusPresent})
	require.NoError(t, err)

	records, err := c.ListAttendance(ctx, today)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.StatusPresent, records[0].Status)

	detail, err := c.EmployeeAttendance(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, detail.TotalPresent)
	assert.True(t, detail.HistoryIncluded())

	require.NoError(t, c.DeleteEmployee(ctx, created.ID))
	employees, err := c.ListEmployees(ctx)
	require.NoError(t, err)
	assert.Empty(t, employees)
	assert.NotNil(t, employees)

	_, err = c.EmployeeAttendance(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
