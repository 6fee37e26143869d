package hrmscli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/phillip-england/hrms/internal/archive"
	"github.com/phillip-england/hrms/internal/fakeapi"
	"github.com/phillip-england/hrms/internal/models"
	"github.com/phillip-england/hrms/internal/spreadsheet"
	"github.com/phillip-england/hrms/internal/views"
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

var today = time.Date(2025, time.March, 3, 14, 0, 0, 0, time.UTC)

type harness struct {
	fake *fakeapi.Server
	dir  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fake := fakeapi.New()
	fake.Today = func() models.Date { return models.DateOf(today) }
	ts := fake.Start(t)
	t.Setenv("API_BASE_URL", ts.URL)
	t.Setenv("API_TOKEN", "")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("CLIENT_ADDR", ":3000")
	return &harness{fake: fake, dir: t.TempDir()}
}

func (h *harness) path(name string) string {
	return filepath.Join(h.dir, name)
}

func (h *harness) run(args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	full := append([]string{"--config", h.path("hrms.yaml"), "--env-file", h.path(".env")}, args...)
	err := Execute(context.Background(), full,
		WithOutput(&out, &errOut),
		WithClock(func() time.Time { return today }),
	)
	return out.String(), errOut.String(), err
}

func TestEmployeesList(t *testing.T) {
	h := newHarness(t)
	h.fake.AddEmployee("EMP001", "Ann Lee", "ann@example.com", "HR")
	h.fake.AddEmployee("EMP002", "Ben Ito", "ben@example.com", "Sales")
	h.fake.AddEmployee("EMP003", "Cara Diaz", "cara@example.com", "sales")

	out, _, err := h.run("employees", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Ann Lee")
	assert.Contains(t, out, "3 employees")

	out, _, err = h.run("employees", "list", "--department", "SALES")
	require.NoError(t, err)
	assert.NotContains(t, out, "Ann Lee")
	assert.Contains(t, out, "Ben Ito")
	assert.Contains(t, out, "Cara Diaz")

	out, _, err = h.run("employees", "list", "--search", "emp003", "--page", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Showing 1 to 1 of 1")

	out, _, err = h.run("employees", "list", "--search", "nobody")
	require.NoError(t, err)
	assert.Equal(t, "No employees found.\n", out)
}

func TestEmployeesAdd(t *testing.T) {
	h := newHarness(t)
	h.fake.AddEmployee("EMP001", "Ann Lee", "ann@example.com", "HR")

	out, _, err := h.run("employees", "add", "--name", "Jane Doe", "--email", "jane@example.com", "--department", "Sales")
	require.NoError(t, err)
	assert.Equal(t, "Employee added successfully: EMP002 Jane Doe\n", out)
	require.Len(t, h.fake.Employees(), 2)

	_, errOut, err := h.run("employees", "add", "--name", "", "--email", "nope", "--department", "Sales")
	require.ErrorIs(t, err, errNotAdded)
	assert.Contains(t, errOut, "email: Invalid email format")
	assert.Contains(t, errOut, "full_name: Full name is required")
	assert.Equal(t, 1, h.fake.Requests("POST /api/employees/"))

	_, _, err = h.run("employees", "add", "--name", "Ann Two", "--email", "ann@example.com", "--department", "HR")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Email already exists")
}

func TestEmployeesDeleteByCode(t *testing.T) {
	h := newHarness(t)
	h.fake.AddEmployee("EMP001", "Ann Lee", "ann@example.com", "HR")
	ben := h.fake.AddEmployee("EMP002", "Ben Ito", "ben@example.com", "Sales")

	out, _, err := h.run("employees", "delete", "emp001")
	require.NoError(t, err)
	assert.Contains(t, out, "Employee deleted successfully: EMP001 Ann Lee")
	employees := h.fake.Employees()
	require.Len(t, employees, 1)
	assert.Equal(t, ben.ID, employees[0].ID)

	_, _, err = h.run("employees", "delete", "EMP404")
	require.Error(t, err)
}

func TestEmployeesShow(t *testing.T) {
	h := newHarness(t)
	ann := h.fake.AddEmployee("EMP001", "Ann Lee", "ann@example.com", "HR")
	h.fake.SetAttendance(ann.ID, models.NewDate(2025, time.February, 28), models.StatusPresent)
	h.fake.SetAttendance(ann.ID, models.NewDate(2025, time.March, 3), models.StatusAbsent)

	out, _, err := h.run("employees", "show", "EMP001")
	require.NoError(t, err)
	assert.Contains(t, out, "Ann Lee (EMP001)")
	assert.Contains(t, out, "50.00%")
	assert.Contains(t, out, "Mon, Mar 3, 2025")

	out, _, err = h.run("employees", "show", ann.ID, "--month", "2025-02")
	require.NoError(t, err)
	assert.Contains(t, out, "Fri, Feb 28, 2025")
	assert.NotContains(t, out, "Mar 3, 2025")

	h.fake.OmitHistory(true)
	out, _, err = h.run("employees", "show", "EMP001")
	require.NoError(t, err)
	assert.Contains(t, out, "Attendance history unavailable.")
}

func TestAttendanceMark(t *testing.T) {
	h := newHarness(t)
	h.fake.AddEmployee("EMP001", "Ann Lee", "ann@example.com", "HR")
	h.fake.AddEmployee("EMP002", "Ben Ito", "ben@example.com", "Sales")

	out, _, err := h.run("attendance", "mark", "EMP001", "present")
	require.NoError(t, err)
	assert.Equal(t, "Marked Ann Lee as Present\n", out)

	out, _, err = h.run("attendance", "mark", "EMP001", "PRESENT")
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee is already marked Present\n", out)

	gets := h.fake.Requests("GET /api/attendance/")
	_, _, err = h.run("attendance", "mark", "EMP002", "absent", "--date", "2025-03-02")
	require.EqualError(t, err, "attendance can only be marked for today")
	_, _, err = h.run("attendance", "mark", "EMP002", "absent", "--date", "2025-03-04")
	require.EqualError(t, err, "attendance can only be marked for today")
	assert.Equal(t, gets, h.fake.Requests("GET /api/attendance/"), "refused marks must not load the day")

	_, _, err = h.run("attendance", "mark", "EMP002", "late")
	require.Error(t, err)
	assert.Equal(t, 1, h.fake.Requests("POST /api/attendance/"))

	out, _, err = h.run("attendance", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Attendance for Mon, Mar 3, 2025")
	assert.Contains(t, out, "1 present, 0 absent, 1 not marked")

	out, _, err = h.run("attendance", "show", "--date", "2025-03-02")
	require.NoError(t, err)
	assert.Contains(t, out, "Viewing a past date, marking is disabled.")
	assert.Contains(t, out, "0 present, 0 absent, 2 not marked")

	_, _, err = h.run("attendance", "show", "--date", "2025-03-04")
	require.ErrorIs(t, err, views.ErrFutureDate)
}

func TestDashboard(t *testing.T) {
	h := newHarness(t)
	h.fake.AddEmployee("EMP001", "Ann Lee", "ann@example.com", "HR")

	out, _, err := h.run("dashboard")
	require.NoError(t, err)
	assert.Contains(t, out, "Not Marked Attendance")
	assert.Contains(t, out, "Ann Lee")
	assert.NotContains(t, out, "do not add up")

	h.fake.OverrideStats(models.DashboardStats{TotalEmployees: 2, PresentToday: 2, AbsentToday: 1})
	out, _, err = h.run("dashboard")
	require.NoError(t, err)
	assert.Contains(t, out, "-1")
	assert.Contains(t, out, "do not add up")

	h.fake.FailNext("GET /api/dashboard/not-marked", 500, "boom")
	out, _, err = h.run("dashboard")
	require.NoError(t, err)
	assert.Contains(t, out, "Total Employees")
	assert.Contains(t, out, "Unable to load employees not marked today")
}

func TestArchiveBuildAndInspect(t *testing.T) {
	h := newHarness(t)
	ann := h.fake.AddEmployee("EMP001", "Ann Lee", "ann@example.com", "HR")
	h.fake.SetAttendance(ann.ID, models.NewDate(2025, time.March, 2), models.StatusPresent)

	target := h.path("snap" + archive.FileSuffix)
	out, _, err := h.run("archive", "build", "--from", "2025-03-01", "--to", "2025-03-03", "--out", target)
	require.NoError(t, err)
	assert.Contains(t, out, "(3 days, 1 employees)")

	f, err := os.Open(target)
	require.NoError(t, err)
	snap, err := archive.Read(f)
	require.NoError(t, f.Close())
	require.NoError(t, err)
	require.Len(t, snap.Days, 3)
	assert.Equal(t, models.RowPresent, snap.Days[1].Rows[0].Status)

	out, _, err = h.run("archive", "inspect", target)
	require.NoError(t, err)
	assert.Contains(t, out, "Attendance 2025-03-01 to 2025-03-03")
	assert.Contains(t, out, "2025-03-02")

	_, _, err = h.run("archive", "build", "--from", "2025-03-03", "--to", "2025-03-01", "--out", target)
	require.ErrorIs(t, err, archive.ErrRangeOrder)
}

func TestEmployeesExport(t *testing.T) {
	h := newHarness(t)
	h.fake.AddEmployee("EMP001", "Ann Lee", "ann@example.com", "HR")
	h.fake.AddEmployee("EMP002", "Ben Ito", "ben@example.com", "Sales")

	target := h.path("out/employees.xlsx")
	out, _, err := h.run("employees", "export", target, "--search", "ben")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 1 employees")

	f, err := os.Open(target)
	require.NoError(t, err)
	defer f.Close()
	rows, err := spreadsheet.ReadRows(f, "employees.xlsx")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Ben Ito", rows[1][1])
}

func TestSetupWritesEnvFile(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.run("setup", "--api-base-url", "https://hrms.example.com/", "--api-token", "secret")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote ")

	values, err := godotenv.Read(h.path(".env"))
	require.NoError(t, err)
	assert.Equal(t, "https://hrms.example.com", values["API_BASE_URL"])
	assert.Equal(t, "secret", values["API_TOKEN"])
	assert.Equal(t, ":3000", values["CLIENT_ADDR"])

	_, _, err = h.run("setup")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, _, err = h.run("setup", "--force", "--api-base-url", "ftp://nope")
	require.Error(t, err)
}

func TestConfigInitAndShow(t *testing.T) {
	h := newHarness(t)
	t.Setenv("API_TOKEN", "secret")

	out, _, err := h.run("config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "hrms.yaml")
	_, err = os.Stat(h.path("hrms.yaml"))
	require.NoError(t, err)

	_, _, err = h.run("config", "init")
	require.Error(t, err)

	out, _, err = h.run("config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "********")
	assert.NotContains(t, out, "secret")
	assert.Contains(t, out, "page_size: 10")
}
