package spreadsheet

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/phillip-england/hrms/internal/apiclient"
	"github.com/phillip-england/hrms/internal/fakeapi"
	"github.com/phillip-england/hrms/internal/models"
	"github.com/phillip-england/hrms/internal/views"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func TestReadRowsAndParseRoster(t *testing.T) {
	buf := workbook(t, [][]any{
		{"Name", "Email Address", "Dept", "Employee ID"},
		{" Jane Doe ", "jane@example.com", "Engineering", "emp010"},
		{},
		{"Ann Lee", "ann@example.com", "HR", ""},
	})

	rows, err := ReadRows(buf, "roster.xlsx")
	require.NoError(t, err)

	roster, err := ParseRoster(rows)
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, RosterRow{Line: 2, Input: models.EmployeeInput{EmployeeID: "EMP010", FullName: "Jane Doe", Email: "jane@example.com", Department: "Engineering"}}, roster[0])
	assert.Equal(t, 4, roster[1].Line)
}

func TestParseRosterRequiresColumns(t *testing.T) {
	_, err := ParseRoster([][]string{{"name", "department"}})
	assert.EqualError(t, err, "missing required column: email")

	_, err = ParseRoster(nil)
	assert.ErrorIs(t, err, ErrEmptyWorksheet)
}

func TestReadRowsRejectsGarbage(t *testing.T) {
	_, err := ReadRows(bytes.NewReader([]byte("not a workbook")), "roster.xlsx")
	assert.Error(t, err)
}

func TestImportRoster(t *testing.T) {
	fake := fakeapi.New()
	ts := fake.Start(t)
	existing := fake.AddEmployee("EMP007", "Ann Lee", "ann@example.com", "HR")
	client := apiclient.New(apiclient.Config{BaseURL: ts.URL})

	rows := []RosterRow{
		{Line: 2, Input: models.EmployeeInput{FullName: "Jane Doe", Email: "jane@example.com", Department: "Sales"}},
		{Line: 3, Input: models.EmployeeInput{FullName: "Bad Email", Email: "nope", Department: "Sales"}},
		{Line: 4, Input: models.EmployeeInput{FullName: "Ann Again", Email: "ann@example.com", Department: "HR"}},
		{Line: 5, Input: models.EmployeeInput{FullName: "Joe Park", Email: "joe@example.com", Department: "Finance"}},
	}
	result, err := ImportRoster(context.Background(), client, rows, []models.Employee{existing}, nil)
	require.NoError(t, err)

	require.Len(t, result.Created, 2)
	assert.Equal(t, "EMP008", result.Created[0].EmployeeID)
	assert.Equal(t, "EMP009", result.Created[1].EmployeeID)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, 3, result.Skipped[0].Line)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "Email already exists", result.Failed[0].Message)
	assert.Equal(t, "2 created, 1 skipped, 1 failed", result.Summary())
	assert.Equal(t, 3, fake.Requests(http.MethodPost+" /api/employees/"))
}

func TestWriteEmployeesAndAttendance(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteEmployees(&buf, []models.Employee{
		{EmployeeID: "EMP001", FullName: "Ann Lee", Email: "ann@example.com", Department: "HR"},
	}))
	rows, err := ReadRows(&buf, "employees.xlsx")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Employee ID", "Full Name", "Email", "Department", "Created"}, rows[0])
	assert.Equal(t, "Ann Lee", rows[1][1])

	buf.Reset()
	date := models.NewDate(2025, time.March, 3)
	require.NoError(t, WriteAttendance(&buf, []views.AttendanceRow{
		{EmployeeCode: "EMP001", EmployeeName: "Ann Lee", Department: "HR", Date: date, Status: models.RowNotMarked},
	}))
	rows, err = ReadRows(&buf, "attendance.xlsx")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"EMP001", "Ann Lee", "HR", "2025-03-03", "Not Marked"}, rows[1])
}
