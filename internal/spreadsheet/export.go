package spreadsheet

import (
	"fmt"
	"io"

	"github.com/phillip-england/hrms/internal/models"
	"github.com/phillip-england/hrms/internal/views"
	"github.com/xuri/excelize/v2"
)

var (
	employeeHeader   = []any{"Employee ID", "Full Name", "Email", "Department", "Created"}
	attendanceHeader = []any{"Employee ID", "Employee Name", "Department", "Date", "Status"}
)

func WriteEmployees(w io.Writer, rows []models.Employee) error {
	data := make([][]any, 0, len(rows))
	for _, emp := range rows {
		data = append(data, []any{emp.EmployeeID, emp.FullName, emp.Email, emp.Department, emp.CreatedAt.Display()})
	}
	return writeSheet(w, "Employees", employeeHeader, data)
}

func WriteAttendance(w io.Writer, rows []views.AttendanceRow) error {
	data := make([][]any, 0, len(rows))
	for _, row := range rows {
		data = append(data, []any{row.EmployeeCode, row.EmployeeName, row.Department, row.Date.String(), string(row.Status)})
	}
	return writeSheet(w, "Attendance", attendanceHeader, data)
}

func writeSheet(w io.Writer, name string, header []any, rows [][]any) error {
	file := excelize.NewFile()
	defer func() { _ = file.Close() }()

	if err := file.SetSheetName(file.GetSheetName(0), name); err != nil {
		return err
	}
	bold, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := file.SetSheetRow(name, "A1", &header); err != nil {
		return err
	}
	if err := file.SetRowStyle(name, 1, 1, bold); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := file.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	if err := file.SetColWidth(name, "A", lastCol, 22); err != nil {
		return err
	}
	return file.Write(w)
}
