// Package spreadsheet reads employee rosters from .xlsx/.xls uploads and
// writes the directory and attendance tables out as .xlsx workbooks.
package spreadsheet

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/phillip-england/hrms/internal/models"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const maxRows = 100000

var (
	ErrNoWorksheet    = errors.New("no worksheet found")
	ErrEmptyWorksheet = errors.New("worksheet is empty")
)

// ReadRows returns every row of the first worksheet. The format is chosen by
// the file extension; anything that is not .xls is read as .xlsx.
func ReadRows(reader io.Reader, filename string) ([][]string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xls":
		workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
		if err != nil {
			return nil, fmt.Errorf("open xls: %w", err)
		}
		if workbook.NumSheets() == 0 {
			return nil, ErrNoWorksheet
		}
		rows := workbook.ReadAllCells(maxRows)
		if len(rows) == 0 {
			return nil, ErrEmptyWorksheet
		}
		return rows, nil
	default:
		file, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("open xlsx: %w", err)
		}
		defer func() { _ = file.Close() }()

		sheetName := file.GetSheetName(0)
		if sheetName == "" {
			return nil, ErrNoWorksheet
		}
		rows, err := file.GetRows(sheetName)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, ErrEmptyWorksheet
		}
		return rows, nil
	}
}

// RosterRow is one data row of an uploaded roster. Line is the 1-based sheet row.
type RosterRow struct {
	Line  int
	Input models.EmployeeInput
}

var headerAliases = map[string]string{
	"employee_id":   "employee_id",
	"employee id":   "employee_id",
	"employee code": "employee_id",
	"code":          "employee_id",
	"full_name":     "full_name",
	"full name":     "full_name",
	"name":          "full_name",
	"employee name": "full_name",
	"email":         "email",
	"email address": "email",
	"department":    "department",
	"dept":          "department",
}

// ParseRoster maps the header row to employee fields and returns the data
// rows. full_name, email and department columns are required.
func ParseRoster(rows [][]string) ([]RosterRow, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyWorksheet
	}
	index := map[string]int{}
	for i, header := range rows[0] {
		if field, ok := headerAliases[normalizeHeader(header)]; ok {
			if _, seen := index[field]; !seen {
				index[field] = i
			}
		}
	}
	for _, required := range []string{"full_name", "email", "department"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("missing required column: %s", required)
		}
	}
	codeIdx := -1
	if idx, ok := index["employee_id"]; ok {
		codeIdx = idx
	}

	out := []RosterRow{}
	for i, row := range rows[1:] {
		in := models.EmployeeInput{
			EmployeeID: cellValue(row, codeIdx),
			FullName:   cellValue(row, index["full_name"]),
			Email:      cellValue(row, index["email"]),
			Department: cellValue(row, index["department"]),
		}
		if in == (models.EmployeeInput{}) {
			continue
		}
		out = append(out, RosterRow{Line: i + 2, Input: in.Normalize()})
	}
	return out, nil
}

type EmployeeCreator interface {
	CreateEmployee(ctx context.Context, in models.EmployeeInput) (*models.Employee, error)
}

type RowIssue struct {
	Line    int
	Name    string
	Message string
}

type ImportResult struct {
	Created []models.Employee
	Skipped []RowIssue
	Failed  []RowIssue
}

func (r ImportResult) Summary() string {
	return fmt.Sprintf("%d created, %d skipped, %d failed", len(r.Created), len(r.Skipped), len(r.Failed))
}

// ImportRoster creates each valid row in sheet order. Rows failing local
// validation are skipped without a request; API rejections are recorded and
// the import continues. existing seeds the generated EMP codes.
func ImportRoster(ctx context.Context, api EmployeeCreator, rows []RosterRow, existing []models.Employee, logger *zap.Logger) (ImportResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	known := append([]models.Employee(nil), existing...)
	result := ImportResult{}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		in := row.Input
		if errs := in.Validate(); errs != nil {
			result.Skipped = append(result.Skipped, RowIssue{Line: row.Line, Name: in.FullName, Message: errs.Error()})
			continue
		}
		if in.EmployeeID == "" {
			in.EmployeeID = models.NextEmployeeCode(known)
		}
		created, err := api.CreateEmployee(ctx, in)
		if err != nil {
			logger.Warn("roster row rejected", zap.Int("line", row.Line), zap.String("email", in.Email), zap.Error(err))
			result.Failed = append(result.Failed, RowIssue{Line: row.Line, Name: in.FullName, Message: err.Error()})
			continue
		}
		known = append(known, *created)
		result.Created = append(result.Created, *created)
	}
	return result, nil
}

func normalizeHeader(header string) string {
	return strings.ToLower(strings.TrimSpace(header))
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
