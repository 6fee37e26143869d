package clientapp

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/phillip-england/hrms/internal/archive"
	"github.com/phillip-england/hrms/internal/models"
	"github.com/phillip-england/hrms/internal/spreadsheet"
	"github.com/phillip-england/hrms/internal/views"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	// Longer ranges go through the hrms archive command.
	maxWebArchiveDays = 93
	archiveWriteLimit = 3 * time.Minute
)

func writeDownload(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

func (s *server) exportEmployees(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	dir := views.NewDirectory(s.api, s.viewOptions()...)
	rows, err := dir.Load(r.Context())
	if err != nil {
		redirectWith(w, r, "/employees", nil, "", "Failed to load employees: "+userMessage(err))
		return
	}
	rows = views.Filter(rows, r.URL.Query().Get("q"), views.EmployeeSearchFields)

	var buf bytes.Buffer
	if err := spreadsheet.WriteEmployees(&buf, rows); err != nil {
		s.logger.Error("employee export failed", zap.Error(err))
		http.Error(w, "unable to build export", http.StatusInternalServerError)
		return
	}
	writeDownload(w, xlsxContentType, "employees.xlsx", buf.Bytes())
}

func (s *server) exportAttendance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	date, err := s.attendanceDate(r.URL.Query().Get("date"))
	if err != nil {
		redirectWith(w, r, "/attendance", nil, "", "Invalid date")
		return
	}
	view := views.NewAttendanceView(s.api, s.viewOptions()...)
	rows, err := view.Load(r.Context(), date)
	if err != nil {
		redirectWith(w, r, "/attendance", url.Values{"date": {date.String()}}, "", "Failed to load attendance data: "+userMessage(err))
		return
	}
	rows = views.Filter(rows, r.URL.Query().Get("q"), views.AttendanceSearchFields)

	var buf bytes.Buffer
	if err := spreadsheet.WriteAttendance(&buf, rows); err != nil {
		s.logger.Error("attendance export failed", zap.Error(err))
		http.Error(w, "unable to build export", http.StatusInternalServerError)
		return
	}
	writeDownload(w, xlsxContentType, "attendance-"+date.String()+".xlsx", buf.Bytes())
}

func (s *server) importEmployees(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(20 << 20); err != nil {
		redirectWith(w, r, "/employees", nil, "", "Invalid upload")
		return
	}
	file, header, err := r.FormFile("roster_file")
	if err != nil {
		redirectWith(w, r, "/employees", nil, "", "Roster file is required")
		return
	}
	defer file.Close()

	sheet, err := spreadsheet.ReadRows(file, header.Filename)
	if err != nil {
		redirectWith(w, r, "/employees", nil, "", "Unable to read roster: "+err.Error())
		return
	}
	roster, err := spreadsheet.ParseRoster(sheet)
	if err != nil {
		redirectWith(w, r, "/employees", nil, "", "Unable to read roster: "+err.Error())
		return
	}

	dir := views.NewDirectory(s.api, s.viewOptions()...)
	existing, err := dir.Load(r.Context())
	if err != nil {
		redirectWith(w, r, "/employees", nil, "", "Failed to load employees: "+userMessage(err))
		return
	}
	result, err := spreadsheet.ImportRoster(r.Context(), s.api, roster, existing, s.logger)
	if err != nil {
		redirectWith(w, r, "/employees", nil, "", "Import interrupted: "+userMessage(err))
		return
	}
	s.logger.Info("roster imported",
		zap.String("file", header.Filename),
		zap.Int("created", len(result.Created)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("failed", len(result.Failed)),
	)

	problems := []string{}
	for _, issue := range append(append([]spreadsheet.RowIssue{}, result.Skipped...), result.Failed...) {
		if len(problems) == 5 {
			problems = append(problems, "...")
			break
		}
		problems = append(problems, fmt.Sprintf("row %d: %s", issue.Line, issue.Message))
	}
	redirectWith(w, r, "/employees", nil, "Roster imported: "+result.Summary(), strings.Join(problems, "; "))
}

func (s *server) downloadArchive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	today := models.DateOf(s.clock())
	from, to := today.AddDays(-6), today
	var err error
	if raw := strings.TrimSpace(q.Get("from")); raw != "" {
		if from, err = models.ParseDate(raw); err != nil {
			redirectWith(w, r, "/attendance", nil, "", "Invalid archive start date")
			return
		}
	}
	if raw := strings.TrimSpace(q.Get("to")); raw != "" {
		if to, err = models.ParseDate(raw); err != nil {
			redirectWith(w, r, "/attendance", nil, "", "Invalid archive end date")
			return
		}
	}

	days, err := archive.Days(from, to)
	if err != nil {
		redirectWith(w, r, "/attendance", nil, "", "Archive failed: "+err.Error())
		return
	}
	if len(days) > maxWebArchiveDays {
		redirectWith(w, r, "/attendance", nil, "", fmt.Sprintf("Archive ranges are limited to %d days here; use the hrms archive command for longer ones", maxWebArchiveDays))
		return
	}
	// Multi-day fetches outlast the page-sized server write timeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Now().Add(archiveWriteLimit)); err != nil {
		s.logger.Debug("write deadline not extended", zap.Error(err))
	}

	snap, err := archive.Build(r.Context(), s.api, from, to, s.logger)
	if err != nil {
		redirectWith(w, r, "/attendance", nil, "", "Archive failed: "+userMessage(err))
		return
	}
	var buf bytes.Buffer
	if err := archive.Write(&buf, snap); err != nil {
		s.logger.Error("archive encode failed", zap.Error(err))
		http.Error(w, "unable to build archive", http.StatusInternalServerError)
		return
	}
	writeDownload(w, archive.ContentType(), "attendance-"+from.String()+"-to-"+to.String()+archive.FileSuffix, buf.Bytes())
}
