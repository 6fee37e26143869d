package clientapp

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/phillip-england/hrms/internal/apiclient"
	"github.com/phillip-england/hrms/internal/models"
	"github.com/phillip-england/hrms/internal/views"
	"go.uber.org/zap"
)

type pageData struct {
	Title   string
	Active  string
	Message string
	Error   string
	Search  string

	Dashboard *dashboardView

	Employees      []models.Employee
	Departments    []string
	DeptFilter     string
	DeptOptions    []string
	Form           models.EmployeeInput
	FormErrors     models.ValidationErrors
	CodeHint       string
	Table          tableView
	EmployeesState string

	Detail         *models.EmployeeWithStats
	History        []historyRowView
	HistoryMissing bool
	Months         []monthOption
	Month          string
	NotFound       bool

	Date            string
	DateDisplay     string
	Today           string
	IsToday         bool
	AttendanceRows  []attendanceRowView
	AttendanceState string
}

type dashboardView struct {
	Stats              models.DashboardStats
	StatsFailed        bool
	NotMarked          int
	IntegrityNotice    string
	NotMarkedEmployees []models.Employee
	NotMarkedFailed    bool
	NotMarkedEmpty     bool
}

type tableView struct {
	Caption string
	Number  int
	Count   int
	HasPrev bool
	HasNext bool
	PrevURL string
	NextURL string
}

type attendanceRowView struct {
	views.AttendanceRow
	Actions     views.RowActions
	StatusClass string
}

type historyRowView struct {
	Date        string
	Status      string
	StatusClass string
}

type monthOption struct {
	Value    string
	Label    string
	Selected bool
}

func statusClass(status models.RowStatus) string {
	switch status {
	case models.RowPresent:
		return "badge badge-present"
	case models.RowAbsent:
		return "badge badge-absent"
	default:
		return "badge badge-muted"
	}
}

func newTableView[T any](page views.Page[T], path string, query url.Values) tableView {
	link := func(n int) string {
		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		q.Set("page", strconv.Itoa(n))
		return path + "?" + q.Encode()
	}
	return tableView{
		Caption: page.Caption(),
		Number:  page.Number,
		Count:   page.Count,
		HasPrev: page.HasPrev,
		HasNext: page.HasNext,
		PrevURL: link(page.PrevPage),
		NextURL: link(page.NextPage),
	}
}

func flash(r *http.Request) (string, string) {
	q := r.URL.Query()
	return strings.TrimSpace(q.Get("message")), strings.TrimSpace(q.Get("error"))
}

func (s *server) dashboardPage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	message, errMsg := flash(r)
	d := views.LoadDashboard(r.Context(), s.api, s.viewOptions()...)

	view := &dashboardView{
		Stats:              d.Stats,
		StatsFailed:        d.StatsState == views.StateFailed,
		NotMarked:          d.NotMarked,
		NotMarkedEmployees: d.NotMarkedEmployees,
		NotMarkedFailed:    d.NotMarkedState == views.StateFailed,
		NotMarkedEmpty:     d.NotMarkedState == views.StateEmpty,
	}
	var problems []string
	if errMsg != "" {
		problems = append(problems, errMsg)
	}
	if d.StatsErr != nil {
		problems = append(problems, "Failed to load dashboard stats: "+userMessage(d.StatsErr))
	}
	if d.NotMarkedErr != nil {
		problems = append(problems, "Failed to load employees not marked today: "+userMessage(d.NotMarkedErr))
	}
	if d.Inconsistent() {
		view.IntegrityNotice = "Attendance counts exceed the employee total. The numbers shown come straight from the API and need checking."
	}

	s.render(w, http.StatusOK, s.dashboardTmpl, pageData{
		Title:     "Dashboard",
		Active:    "dashboard",
		Message:   message,
		Error:     strings.Join(problems, " "),
		Dashboard: view,
	})
}

func (s *server) employeesRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.employeesPage(w, r)
	case http.MethodPost:
		s.createEmployee(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *server) employeesPage(w http.ResponseWriter, r *http.Request) {
	message, errMsg := flash(r)
	dir := views.NewDirectory(s.api, s.viewOptions()...)
	rows, err := dir.Load(r.Context())
	if err != nil {
		errMsg = "Failed to load employees: " + userMessage(err)
	}
	s.renderEmployees(w, r, http.StatusOK, dir, rows, pageData{Message: message, Error: errMsg})
}

func (s *server) renderEmployees(w http.ResponseWriter, r *http.Request, status int, dir *views.Directory, rows []models.Employee, data pageData) {
	q := r.URL.Query()
	search := strings.TrimSpace(q.Get("q"))
	dept := strings.TrimSpace(q.Get("dept"))

	filtered := views.FilterDepartment(views.Filter(rows, search, views.EmployeeSearchFields), dept)
	page := views.Paginate(filtered, parsePositiveInt(q.Get("page"), 1), s.pageSize)

	query := url.Values{}
	if search != "" {
		query.Set("q", search)
	}
	if dept != "" {
		query.Set("dept", dept)
	}

	data.Title = "Employees"
	data.Active = "employees"
	data.Search = search
	data.DeptFilter = dept
	data.DeptOptions = views.Departments(rows)
	data.Departments = s.departments
	data.Employees = page.Rows
	data.Table = newTableView(page, "/employees", query)
	data.EmployeesState = dir.State().String()
	data.CodeHint = models.NextEmployeeCode(rows) + " (auto-generated)"
	s.render(w, status, s.employeesTmpl, data)
}

func (s *server) createEmployee(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWith(w, r, "/employees", nil, "", "Invalid employee form")
		return
	}
	in := models.EmployeeInput{
		EmployeeID: r.FormValue("employee_id"),
		FullName:   r.FormValue("full_name"),
		Email:      r.FormValue("email"),
		Department: r.FormValue("department"),
	}

	dir := views.NewDirectory(s.api, s.viewOptions()...)
	if _, err := dir.Load(r.Context()); err != nil {
		redirectWith(w, r, "/employees", nil, "", "Failed to load employees: "+userMessage(err))
		return
	}
	created, err := dir.Create(r.Context(), in)
	if err != nil {
		var verrs models.ValidationErrors
		if errors.As(err, &verrs) {
			s.renderEmployees(w, r, http.StatusUnprocessableEntity, dir, dir.Rows(), pageData{
				Error:      "Please fix the highlighted fields.",
				Form:       in.Normalize(),
				FormErrors: verrs,
			})
			return
		}
		if created == nil {
			s.renderEmployees(w, r, http.StatusOK, dir, dir.Rows(), pageData{
				Error: userMessage(err),
				Form:  in.Normalize(),
			})
			return
		}
		s.logger.Warn("employee created but list refresh failed", zap.String("id", created.ID), zap.Error(err))
	}
	redirectWith(w, r, "/employees", nil, "Employee added successfully", "")
}

func (s *server) employeeRoutes(w http.ResponseWriter, r *http.Request) {
	id, action, ok := parseEmployeePath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	switch {
	case action == "attendance" && r.Method == http.MethodGet:
		s.employeeDetailPage(w, r, id)
	case action == "delete" && r.Method == http.MethodPost:
		s.deleteEmployee(w, r, id)
	case action == "attendance" || action == "delete":
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	default:
		http.NotFound(w, r)
	}
}

func (s *server) deleteEmployee(w http.ResponseWriter, r *http.Request, id string) {
	back := url.Values{}
	if q := strings.TrimSpace(r.FormValue("q")); q != "" {
		back.Set("q", q)
	}
	if page := strings.TrimSpace(r.FormValue("page")); page != "" {
		back.Set("page", page)
	}

	dir := views.NewDirectory(s.api, s.viewOptions()...)
	if _, err := dir.Load(r.Context()); err != nil {
		redirectWith(w, r, "/employees", back, "", "Failed to load employees: "+userMessage(err))
		return
	}
	if err := dir.Delete(r.Context(), id); err != nil {
		redirectWith(w, r, "/employees", back, "", userMessage(err))
		return
	}
	redirectWith(w, r, "/employees", back, "Employee deleted successfully", "")
}

func (s *server) employeeDetailPage(w http.ResponseWriter, r *http.Request, id string) {
	message, errMsg := flash(r)
	month := strings.TrimSpace(r.URL.Query().Get("month"))
	data := pageData{Title: "Employee Attendance", Active: "employees", Message: message, Error: errMsg, Month: month}

	detail := views.NewEmployeeDetail(s.api, s.viewOptions()...)
	stats, err := detail.Load(r.Context(), id)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, apiclient.ErrNotFound) {
			status = http.StatusNotFound
			data.NotFound = true
			data.Error = "Employee not found or data unavailable."
		} else {
			data.Error = "Failed to load attendance data: " + userMessage(err)
		}
		s.render(w, status, s.employeeTmpl, data)
		return
	}

	data.Detail = stats
	data.HistoryMissing = !stats.HistoryIncluded()
	data.Months = append(data.Months, monthOption{Value: "", Label: "All Records", Selected: month == ""})
	for _, m := range views.HistoryMonths(stats.Attendances) {
		label := m
		if d, err := models.ParseDate(m + "-01"); err == nil {
			label = d.Time().Format("January 2006")
		}
		data.Months = append(data.Months, monthOption{Value: m, Label: label, Selected: m == month})
	}
	for _, rec := range views.FilterHistory(stats.Attendances, month) {
		status := rec.Status.RowStatus()
		data.History = append(data.History, historyRowView{
			Date:        rec.Date.LongDisplay(),
			Status:      string(status),
			StatusClass: statusClass(status),
		})
	}
	s.render(w, http.StatusOK, s.employeeTmpl, data)
}

func (s *server) today() models.Date {
	return models.DateOf(s.clock())
}

// attendanceDate parses the date query, defaulting to today. Dates after
// today return views.ErrFutureDate.
func (s *server) attendanceDate(raw string) (models.Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.today(), nil
	}
	date, err := models.ParseDate(raw)
	if err != nil {
		return models.Date{}, err
	}
	if s.today().Before(date) {
		return models.Date{}, views.ErrFutureDate
	}
	return date, nil
}

func (s *server) attendancePage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	message, errMsg := flash(r)
	q := r.URL.Query()
	date, err := s.attendanceDate(q.Get("date"))
	if errors.Is(err, views.ErrFutureDate) {
		redirectWith(w, r, "/attendance", nil, "", "Attendance cannot be shown for a future date")
		return
	}
	if err != nil {
		redirectWith(w, r, "/attendance", nil, "", "Invalid date")
		return
	}

	view := views.NewAttendanceView(s.api, s.viewOptions()...)
	rows, err := view.Load(r.Context(), date)
	if err != nil {
		errMsg = "Failed to load attendance data: " + userMessage(err)
	}

	search := strings.TrimSpace(q.Get("q"))
	page := views.Paginate(views.Filter(rows, search, views.AttendanceSearchFields), parsePositiveInt(q.Get("page"), 1), s.pageSize)
	isToday := view.IsToday()
	rowViews := make([]attendanceRowView, 0, len(page.Rows))
	for _, row := range page.Rows {
		rowViews = append(rowViews, attendanceRowView{
			AttendanceRow: row,
			Actions:       row.Actions(isToday),
			StatusClass:   statusClass(row.Status),
		})
	}

	query := url.Values{}
	query.Set("date", date.String())
	if search != "" {
		query.Set("q", search)
	}
	s.render(w, http.StatusOK, s.attendanceTmpl, pageData{
		Title:           "Attendance",
		Active:          "attendance",
		Message:         message,
		Error:           errMsg,
		Search:          search,
		Date:            date.String(),
		DateDisplay:     date.LongDisplay(),
		Today:           view.Today().String(),
		IsToday:         isToday,
		AttendanceRows:  rowViews,
		AttendanceState: view.State().String(),
		Table:           newTableView(page, "/attendance", query),
	})
}

type markResponse struct {
	Row     *views.AttendanceRow `json:"row,omitempty"`
	Message string               `json:"message,omitempty"`
	Error   string               `json:"error,omitempty"`
}

func (s *server) markAttendance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		s.markResult(w, r, http.StatusBadRequest, nil, nil, "", "Invalid attendance form")
		return
	}
	back := url.Values{}
	for _, key := range []string{"date", "q", "page"} {
		if v := strings.TrimSpace(r.FormValue(key)); v != "" {
			back.Set(key, v)
		}
	}

	employeeRef := strings.TrimSpace(r.FormValue("employee_id"))
	status, err := models.ParseStatus(r.FormValue("status"))
	if employeeRef == "" || err != nil {
		s.markResult(w, r, http.StatusBadRequest, back, nil, "", "Employee and a PRESENT or ABSENT status are required")
		return
	}
	date, err := s.attendanceDate(r.FormValue("date"))
	if errors.Is(err, views.ErrFutureDate) || (err == nil && !date.Equal(s.today())) {
		s.markResult(w, r, http.StatusUnprocessableEntity, back, nil, "", "Attendance can only be marked for today")
		return
	}
	if err != nil {
		s.markResult(w, r, http.StatusBadRequest, back, nil, "", "Invalid date")
		return
	}

	view := views.NewAttendanceView(s.api, s.viewOptions()...)
	if _, err := view.Load(r.Context(), date); err != nil {
		s.markResult(w, r, http.StatusBadGateway, back, nil, "", "Failed to load attendance data: "+userMessage(err))
		return
	}
	row, err := view.Mark(r.Context(), employeeRef, status)
	switch {
	case err == nil:
		s.markResult(w, r, http.StatusOK, back, &row, "Marked "+row.EmployeeName+" as "+string(row.Status), "")
	case errors.Is(err, views.ErrNoChange):
		s.markResult(w, r, http.StatusOK, back, &row, row.EmployeeName+" is already marked "+string(row.Status), "")
	case errors.Is(err, views.ErrNotToday):
		s.markResult(w, r, http.StatusUnprocessableEntity, back, knownRow(row), "", "Attendance can only be marked for today")
	case errors.Is(err, views.ErrRowBusy):
		s.markResult(w, r, http.StatusConflict, back, &row, "", "An update for this employee is already in progress")
	case errors.Is(err, views.ErrRowNotFound):
		s.markResult(w, r, http.StatusNotFound, back, nil, "", "Employee not found")
	default:
		s.markResult(w, r, http.StatusBadGateway, back, knownRow(row), "", userMessage(err))
	}
}

// knownRow returns the row a failed mark left untouched, or nil when the
// mark never resolved one.
func knownRow(row views.AttendanceRow) *views.AttendanceRow {
	if row.EmployeeRef == "" {
		return nil
	}
	return &row
}

func (s *server) markResult(w http.ResponseWriter, r *http.Request, status int, back url.Values, row *views.AttendanceRow, message, errMsg string) {
	if wantsJSON(r) {
		writeJSON(w, status, markResponse{Row: row, Message: message, Error: errMsg})
		return
	}
	redirectWith(w, r, "/attendance", back, message, errMsg)
}

// parseEmployeePath splits /employees/{id}/{action}.
func parseEmployeePath(path string) (string, string, bool) {
	trimmed := strings.Trim(strings.TrimPrefix(path, "/employees/"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 {
		return "", "", false
	}
	id, err := url.PathUnescape(parts[0])
	if err != nil || strings.TrimSpace(id) == "" {
		return "", "", false
	}
	return id, parts[1], true
}
