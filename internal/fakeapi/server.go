// Package fakeapi is an in-memory stand-in for the HRMS API, used by tests
// to exercise the front end against the same JSON contracts.
package fakeapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phillip-england/hrms/internal/models"
)

type failure struct {
	status int
	detail string
	raw    string
}

type Server struct {
	mu          sync.Mutex
	employees   []models.Employee
	attendance  []models.AttendanceRecord
	failures    map[string]failure
	requests    map[string]int
	omitHistory bool
	statsPatch  *models.DashboardStats
	block       map[string]chan struct{}

	// Today reports the server's current day for dashboard endpoints.
	Today func() models.Date
}

func New() *Server {
	return &Server{
		failures: map[string]failure{},
		requests: map[string]int{},
		block:    map[string]chan struct{}{},
		Today:    func() models.Date { return models.DateOf(time.Now()) },
	}
}

// Start serves the fake on an httptest server that is closed with the test.
func (s *Server) Start(t interface{ Cleanup(func()) }) *httptest.Server {
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/employees/", s.employeesHandler)
	mux.HandleFunc("/api/employees", s.employeesHandler)
	mux.HandleFunc("/api/attendance/", s.attendanceHandler)
	mux.HandleFunc("/api/dashboard/stats", s.statsHandler)
	mux.HandleFunc("/api/dashboard/not-marked", s.notMarkedHandler)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		s.mu.Lock()
		s.requests[key]++
		f, failing := s.failures[key]
		if failing {
			delete(s.failures, key)
		}
		gate := s.block[key]
		s.mu.Unlock()
		if gate != nil {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}
		if failing {
			if f.raw != "" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(f.status)
				_, _ = w.Write([]byte(f.raw))
				return
			}
			writeDetail(w, f.status, f.detail)
			return
		}
		mux.ServeHTTP(w, r)
	})
}

func (s *Server) AddEmployee(code, name, email, department string) models.Employee {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	emp := models.Employee{
		ID:         uuid.NewString(),
		EmployeeID: code,
		FullName:   name,
		Email:      email,
		Department: department,
		CreatedAt:  models.Timestamp{Time: now},
		UpdatedAt:  models.Timestamp{Time: now},
	}
	s.employees = append(s.employees, emp)
	return emp
}

func (s *Server) SetAttendance(employeeID string, date models.Date, status models.Status) models.AttendanceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertAttendanceLocked(employeeID, date, status)
}

// FailNext makes the next request matching "METHOD /path" fail with the
// given status and detail.
func (s *Server) FailNext(methodAndPath string, status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[methodAndPath] = failure{status: status, detail: detail}
}

// RespondNext answers the next request matching "METHOD /path" with body
// verbatim instead of running the handler.
func (s *Server) RespondNext(methodAndPath string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[methodAndPath] = failure{status: status, raw: body}
}

// Block holds requests matching "METHOD /path" until the returned release is called.
func (s *Server) Block(methodAndPath string) (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.block[methodAndPath] = gate
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.block, methodAndPath)
			s.mu.Unlock()
			close(gate)
		})
	}
}

// OmitHistory makes the detail endpoint leave out the attendances list.
func (s *Server) OmitHistory(omit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.omitHistory = omit
}

// OverrideStats replaces the computed dashboard snapshot.
func (s *Server) OverrideStats(stats models.DashboardStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statsPatch = &stats
}

func (s *Server) Requests(methodAndPath string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[methodAndPath]
}

func (s *Server) Employees() []models.Employee {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Employee, len(s.employees))
	copy(out, s.employees)
	return out
}

func (s *Server) employeesHandler(w http.ResponseWriter, r *http.Request) {
	tail := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/employees"), "/")
	parts := []string{}
	if tail != "" {
		parts = strings.Split(tail, "/")
	}

	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		s.mu.Lock()
		out := make([]models.Employee, len(s.employees))
		copy(out, s.employees)
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, out)
	case len(parts) == 0 && r.Method == http.MethodPost:
		s.createEmployee(w, r)
	case len(parts) == 1 && r.Method == http.MethodDelete:
		s.deleteEmployee(w, parts[0])
	case len(parts) == 2 && parts[1] == "attendance" && r.Method == http.MethodGet:
		s.employeeAttendance(w, parts[0])
	default:
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	}
}

func (s *Server) createEmployee(w http.ResponseWriter, r *http.Request) {
	var in models.EmployeeInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	in = in.Normalize()
	if in.EmployeeID == "" || in.FullName == "" || in.Department == "" || !models.ValidEmail(in.Email) {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid employee")
		return
	}

	s.mu.Lock()
	for _, existing := range s.employees {
		if strings.EqualFold(existing.EmployeeID, in.EmployeeID) {
			s.mu.Unlock()
			writeDetail(w, http.StatusBadRequest, "Employee ID already exists")
			return
		}
		if strings.EqualFold(existing.Email, in.Email) {
			s.mu.Unlock()
			writeDetail(w, http.StatusBadRequest, "Email already exists")
			return
		}
	}
	s.mu.Unlock()

	emp := s.AddEmployee(in.EmployeeID, in.FullName, in.Email, in.Department)
	writeJSON(w, http.StatusCreated, emp)
}

func (s *Server) deleteEmployee(w http.ResponseWriter, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.employeeIndexLocked(id)
	if idx < 0 {
		writeDetail(w, http.StatusNotFound, "Employee not found")
		return
	}
	s.employees = append(s.employees[:idx], s.employees[idx+1:]...)
	kept := s.attendance[:0]
	for _, rec := range s.attendance {
		if rec.EmployeeID != id {
			kept = append(kept, rec)
		}
	}
	s.attendance = kept
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) employeeAttendance(w http.ResponseWriter, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.employeeIndexLocked(id)
	if idx < 0 {
		writeDetail(w, http.StatusNotFound, "Employee not found")
		return
	}
	out := models.EmployeeWithStats{Employee: s.employees[idx]}
	history := []models.AttendanceRecord{}
	for _, rec := range s.attendance {
		if rec.EmployeeID != id {
			continue
		}
		history = append(history, rec)
		if rec.Status == models.StatusPresent {
			out.TotalPresent++
		} else {
			out.TotalAbsent++
		}
	}
	sort.Slice(history, func(i, j int) bool { return history[j].Date.Before(history[i].Date) })
	if total := out.TotalPresent + out.TotalAbsent; total > 0 {
		out.AttendancePercentage = float64(int(float64(out.TotalPresent)/float64(total)*10000+0.5)) / 100
	}
	if !s.omitHistory {
		out.Attendances = history
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) attendanceHandler(w http.ResponseWriter, r *http.Request) {
	if strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/attendance"), "/") != "" {
		writeDetail(w, http.StatusNotFound, "Not Found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		var filter models.Date
		if raw := r.URL.Query().Get("date"); raw != "" {
			parsed, err := models.ParseDate(raw)
			if err != nil {
				writeDetail(w, http.StatusUnprocessableEntity, err.Error())
				return
			}
			filter = parsed
		}
		s.mu.Lock()
		out := []models.AttendanceRecord{}
		for _, rec := range s.attendance {
			if filter.IsZero() || rec.Date.Equal(filter) {
				out = append(out, rec)
			}
		}
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, out)
	case http.MethodPost:
		var in models.AttendanceInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Date.IsZero() {
			writeDetail(w, http.StatusUnprocessableEntity, "invalid attendance")
			return
		}
		if in.Status != models.StatusPresent && in.Status != models.StatusAbsent {
			writeDetail(w, http.StatusUnprocessableEntity, "invalid attendance status")
			return
		}
		s.mu.Lock()
		if s.employeeIndexLocked(in.EmployeeID) < 0 {
			s.mu.Unlock()
			writeDetail(w, http.StatusNotFound, "Employee not found")
			return
		}
		rec := s.upsertAttendanceLocked(in.EmployeeID, in.Date, in.Status)
		s.mu.Unlock()
		writeJSON(w, http.StatusCreated, rec)
	default:
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	}
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.statsPatch != nil {
		writeJSON(w, http.StatusOK, s.statsPatch)
		return
	}
	today := s.Today()
	stats := models.DashboardStats{TotalEmployees: len(s.employees)}
	for _, rec := range s.attendance {
		if !rec.Date.Equal(today) {
			continue
		}
		if rec.Status == models.StatusPresent {
			stats.PresentToday++
		} else {
			stats.AbsentToday++
		}
	}
	departments := map[string]struct{}{}
	for _, emp := range s.employees {
		departments[emp.Department] = struct{}{}
	}
	stats.TotalDepartments = len(departments)
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) notMarkedHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	today := s.Today()
	marked := map[string]struct{}{}
	for _, rec := range s.attendance {
		if rec.Date.Equal(today) {
			marked[rec.EmployeeID] = struct{}{}
		}
	}
	out := []models.Employee{}
	for _, emp := range s.employees {
		if _, ok := marked[emp.ID]; !ok {
			out = append(out, emp)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) employeeIndexLocked(id string) int {
	for i, emp := range s.employees {
		if emp.ID == id {
			return i
		}
	}
	return -1
}

func (s *Server) upsertAttendanceLocked(employeeID string, date models.Date, status models.Status) models.AttendanceRecord {
	now := models.Timestamp{Time: time.Now().UTC()}
	for i, rec := range s.attendance {
		if rec.EmployeeID == employeeID && rec.Date.Equal(date) {
			s.attendance[i].Status = status
			s.attendance[i].UpdatedAt = now
			return s.attendance[i]
		}
	}
	rec := models.AttendanceRecord{
		ID:         uuid.NewString(),
		EmployeeID: employeeID,
		Date:       date,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.attendance = append(s.attendance, rec)
	return rec
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
