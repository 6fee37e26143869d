package clientapp

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/phillip-england/hrms/internal/apiclient"
	"github.com/phillip-england/hrms/internal/config"
	"github.com/phillip-england/hrms/internal/middleware"
	"github.com/phillip-england/hrms/internal/views"
	"go.uber.org/zap"
)

type Config struct {
	Addr         string
	API          apiclient.Config
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PageSize     int
	Departments  []string
	Policies     views.Policies

	Logger *zap.Logger
	// Clock decides which day counts as today. Defaults to time.Now.
	Clock func() time.Time
	// HTTPClient overrides the client used for API calls.
	HTTPClient *http.Client
}

//go:embed templates/layout.html templates/dashboard.html templates/employees.html templates/employee.html templates/attendance.html assets/app.css assets/app.js
var templatesFS embed.FS

type server struct {
	api         *apiclient.Client
	logger      *zap.Logger
	clock       func() time.Time
	pageSize    int
	departments []string
	policies    views.Policies
	markLocks   *views.RowLocks

	dashboardTmpl  *template.Template
	employeesTmpl  *template.Template
	employeeTmpl   *template.Template
	attendanceTmpl *template.Template
}

// ConfigFrom maps the loaded settings onto the web front end.
func ConfigFrom(cfg *config.Config, logger *zap.Logger) (Config, error) {
	policies, err := cfg.Policies()
	if err != nil {
		return Config{}, err
	}
	return Config{
		Addr:         cfg.Client.Addr,
		API:          cfg.APIClientConfig(),
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
		PageSize:     cfg.PageSize,
		Departments:  cfg.DepartmentOptions(),
		Policies:     policies,
		Logger:       logger,
	}, nil
}

func parsePage(name string) *template.Template {
	return template.Must(template.New("layout.html").Funcs(templateFuncs).ParseFS(templatesFS, "templates/layout.html", "templates/"+name))
}

var templateFuncs = template.FuncMap{
	"percent": func(v float64) string {
		return strconv.FormatFloat(v, 'f', 2, 64) + "%"
	},
}

// NewHandler builds the full web front end. Run wraps it in an http.Server.
func NewHandler(cfg Config) http.Handler {
	return newServer(cfg).routes()
}

func newServer(cfg Config) *server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = views.DefaultPageSize
	}
	departments := cfg.Departments
	if len(departments) == 0 {
		departments = config.DefaultDepartments
	}
	opts := []apiclient.Option{apiclient.WithLogger(logger.Named("api"))}
	if cfg.HTTPClient != nil {
		opts = append(opts, apiclient.WithHTTPClient(cfg.HTTPClient))
	}

	return &server{
		api:            apiclient.New(cfg.API, opts...),
		logger:         logger,
		clock:          clock,
		pageSize:       pageSize,
		departments:    departments,
		policies:       cfg.Policies,
		markLocks:      views.NewRowLocks(),
		dashboardTmpl:  parsePage("dashboard.html"),
		employeesTmpl:  parsePage("employees.html"),
		employeeTmpl:   parsePage("employee.html"),
		attendanceTmpl: parsePage("attendance.html"),
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", http.HandlerFunc(s.dashboardPage))
	mux.Handle("/employees", http.HandlerFunc(s.employeesRoute))
	mux.Handle("/employees/import", http.HandlerFunc(s.importEmployees))
	mux.Handle("/employees/export.xlsx", http.HandlerFunc(s.exportEmployees))
	mux.Handle("/employees/", http.HandlerFunc(s.employeeRoutes))
	mux.Handle("/attendance", http.HandlerFunc(s.attendancePage))
	mux.Handle("/attendance/mark", http.HandlerFunc(s.markAttendance))
	mux.Handle("/attendance/export.xlsx", http.HandlerFunc(s.exportAttendance))
	mux.Handle("/attendance/archive", http.HandlerFunc(s.downloadArchive))
	mux.Handle("/assets/app.css", http.HandlerFunc(s.assetFile("assets/app.css", "text/css; charset=utf-8")))
	mux.Handle("/assets/app.js", http.HandlerFunc(s.assetFile("assets/app.js", "text/javascript; charset=utf-8")))
	mux.Handle("/healthz", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}))

	csp := strings.Join([]string{
		"default-src 'self'",
		"style-src 'self'",
		"img-src 'self' data:",
		"script-src 'self'",
		"connect-src 'self'",
		"frame-ancestors 'none'",
	}, "; ")

	return middleware.Chain(
		mux,
		middleware.RequestLogger(s.logger.Named("http")),
		middleware.SecurityHeaders(middleware.SecurityHeadersConfig{ContentSecurityPolicy: csp}),
	)
}

func Run(ctx context.Context, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(cfg),
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("client listening", zap.String("addr", cfg.Addr), zap.String("api", cfg.API.BaseURL))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *server) viewOptions() []views.Option {
	return []views.Option{
		views.WithClock(s.clock),
		views.WithLogger(s.logger),
		views.WithPolicies(s.policies),
		views.WithRowLocks(s.markLocks),
	}
}

func (s *server) assetFile(name, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		data, err := templatesFS.ReadFile(name)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "private, max-age=300")
		_, _ = w.Write(data)
	}
}

func (s *server) render(w http.ResponseWriter, status int, tmpl *template.Template, data pageData) {
	if err := renderHTMLTemplate(w, status, tmpl, data); err != nil {
		http.Error(w, "template render failed", http.StatusInternalServerError)
		s.logger.Error("template render failed", zap.String("page", data.Active), zap.Error(err))
	}
}

func renderHTMLTemplate(w http.ResponseWriter, status int, tmpl *template.Template, data pageData) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// userMessage turns an API or transport failure into the text shown to the user.
func userMessage(err error) string {
	var apiErr *apiclient.Error
	switch {
	case errors.Is(err, apiclient.ErrUnauthorized):
		return "The HRMS API rejected the request as unauthorized. Set API_TOKEN to a valid token."
	case errors.As(err, &apiErr):
		return apiErr.Error()
	case errors.Is(err, apiclient.ErrTransport):
		return "Network error: unable to reach the HRMS API"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "The request was cancelled"
	default:
		return err.Error()
	}
}

// redirectWith sends a PRG redirect carrying message or errMsg in the query.
func redirectWith(w http.ResponseWriter, r *http.Request, path string, query url.Values, message, errMsg string) {
	if query == nil {
		query = url.Values{}
	}
	if message != "" {
		query.Set("message", message)
	}
	if errMsg != "" {
		query.Set("error", errMsg)
	}
	target := path
	if encoded := query.Encode(); encoded != "" {
		target += "?" + encoded
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func parsePositiveInt(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
