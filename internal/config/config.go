package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/phillip-england/hrms/internal/apiclient"
	"github.com/phillip-england/hrms/internal/views"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "hrms.yaml"

// Config holds the front end's settings. Values come from defaults, then the
// optional YAML file, then environment variables.
type Config struct {
	Client ClientConfig `yaml:"client"`
	API    APIConfig    `yaml:"api"`

	PageSize    int             `yaml:"page_size"`
	LogLevel    string          `yaml:"log_level"`
	Departments []string        `yaml:"departments"`
	Reconcile   ReconcileConfig `yaml:"reconcile"`
}

type ClientConfig struct {
	Addr         string `yaml:"addr"`
	ReadTimeout  string `yaml:"read_timeout"`
	WriteTimeout string `yaml:"write_timeout"`
}

type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
	Timeout string `yaml:"timeout"`
}

// ReconcileConfig names the policy ("patch" or "reload") used after each write.
type ReconcileConfig struct {
	EmployeeCreate string `yaml:"employee_create"`
	EmployeeDelete string `yaml:"employee_delete"`
	AttendanceMark string `yaml:"attendance_mark"`
}

var DefaultDepartments = []string{"HR", "Engineering", "Sales", "Marketing", "Finance", "Operations"}

func DefaultConfig() *Config {
	defaults := views.DefaultPolicies()
	return &Config{
		Client: ClientConfig{
			Addr:         ":3000",
			ReadTimeout:  "5s",
			WriteTimeout: "10s",
		},
		API: APIConfig{
			BaseURL: apiclient.DefaultBaseURL,
			Timeout: "8s",
		},
		PageSize:    views.DefaultPageSize,
		LogLevel:    "info",
		Departments: append([]string(nil), DefaultDepartments...),
		Reconcile: ReconcileConfig{
			EmployeeCreate: defaults.EmployeeCreate.String(),
			EmployeeDelete: defaults.EmployeeDelete.String(),
			AttendanceMark: defaults.AttendanceMark.String(),
		},
	}
}

// Load reads path over the defaults and applies environment overrides. A
// missing file leaves the defaults in place.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if addr := envValue("CLIENT_ADDR"); addr != "" {
		c.Client.Addr = addr
	}
	if url := envValue("API_BASE_URL"); url != "" {
		c.API.BaseURL = url
	}
	if token := envValue("API_TOKEN"); token != "" {
		c.API.Token = token
	}
	if level := envValue("LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
	if raw := envValue("PAGE_SIZE"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid PAGE_SIZE %q: %w", raw, err)
		}
		c.PageSize = size
	}
	return nil
}

func (c *Config) Validate() error {
	if c.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive, got %d", c.PageSize)
	}
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if _, err := c.Policies(); err != nil {
		return err
	}
	if len(c.DepartmentOptions()) == 0 {
		return fmt.Errorf("at least one department is required")
	}
	return nil
}

// Policies resolves the reconcile section. Empty entries keep the default.
func (c *Config) Policies() (views.Policies, error) {
	out := views.DefaultPolicies()
	for _, entry := range []struct {
		name   string
		raw    string
		target *views.Policy
	}{
		{"employee_create", c.Reconcile.EmployeeCreate, &out.EmployeeCreate},
		{"employee_delete", c.Reconcile.EmployeeDelete, &out.EmployeeDelete},
		{"attendance_mark", c.Reconcile.AttendanceMark, &out.AttendanceMark},
	} {
		if strings.TrimSpace(entry.raw) == "" {
			continue
		}
		p, err := views.ParsePolicy(entry.raw)
		if err != nil {
			return views.Policies{}, fmt.Errorf("reconcile.%s: %w", entry.name, err)
		}
		*entry.target = p
	}
	return out, nil
}

// DepartmentOptions returns the configured departments trimmed and deduplicated.
func (c *Config) DepartmentOptions() []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(c.Departments))
	for _, value := range c.Departments {
		department := strings.TrimSpace(value)
		if department == "" {
			continue
		}
		key := strings.ToLower(department)
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, department)
	}
	return out
}

func (c *Config) APIClientConfig() apiclient.Config {
	return apiclient.Config{
		BaseURL: c.API.BaseURL,
		Token:   c.API.Token,
		Timeout: parseDuration(c.API.Timeout, 8*time.Second),
	}
}

func (c *Config) ReadTimeout() time.Duration {
	return parseDuration(c.Client.ReadTimeout, 5*time.Second)
}

func (c *Config) WriteTimeout() time.Duration {
	return parseDuration(c.Client.WriteTimeout, 10*time.Second)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func envValue(name string) string {
	return strings.TrimSpace(os.Getenv(name))
}
