package hrmscli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/phillip-england/hrms/internal/apiclient"
	"github.com/phillip-england/hrms/internal/clientapp"
	"github.com/phillip-england/hrms/internal/config"
	"github.com/phillip-england/hrms/internal/envutil"
	"github.com/phillip-england/hrms/internal/logging"
	"github.com/phillip-england/hrms/internal/views"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type app struct {
	out    io.Writer
	errOut io.Writer
	clock  func() time.Time

	configPath string
	envFile    string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

type Option func(*app)

func WithOutput(out, errOut io.Writer) Option {
	return func(a *app) {
		a.out = out
		a.errOut = errOut
	}
}

// WithClock fixes the day the attendance commands treat as today.
func WithClock(clock func() time.Time) Option {
	return func(a *app) { a.clock = clock }
}

func Execute(ctx context.Context, args []string, opts ...Option) error {
	root := NewRootCommand(opts...)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func NewRootCommand(opts ...Option) *cobra.Command {
	a := &app{out: os.Stdout, errOut: os.Stderr, clock: time.Now}
	for _, opt := range opts {
		opt(a)
	}

	root := &cobra.Command{
		Use:               "hrms",
		Short:             "HRMS Lite web front end and command line client",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.prepare,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", config.DefaultPath, "path to hrms.yaml")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "path to .env file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		a.setupCommand(),
		a.configCommand(),
		a.serveCommand(),
		a.employeesCommand(),
		a.attendanceCommand(),
		a.dashboardCommand(),
		a.archiveCommand(),
	)
	return root
}

func (a *app) prepare(cmd *cobra.Command, args []string) error {
	if err := envutil.LoadDotEnv(a.envFile); err != nil {
		return err
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel, a.verbose)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	a.logger.Debug("config loaded", zap.String("path", a.configPath), zap.String("api", cfg.API.BaseURL))
	return nil
}

func (a *app) api() *apiclient.Client {
	return apiclient.New(a.cfg.APIClientConfig(), apiclient.WithLogger(a.logger.Named("api")))
}

func (a *app) viewOptions() ([]views.Option, error) {
	policies, err := a.cfg.Policies()
	if err != nil {
		return nil, err
	}
	return []views.Option{
		views.WithClock(a.clock),
		views.WithLogger(a.logger),
		views.WithPolicies(policies),
	}, nil
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *app) setupCommand() *cobra.Command {
	var (
		clientAddr string
		baseURL    string
		token      string
		force      bool
	)
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Write a .env file with the client address and API settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := url.Parse(strings.TrimSpace(baseURL))
			if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
				return fmt.Errorf("invalid --api-base-url %q", baseURL)
			}
			values := map[string]string{
				"CLIENT_ADDR":  clientAddr,
				"API_BASE_URL": strings.TrimRight(parsed.String(), "/"),
			}
			if strings.TrimSpace(token) != "" {
				values["API_TOKEN"] = strings.TrimSpace(token)
			}
			if err := envutil.WriteDotEnv(a.envFile, values, force); err != nil {
				return err
			}
			a.printf("wrote %s\n", a.envFile)
			return nil
		},
	}
	cmd.Flags().StringVar(&clientAddr, "client-addr", ":3000", "address the web front end listens on")
	cmd.Flags().StringVar(&baseURL, "api-base-url", apiclient.DefaultBaseURL, "HRMS API base URL")
	cmd.Flags().StringVar(&token, "api-token", "", "bearer token sent to the API")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing env file")
	return cmd
}

func (a *app) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create hrms.yaml",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				if _, err := os.Stat(a.configPath); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", a.configPath)
				}
			}
			if err := config.DefaultConfig().Save(a.configPath); err != nil {
				return err
			}
			a.printf("wrote %s\n", a.configPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration after env overrides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			effective := *a.cfg
			if effective.API.Token != "" {
				effective.API.Token = "********"
			}
			data, err := yaml.Marshal(&effective)
			if err != nil {
				return err
			}
			_, err = a.out.Write(data)
			return err
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}

func (a *app) serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"run"},
		Short:   "Run the web front end",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := clientapp.ConfigFrom(a.cfg, a.logger)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			cfg.Clock = a.clock

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			if err := clientapp.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides client.addr")
	return cmd
}
