package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/memoria/internal/client/config"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

// ConfigEnv names the variable holding the default config file path.
const ConfigEnv = config.EnvPrefix + "CONFIG"

type flags struct {
	configPath    string
	apiBase       string
	dbPath        string
	logLevel      string
	redisAddr     string
	backend       string
	maxConcurrent int
	maxAttempts   int
}

// runner carries what commands share: streams, flags and the App built by
// the root pre-run hook.
type runner struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	env    envconfig.Lookuper

	flags flags
	app   *App
}

// Execute runs the CLI with args and returns the first error. The App, when
// one was built, is closed before returning.
func Execute(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	r := &runner{in: in, out: out, errOut: errOut, env: envconfig.OsLookuper()}
	return r.execute(ctx, args)
}

func (r *runner) execute(ctx context.Context, args []string) (err error) {
	root := r.newRootCmd()
	root.SetArgs(args)
	root.SetIn(r.in)
	root.SetOut(r.out)
	root.SetErr(r.errOut)

	defer func() {
		if r.app != nil {
			err = multierr.Append(err, r.app.Close())
			r.app = nil
		}
	}()

	return root.ExecuteContext(ctx)
}

func (r *runner) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "memoria",
		Short:         "Memoria media client",
		Long:          "Command line client for uploading memorial media and browsing the Memoria API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipSetup] == "true" || cmd.Name() == "help" {
				return nil
			}
			return r.setup(cmd)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	pf := root.PersistentFlags()
	pf.StringVar(&r.flags.configPath, "config", "", "Path to a JSON or YAML config file (default $"+ConfigEnv+")")
	pf.StringVar(&r.flags.apiBase, "api-base", "", "Backend base URL")
	pf.StringVar(&r.flags.dbPath, "db", "", "Path to the local SQLite database")
	pf.StringVar(&r.flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&r.flags.redisAddr, "redis-addr", "", "Redis address for the shared response cache")
	pf.StringVar(&r.flags.backend, "backend", "", "Upload backend (api or s3)")
	pf.IntVar(&r.flags.maxConcurrent, "max-concurrent", 0, "Maximum simultaneous uploads")
	pf.IntVar(&r.flags.maxAttempts, "max-attempts", 0, "Upload attempts per file")

	root.AddCommand(
		r.newLoginCmd(),
		r.newLogoutCmd(),
		r.newStatusCmd(),
		r.newUploadCmd(),
		r.newGetCmd(),
		r.newDeleteCmd(),
		r.newCacheCmd(),
		withoutSetup(r.newVersionCmd()),
	)
	return root
}

// setup loads configuration in order defaults, file, environment, flags and
// builds the App.
func (r *runner) setup(cmd *cobra.Command) error {
	ctx := cmd.Context()

	path := r.flags.configPath
	if !cmd.Flags().Changed("config") {
		path, _ = r.env.Lookup(ConfigEnv)
	}

	cfg, err := config.Load(ctx, path, r.env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	r.applyFlags(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	app, err := NewApp(ctx, cfg, r.errOut)
	if err != nil {
		return err
	}
	r.app = app
	return nil
}

func (r *runner) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("api-base") {
		cfg.APIBase = r.flags.apiBase
	}
	if changed("db") {
		cfg.DBPath = r.flags.dbPath
	}
	if changed("log-level") {
		cfg.LogLevel = r.flags.logLevel
	}
	if changed("redis-addr") {
		cfg.RedisAddr = r.flags.redisAddr
	}
	if changed("backend") {
		cfg.UploadBackend = r.flags.backend
	}
	if changed("max-concurrent") {
		cfg.MaxConcurrentUploads = r.flags.maxConcurrent
	}
	if changed("max-attempts") {
		cfg.MaxAttempts = r.flags.maxAttempts
	}
}

// skipSetup marks commands that run without configuration or storage.
const skipSetup = "memoria/skip-setup"

func withoutSetup(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[skipSetup] = "true"
	return cmd
}

var errNoApp = errors.New("client is not initialized")

func (r *runner) requireApp() (*App, error) {
	if r.app == nil {
		return nil, errNoApp
	}
	return r.app, nil
}
