// Package cli implements the linkgraph command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/linkgraph/internal/logging"
	"github.com/mesh-intelligence/linkgraph/internal/metrics"
	"github.com/mesh-intelligence/linkgraph/internal/paths"
	"github.com/mesh-intelligence/linkgraph/internal/telemetry"
	"github.com/mesh-intelligence/linkgraph/pkg/linkgraph"
	"github.com/mesh-intelligence/linkgraph/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
	exitViolation = 3
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	backend   string
	dsn       string
	logLevel  string
	jsonMode  bool
	trace     bool
}

// app is the state shared by the commands of one invocation.
type app struct {
	flags   rootFlags
	config  *viper.Viper
	logger  *zap.Logger
	metrics *metrics.Registry

	// stopTracing flushes the stdout exporter when --trace is set.
	stopTracing func(context.Context) error
}

// NewRootCmd creates the top-level "linkgraph" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "linkgraph",
		Short: "Typed objects connected by mirrored, capacity-checked links",
		Long: "linkgraph manages runtime-defined classes, their objects, and typed\n" +
			"bidirectional links between them, and answers reachability queries.",
		Version:           linkgraph.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown(cmd.Context())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory for the sqlite backend")
	pf.StringVar(&a.flags.backend, "backend", "", "storage backend: sqlite or postgres")
	pf.StringVar(&a.flags.dsn, "dsn", "", "postgres connection string")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	pf.BoolVar(&a.flags.trace, "trace", false, "print OpenTelemetry spans to stderr")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newClassCmd(a),
		newObjectCmd(a),
		newLinkTypeCmd(a),
		newLinkCmd(a),
		newReachCmd(a),
		newCheckCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newWatchCmd(a),
	)
	return root
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	root := NewRootCmd()
	err := root.ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return exitCode(err)
}

// exitCode maps a command error onto the documented exit codes.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, types.ErrInvariantViolation):
		return exitViolation
	case types.IsUserError(err), isUsageError(err):
		return exitUserError
	default:
		return exitSysError
	}
}

// usageError marks argument problems detected by the CLI itself.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

func isUsageError(err error) bool {
	var ue *usageError
	return errors.As(err, &ue)
}

// setup loads configuration and builds the logger and tracer. It runs
// before every subcommand.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	a.config, err = loadConfig(configDir, cmd.Flags())
	if err != nil {
		return err
	}

	a.logger, err = logging.New(logging.Options{
		Level:  a.config.GetString(cfgKeyLogLevel),
		Format: a.config.GetString(cfgKeyLogFormat),
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return usagef("configure logging: %s", err)
	}
	a.metrics = metrics.NewRegistry()

	if a.flags.trace {
		a.stopTracing, err = telemetry.Setup(cmd.ErrOrStderr())
		if err != nil {
			return fmt.Errorf("configure tracing: %w", err)
		}
	}
	return nil
}

func (a *app) teardown(ctx context.Context) error {
	_ = a.logger.Sync()
	if a.stopTracing != nil {
		return a.stopTracing(ctx)
	}
	return nil
}

// storeConfig turns the merged configuration into a types.Config.
func (a *app) storeConfig() (types.Config, error) {
	cfg := types.Config{
		Backend: a.config.GetString(cfgKeyBackend),
		DSN:     a.config.GetString(cfgKeyDSN),
	}
	if cfg.Backend == types.BackendSQLite {
		dataDir, err := paths.ResolveDataDir(a.flags.dataDir, a.config.GetString(cfgKeyDataDir))
		if err != nil {
			return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
		}
		cfg.DataDir = dataDir
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, usagef("invalid configuration: %s", err)
	}
	return cfg, nil
}

// withStore attaches a store, runs fn and detaches.
func (a *app) withStore(fn func(s types.Store) error) (err error) {
	cfg, err := a.storeConfig()
	if err != nil {
		return err
	}
	s := linkgraph.NewStore(linkgraph.WithLogger(a.logger), linkgraph.WithMetrics(a.metrics))
	if err := s.Attach(cfg); err != nil {
		return fmt.Errorf("attach store: %w", err)
	}
	defer func() {
		if derr := s.Detach(); derr != nil && err == nil {
			err = fmt.Errorf("detach store: %w", derr)
		}
	}()
	return fn(s)
}

// scope returns the --scope flag of cmd, falling back to the configured
// default scope.
func (a *app) scope(cmd *cobra.Command) string {
	if f := cmd.Flags().Lookup("scope"); f != nil && f.Changed {
		return f.Value.String()
	}
	return a.config.GetString(cfgKeyScope)
}

// render writes v as indented JSON in --json mode and calls text otherwise.
func (a *app) render(cmd *cobra.Command, v any, text func(w io.Writer) error) error {
	if a.flags.jsonMode {
		return writeJSON(cmd.OutOrStdout(), v)
	}
	return text(cmd.OutOrStdout())
}
