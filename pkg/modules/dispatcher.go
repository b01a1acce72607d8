package modules

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/ceres/pkg/config"
	"github.com/openfroyo/ceres/pkg/engine"
	"github.com/openfroyo/ceres/pkg/telemetry"
)

// ConfigLoader loads the configuration file at path.
type ConfigLoader func(path string) (*config.Config, error)

// Options configures a Dispatcher.
type Options struct {
	// Version is reported by --version and attached to traces.
	Version string

	// LoadConfig loads the configuration file. Defaults to config.Load.
	LoadConfig ConfigLoader

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Dispatcher routes an invocation to the registered module it names.
type Dispatcher struct {
	root *cobra.Command
	opts Options

	configPath string
	profile    string
	verbose    bool

	runConfig engine.RunConfig
	config    *config.Config
	configErr error
	telemetry *telemetry.Telemetry
}

// NewDispatcher builds the command tree of root and the registered modules.
// The registry is fixed for the lifetime of the dispatcher.
func NewDispatcher(root *cobra.Command, registry []Module, opts Options) *Dispatcher {
	if opts.LoadConfig == nil {
		opts.LoadConfig = config.Load
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	d := &Dispatcher{root: root, opts: opts}

	root.Args = cobra.ArbitraryArgs
	root.SilenceErrors = true
	root.SilenceUsage = true
	root.CompletionOptions.DisableDefaultCmd = true
	if root.Version == "" {
		root.Version = opts.Version
	}
	root.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return engine.NewError(engine.KindNoCommandSpecified, "")
		}
		return engine.NewError(engine.KindNoSuchCommand, args[0])
	}
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return d.prepare(cmd)
	}
	root.SetFlagErrorFunc(d.flagError)

	root.PersistentFlags().StringVarP(&d.configPath, "config", "c", "", "config file path (default ~/.ceres.conf)")
	root.PersistentFlags().StringVarP(&d.profile, "profile", "p", engine.DefaultProfile, "profile to use")
	root.PersistentFlags().BoolVarP(&d.verbose, "verbose", "v", false, "enable verbose output")

	for _, m := range registry {
		root.AddCommand(d.build(m, nil))
	}

	root.SetIn(opts.Stdin)
	root.SetOut(opts.Stdout)
	root.SetErr(opts.Stderr)

	return d
}

// Execute parses args and calls the module they name.
func (d *Dispatcher) Execute(ctx context.Context, args []string) error {
	d.root.SetArgs(args)
	err := d.root.ExecuteContext(ctx)

	if d.telemetry != nil {
		if err != nil {
			if kind, ok := engine.KindOf(err); ok {
				d.telemetry.Metrics.RecordError(string(kind))
			}
		}
		if shutdownErr := d.telemetry.Shutdown(context.Background()); shutdownErr != nil {
			d.telemetry.Logger.WithError(shutdownErr).Warn("Failed to flush telemetry")
		}
	}
	return err
}

// build turns m into a cobra command. path holds the names of the enclosing modules.
func (d *Dispatcher) build(m Module, path []string) *cobra.Command {
	cmd := m.Command()
	path = append(append([]string(nil), path...), cmd.Name())

	if p, ok := m.(Parent); ok {
		cmd.Args = cobra.ArbitraryArgs
		for _, sub := range p.Subcommands() {
			cmd.AddCommand(d.build(sub, path))
		}
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return d.call(cmd, m, path, args)
	}
	return cmd
}

// flagError reports a flag error on a command with nested modules as an unknown
// command when a positional argument came before the bad flag. That argument
// matched no nested module.
func (d *Dispatcher) flagError(cmd *cobra.Command, err error) error {
	args := cmd.Flags().Args()
	if !cmd.HasSubCommands() || len(args) == 0 {
		return err
	}

	err = engine.NewError(engine.KindNoSuchCommand, args[0])
	for c := cmd; c != nil && c != d.root; c = c.Parent() {
		err = engine.ModuleFailed(c.Name(), err)
	}
	return err
}

// prepare loads the configuration and sets up telemetry once per invocation.
func (d *Dispatcher) prepare(cmd *cobra.Command) error {
	d.runConfig = engine.NewRunConfig(d.profile)
	if d.verbose {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	}

	path := d.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	d.config, d.configErr = d.opts.LoadConfig(path)

	tel, err := telemetry.NewTelemetry(d.telemetryConfig(), d.opts.Stderr)
	if err != nil {
		return err
	}
	d.telemetry = tel

	logger := tel.Logger.WithRunID(d.runConfig.InvocationID)
	if d.configErr != nil {
		logger.WithError(d.configErr).Debug("Configuration not loaded")
	}

	ctx := tel.WithContext(cmd.Context())
	cmd.SetContext(logger.WithContext(ctx))
	return nil
}

func (d *Dispatcher) telemetryConfig() *telemetry.Config {
	cfg := telemetry.DefaultConfig()
	cfg.ServiceVersion = d.opts.Version

	switch level := os.Getenv("LOG_LEVEL"); level {
	case "trace", "debug", "info", "warn", "error":
		cfg.Logging.Level = level
	}

	if d.config != nil {
		if d.config.Logging.Level != "" {
			cfg.Logging.Level = d.config.Logging.Level
		}
		if d.config.Logging.Format != "" {
			cfg.Logging.Format = d.config.Logging.Format
		}

		tracing := d.config.Telemetry.Tracing
		if tracing.Enabled {
			cfg.Tracing.Enabled = true
			cfg.Tracing.Exporter = tracing.Exporter
			if cfg.Tracing.Exporter == "" {
				cfg.Tracing.Exporter = "stdout"
			}
			cfg.Tracing.Endpoint = tracing.Endpoint
			cfg.Tracing.Insecure = tracing.Insecure
			if tracing.SamplingRate > 0 {
				cfg.Tracing.SamplingRate = tracing.SamplingRate
			}
		}

		if textfile := d.config.Telemetry.Metrics.Textfile; textfile != "" {
			cfg.Metrics.Enabled = true
			cfg.Metrics.Textfile = textfile
		}
	}

	if d.verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg
}

// call runs one module and wraps its error once per module level.
func (d *Dispatcher) call(cmd *cobra.Command, m Module, path []string, args []string) error {
	name := path[len(path)-1]
	ctx, span := d.telemetry.Tracer.StartModuleSpan(cmd.Context(), name, d.runConfig.InvocationID)
	defer span.End()

	logger := telemetry.FromContext(ctx).WithModule(name)
	if traceID := telemetry.TraceID(ctx); traceID != "" {
		logger = logger.WithField("trace_id", traceID)
	}
	ctx = logger.WithContext(ctx)

	inv := &Invocation{
		Args:      args,
		Command:   cmd,
		RunConfig: d.runConfig,
		Stdin:     d.opts.Stdin,
		Stdout:    d.opts.Stdout,
		Stderr:    d.opts.Stderr,
		config:    d.config,
		configErr: d.configErr,
	}

	logger.Debug("Calling module")
	start := time.Now()
	err := m.Call(ctx, inv)

	status := "success"
	if err != nil {
		status = "failure"
		if kind, ok := engine.KindOf(err); ok {
			span.SetAttributes(telemetry.AttrErrorKind.String(string(kind)))
		}
		telemetry.RecordError(span, err)
	} else {
		telemetry.RecordSuccess(span)
	}
	d.telemetry.Metrics.RecordModuleCall(name, status, time.Since(start))

	if err != nil {
		for i := len(path) - 1; i >= 0; i-- {
			err = engine.ModuleFailed(path[i], err)
		}
		return err
	}
	return nil
}
