package command

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/metasnap/internal/cli/output"
	"github.com/yndnr/metasnap/internal/config"
	"github.com/yndnr/metasnap/internal/core/service"
	"github.com/yndnr/metasnap/internal/infra/buildinfo"
	"github.com/yndnr/metasnap/internal/metadata"
	"github.com/yndnr/metasnap/internal/storage"
	"github.com/yndnr/metasnap/internal/storage/snapshot"
	"github.com/yndnr/metasnap/internal/telemetry/logger"
	"github.com/yndnr/metasnap/internal/telemetry/metric"
)

const runtimeKey = "runtime"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "metasnap",
		Usage:   "Inspect and manage persistent metadata snapshots",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			InspectCommand(),
			VerifyCommand(),
			RewriteCommand(),
			StatusCommand(),
			RestoreCommand(),
			RecordCommand(),
			InvalidateCommand(),
			RegistryCommand(),
			WatchCommand(),
			ConfigCommand(),
			VersionCommand(),
		},
		Before: setup,
		After:  teardown,
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Configuration file (yaml)",
			EnvVars: []string{"METASNAP_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Enable debug logging",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:  "engine",
			Usage: "Registry storage engine: badger, sqlite, memory",
		},
		&cli.StringFlag{
			Name:  "registry-dir",
			Usage: "Registry storage directory",
		},
		&cli.StringFlag{
			Name:  "snapshot-dir",
			Usage: "Directory for snapshot files",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Config  string
	Output  string
	Wide    bool
	Verbose bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Config:  c.String("config"),
		Output:  c.String("output"),
		Wide:    c.Bool("wide"),
		Verbose: c.Bool("verbose"),
	}
}

// overrides maps explicitly set global flags to configuration keys.
func overrides(c *cli.Context) map[string]any {
	keys := map[string]string{
		"log-level":    "log.level",
		"engine":       "storage.engine",
		"registry-dir": "storage.dir",
		"snapshot-dir": "snapshot.dir",
	}
	out := make(map[string]any)
	for flagName, key := range keys {
		if c.IsSet(flagName) {
			out[key] = c.String(flagName)
		}
	}
	if c.Bool("verbose") {
		out["log.level"] = "debug"
	}
	return out
}

// runtime holds the state shared by the commands of one invocation.
type runtime struct {
	cfg     *config.Config
	log     logger.Logger
	metrics *metric.Registry
	store   *snapshot.Store
	out     output.Formatter
	stdout  io.Writer
	stderr  io.Writer
}

func setup(c *cli.Context) error {
	flags := ParseGlobalFlags(c)

	format, err := output.ParseFormat(flags.Output)
	if err != nil {
		return err
	}

	cfg, err := config.Load(flags.Config, overrides(c))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	stderr := c.App.ErrWriter
	if stderr == nil {
		stderr = os.Stderr
	}
	stdout := c.App.Writer
	if stdout == nil {
		stdout = os.Stdout
	}

	logCfg := cfg.Log.LoggerConfig()
	logCfg.Output = stderr
	log, err := logger.New(logCfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)
	c.Context = logger.WithLogger(c.Context, log)

	metrics := metric.NewRegistry()
	codec := metadata.NewCodec()
	rt := &runtime{
		cfg:     cfg,
		log:     log,
		metrics: metrics,
		store: snapshot.NewStore(snapshot.NewCodec(codec, codec),
			snapshot.WithLogger(log),
			snapshot.WithMetrics(metrics)),
		out:    output.NewFormatter(format, flags.Wide),
		stdout: stdout,
		stderr: stderr,
	}

	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}
	c.App.Metadata[runtimeKey] = rt
	return nil
}

func teardown(c *cli.Context) error {
	rt, ok := c.App.Metadata[runtimeKey].(*runtime)
	if !ok || rt.cfg.Metrics.Textfile == "" {
		return nil
	}
	if err := rt.metrics.WriteTextfile(rt.cfg.Metrics.Textfile); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// getRuntime retrieves the invocation state created by setup.
func getRuntime(c *cli.Context) (*runtime, error) {
	if rt, ok := c.App.Metadata[runtimeKey].(*runtime); ok {
		return rt, nil
	}
	return nil, fmt.Errorf("command: not initialized")
}

// print renders data on standard output in the selected format.
func (rt *runtime) print(data any) error {
	return rt.out.Format(rt.stdout, data)
}

// openRegistry opens the configured storage engine and wraps it in a
// registry. The caller closes the registry.
func (rt *runtime) openRegistry() (*storage.Registry, error) {
	kv, err := storage.OpenEngine(rt.cfg.Storage, rt.log)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}
	if be, ok := kv.(*storage.BadgerEngine); ok {
		if err := be.RegisterMetrics(rt.metrics.Registerer()); err != nil {
			rt.log.Warn("badger metrics unavailable", "error", err)
		}
	}
	return storage.NewRegistry(kv, storage.WithRegistryMetrics(rt.metrics)), nil
}

// openService opens the registry and builds the snapshot service over it.
func (rt *runtime) openService() (*service.SnapshotService, *storage.Registry, error) {
	reg, err := rt.openRegistry()
	if err != nil {
		return nil, nil, err
	}
	svc := service.NewSnapshotService(rt.store, reg, rt.cfg.Snapshot.Dir,
		service.WithServiceLogger(rt.log))
	return svc, reg, nil
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
