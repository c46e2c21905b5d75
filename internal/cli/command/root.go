package command

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/sessmesh/internal/cli/output"
	"github.com/yndnr/sessmesh/internal/config"
	"github.com/yndnr/sessmesh/internal/infra/buildinfo"
	"github.com/yndnr/sessmesh/internal/telemetry/logger"
	"github.com/yndnr/sessmesh/pkg/sessionstore"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "sessmesh-cli",
		Usage:   "Inspect and maintain a sessmesh session store",
		Version: buildinfo.Get().String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			CountCommand(),
			ListCommand(),
			GetCommand(),
			SetCommand(),
			TouchCommand(),
			DestroyCommand(),
			ClearCommand(),
			SweepCommand(),
			ShellCommand(),
			WatchCommand(),
			VersionCommand(),
		},
		Before: func(c *cli.Context) error {
			_, err := output.ParseFormat(c.String("output"))
			return err
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to a YAML configuration file",
			EnvVars: []string{"SESSMESH_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "url",
			Aliases: []string{"u"},
			Usage:   "Store URL (e.g., mongodb://localhost:27017/app, redis://localhost:6379/0, badger:///var/lib/sessmesh)",
		},
		&cli.StringFlag{
			Name:  "collection",
			Usage: "Collection name",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: json, yaml",
			Value:   "json",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Deadline for connecting and running a command",
			Value: defaultTimeout,
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Config     string
	URL        string
	Collection string
	Output     string
	LogLevel   string
	Timeout    time.Duration
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Config:     c.String("config"),
		URL:        c.String("url"),
		Collection: c.String("collection"),
		Output:     c.String("output"),
		LogLevel:   c.String("log-level"),
		Timeout:    c.Duration("timeout"),
	}
}

// overrides returns the configuration values set by flags, merged with
// extra. Values in extra win.
func (f *GlobalFlags) overrides(extra map[string]any) map[string]any {
	out := make(map[string]any)
	if f.URL != "" {
		out["store.url"] = f.URL
	}
	if f.Collection != "" {
		out["store.collection"] = f.Collection
	}
	if f.LogLevel != "" {
		out["log.level"] = f.LogLevel
	}
	maps.Copy(out, extra)
	return out
}

func loadConfig(c *cli.Context, extra map[string]any) (*config.Config, error) {
	flags := ParseGlobalFlags(c)
	return config.Load(flags.Config, flags.overrides(extra))
}

// newLogger builds the command logger. Logs go to the app's error writer
// so they never mix with command output.
func newLogger(c *cli.Context, cfg *config.Config) (*slog.Logger, error) {
	lc := cfg.Log
	lc.Output = c.App.ErrWriter
	return logger.New(lc)
}

// engineKey holds the engine shared by commands run from the shell.
const engineKey = "engine"

const defaultTimeout = 30 * time.Second

// withStore opens the configured store, runs fn and prints its result.
// One-shot commands never install eviction. Inside the shell fn runs
// against the shell's open engine.
func withStore(c *cli.Context, fn func(ctx context.Context, e *sessionstore.Engine) (any, error)) (err error) {
	if engine, ok := c.App.Metadata[engineKey].(*sessionstore.Engine); ok {
		return runWith(c, engine, fn)
	}

	cfg, err := loadConfig(c, map[string]any{"eviction.mode": string(sessionstore.EvictionDisabled)})
	if err != nil {
		return err
	}
	log, err := newLogger(c, cfg)
	if err != nil {
		return err
	}
	opts, err := cfg.StoreOptions(log)
	if err != nil {
		return err
	}

	engine, err := sessionstore.New(opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := engine.Close(context.Background()); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return runWith(c, engine, fn)
}

func runWith(c *cli.Context, engine *sessionstore.Engine, fn func(ctx context.Context, e *sessionstore.Engine) (any, error)) error {
	timeout := c.Duration("timeout")
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(c.Context, timeout)
	defer cancel()

	result, err := fn(ctx, engine)
	if err != nil || result == nil {
		return err
	}
	return printResult(c, result)
}

func printResult(c *cli.Context, data any) error {
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return err
	}
	return output.NewFormatter(format).Format(c.App.Writer, data)
}

func requireArg(c *cli.Context, name string) (string, error) {
	v := c.Args().First()
	if v == "" {
		return "", fmt.Errorf("%s required", name)
	}
	return v, nil
}

// truncateID truncates long IDs for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:13] + "..."
}
