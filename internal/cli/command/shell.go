package command

import (
	"bufio"
	"context"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/sessmesh/internal/cli/repl"
	"github.com/yndnr/sessmesh/pkg/sessionstore"
)

// ShellCommand returns the shell command.
func ShellCommand() *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "Run commands interactively against one open store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "history-file",
				Usage:   "File that keeps shell history between runs",
				EnvVars: []string{"SESSMESH_HISTORY_FILE"},
			},
		},
		Action: shell,
	}
}

// shellCommands are the commands available inside the shell.
func shellCommands() []*cli.Command {
	return []*cli.Command{
		CountCommand(),
		ListCommand(),
		GetCommand(),
		SetCommand(),
		TouchCommand(),
		DestroyCommand(),
		ClearCommand(),
		SweepCommand(),
	}
}

// shell keeps one engine open, so the configured eviction runs for as long
// as the shell does and memory:// stores keep their contents between
// commands.
func shell(c *cli.Context) error {
	cfg, err := loadConfig(c, nil)
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
	defer engine.Close(context.Background())

	ctx, cancel := context.WithTimeout(c.Context, ParseGlobalFlags(c).Timeout)
	err = engine.Ready(ctx)
	cancel()
	if err != nil {
		return err
	}

	// The REPL and clear's confirmation prompt share one buffered reader.
	input := bufio.NewReader(c.App.Reader)
	sub := shellApp(c, engine, input)

	var names []string
	for _, cmd := range sub.Commands {
		names = append(names, cmd.Name)
	}

	r := repl.New(repl.Config{
		Input:       input,
		Output:      c.App.Writer,
		Prompt:      "sessmesh> ",
		Commands:    names,
		HistoryFile: c.String("history-file"),
		Exec: func(ctx context.Context, args []string) error {
			return sub.RunContext(ctx, append([]string{"sessmesh"}, args...))
		},
	})
	return r.Run(c.Context)
}

// shellApp builds the application that runs each shell line. It inherits
// the output format and timeout of the outer invocation.
func shellApp(c *cli.Context, engine *sessionstore.Engine, input *bufio.Reader) *cli.App {
	flags := ParseGlobalFlags(c)
	return &cli.App{
		Name:            "sessmesh",
		HideVersion:     true,
		HideHelpCommand: true,
		Commands:        shellCommands(),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: flags.Output},
			&cli.DurationFlag{Name: "timeout", Value: flags.Timeout},
		},
		Metadata:       map[string]any{engineKey: engine},
		Reader:         input,
		Writer:         c.App.Writer,
		ErrWriter:      c.App.ErrWriter,
		ExitErrHandler: func(*cli.Context, error) {},
	}
}
