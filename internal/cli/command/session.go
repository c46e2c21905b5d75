package command

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/sessmesh/pkg/sessionstore"
)

// timeNow is replaced in tests.
var timeNow = time.Now

type countResult struct {
	Count int64 `json:"count" yaml:"count"`
}

type sweepResult struct {
	Deleted int64 `json:"deleted" yaml:"deleted"`
}

// CountCommand returns the count command.
func CountCommand() *cli.Command {
	return &cli.Command{
		Name:    "count",
		Aliases: []string{"length"},
		Usage:   "Print the number of stored sessions, including expired ones not yet evicted",
		Action:  sessionCount,
	}
}

func sessionCount(c *cli.Context) error {
	return withStore(c, func(ctx context.Context, e *sessionstore.Engine) (any, error) {
		n, err := e.Length(ctx)
		if err != nil {
			return nil, err
		}
		return countResult{Count: n}, nil
	})
}

// ListCommand returns the list command.
func ListCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "Print every unexpired session",
		Action:  sessionList,
	}
}

func sessionList(c *cli.Context) error {
	return withStore(c, func(ctx context.Context, e *sessionstore.Engine) (any, error) {
		return e.All(ctx)
	})
}

// GetCommand returns the get command.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Print one session",
		ArgsUsage: "SESSION_ID",
		Action:    sessionGet,
	}
}

func sessionGet(c *cli.Context) error {
	id, err := requireArg(c, "session ID")
	if err != nil {
		return err
	}
	return withStore(c, func(ctx context.Context, e *sessionstore.Engine) (any, error) {
		s, err := e.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if s == nil {
			return nil, sessionstore.ErrSessionNotFound.WithDetails(id)
		}
		return s, nil
	})
}

// SetCommand returns the set command.
func SetCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Store a session given as a JSON object, replacing any previous one",
		ArgsUsage: "SESSION_ID [JSON|-]",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:    "max-age",
				Aliases: []string{"m"},
				Usage:   "Attach a cookie expiring after this duration (e.g., 24h)",
			},
		},
		Action: sessionSet,
	}
}

func sessionSet(c *cli.Context) error {
	id, err := requireArg(c, "session ID")
	if err != nil {
		return err
	}

	raw := c.Args().Get(1)
	if raw == "" || raw == "-" {
		data, err := io.ReadAll(c.App.Reader)
		if err != nil {
			return fmt.Errorf("read session: %w", err)
		}
		raw = string(data)
	}

	var s sessionstore.Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return fmt.Errorf("session must be a JSON object: %w", err)
	}
	if s == nil {
		s = sessionstore.Session{}
	}

	return withStore(c, func(ctx context.Context, e *sessionstore.Engine) (any, error) {
		if maxAge := c.Duration("max-age"); maxAge > 0 {
			s[sessionstore.CookieKey] = sessionstore.NewCookie(maxAge, timeNow()).Plain()
		}
		if err := e.Set(ctx, id, s); err != nil {
			return nil, err
		}
		fmt.Fprintf(c.App.Writer, "Session %s stored.\n", truncateID(id))
		return nil, nil
	})
}

// TouchCommand returns the touch command.
func TouchCommand() *cli.Command {
	return &cli.Command{
		Name:      "touch",
		Usage:     "Extend the expiry of a session without rewriting it",
		ArgsUsage: "SESSION_ID",
		Action:    sessionTouch,
	}
}

func sessionTouch(c *cli.Context) error {
	id, err := requireArg(c, "session ID")
	if err != nil {
		return err
	}
	return withStore(c, func(ctx context.Context, e *sessionstore.Engine) (any, error) {
		s, err := e.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if s == nil {
			return nil, sessionstore.ErrSessionNotFound.WithDetails(id)
		}
		if err := e.Touch(ctx, id, s); err != nil {
			return nil, err
		}
		fmt.Fprintf(c.App.Writer, "Session %s touched.\n", truncateID(id))
		return nil, nil
	})
}

// DestroyCommand returns the destroy command.
func DestroyCommand() *cli.Command {
	return &cli.Command{
		Name:      "destroy",
		Aliases:   []string{"rm"},
		Usage:     "Remove sessions",
		ArgsUsage: "SESSION_ID [SESSION_ID...]",
		Action:    sessionDestroy,
	}
}

func sessionDestroy(c *cli.Context) error {
	ids := c.Args().Slice()
	if len(ids) == 0 {
		return fmt.Errorf("session ID required")
	}
	return withStore(c, func(ctx context.Context, e *sessionstore.Engine) (any, error) {
		for _, id := range ids {
			if err := e.Destroy(ctx, id); err != nil {
				return nil, err
			}
			fmt.Fprintf(c.App.Writer, "Session %s destroyed.\n", truncateID(id))
		}
		return nil, nil
	})
}

// ClearCommand returns the clear command.
func ClearCommand() *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Remove every session",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "Skip confirmation",
			},
		},
		Action: sessionClear,
	}
}

func sessionClear(c *cli.Context) error {
	if !c.Bool("force") {
		fmt.Fprint(c.App.Writer, "This removes every session in the store. Continue? [y/N]: ")
		line, _ := bufio.NewReader(c.App.Reader).ReadString('\n')
		if answer := strings.TrimSpace(line); answer != "y" && answer != "Y" {
			fmt.Fprintln(c.App.Writer, "Cancelled.")
			return nil
		}
	}
	return withStore(c, func(ctx context.Context, e *sessionstore.Engine) (any, error) {
		if err := e.Clear(ctx); err != nil {
			return nil, err
		}
		fmt.Fprintln(c.App.Writer, "All sessions cleared.")
		return nil, nil
	})
}

// SweepCommand returns the sweep command.
func SweepCommand() *cli.Command {
	return &cli.Command{
		Name:   "sweep",
		Usage:  "Remove expired sessions once",
		Action: sessionSweep,
	}
}

func sessionSweep(c *cli.Context) error {
	return withStore(c, func(ctx context.Context, e *sessionstore.Engine) (any, error) {
		n, err := e.Sweep(ctx)
		if err != nil {
			return nil, err
		}
		return sweepResult{Deleted: n}, nil
	})
}
