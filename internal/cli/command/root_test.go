package command

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"
)

// runApp runs the CLI with args and returns what it printed.
func runApp(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	return runAppContext(context.Background(), t, stdin, args...)
}

func runAppContext(ctx context.Context, t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	app := App()
	var out, errOut bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &errOut
	app.Reader = strings.NewReader(stdin)
	app.ExitErrHandler = func(*cli.Context, error) {}

	err = app.RunContext(ctx, append([]string{"sessmesh-cli"}, args...))
	return out.String(), errOut.String(), err
}

func TestApp_Structure(t *testing.T) {
	app := App()

	if app.Name != "sessmesh-cli" {
		t.Errorf("Name = %q, want sessmesh-cli", app.Name)
	}
	if app.Version == "" {
		t.Error("Version should be set")
	}

	names := make(map[string]bool)
	for _, cmd := range app.Commands {
		names[cmd.Name] = true
	}
	for _, want := range []string{"count", "list", "get", "set", "touch", "destroy", "clear", "sweep", "shell", "watch", "version"} {
		if !names[want] {
			t.Errorf("missing command: %s", want)
		}
	}

	flags := make(map[string]bool)
	for _, f := range app.Flags {
		flags[f.Names()[0]] = true
	}
	for _, want := range []string{"config", "url", "collection", "output", "log-level", "timeout"} {
		if !flags[want] {
			t.Errorf("missing global flag: --%s", want)
		}
	}
}

func TestGlobalFlags_Overrides(t *testing.T) {
	f := &GlobalFlags{URL: "memory://", Collection: "web", LogLevel: "debug"}

	got := f.overrides(map[string]any{"eviction.mode": "interval", "store.collection": "other"})

	want := map[string]any{
		"store.url":        "memory://",
		"store.collection": "other",
		"log.level":        "debug",
		"eviction.mode":    "interval",
	}
	if len(got) != len(want) {
		t.Fatalf("overrides = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("overrides[%q] = %v, want %v", k, got[k], v)
		}
	}

	if empty := (&GlobalFlags{}).overrides(nil); len(empty) != 0 {
		t.Errorf("overrides of unset flags = %v, want empty", empty)
	}
}

func TestApp_RejectsUnknownOutput(t *testing.T) {
	_, _, err := runApp(t, "", "--url", "memory://", "--output", "table", "count")
	if err == nil || !strings.Contains(err.Error(), "unknown output format") {
		t.Fatalf("err = %v, want unknown output format", err)
	}
}

func TestApp_RequiresURL(t *testing.T) {
	_, _, err := runApp(t, "", "count")
	if err == nil || !strings.Contains(err.Error(), "store.url is required") {
		t.Fatalf("err = %v, want store.url error", err)
	}
}

func TestApp_ConfigFile(t *testing.T) {
	path := t.TempDir() + "/sessmesh.yaml"
	if err := writeFile(path, "store:\n  url: memory://\n"); err != nil {
		t.Fatal(err)
	}

	out, _, err := runApp(t, "", "--config", path, "count")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if !strings.Contains(out, `"count": 0`) {
		t.Errorf("count output = %q", out)
	}
}

func TestVersionCommand(t *testing.T) {
	out, _, err := runApp(t, "", "--output", "yaml", "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "version:") || !strings.Contains(out, "go_version:") {
		t.Errorf("version output = %q", out)
	}
}

func TestTruncateID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"short", "short"},
		{"exactly-16-chars", "exactly-16-chars"},
		{"0123456789abcdefXYZ", "0123456789abc..."},
	}
	for _, tt := range tests {
		if got := truncateID(tt.in); got != tt.want {
			t.Errorf("truncateID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
