package repl

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

type recorder struct {
	calls [][]string
	err   error
}

func (r *recorder) exec(_ context.Context, args []string) error {
	r.calls = append(r.calls, args)
	return r.err
}

func newTestREPL(input string, rec *recorder) (*REPL, *bytes.Buffer) {
	out := &bytes.Buffer{}
	r := New(Config{
		Input:    strings.NewReader(input),
		Output:   out,
		Prompt:   "sessmesh> ",
		Commands: []string{"get", "list"},
		Exec:     rec.exec,
	})
	return r, out
}

func TestREPL_Run_Exit(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"exit command", "exit\n"},
		{"quit command", "quit\n"},
		{"EOF", ""},
		{"exit without newline", "exit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			r, _ := newTestREPL(tt.input, rec)

			if err := r.Run(context.Background()); err != nil {
				t.Errorf("Run() returned error: %v", err)
			}
			if len(rec.calls) != 0 {
				t.Errorf("executor called %d times, want 0", len(rec.calls))
			}
		})
	}
}

func TestREPL_Run_Executes(t *testing.T) {
	rec := &recorder{}
	r, out := newTestREPL("\n  \nget abc\nset s1 '{\"a\": 1}'\nexit\n", rec)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	want := [][]string{{"get", "abc"}, {"set", "s1", `{"a": 1}`}}
	if !reflect.DeepEqual(rec.calls, want) {
		t.Errorf("calls = %q, want %q", rec.calls, want)
	}
	if got := strings.Count(out.String(), "sessmesh> "); got != 5 {
		t.Errorf("prompt printed %d times, want 5", got)
	}
}

func TestREPL_Run_ErrorsDoNotStop(t *testing.T) {
	rec := &recorder{err: errors.New("boom")}
	r, out := newTestREPL("get a\nget b\n", rec)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(rec.calls) != 2 {
		t.Errorf("executor called %d times, want 2", len(rec.calls))
	}
	if strings.Count(out.String(), "Error: boom") != 2 {
		t.Errorf("output = %q", out.String())
	}
}

func TestREPL_Run_Builtins(t *testing.T) {
	rec := &recorder{}
	r, out := newTestREPL("help\nget x\nhistory\n", rec)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	s := out.String()
	for _, want := range []string{"Commands:", "  get\n", "  list\n", "  quit\n", "   1  help\n", "   2  get x\n", "   3  history\n"} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q:\n%s", want, s)
		}
	}
	if len(rec.calls) != 1 {
		t.Errorf("executor called %d times, want 1", len(rec.calls))
	}
}

func TestREPL_Run_CancelledContext(t *testing.T) {
	rec := &recorder{}
	r, _ := newTestREPL("get a\n", rec)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Run(ctx); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(rec.calls) != 0 {
		t.Error("no command should run after cancellation")
	}
}

func TestREPL_Run_NoExecutor(t *testing.T) {
	out := &bytes.Buffer{}
	r := New(Config{Input: strings.NewReader("get a\n"), Output: out})

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !strings.Contains(out.String(), `Error: unknown command "get"`) {
		t.Errorf("output = %q", out.String())
	}
	if !strings.HasPrefix(out.String(), "> ") {
		t.Errorf("default prompt missing: %q", out.String())
	}
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		line    string
		want    []string
		wantErr bool
	}{
		{"get abc", []string{"get", "abc"}, false},
		{"  get   abc  ", []string{"get", "abc"}, false},
		{`set s1 '{"user": "ada"}'`, []string{"set", "s1", `{"user": "ada"}`}, false},
		{`set s1 "{\"user\": \"ada\"}"`, []string{"set", "s1", `{"user": "ada"}`}, false},
		{`get a\ b`, []string{"get", "a b"}, false},
		{`get ''`, []string{"get", ""}, false},
		{"\tlist\t", []string{"list"}, false},
		{`set s1 '{"a":1}`, nil, true},
		{`get a\`, nil, true},
		{"   ", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := SplitArgs(tt.line)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SplitArgs(%q) error = %v, wantErr %v", tt.line, err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitArgs(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}
