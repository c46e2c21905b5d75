package buildinfo

import (
	"runtime"
	"runtime/debug"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()

	if info.Version == "" {
		t.Error("Version should not be empty")
	}
	if info.Commit == "" {
		t.Error("Commit should not be empty")
	}
	if info.BuildTime == "" {
		t.Error("BuildTime should not be empty")
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
}

func TestFromVCS(t *testing.T) {
	settings := []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef"},
		{Key: "vcs.time", Value: "2026-03-01T12:00:00Z"},
		{Key: "vcs.modified", Value: "true"},
	}

	got := fromVCS(Info{Version: "v1.0.0"}, settings)
	if got.Commit != "0123456789abcdef" || got.BuildTime != "2026-03-01T12:00:00Z" || !got.Modified {
		t.Errorf("fromVCS() = %+v", got)
	}

	pinned := fromVCS(Info{Commit: "ldflags"}, settings)
	if pinned.Commit != "ldflags" {
		t.Errorf("Commit = %q, ldflags value should win", pinned.Commit)
	}
}

func TestInfo_String(t *testing.T) {
	s := Info{Version: "v1.2.3", Commit: "0123456789abcdef", BuildTime: "now", GoVersion: "go1.24", Modified: true}.String()
	for _, want := range []string{"v1.2.3", "0123456789ab+dirty", "go1.24"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
}
