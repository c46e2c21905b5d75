package logger

import (
	"log/slog"
	"testing"
)

func TestRedact(t *testing.T) {
	tests := []struct {
		name string
		attr slog.Attr
		want string
	}{
		{"secret key", slog.String("crypto_secret", "hunter2"), redactedValue},
		{"cookie", slog.String("Cookie", "connect.sid=s%3Aabc"), redactedValue},
		{"ciphertext", slog.String("ciphertext", "q83v..."), redactedValue},
		{"empty sensitive value", slog.String("password", ""), ""},
		{"plain value", slog.String("collection", "sessions"), "sessions"},
		{"url with password", slog.String("url", "mongodb://app:pw@db:27017/sessions"), "mongodb://app:***@db:27017/sessions"},
		{"url without password", slog.String("url", "redis://cache:6379/0"), "redis://cache:6379/0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := redact(tt.attr)
			if got.Value.String() != tt.want {
				t.Errorf("redact(%v) = %q, want %q", tt.attr, got.Value.String(), tt.want)
			}
		})
	}
}

func TestRedact_Group(t *testing.T) {
	group := slog.Group("crypto", slog.String("secret", "s"), slog.String("algorithm", "aes-256-gcm"))
	got := redact(group).Value.Group()

	if got[0].Value.String() != redactedValue {
		t.Errorf("crypto.secret = %q, want redacted", got[0].Value.String())
	}
	if got[1].Value.String() != "aes-256-gcm" {
		t.Errorf("crypto.algorithm = %q", got[1].Value.String())
	}
}

func TestRedact_NonString(t *testing.T) {
	a := slog.Int("max_key_size", 32)
	if got := redact(a); got.Value.Int64() != 32 {
		t.Errorf("non-string values must pass through, got %v", got)
	}
}

func TestIsSensitiveKey(t *testing.T) {
	for _, k := range []string{"password", "API_KEY", "sessionCookie", "token"} {
		if !IsSensitiveKey(k) {
			t.Errorf("IsSensitiveKey(%q) = false", k)
		}
	}
	for _, k := range []string{"collection", "eviction", "ttl"} {
		if IsSensitiveKey(k) {
			t.Errorf("IsSensitiveKey(%q) = true", k)
		}
	}
}

func TestRedactURL(t *testing.T) {
	if got := RedactURL("not a url"); got != "not a url" {
		t.Errorf("RedactURL() = %q", got)
	}
	if got := RedactURL("rediss://:pw@cache:6380"); got != "rediss://:***@cache:6380" {
		t.Errorf("RedactURL() = %q", got)
	}
}
