package logger

import (
	"log/slog"
	"net/url"
	"strings"
)

// sensitiveKeys are matched as substrings of lower-cased attribute keys.
var sensitiveKeys = []string{
	"password",
	"secret",
	"token",
	"key",
	"cookie",
	"ciphertext",
	"credential",
}

const redactedValue = "***REDACTED***"

func redact(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redact(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	case slog.KindString:
		v := a.Value.String()
		if v == "" {
			return a
		}
		if IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
		if strings.Contains(v, "://") {
			return slog.String(a.Key, RedactURL(v))
		}
	}
	return a
}

// IsSensitiveKey reports whether an attribute key names sensitive data.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, p := range sensitiveKeys {
		if strings.Contains(k, p) {
			return true
		}
	}
	return false
}

// RedactURL hides the password of a connection URL, as in
// mongodb://app:***@db:27017/sessions. Other strings are returned as is.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); !ok {
		return raw
	}
	u.User = url.UserPassword(u.User.Username(), "***")
	return strings.Replace(u.String(), "%2A%2A%2A", "***", 1)
}
