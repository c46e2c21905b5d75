package config

import (
	"strings"

	"github.com/yndnr/sessmesh/internal/telemetry/logger"
)

// Sanitize returns a copy of cfg that is safe to print.
func Sanitize(cfg *Config) *Config {
	out := *cfg
	out.Store.URL = logger.RedactURL(out.Store.URL)
	out.Store.IDHashSecret = maskSecret(out.Store.IDHashSecret)
	out.Crypto.Secret = maskSecret(out.Crypto.Secret)
	out.Crypto.Salt = maskSecret(out.Crypto.Salt)
	return &out
}

func maskSecret(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 4:
		return "****"
	default:
		return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
	}
}
