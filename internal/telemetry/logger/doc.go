// Package logger builds the structured slog loggers used by sessmesh.
//
// Loggers write JSON (default) or text, share one process-wide level that
// can be changed at runtime with SetLevel, and redact sensitive attributes:
// values of keys that look like secrets, session cookies or ciphertext,
// and passwords embedded in connection URLs.
package logger
