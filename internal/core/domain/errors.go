package domain

import (
	"errors"
	"strconv"
	"strings"
)

// Code identifies a failure class. Codes have the form SM-<AREA>-<NNNN>,
// where the first three digits of NNNN follow HTTP status semantics.
type Code string

// Area returns the middle segment of the code, such as "SESS".
func (c Code) Area() string {
	parts := strings.Split(string(c), "-")
	if len(parts) != 3 {
		return ""
	}
	return parts[1]
}

// Status returns the HTTP status class carried by the code, or 500 when
// the code is malformed.
func (c Code) Status() int {
	s := string(c)
	i := strings.LastIndexByte(s, '-')
	if i < 0 || len(s)-i-1 != 4 {
		return 500
	}
	n, err := strconv.Atoi(s[i+1 : i+4])
	if err != nil || n < 100 || n > 599 {
		return 500
	}
	return n
}

// Temporary reports whether retrying the operation later may succeed.
func (c Code) Temporary() bool {
	return c.Status() >= 500
}

// DomainError is an error with a stable code. Sentinels are compared by
// code, so a sentinel refined with WithDetails or WithCause still matches
// it under errors.Is.
type DomainError struct {
	Code    Code
	Message string
	Details string
	Cause   error
}

// NewDomainError returns a sentinel for code.
func NewDomainError(code Code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

func (e *DomainError) Error() string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(string(e.Code))
	b.WriteString("] ")
	b.WriteString(e.Message)
	for _, part := range []string{e.Details, causeText(e.Cause)} {
		if part != "" {
			b.WriteString(": ")
			b.WriteString(part)
		}
	}
	return b.String()
}

func causeText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (e *DomainError) Unwrap() error { return e.Cause }

// Is matches any *DomainError with the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// WithDetails returns a copy carrying details.
func (e *DomainError) WithDetails(details string) *DomainError {
	c := *e
	c.Details = details
	return &c
}

// WithCause returns a copy wrapping cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	c := *e
	c.Cause = cause
	return &c
}

// CodeOf returns the code of the first DomainError in err's chain, or ""
// when there is none.
func CodeOf(err error) Code {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ExitCode maps err to a process exit status: 0 for nil, 2 for
// configuration errors, 3 for missing sessions, 4 for temporary failures
// and 1 otherwise.
func ExitCode(err error) int {
	switch code := CodeOf(err); {
	case err == nil:
		return 0
	case code == ErrInvalidConfig.Code:
		return 2
	case code == ErrSessionNotFound.Code:
		return 3
	case code != "" && code.Temporary():
		return 4
	default:
		return 1
	}
}

var (
	// ErrInvalidConfig is returned synchronously when a store is built with
	// a missing connection source, conflicting options or values out of range.
	ErrInvalidConfig = NewDomainError("SM-CONF-4000", "invalid configuration")

	// ErrNotConnected is returned by every operation once the connection
	// attempt failed or the store was closed.
	ErrNotConnected = NewDomainError("SM-CONN-5030", "not connected")

	// ErrSessionNotFound is returned by Touch when no record matches the id.
	ErrSessionNotFound = NewDomainError("SM-SESS-4040", "unable to find the session to touch")

	// ErrTransform is a serialize or unserialize failure.
	ErrTransform = NewDomainError("SM-XFRM-4220", "session transform failed")

	// ErrCrypto is an encrypt or decrypt failure, such as a wrong key or a
	// tampered payload.
	ErrCrypto = NewDomainError("SM-CRYP-4010", "session crypto failed")

	// ErrStorage is a failure of the underlying collection.
	ErrStorage = NewDomainError("SM-STOR-5001", "storage error")

	// ErrInternal is an unexpected failure, such as a recovered panic.
	ErrInternal = NewDomainError("SM-SYS-5000", "internal error")
)
