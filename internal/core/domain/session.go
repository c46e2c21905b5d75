// Package domain defines the core domain models for sessmesh.
package domain

import (
	"encoding/json"
	"time"
)

// Reserved session keys.
const (
	// CookieKey holds the cookie metadata attached by the session middleware.
	CookieKey = "cookie"

	// LastModifiedKey holds the last touch time when touch throttling is enabled.
	// It is bookkeeping metadata and is never persisted inside the payload.
	LastModifiedKey = "lastModified"
)

// Session is the application-visible session object.
//
// Values are arbitrary JSON-compatible data. The "cookie" entry, when
// present, may be a *Cookie, a Cookie, or a plain map.
type Session map[string]any

// Clone returns a shallow copy of the session.
func (s Session) Clone() Session {
	if s == nil {
		return nil
	}
	out := make(Session, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// CookieExpires returns the explicit cookie expiry carried by the session.
func (s Session) CookieExpires() (time.Time, bool) {
	if s == nil {
		return time.Time{}, false
	}
	switch c := s[CookieKey].(type) {
	case *Cookie:
		if c != nil && c.Expires != nil {
			return *c.Expires, true
		}
	case Cookie:
		if c.Expires != nil {
			return *c.Expires, true
		}
	case map[string]any:
		return parseTime(c["expires"])
	}
	return time.Time{}, false
}

// LastModified returns the last touch time merged into the session on read.
func (s Session) LastModified() (time.Time, bool) {
	if s == nil {
		return time.Time{}, false
	}
	return parseTime(s[LastModifiedKey])
}

// parseTime accepts the time representations produced by the supported
// backends: native time values, RFC 3339 strings and epoch milliseconds.
func parseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t != nil && !t.IsZero() {
			return *t, true
		}
	case string:
		if t == "" {
			return time.Time{}, false
		}
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	case float64:
		if t > 0 {
			return time.UnixMilli(int64(t)), true
		}
	case int64:
		if t > 0 {
			return time.UnixMilli(t), true
		}
	}
	return time.Time{}, false
}

// Cookie mirrors the cookie metadata a session middleware attaches to a session.
type Cookie struct {
	// OriginalMaxAge is the configured max age in milliseconds (nil for browser-session cookies).
	OriginalMaxAge *int64     `json:"originalMaxAge"`
	Expires        *time.Time `json:"expires,omitempty"`
	Secure         bool       `json:"secure,omitempty"`
	HTTPOnly       bool       `json:"httpOnly"`
	Domain         string     `json:"domain,omitempty"`
	Path           string     `json:"path"`
	SameSite       string     `json:"sameSite,omitempty"`
}

// NewCookie creates a cookie that expires after maxAge.
func NewCookie(maxAge time.Duration, now time.Time) *Cookie {
	ms := maxAge.Milliseconds()
	expires := now.Add(maxAge).UTC()
	return &Cookie{
		OriginalMaxAge: &ms,
		Expires:        &expires,
		HTTPOnly:       true,
		Path:           "/",
	}
}

// Plain converts the cookie into plain data, so stored cookies never carry
// live objects.
func (c *Cookie) Plain() map[string]any {
	if c == nil {
		return nil
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
