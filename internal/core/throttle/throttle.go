// Package throttle decides whether a session touch needs to be written.
package throttle

import (
	"fmt"
	"math"
	"time"

	"github.com/yndnr/sessmesh/internal/core/domain"
)

// Throttle suppresses touches that arrive within Interval of the last one.
// The zero value is disabled: every touch writes.
type Throttle struct {
	interval time.Duration
}

// New creates a throttle from an interval in seconds. Zero disables it.
func New(seconds int64) (Throttle, error) {
	if seconds < 0 || seconds > math.MaxInt64/int64(time.Second) {
		return Throttle{}, domain.ErrInvalidConfig.WithDetails(fmt.Sprintf("touch interval %ds out of range", seconds))
	}
	return Throttle{interval: time.Duration(seconds) * time.Second}, nil
}

// Enabled reports whether touches are throttled, and therefore whether
// lastModified bookkeeping is kept on records.
func (t Throttle) Enabled() bool {
	return t.interval > 0
}

// Interval returns the minimum time between written touches.
func (t Throttle) Interval() time.Duration {
	return t.interval
}

// ShouldWrite reports whether a touch at now must be written, given the
// session's last known touch time.
func (t Throttle) ShouldWrite(s domain.Session, now time.Time) bool {
	if !t.Enabled() {
		return true
	}
	last, ok := s.LastModified()
	if !ok {
		return true
	}
	return now.Sub(last) >= t.interval
}

// Strip returns a copy of s without the lastModified bookkeeping key.
// s itself is never modified.
func Strip(s domain.Session) domain.Session {
	if _, ok := s[domain.LastModifiedKey]; !ok {
		return s
	}
	out := s.Clone()
	delete(out, domain.LastModifiedKey)
	return out
}

// Merge layers the record's lastModified onto a freshly read session.
func Merge(s domain.Session, lastModified *time.Time) domain.Session {
	if s == nil || lastModified == nil {
		return s
	}
	s[domain.LastModifiedKey] = *lastModified
	return s
}
