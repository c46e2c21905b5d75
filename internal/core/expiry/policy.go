package expiry

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/yndnr/sessmesh/internal/core/domain"
)

// Mode selects the eviction mechanism.
type Mode string

const (
	ModeNative   Mode = "native"
	ModeInterval Mode = "interval"
	ModeDisabled Mode = "disabled"
)

const (
	// DefaultTTL is the fallback lifetime of a session without a cookie expiry.
	DefaultTTL = 14 * 24 * time.Hour

	// DefaultSweepMinutes is the default interval-mode sweep period.
	DefaultSweepMinutes int64 = 10

	// MaxSweepMinutes keeps the sweep period representable as a time.Duration.
	MaxSweepMinutes = math.MaxInt64 / int64(time.Minute)
)

// ParseMode parses an eviction mode name. Empty selects native.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeNative, nil
	case ModeNative, ModeInterval, ModeDisabled:
		return m, nil
	default:
		return "", domain.ErrInvalidConfig.WithDetails(fmt.Sprintf("unknown eviction mode %q", s))
	}
}

// Policy computes expiry for written records.
type Policy struct {
	Mode Mode

	// TTL is added to the current time when the session carries no cookie expiry.
	TTL time.Duration

	// SweepInterval is the interval-mode sweep period.
	SweepInterval time.Duration
}

// NewPolicy validates and builds a policy. ttlSeconds <= 0 selects
// DefaultTTL and sweepMinutes == 0 selects DefaultSweepMinutes.
func NewPolicy(mode Mode, ttlSeconds, sweepMinutes int64) (Policy, error) {
	if mode == "" {
		mode = ModeNative
	}
	if _, err := ParseMode(string(mode)); err != nil {
		return Policy{}, err
	}

	ttl := DefaultTTL
	if ttlSeconds > 0 {
		if ttlSeconds > math.MaxInt64/int64(time.Second) {
			return Policy{}, domain.ErrInvalidConfig.WithDetails(fmt.Sprintf("ttl %ds out of range", ttlSeconds))
		}
		ttl = time.Duration(ttlSeconds) * time.Second
	}

	if sweepMinutes == 0 {
		sweepMinutes = DefaultSweepMinutes
	}
	if sweepMinutes < 1 || sweepMinutes > MaxSweepMinutes {
		return Policy{}, domain.ErrInvalidConfig.WithDetails(
			fmt.Sprintf("sweep interval must be between 1 and %d minutes, got %d", MaxSweepMinutes, sweepMinutes))
	}

	return Policy{
		Mode:          mode,
		TTL:           ttl,
		SweepInterval: time.Duration(sweepMinutes) * time.Minute,
	}, nil
}

// ExpiresAt returns the expiry to store for s: the cookie expiry when the
// session carries one, otherwise now plus the TTL.
func (p Policy) ExpiresAt(s domain.Session, now time.Time) time.Time {
	if exp, ok := s.CookieExpires(); ok {
		return exp.UTC()
	}
	ttl := p.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return now.Add(ttl).UTC()
}
