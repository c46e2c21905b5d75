package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/yndnr/sessmesh/internal/core/expiry"
	"github.com/yndnr/sessmesh/internal/telemetry/logger"
	"github.com/yndnr/sessmesh/pkg/crypto/adaptive"
)

// Verify validates the configuration and returns every problem found.
func Verify(cfg *Config) error {
	return errors.Join(
		verifyStore(&cfg.Store),
		verifyEviction(&cfg.Eviction),
		verifyCrypto(&cfg.Crypto),
		verifyLog(&cfg.Log),
		verifyMetrics(&cfg.Metrics),
	)
}

func verifyStore(s *StoreSection) error {
	var errs []error
	if s.URL == "" {
		errs = append(errs, errors.New("store.url is required"))
	} else if u, err := url.Parse(s.URL); err != nil {
		errs = append(errs, fmt.Errorf("store.url: %w", err))
	} else {
		switch strings.ToLower(u.Scheme) {
		case "mongodb", "mongodb+srv", "redis", "rediss", "badger", "memory":
		default:
			errs = append(errs, fmt.Errorf("store.url: unsupported scheme %q", u.Scheme))
		}
	}
	if s.TTL < 0 {
		errs = append(errs, errors.New("store.ttl must not be negative"))
	}
	if s.TouchAfter < 0 {
		errs = append(errs, errors.New("store.touch_after must not be negative"))
	}
	if s.ConnectTimeout < 0 {
		errs = append(errs, errors.New("store.connect_timeout must not be negative"))
	}
	if s.Write.W < 0 {
		errs = append(errs, errors.New("store.write.w must not be negative"))
	}
	return errors.Join(errs...)
}

func verifyEviction(e *EvictionSection) error {
	mode, err := expiry.ParseMode(e.Mode)
	if err != nil {
		return fmt.Errorf("eviction.mode: %w", err)
	}
	if e.SweepInterval < 1 || e.SweepInterval > expiry.MaxSweepMinutes {
		return fmt.Errorf("eviction.sweep_interval must be between 1 and %d minutes", expiry.MaxSweepMinutes)
	}
	e.Mode = string(mode)
	return nil
}

func verifyCrypto(c *CryptoSection) error {
	if c.Secret == "" {
		if c.Algorithm != "" || c.Encoding != "" || c.KDF != "" {
			return errors.New("crypto.secret is required when other crypto options are set")
		}
		return nil
	}
	switch adaptive.CipherType(c.Algorithm) {
	case "", adaptive.CipherAESGCM, adaptive.CipherChaCha20:
	default:
		return fmt.Errorf("crypto.algorithm: unknown cipher %q", c.Algorithm)
	}
	switch adaptive.Encoding(c.Encoding) {
	case "", adaptive.EncodingBase64, adaptive.EncodingBase64URL, adaptive.EncodingHex:
	default:
		return fmt.Errorf("crypto.encoding: unknown encoding %q", c.Encoding)
	}
	switch adaptive.KDF(c.KDF) {
	case "", adaptive.KDFPBKDF2, adaptive.KDFArgon2:
	default:
		return fmt.Errorf("crypto.kdf: unknown kdf %q", c.KDF)
	}
	return nil
}

func verifyLog(l *logger.Config) error {
	if _, err := logger.ParseLevel(l.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch strings.ToLower(l.Format) {
	case "", "json", "text", "console":
		return nil
	default:
		return fmt.Errorf("log.format: unknown format %q", l.Format)
	}
}

func verifyMetrics(m *MetricsSection) error {
	if m.Path != "" && !strings.HasPrefix(m.Path, "/") {
		return errors.New("metrics.path must start with /")
	}
	return nil
}
