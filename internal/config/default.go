package config

import (
	"time"

	"github.com/yndnr/sessmesh/internal/core/expiry"
	"github.com/yndnr/sessmesh/internal/telemetry/logger"
)

// Default configuration values.
const (
	DefaultCollection     = "sessions"
	DefaultTTL            = int64(expiry.DefaultTTL / time.Second)
	DefaultEvictionMode   = string(expiry.ModeNative)
	DefaultSweepInterval  = expiry.DefaultSweepMinutes
	DefaultConnectTimeout = 30 * time.Second

	DefaultMetricsAddr = "127.0.0.1:9464"
	DefaultMetricsPath = "/metrics"
)

// Default returns the default configuration. Store.URL has no default.
func Default() *Config {
	return &Config{
		Store: StoreSection{
			Collection:     DefaultCollection,
			TTL:            DefaultTTL,
			Stringify:      true,
			ConnectTimeout: DefaultConnectTimeout,
		},
		Eviction: EvictionSection{
			Mode:          DefaultEvictionMode,
			SweepInterval: DefaultSweepInterval,
		},
		Log: logger.DefaultConfig(),
		Metrics: MetricsSection{
			Addr: DefaultMetricsAddr,
			Path: DefaultMetricsPath,
		},
	}
}
