package config

import (
	"time"

	"github.com/yndnr/sessmesh/internal/infra/tlsroots"
	"github.com/yndnr/sessmesh/internal/telemetry/logger"
)

// Config is the root configuration.
type Config struct {
	Store    StoreSection     `koanf:"store"`
	Eviction EvictionSection  `koanf:"eviction"`
	Crypto   CryptoSection    `koanf:"crypto"`
	TLS      tlsroots.Options `koanf:"tls"`
	Log      logger.Config    `koanf:"log"`
	Metrics  MetricsSection   `koanf:"metrics"`
}

// StoreSection selects the backend and session handling.
type StoreSection struct {
	// URL selects the backend by scheme: mongodb, mongodb+srv, redis,
	// rediss, badger or memory.
	URL string `koanf:"url"`

	Database   string `koanf:"database"`
	Collection string `koanf:"collection"`

	// TTL is the fallback session lifetime in seconds.
	TTL int64 `koanf:"ttl"`

	// TouchAfter is the touch throttle in seconds. 0 disables it.
	TouchAfter int64 `koanf:"touch_after"`

	// Stringify stores sessions as JSON text instead of documents.
	Stringify bool `koanf:"stringify"`

	ConnectTimeout time.Duration `koanf:"connect_timeout"`

	// IDPrefix namespaces storage ids.
	IDPrefix string `koanf:"id_prefix"`

	// IDHashSecret, when set, stores sessions under an HMAC of their id.
	IDHashSecret string `koanf:"id_hash_secret"`

	Write WriteSection `koanf:"write"`
}

// WriteSection is passed through to backend writes.
type WriteSection struct {
	Majority bool          `koanf:"majority"`
	W        int           `koanf:"w"`
	Journal  bool          `koanf:"journal"`
	Timeout  time.Duration `koanf:"timeout"`
}

// EvictionSection selects how expired sessions are removed.
type EvictionSection struct {
	// Mode is native, interval or disabled.
	Mode string `koanf:"mode"`

	// SweepInterval is the interval-mode period in minutes.
	SweepInterval int64 `koanf:"sweep_interval"`
}

// CryptoSection enables payload encryption when Secret is set.
type CryptoSection struct {
	Secret    string `koanf:"secret"`
	Algorithm string `koanf:"algorithm"`
	Encoding  string `koanf:"encoding"`
	KDF       string `koanf:"kdf"`
	Salt      string `koanf:"salt"`
}

// MetricsSection configures the metrics endpoint of long-running commands.
type MetricsSection struct {
	Addr string `koanf:"addr"`
	Path string `koanf:"path"`
}
