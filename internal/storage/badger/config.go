package badger

import "time"

// Config contains Badger tuning parameters.
type Config struct {
	// Dir is the database directory. Required.
	Dir string

	// Collection namespaces keys inside the database.
	// Default: sessions
	Collection string

	// GCInterval is the interval between automatic value log GC runs.
	// Default: 10m
	GCInterval time.Duration

	// GCThreshold is the GC discard ratio threshold (0.0-1.0).
	// Default: 0.5
	GCThreshold float64

	// CacheSize is the block cache size in bytes.
	// Default: 64MB
	CacheSize int64

	// ValueLogFileSize is the max value log file size in bytes.
	// Default: 256MB
	ValueLogFileSize int64

	// NumMemtables is the number of memtables.
	// Default: 2
	NumMemtables int

	// SyncWrites enables fsync after each write.
	// Default: false
	SyncWrites bool
}

// DefaultConfig returns the default configuration for dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:              dir,
		Collection:       "sessions",
		GCInterval:       10 * time.Minute,
		GCThreshold:      0.5,
		CacheSize:        64 << 20,
		ValueLogFileSize: 256 << 20,
		NumMemtables:     2,
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig(c.Dir)
	if c.Collection == "" {
		c.Collection = def.Collection
	}
	if c.GCInterval <= 0 {
		c.GCInterval = def.GCInterval
	}
	if c.GCThreshold <= 0 || c.GCThreshold >= 1 {
		c.GCThreshold = def.GCThreshold
	}
	if c.CacheSize <= 0 {
		c.CacheSize = def.CacheSize
	}
	if c.ValueLogFileSize <= 0 {
		c.ValueLogFileSize = def.ValueLogFileSize
	}
	if c.NumMemtables <= 0 {
		c.NumMemtables = def.NumMemtables
	}
}
