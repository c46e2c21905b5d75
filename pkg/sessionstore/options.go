package sessionstore

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/yndnr/sessmesh/internal/core/domain"
	"github.com/yndnr/sessmesh/internal/core/expiry"
	"github.com/yndnr/sessmesh/internal/core/throttle"
	"github.com/yndnr/sessmesh/internal/core/transform"
	"github.com/yndnr/sessmesh/pkg/crypto/adaptive"
)

// Options configures an Engine. Exactly one connection source (URL,
// Client, ClientFunc or Collection) must be set.
type Options struct {
	// URL selects the backend by scheme: mongodb://, mongodb+srv://,
	// redis://, rediss://, badger:///path or memory://.
	URL string

	// Client is a pre-built MongoDB client.
	Client *mongo.Client

	// ClientFunc produces a MongoDB client when the engine connects.
	ClientFunc func(ctx context.Context) (*mongo.Client, error)

	// Collection is an existing collection handle.
	Collection Collection

	// CollectionName is the target collection. Default: sessions.
	CollectionName string

	// DatabaseName is the target database. Default: the connection's default.
	DatabaseName string

	// TLS overrides the TLS settings of URL connections.
	TLS *tls.Config

	// TTL is the session lifetime in seconds used when a session carries
	// no cookie expiry. Default: 14 days.
	TTL int64

	// Eviction selects how expired records are removed. Default: native.
	Eviction EvictionMode

	// SweepInterval is the interval-mode sweep period in minutes. Default: 10.
	SweepInterval int64

	// TouchAfter is the minimum number of seconds between written touches.
	// Zero disables throttling.
	TouchAfter int64

	// Stringify stores sessions as JSON text. nil means true.
	Stringify *bool

	// Serialize and Unserialize override the default transforms.
	Serialize   SerializeFunc
	Unserialize UnserializeFunc

	// Crypto enables payload encryption.
	Crypto CryptoOptions

	// TransformID maps a session id to its storage id.
	TransformID func(id string) string

	// WriteOptions is passed through to every write.
	WriteOptions WriteOptions

	// ConnectTimeout bounds connecting and installing eviction. Default: 30s.
	ConnectTimeout time.Duration

	// Logger receives engine logs. Default: slog.Default().
	Logger *slog.Logger

	// Clock overrides the time source.
	Clock func() time.Time
}

// CryptoOptions enables payload encryption with either a secret, from
// which the built-in adapter derives its key, or a custom Adapter.
// Setting both is a configuration error.
type CryptoOptions struct {
	Secret    string
	Algorithm adaptive.CipherType
	Encoding  adaptive.Encoding
	KDF       adaptive.KDF
	Salt      string

	Adapter CryptoAdapter
}

// settings is the validated form of Options.
type settings struct {
	strategy    strategy
	policy      expiry.Policy
	throttle    throttle.Throttle
	pipeline    *transform.Pipeline
	crypto      CryptoAdapter
	transformID func(string) string
	wo          WriteOptions
	timeout     time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

func invalid(format string, args ...any) error {
	return domain.ErrInvalidConfig.WithDetails(fmt.Sprintf(format, args...))
}

// resolve validates opts. All configuration errors are raised here.
func (opts Options) resolve() (*settings, error) {
	st, err := selectStrategy(opts)
	if err != nil {
		return nil, err
	}

	policy, err := expiry.NewPolicy(opts.Eviction, opts.TTL, opts.SweepInterval)
	if err != nil {
		return nil, err
	}
	if opts.TTL < 0 {
		return nil, invalid("ttl must not be negative, got %d", opts.TTL)
	}

	th, err := throttle.New(opts.TouchAfter)
	if err != nil {
		return nil, err
	}

	crypto, err := opts.Crypto.adapter()
	if err != nil {
		return nil, err
	}

	stringify := opts.Stringify == nil || *opts.Stringify

	s := &settings{
		strategy:    st,
		policy:      policy,
		throttle:    th,
		pipeline:    transform.New(stringify, opts.Serialize, opts.Unserialize),
		crypto:      crypto,
		transformID: opts.TransformID,
		wo:          opts.WriteOptions,
		timeout:     opts.ConnectTimeout,
		logger:      opts.Logger,
		now:         opts.Clock,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.transformID == nil {
		s.transformID = func(id string) string { return id }
	}
	return s, nil
}

func (c CryptoOptions) adapter() (CryptoAdapter, error) {
	switch {
	case c.Secret != "" && c.Adapter != nil:
		return nil, invalid("crypto secret and crypto adapter are mutually exclusive")
	case c.Adapter != nil:
		return c.Adapter, nil
	case c.Secret == "":
		return nil, nil
	}

	a, err := adaptive.NewAdapter(adaptive.AdapterConfig{
		Secret:    []byte(c.Secret),
		Algorithm: c.Algorithm,
		Encoding:  c.Encoding,
		KDF:       c.KDF,
		Salt:      []byte(c.Salt),
	})
	if err != nil {
		return nil, domain.ErrInvalidConfig.WithDetails("crypto").WithCause(err)
	}
	return a, nil
}
