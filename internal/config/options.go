package config

import (
	"log/slog"

	"github.com/yndnr/sessmesh/internal/core/expiry"
	"github.com/yndnr/sessmesh/internal/infra/tlsroots"
	"github.com/yndnr/sessmesh/pkg/crypto/adaptive"
	"github.com/yndnr/sessmesh/pkg/sessionstore"
)

// StoreOptions converts the configuration into session store options.
func (c *Config) StoreOptions(log *slog.Logger) (sessionstore.Options, error) {
	opts := sessionstore.Options{
		URL:            c.Store.URL,
		DatabaseName:   c.Store.Database,
		CollectionName: c.Store.Collection,
		TTL:            c.Store.TTL,
		Eviction:       expiry.Mode(c.Eviction.Mode),
		SweepInterval:  c.Eviction.SweepInterval,
		TouchAfter:     c.Store.TouchAfter,
		Stringify:      sessionstore.Bool(c.Store.Stringify),
		ConnectTimeout: c.Store.ConnectTimeout,
		TransformID:    c.transformID(),
		WriteOptions: sessionstore.WriteOptions{
			Majority: c.Store.Write.Majority,
			W:        c.Store.Write.W,
			Journal:  c.Store.Write.Journal,
			Timeout:  c.Store.Write.Timeout,
		},
		Logger: log,
	}

	if c.Crypto.Secret != "" {
		opts.Crypto = sessionstore.CryptoOptions{
			Secret:    c.Crypto.Secret,
			Algorithm: adaptive.CipherType(c.Crypto.Algorithm),
			Encoding:  adaptive.Encoding(c.Crypto.Encoding),
			KDF:       adaptive.KDF(c.Crypto.KDF),
			Salt:      c.Crypto.Salt,
		}
	}

	if !c.TLS.IsZero() {
		tlsConfig, err := tlsroots.ClientConfig(c.TLS)
		if err != nil {
			return sessionstore.Options{}, err
		}
		opts.TLS = tlsConfig
	}
	return opts, nil
}

// transformID composes the configured id prefix and hash. The prefix is
// applied to the hashed id.
func (c *Config) transformID() func(string) string {
	var hash func(string) string
	if c.Store.IDHashSecret != "" {
		hash = sessionstore.HashID(c.Store.IDHashSecret)
	}
	prefix := c.Store.IDPrefix

	switch {
	case hash != nil && prefix != "":
		return func(id string) string { return prefix + hash(id) }
	case hash != nil:
		return hash
	case prefix != "":
		return sessionstore.PrefixID(prefix)
	default:
		return nil
	}
}
