package tlsroots

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoCertsFound is returned when a PEM input holds no certificate.
var ErrNoCertsFound = errors.New("tlsroots: no certificates found in PEM data")

// Options selects the trust material for a backend connection.
type Options struct {
	// CAFile is a PEM bundle or a directory of .pem/.crt/.cer files added
	// to the system roots.
	CAFile string `koanf:"ca_file"`

	// CertFile and KeyFile hold a client certificate for mutual TLS.
	CertFile string `koanf:"cert_file"`
	KeyFile  string `koanf:"key_file"`

	// ServerName overrides the name checked against the server certificate.
	ServerName string `koanf:"server_name"`

	// InsecureSkipVerify disables server certificate checks. Tests only.
	InsecureSkipVerify bool `koanf:"insecure_skip_verify"`
}

// IsZero reports whether no option is set, in which case the backend
// driver's own TLS defaults apply.
func (o Options) IsZero() bool {
	return o == Options{}
}

// ClientConfig builds a client TLS configuration from o.
func ClientConfig(o Options) (*tls.Config, error) {
	if (o.CertFile == "") != (o.KeyFile == "") {
		return nil, errors.New("tlsroots: cert_file and key_file must be set together")
	}

	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ServerName:         o.ServerName,
		InsecureSkipVerify: o.InsecureSkipVerify, //nolint:gosec // opt-in for tests
	}

	if o.CAFile != "" {
		pool := systemPool()
		if err := addPath(pool, o.CAFile); err != nil {
			return nil, err
		}
		cfg.RootCAs = pool
	}

	if o.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(o.CertFile, o.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("tlsroots: load key pair: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}

func systemPool() *x509.CertPool {
	pool, err := x509.SystemCertPool()
	if err != nil {
		return x509.NewCertPool()
	}
	return pool
}

func addPath(pool *x509.CertPool, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("tlsroots: %w", err)
	}
	if !info.IsDir() {
		return addFile(pool, path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("tlsroots: read dir %s: %w", path, err)
	}
	added := 0
	for _, entry := range entries {
		switch filepath.Ext(entry.Name()) {
		case ".pem", ".crt", ".cer":
		default:
			continue
		}
		if entry.IsDir() {
			continue
		}
		if err := addFile(pool, filepath.Join(path, entry.Name())); err != nil {
			return err
		}
		added++
	}
	if added == 0 {
		return ErrNoCertsFound
	}
	return nil
}

func addFile(pool *x509.CertPool, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("tlsroots: read cert file %s: %w", path, err)
	}
	return AddPEM(pool, data)
}

// AddPEM adds every certificate in pemData to pool.
func AddPEM(pool *x509.CertPool, pemData []byte) error {
	added := 0
	for len(pemData) > 0 {
		var block *pem.Block
		block, pemData = pem.Decode(pemData)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return fmt.Errorf("tlsroots: parse certificate: %w", err)
		}
		pool.AddCert(cert)
		added++
	}
	if added == 0 {
		return ErrNoCertsFound
	}
	return nil
}
