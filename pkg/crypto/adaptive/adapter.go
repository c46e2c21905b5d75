package adaptive

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// Encoding names the textual form of a ciphertext.
type Encoding string

const (
	EncodingBase64    Encoding = "base64"
	EncodingBase64URL Encoding = "base64url"
	EncodingHex       Encoding = "hex"
)

// Adapter errors.
var (
	ErrEmptySecret     = errors.New("adaptive: secret is required")
	ErrUnknownEncoding = errors.New("adaptive: unknown encoding")
	ErrMalformedInput  = errors.New("adaptive: ciphertext is not validly encoded")
)

// AdapterConfig configures NewAdapter.
type AdapterConfig struct {
	// Secret is the shared secret keys are derived from. Required.
	Secret []byte

	// Algorithm selects the cipher. Empty selects the hardware default.
	Algorithm CipherType

	// Encoding of the ciphertext text. Defaults to base64.
	Encoding Encoding

	// KDF stretches Secret into the master key. Defaults to PBKDF2-SHA512.
	KDF KDF

	// Salt for master key derivation. Optional.
	Salt []byte
}

// Adapter encrypts session payload text with keys derived from a secret.
//
// Each ciphertext is salt || nonce || sealed payload, where the per-message
// key is expanded from the master key with the salt.
type Adapter struct {
	master   []byte
	algo     CipherType
	encoding Encoding
}

// NewAdapter derives the master key and returns a ready adapter.
func NewAdapter(cfg AdapterConfig) (*Adapter, error) {
	if len(cfg.Secret) == 0 {
		return nil, ErrEmptySecret
	}
	if !cfg.Algorithm.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCipher, cfg.Algorithm)
	}
	enc := cfg.Encoding
	switch enc {
	case "":
		enc = EncodingBase64
	case EncodingBase64, EncodingBase64URL, EncodingHex:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, enc)
	}
	master, err := DeriveKey(cfg.Secret, cfg.Salt, cfg.KDF)
	if err != nil {
		return nil, err
	}
	algo := cfg.Algorithm
	if algo == "" {
		algo = DefaultCipher()
	}
	return &Adapter{master: master, algo: algo, encoding: enc}, nil
}

// Algorithm returns the cipher in use.
func (a *Adapter) Algorithm() CipherType {
	return a.algo
}

// Encrypt seals plaintext and returns its encoded ciphertext.
func (a *Adapter) Encrypt(_ context.Context, plaintext string) (string, error) {
	salt := make([]byte, MessageSaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}
	c, err := a.cipherFor(salt)
	if err != nil {
		return "", err
	}
	sealed, err := c.Seal([]byte(plaintext), salt)
	if err != nil {
		return "", err
	}
	return a.encode(append(salt, sealed...)), nil
}

// Decrypt opens an encoded ciphertext produced by Encrypt.
func (a *Adapter) Decrypt(_ context.Context, ciphertext string) (string, error) {
	raw, err := a.decode(ciphertext)
	if err != nil {
		return "", err
	}
	if len(raw) < MessageSaltSize {
		return "", ErrCiphertextShort
	}
	salt := raw[:MessageSaltSize]
	c, err := a.cipherFor(salt)
	if err != nil {
		return "", err
	}
	plaintext, err := c.Open(raw[MessageSaltSize:], salt)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func (a *Adapter) cipherFor(salt []byte) (*Cipher, error) {
	key, err := expandKey(a.master, salt)
	if err != nil {
		return nil, err
	}
	defer ZeroKey(key)
	return NewWithType(key, a.algo)
}

func (a *Adapter) encode(raw []byte) string {
	switch a.encoding {
	case EncodingHex:
		return hex.EncodeToString(raw)
	case EncodingBase64URL:
		return base64.RawURLEncoding.EncodeToString(raw)
	default:
		return base64.StdEncoding.EncodeToString(raw)
	}
}

func (a *Adapter) decode(text string) ([]byte, error) {
	var (
		raw []byte
		err error
	)
	switch a.encoding {
	case EncodingHex:
		raw, err = hex.DecodeString(text)
	case EncodingBase64URL:
		raw, err = base64.RawURLEncoding.DecodeString(text)
	default:
		raw, err = base64.StdEncoding.DecodeString(text)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	return raw, nil
}
