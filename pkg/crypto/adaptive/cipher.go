package adaptive

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the key length of every supported cipher.
const KeySize = 32

// CipherType names an AEAD construction.
type CipherType string

const (
	CipherAESGCM   CipherType = "aes-256-gcm"
	CipherChaCha20 CipherType = "chacha20-poly1305"
)

var (
	ErrUnknownCipher    = errors.New("adaptive: unknown cipher type")
	ErrInvalidKeySize   = errors.New("adaptive: invalid key size")
	ErrCiphertextShort  = errors.New("adaptive: ciphertext too short")
	ErrDecryptionFailed = errors.New("adaptive: wrong key or tampered payload")
)

// DefaultCipher returns AES-256-GCM on platforms where crypto/aes is
// hardware accelerated and ChaCha20-Poly1305 elsewhere.
func DefaultCipher() CipherType {
	switch runtime.GOARCH {
	case "amd64", "arm64", "s390x", "ppc64le":
		return CipherAESGCM
	default:
		return CipherChaCha20
	}
}

// Valid reports whether t names a supported cipher. The empty type is
// valid and stands for DefaultCipher.
func (t CipherType) Valid() bool {
	switch t {
	case "", CipherAESGCM, CipherChaCha20:
		return true
	}
	return false
}

// Cipher seals and opens byte payloads. Sealed output is nonce followed
// by ciphertext and tag.
type Cipher struct {
	kind CipherType
	aead cipher.AEAD
}

// New returns a DefaultCipher cipher keyed with key.
func New(key []byte) (*Cipher, error) {
	return NewWithType(key, DefaultCipher())
}

// NewWithType returns a cipher of type t keyed with key.
func NewWithType(key []byte, t CipherType) (*Cipher, error) {
	if t == "" {
		t = DefaultCipher()
	}
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCipher, t)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: %s needs %d bytes, got %d", ErrInvalidKeySize, t, KeySize, len(key))
	}

	var (
		aead cipher.AEAD
		err  error
	)
	if t == CipherAESGCM {
		var block cipher.Block
		if block, err = aes.NewCipher(key); err == nil {
			aead, err = cipher.NewGCM(block)
		}
	} else {
		aead, err = chacha20poly1305.New(key)
	}
	if err != nil {
		return nil, err
	}
	return &Cipher{kind: t, aead: aead}, nil
}

// Type returns the construction in use.
func (c *Cipher) Type() CipherType { return c.kind }

// NonceSize is the length of the nonce prefix.
func (c *Cipher) NonceSize() int { return c.aead.NonceSize() }

// Overhead is the length of the authentication tag.
func (c *Cipher) Overhead() int { return c.aead.Overhead() }

// Seal encrypts plaintext under a fresh random nonce, authenticating ad.
func (c *Cipher) Seal(plaintext, ad []byte) ([]byte, error) {
	n := c.aead.NonceSize()
	out := make([]byte, n, n+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(out); err != nil {
		return nil, err
	}
	return c.aead.Seal(out, out[:n], plaintext, ad), nil
}

// Open reverses Seal. Any authentication failure yields ErrDecryptionFailed.
func (c *Cipher) Open(sealed, ad []byte) ([]byte, error) {
	n := c.aead.NonceSize()
	if len(sealed) < n+c.aead.Overhead() {
		return nil, ErrCiphertextShort
	}
	plaintext, err := c.aead.Open(nil, sealed[:n], sealed[n:], ad)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}
