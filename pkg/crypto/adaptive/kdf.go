package adaptive

import (
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"
)

// KDF names a password-based key derivation function.
type KDF string

const (
	KDFPBKDF2 KDF = "pbkdf2-sha512"
	KDFArgon2 KDF = "argon2id"
)

// ErrUnknownKDF is returned for an unsupported key derivation function.
var ErrUnknownKDF = errors.New("adaptive: unknown key derivation function")

const (
	// MessageSaltSize is the per-ciphertext salt length.
	MessageSaltSize = 16

	pbkdf2Iterations = 10000

	argon2Time    = 1
	argon2Memory  = 64 * 1024
	argon2Threads = 4

	hkdfInfo = "sessmesh session payload"
)

// defaultSalt is used when the caller does not configure one. It only
// separates this derivation from others using the same secret.
var defaultSalt = []byte("sessmesh/v1/master-key")

// DeriveKey stretches secret into a KeySize master key.
func DeriveKey(secret, salt []byte, kdf KDF) ([]byte, error) {
	if len(salt) == 0 {
		salt = defaultSalt
	}
	switch kdf {
	case "", KDFPBKDF2:
		return pbkdf2.Key(secret, salt, pbkdf2Iterations, KeySize, sha512.New), nil
	case KDFArgon2:
		return argon2.IDKey(secret, salt, argon2Time, argon2Memory, argon2Threads, KeySize), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKDF, kdf)
	}
}

// expandKey derives a per-message key from the master key and a message salt.
func expandKey(master, salt []byte) ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, salt, []byte(hkdfInfo)), key); err != nil {
		return nil, err
	}
	return key, nil
}

// ZeroKey overwrites key material in place.
func ZeroKey(key []byte) {
	for i := range key {
		key[i] = 0
	}
}
