package domain

import "context"

// CryptoAdapter encrypts serialized payloads before write and decrypts them
// after read. Any algorithm satisfying the two methods is acceptable.
type CryptoAdapter interface {
	Encrypt(ctx context.Context, plaintext string) (string, error)
	Decrypt(ctx context.Context, ciphertext string) (string, error)
}
