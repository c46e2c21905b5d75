// Package adaptive provides authenticated encryption for stored session payloads.
//
// The package has two layers:
//
//   - Cipher: a byte-level AEAD (AES-256-GCM or ChaCha20-Poly1305), selected
//     from hardware capabilities unless an algorithm is requested
//   - Adapter: a string-in/string-out wrapper with key derivation from a
//     secret and a textual encoding, suitable as a session store crypto adapter
//
// Usage:
//
//	adapter, err := adaptive.NewAdapter(adaptive.AdapterConfig{Secret: []byte("squirrel")})
//	ciphertext, err := adapter.Encrypt(ctx, `{"foo":"bar"}`)
//	plaintext, err := adapter.Decrypt(ctx, ciphertext)
//
// Ciphertexts carry a random nonce prefix; decryption with a different key
// or of a modified ciphertext fails with ErrDecryptionFailed.
package adaptive
