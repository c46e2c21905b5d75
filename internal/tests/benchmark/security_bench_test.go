package benchmark

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/yndnr/sessmesh/pkg/crypto/adaptive"
	"github.com/yndnr/sessmesh/pkg/sessionstore"
)

// BenchmarkCipherSeal measures sealing a session-sized payload with each
// AEAD, without key derivation.
func BenchmarkCipherSeal(b *testing.B) {
	key := make([]byte, adaptive.KeySize)
	rand.Read(key)

	for _, ct := range []adaptive.CipherType{adaptive.CipherAESGCM, adaptive.CipherChaCha20} {
		c, err := adaptive.NewWithType(key, ct)
		if err != nil {
			b.Fatalf("cipher %s: %v", ct, err)
		}
		for _, size := range []int{256, 4096} {
			data := make([]byte, size)
			rand.Read(data)

			b.Run(string(ct)+"/"+sizeLabel(size), func(b *testing.B) {
				b.ReportAllocs()
				b.SetBytes(int64(size))
				for i := 0; i < b.N; i++ {
					if _, err := c.Seal(data, nil); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

// BenchmarkAdapterRoundTrip benchmarks the string adapter used for session
// payloads, per cipher. Keys are derived once at construction.
func BenchmarkAdapterRoundTrip(b *testing.B) {
	ciphers := []adaptive.CipherType{adaptive.CipherAESGCM, adaptive.CipherChaCha20}

	raw := make([]byte, 768)
	rand.Read(raw)
	payload := base64.StdEncoding.EncodeToString(raw)

	for _, c := range ciphers {
		b.Run(string(c), func(b *testing.B) {
			adapter, err := adaptive.NewAdapter(adaptive.AdapterConfig{
				Secret:    []byte("benchmark-secret"),
				Algorithm: c,
			})
			if err != nil {
				b.Fatalf("NewAdapter failed: %v", err)
			}
			ctx := context.Background()

			b.ResetTimer()
			b.ReportAllocs()
			b.SetBytes(int64(len(payload)))

			for i := 0; i < b.N; i++ {
				ct, err := adapter.Encrypt(ctx, payload)
				if err != nil {
					b.Fatalf("Encrypt failed: %v", err)
				}
				if _, err := adapter.Decrypt(ctx, ct); err != nil {
					b.Fatalf("Decrypt failed: %v", err)
				}
			}
		})
	}
}

// BenchmarkHashID benchmarks the HMAC id transform.
func BenchmarkHashID(b *testing.B) {
	hash := sessionstore.HashID("benchmark-secret")
	id := newSessionID()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = hash(id)
	}
}
