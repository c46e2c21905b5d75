package benchmark

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/yndnr/sessmesh/pkg/sessionstore"
)

// BenchmarkEngineSet benchmarks writing new sessions on top of a preloaded store.
func BenchmarkEngineSet(b *testing.B) {
	for _, backend := range backends {
		b.Run(backend, func(b *testing.B) {
			runWithSessionCounts(b, SmallSessionCounts, func(b *testing.B, preload int) {
				ctx := context.Background()
				e := newEngine(b, sessionstore.Options{URL: backendURL(b, backend)})
				prefill(ctx, b, e, preload)

				b.ResetTimer()
				b.ReportAllocs()

				for i := 0; i < b.N; i++ {
					if err := e.Set(ctx, newSessionID(), createSession(fmt.Sprintf("bench-user-%d", i))); err != nil {
						b.Fatalf("Set failed: %v", err)
					}
				}

				b.StopTimer()
				reportMemory(b, "mem")
			})
		})
	}
}

// BenchmarkEngineGet benchmarks reading sessions at various scales.
func BenchmarkEngineGet(b *testing.B) {
	for _, backend := range backends {
		b.Run(backend, func(b *testing.B) {
			runWithSessionCounts(b, SmallSessionCounts, func(b *testing.B, count int) {
				ctx := context.Background()
				e := newEngine(b, sessionstore.Options{URL: backendURL(b, backend)})
				ids := prefill(ctx, b, e, count)

				b.ResetTimer()
				b.ReportAllocs()

				for i := 0; i < b.N; i++ {
					s, err := e.Get(ctx, ids[i%len(ids)])
					if err != nil || s == nil {
						b.Fatalf("Get failed: %v", err)
					}
				}
			})
		})
	}
}

// BenchmarkEngineGetParallel benchmarks concurrent reads.
func BenchmarkEngineGetParallel(b *testing.B) {
	ctx := context.Background()
	e := newEngine(b, sessionstore.Options{URL: "memory://"})
	ids := prefill(ctx, b, e, 10000)

	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if _, err := e.Get(ctx, ids[i%len(ids)]); err != nil {
				b.Errorf("Get failed: %v", err)
				return
			}
			i++
		}
	})
}

// BenchmarkEngineTransform compares the stored payload representations.
func BenchmarkEngineTransform(b *testing.B) {
	modes := map[string]sessionstore.Options{
		"stringify": {URL: "memory://"},
		"document":  {URL: "memory://", Stringify: sessionstore.Bool(false)},
		"encrypted": {URL: "memory://", Crypto: sessionstore.CryptoOptions{Secret: "benchmark-secret"}},
	}

	for name, opts := range modes {
		b.Run(name, func(b *testing.B) {
			ctx := context.Background()
			e := newEngine(b, opts)
			s := createSession("bench-user")

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				id := fmt.Sprintf("sess-%d", i%1000)
				if err := e.Set(ctx, id, s); err != nil {
					b.Fatalf("Set failed: %v", err)
				}
				if _, err := e.Get(ctx, id); err != nil {
					b.Fatalf("Get failed: %v", err)
				}
			}
		})
	}
}

// BenchmarkEngineTouch compares written touches with throttled no-ops.
func BenchmarkEngineTouch(b *testing.B) {
	cases := map[string]int64{
		"unthrottled": 0,
		"throttled":   3600,
	}

	for name, touchAfter := range cases {
		b.Run(name, func(b *testing.B) {
			ctx := context.Background()
			e := newEngine(b, sessionstore.Options{URL: "memory://", TouchAfter: touchAfter})
			ids := prefill(ctx, b, e, 1000)

			sessions := make([]sessionstore.Session, len(ids))
			for i, id := range ids {
				s, err := e.Get(ctx, id)
				if err != nil {
					b.Fatalf("Get failed: %v", err)
				}
				sessions[i] = s
			}

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				idx := i % len(ids)
				if err := e.Touch(ctx, ids[idx], sessions[idx]); err != nil {
					b.Fatalf("Touch failed: %v", err)
				}
			}
		})
	}
}

// BenchmarkEngineSweep benchmarks removing expired sessions.
func BenchmarkEngineSweep(b *testing.B) {
	runWithSessionCounts(b, SmallSessionCounts, func(b *testing.B, count int) {
		ctx := context.Background()
		expired := sessionstore.Session{"cookie": map[string]any{"expires": time.Now().Add(-time.Hour).Format(time.RFC3339)}}

		for i := 0; i < b.N; i++ {
			b.StopTimer()
			e := newEngine(b, sessionstore.Options{URL: "memory://", Eviction: sessionstore.EvictionDisabled})
			for j := 0; j < count; j++ {
				if err := e.Set(ctx, fmt.Sprintf("old-%d", j), expired); err != nil {
					b.Fatalf("Set failed: %v", err)
				}
			}
			b.StartTimer()

			n, err := e.Sweep(ctx)
			if err != nil || n != int64(count) {
				b.Fatalf("Sweep = %d, %v; want %d", n, err, count)
			}

			b.StopTimer()
			_ = e.Close(ctx)
			b.StartTimer()
		}
	})
}
