package benchmark

import (
	"context"
	"crypto/rand"
	"fmt"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/sessmesh/internal/telemetry/logger"
	"github.com/yndnr/sessmesh/pkg/sessionstore"
)

// SmallSessionCounts keeps benchmarks short enough for CI.
var SmallSessionCounts = []int{1000, 5000, 10000}

// newSessionID generates a new session ID.
func newSessionID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, _ := ulid.New(ulid.Timestamp(time.Now()), entropy)
	return "sess-" + strings.ToLower(id.String())
}

// createSession creates a session shaped like one a web middleware stores.
func createSession(userID string) sessionstore.Session {
	return sessionstore.Session{
		"cookie":    sessionstore.NewCookie(24*time.Hour, time.Now()).Plain(),
		"userId":    userID,
		"ip":        "192.168.1.1",
		"userAgent": "BenchmarkTest/1.0",
		"cart":      []any{"sku-1", "sku-2"},
	}
}

// backends are the embedded stores benchmarks run against.
var backends = []string{"memory", "badger"}

// backendURL returns a URL for a fresh, empty store.
func backendURL(b *testing.B, backend string) string {
	if backend == "badger" {
		return "badger://" + b.TempDir()
	}
	return "memory://"
}

// newEngine opens an engine and waits until it is ready.
func newEngine(b *testing.B, opts sessionstore.Options) *sessionstore.Engine {
	b.Helper()
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	e, err := sessionstore.New(opts)
	if err != nil {
		b.Fatalf("New: %v", err)
	}
	b.Cleanup(func() { _ = e.Close(context.Background()) })
	if err := e.Ready(context.Background()); err != nil {
		b.Fatalf("Ready: %v", err)
	}
	return e
}

// prefill stores count sessions and returns their ids.
func prefill(ctx context.Context, b *testing.B, e *sessionstore.Engine, count int) []string {
	b.Helper()
	ids := make([]string, count)
	for i := range ids {
		ids[i] = newSessionID()
		if err := e.Set(ctx, ids[i], createSession(fmt.Sprintf("user-%d", i%1000))); err != nil {
			b.Fatalf("Set: %v", err)
		}
	}
	return ids
}

// reportMemory reports memory usage.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}

// runWithSessionCounts runs a benchmark function with various session counts.
func runWithSessionCounts(b *testing.B, counts []int, benchFn func(b *testing.B, count int)) {
	for _, count := range counts {
		b.Run(fmt.Sprintf("sessions_%d", count), func(b *testing.B) {
			benchFn(b, count)
		})
	}
}

func sizeLabel(size int) string {
	if size >= 1024 {
		return fmt.Sprintf("%dKB", size/1024)
	}
	return fmt.Sprintf("%dB", size)
}
