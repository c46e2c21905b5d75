// Package benchmark provides performance benchmarks for the sessmesh
// session engine.
//
// Run benchmarks with:
//
//	go test -bench=. -benchmem ./internal/tests/benchmark/...
//
// Run only the engine benchmarks against the embedded backends:
//
//	go test -bench=BenchmarkEngine -benchmem -benchtime=10s ./internal/tests/benchmark/...
//
// Compare results:
//
//	benchstat old.txt new.txt
package benchmark
