// Package metric exposes session store activity as Prometheus metrics.
//
// Metrics are registered on a caller-supplied registry and fed by
// subscribing to an engine's events and operation observer:
//
//	m, err := metric.New(reg)
//	detach := m.Instrument(engine)
//	defer detach()
//	router.Handle("/metrics", metric.Handler(reg))
package metric
