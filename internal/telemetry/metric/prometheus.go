package metric

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yndnr/sessmesh/pkg/sessionstore"
)

const namespace = "sessmesh"

// Metrics holds the session store collectors.
type Metrics struct {
	operations   *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	events       *prometheus.CounterVec
	sweepDeleted prometheus.Counter
	sweepErrors  prometheus.Counter
	state        prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, errors.New("metric: registerer is required")
	}
	f := promauto.With(reg)

	return &Metrics{
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Session store operations by operation and result.",
		}, []string{"op", "result"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Session store operation latency.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"op"}),
		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "events_total",
			Help:      "Session store events by name.",
		}, []string{"event"}),
		sweepDeleted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "sweep_deleted_total",
			Help:      "Expired sessions removed by eviction sweeps.",
		}),
		sweepErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "sweep_errors_total",
			Help:      "Eviction sweeps that failed.",
		}),
		state: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "connection_state",
			Help:      "Connection state: 0 init, 1 connecting, 2 connected, 3 disconnected.",
		}),
	}, nil
}

// observed are the events counted by Instrument.
var observed = []sessionstore.EventName{
	sessionstore.EventConnected,
	sessionstore.EventDisconnected,
	sessionstore.EventCreate,
	sessionstore.EventUpdate,
	sessionstore.EventSet,
	sessionstore.EventGet,
	sessionstore.EventTouch,
	sessionstore.EventDestroy,
	sessionstore.EventAll,
	sessionstore.EventSweep,
}

// Instrument feeds the collectors from e until the returned function is called.
func (m *Metrics) Instrument(e *sessionstore.Engine) (detach func()) {
	m.state.Set(float64(e.State()))

	removers := make([]func(), 0, len(observed)+1)
	for _, name := range observed {
		removers = append(removers, e.On(name, m.onEvent))
	}
	removers = append(removers, e.Observe(m.ObserveOp))

	return func() {
		for _, remove := range removers {
			remove()
		}
	}
}

func (m *Metrics) onEvent(ev sessionstore.Event) {
	m.events.WithLabelValues(string(ev.Name)).Inc()
	switch ev.Name {
	case sessionstore.EventConnected:
		m.state.Set(float64(sessionstore.StateConnected))
	case sessionstore.EventDisconnected:
		m.state.Set(float64(sessionstore.StateDisconnected))
	case sessionstore.EventSweep:
		if ev.Err != nil {
			m.sweepErrors.Inc()
		} else {
			m.sweepDeleted.Add(float64(ev.Count))
		}
	}
}

// ObserveOp records one operation outcome.
func (m *Metrics) ObserveOp(op string, elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.operations.WithLabelValues(op, result).Inc()
	m.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
