package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/sessmesh/internal/core/domain"
	"github.com/yndnr/sessmesh/internal/telemetry/metric"
	"github.com/yndnr/sessmesh/pkg/sessionstore"
)

// StateReporter reports the session store connection state.
type StateReporter interface {
	State() sessionstore.State
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	// Store backs /healthz.
	Store StateReporter

	// Gatherer backs the metrics endpoint.
	Gatherer prometheus.Gatherer

	// MetricsPath defaults to /metrics.
	MetricsPath string

	Logger *slog.Logger
}

// NewRouter builds the router.
//
//	GET /healthz   200 when connected, 503 otherwise
//	GET /metrics   Prometheus exposition
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	path := cfg.MetricsPath
	if path == "" {
		path = "/metrics"
	}

	r := chi.NewRouter()
	r.Use(RequestID(), AccessLog(logger), Recover())

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		state := cfg.Store.State()
		if state != sessionstore.StateConnected {
			nc := domain.ErrNotConnected
			writeJSON(w, nc.Code.Status(), errorBody{Code: nc.Code, Message: nc.Message, State: state.String()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"state": state.String()})
	})

	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, path, metric.Handler(cfg.Gatherer))
	}
	return r
}
