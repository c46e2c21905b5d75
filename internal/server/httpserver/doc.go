// Package httpserver serves the operational HTTP endpoints of a
// long-running sessmesh process: Prometheus metrics and a health probe
// reporting the session store connection state.
package httpserver
