// Package command provides the sessmesh-cli commands.
//
// Every command loads the configuration (file, SESSMESH_* environment,
// then flags), opens the session store it describes and closes it again:
//
//   - count, list, get: read sessions
//   - set, touch, destroy, clear: modify sessions
//   - sweep: remove expired sessions once
//   - watch: run interval eviction and serve /metrics and /healthz
//   - version: print build information
package command
