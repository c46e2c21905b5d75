// Command sessmesh-cli inspects and maintains a sessmesh session store.
//
// Usage:
//
//	sessmesh-cli --url mongodb://localhost:27017/app count
//	sessmesh-cli --config sessmesh.yaml -o yaml list
//	sessmesh-cli --url redis://localhost:6379/0 get SESSION_ID
//	sessmesh-cli --config sessmesh.yaml watch --addr :9464
//
// Configuration is read from the --config file, then SESSMESH_*
// environment variables, then flags.
package main
