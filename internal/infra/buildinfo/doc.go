// Package buildinfo reports the sessmesh build version.
//
// Version, Commit and BuildTime are set with ldflags:
//
//	go build -ldflags "-X github.com/yndnr/sessmesh/internal/infra/buildinfo.Version=v0.3.0"
//
// When they are not set, the VCS stamp embedded by the Go toolchain is used.
package buildinfo
