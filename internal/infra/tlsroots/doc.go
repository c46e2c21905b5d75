// Package tlsroots builds the client TLS configuration used to reach a
// session backend: trusted roots (system plus custom CA files) and an
// optional client certificate for mutual TLS.
package tlsroots
