// Package output renders command results for sessmesh-cli as JSON or YAML.
package output
