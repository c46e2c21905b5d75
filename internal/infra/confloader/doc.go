// Package confloader loads sessmesh configuration files and environment
// variables into typed structs, and watches configuration files for edits.
//
// Sources are layered, later ones overriding earlier ones:
//
//  1. Values already present in the target struct (defaults)
//  2. The YAML configuration file
//  3. SESSMESH_* environment variables
//  4. Maps loaded with LoadMap (command-line flags)
//
// Environment variables name a section and a key separated by the first
// underscore after the prefix: SESSMESH_EVICTION_SWEEP_INTERVAL sets
// eviction.sweep_interval.
package confloader
