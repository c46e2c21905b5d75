// Package transform converts sessions to and from their stored payload.
//
// Three modes are supported:
//
//   - JSON (default): the payload is the canonical JSON text of the session
//   - Raw: the payload is a structured sub-document; cookies are normalized
//     into plain data
//   - Custom: caller-supplied functions are applied unmodified; a missing
//     direction falls back to the raw function
package transform
