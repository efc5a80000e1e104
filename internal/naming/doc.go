// Package naming derives human-readable identifiers for emitted clips.
//
// It handles legacy disc chapter labels, sanitization of AI-supplied text,
// and collision-safe output path allocation.
package naming
