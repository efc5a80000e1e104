// Package ffprobe shells out to ffprobe and decodes its JSON output.
//
// The pipeline uses it to learn container duration (for whole-file scene
// fallback) and audio codec (for the pass-through decision at emission).
package ffprobe
