// Package visionary talks to the hosted Gemini API: it uploads proxy
// clips through the Files API, waits for server-side processing, and
// requests either a structured multi-scene description or a short
// free-text label. Upload readiness is polled on a fixed interval with no
// deadline of its own; the structured analysis call carries a
// minutes-scale timeout.
package visionary
