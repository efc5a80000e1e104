// Package services defines shared utilities consumed by the pipeline stage
// handlers and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job keys, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures carry
//     consistent stage context and can be classified (transient vs fatal).
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability, retries) stays uniform across the pipeline.
package services
