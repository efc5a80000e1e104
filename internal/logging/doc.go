// Package logging builds the slog loggers used across the pipeline.
//
// It provides a human-oriented console handler, a JSON handler for log
// files, typed attribute constructors, and helpers that derive structured
// fields (job key, stage, correlation id) from context.
package logging
