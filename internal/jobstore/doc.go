// Package jobstore persists pipeline jobs in SQLite and exposes helpers for
// driving their lifecycle.
//
// A job is keyed by the canonical path of its source file and carries a
// status plus the outputs accumulated by earlier stages (proxy path, remote
// upload handle, analysis payload). Every mutating call commits before it
// returns, so a crash between stages loses at most the in-flight stage.
// A lock file next to the database enforces the single-writer assumption;
// a second process opening the same store fails fast instead of corrupting
// progress tracking.
//
// Treat this package as the single source of truth for job semantics; status
// transitions only ever move forward through the pipeline order.
package jobstore
