// Package transcode builds ffmpeg invocations for the pipeline's two
// encode paths: condensed proxy clips for analysis upload and final
// archival segments. Argument construction is kept separate from process
// execution so the exact command lines stay testable.
package transcode
