package frameselect

import (
	"context"
	"image"
)

// Frame is one decoded grayscale frame with its timeline position.
type Frame struct {
	Timestamp float64
	Image     *image.Gray
}

// Source decodes frames from a time window of a video in increasing time
// order, invoking fn for each. Returning an error from fn stops the stream.
type Source interface {
	Stream(ctx context.Context, path string, start, end float64, fn func(Frame) error) error
}
