package frameselect

import (
	"context"
	"image"
	"log/slog"

	"keepsake/internal/logging"
)

// downscaleFactor shrinks frames before similarity comparison; sharpness is
// always measured at full resolution.
const downscaleFactor = 2

// Selector picks representative frame timestamps from a scene window.
type Selector struct {
	source              Source
	blurThreshold       float64
	similarityThreshold float64
	logger              *slog.Logger
}

// NewSelector builds a Selector over source. Frames with a Laplacian
// variance below blurThreshold are discarded; a candidate is accepted only
// when its similarity to the last accepted frame falls below
// similarityThreshold.
func NewSelector(source Source, blurThreshold, similarityThreshold float64, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Selector{
		source:              source,
		blurThreshold:       blurThreshold,
		similarityThreshold: similarityThreshold,
		logger:              logger,
	}
}

// Select returns the representative timestamps for path within [start, end),
// in ascending order. An empty or inverted window yields no timestamps
// without touching the decoder. Decode failures are logged and produce an
// empty selection rather than an error; the caller treats the scene as
// having nothing worth keeping.
func (s *Selector) Select(ctx context.Context, path string, start, end float64) []float64 {
	if start >= end {
		return nil
	}

	var (
		selected     []float64
		lastAccepted *image.Gray
		examined     int
		blurry       int
	)

	err := s.source.Stream(ctx, path, start, end, func(frame Frame) error {
		examined++
		if frame.Image == nil {
			return nil
		}
		if laplacianVariance(frame.Image) < s.blurThreshold {
			blurry++
			return nil
		}
		small := downscale(frame.Image, downscaleFactor)
		if lastAccepted != nil && similarity(small, lastAccepted) >= s.similarityThreshold {
			return nil
		}
		selected = append(selected, frame.Timestamp)
		lastAccepted = small
		return nil
	})
	if err != nil {
		s.logger.Warn("frame selection aborted",
			logging.String("path", path),
			logging.Float64("start", start),
			logging.Float64("end", end),
			logging.Error(err))
		return nil
	}

	s.logger.Debug("frame selection complete",
		logging.String("path", path),
		logging.Int("examined", examined),
		logging.Int("blurry", blurry),
		logging.Int("selected", len(selected)))
	return selected
}
