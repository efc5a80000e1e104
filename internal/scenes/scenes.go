// Package scenes partitions a source file into ordered scene intervals
// using ffmpeg's scene-change detector, with a whole-file fallback when
// detection fails or finds no cuts.
package scenes

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"strings"

	"keepsake/internal/logging"
	"keepsake/internal/media/ffprobe"
	"keepsake/internal/services"
)

// Scene is a half-open [Start, End) interval in seconds on one source
// file's timeline.
type Scene struct {
	Start float64
	End   float64
}

// Duration returns the scene length in seconds.
func (s Scene) Duration() float64 {
	return s.End - s.Start
}

// Segmenter detects scene boundaries by shelling out to ffmpeg.
type Segmenter struct {
	ffmpeg    string
	ffprobe   string
	threshold float64
	logger    *slog.Logger
}

// NewSegmenter builds a Segmenter. threshold is the scene-change score a
// frame must exceed to count as a cut (ffmpeg's 0..1 scale).
func NewSegmenter(ffmpegBinary, ffprobeBinary string, threshold float64, logger *slog.Logger) *Segmenter {
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	if strings.TrimSpace(ffprobeBinary) == "" {
		ffprobeBinary = "ffprobe"
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Segmenter{
		ffmpeg:    ffmpegBinary,
		ffprobe:   ffprobeBinary,
		threshold: threshold,
		logger:    logger,
	}
}

// Detect returns ordered, non-overlapping scenes covering path. Detection
// failures and cut-free files fall back to a single scene spanning the
// probed duration. An unprobeable duration is the one unrecoverable case
// and surfaces as an error so the caller can skip the file.
func (s *Segmenter) Detect(ctx context.Context, path string) ([]Scene, error) {
	probed, err := ffprobe.Inspect(ctx, s.ffprobe, path)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "segment", "probe", "probe source duration", err)
	}
	duration := probed.DurationSeconds()
	if duration <= 0 {
		return nil, services.Wrap(services.ErrExternalTool, "segment", "probe", fmt.Sprintf("no usable duration for %s", path), nil)
	}

	cuts, err := s.detectCuts(ctx, path)
	if err != nil {
		s.logger.Warn("scene detection failed, using whole file",
			logging.String("path", path),
			logging.Error(err))
		return []Scene{{Start: 0, End: duration}}, nil
	}
	if len(cuts) == 0 {
		return []Scene{{Start: 0, End: duration}}, nil
	}

	return buildScenes(cuts, duration), nil
}

func (s *Segmenter) detectCuts(ctx context.Context, path string) ([]float64, error) {
	filter := fmt.Sprintf("select='gt(scene,%g)',showinfo", s.threshold)
	args := []string{
		"-hide_banner", "-nostdin",
		"-i", path,
		"-vf", filter,
		"-f", "null", "-",
	}
	cmd := exec.CommandContext(ctx, s.ffmpeg, args...)
	// showinfo reports on stderr; ffmpeg exits zero even when no frame
	// passes the select filter.
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("scene detection: %w: %s", err, strings.TrimSpace(lastLine(string(output))))
	}
	return parseShowinfoTimes(string(output)), nil
}

// buildScenes converts cut timestamps into covering intervals from zero to
// the container duration. Cuts outside (0, duration) and zero-length
// windows are discarded.
func buildScenes(cuts []float64, duration float64) []Scene {
	sorted := make([]float64, 0, len(cuts))
	for _, cut := range cuts {
		if cut > 0 && cut < duration {
			sorted = append(sorted, cut)
		}
	}
	sort.Float64s(sorted)

	result := make([]Scene, 0, len(sorted)+1)
	previous := 0.0
	for _, cut := range sorted {
		if cut <= previous {
			continue
		}
		result = append(result, Scene{Start: previous, End: cut})
		previous = cut
	}
	if duration > previous {
		result = append(result, Scene{Start: previous, End: duration})
	}
	return result
}

func lastLine(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}
