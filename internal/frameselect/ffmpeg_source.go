package frameselect

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// FFmpegSource extracts frames with ffmpeg at a fixed sample rate and
// decodes them from a temporary directory. Extraction happens eagerly per
// window; decoding is sequential so the Selector sees frames in time order.
type FFmpegSource struct {
	Binary string
	FPS    float64
}

// NewFFmpegSource returns a Source sampling fps frames per second using the
// given ffmpeg binary ("ffmpeg" when empty).
func NewFFmpegSource(binary string, fps float64) *FFmpegSource {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	if fps <= 0 {
		fps = 1
	}
	return &FFmpegSource{Binary: binary, FPS: fps}
}

// Stream implements Source. Sampled frames are written as PNGs into a
// temporary directory, decoded in sequence order, converted to grayscale,
// and handed to fn with timestamps derived from the sample rate.
func (s *FFmpegSource) Stream(ctx context.Context, path string, start, end float64, fn func(Frame) error) error {
	if start >= end {
		return nil
	}

	dir, err := os.MkdirTemp("", "keepsake-frames-")
	if err != nil {
		return fmt.Errorf("frame extraction workspace: %w", err)
	}
	defer os.RemoveAll(dir)

	pattern := filepath.Join(dir, "frame-%06d.png")
	args := []string{
		"-hide_banner", "-loglevel", "error", "-nostdin",
		"-ss", formatSeconds(start),
		"-t", formatSeconds(end - start),
		"-i", path,
		"-vf", fmt.Sprintf("fps=%g", s.FPS),
		"-y", pattern,
	}
	cmd := exec.CommandContext(ctx, s.Binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(output))
		return fmt.Errorf("frame extraction: %w: %s", err, detail)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("frame extraction listing: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".png") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		gray, err := decodeGray(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("frame decode %s: %w", name, err)
		}
		frame := Frame{
			Timestamp: start + float64(i)/s.FPS,
			Image:     gray,
		}
		if err := fn(frame); err != nil {
			return err
		}
	}
	return nil
}

func decodeGray(path string) (*image.Gray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	decoded, err := png.Decode(f)
	if err != nil {
		return nil, err
	}
	if gray, ok := decoded.(*image.Gray); ok {
		return gray, nil
	}
	gray := image.NewGray(decoded.Bounds())
	draw.Draw(gray, gray.Bounds(), decoded, decoded.Bounds().Min, draw.Src)
	return gray, nil
}

func formatSeconds(value float64) string {
	if value < 0 {
		return "0"
	}
	return strconv.FormatFloat(value, 'f', 3, 64)
}
