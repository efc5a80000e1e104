// Package finalize turns a persisted analysis result into final archival
// artifacts: one re-encoded segment per described scene plus a JSON
// sidecar with matching base name.
package finalize

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"keepsake/internal/jobstore"
	"keepsake/internal/logging"
	"keepsake/internal/media/ffprobe"
	"keepsake/internal/naming"
	"keepsake/internal/services"
	"keepsake/internal/transcode"
	"keepsake/internal/visionary"
)

// unknownValue stands in for a year or location the analysis could not
// determine.
const unknownValue = "Unknown"

// aacCodec is the audio codec final segments accept without re-encoding.
const aacCodec = "aac"

// Sidecar is the metadata record written alongside each emitted segment.
type Sidecar struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Year        string `json:"year"`
	Location    string `json:"location"`
	People      string `json:"people"`
}

// Emitter cuts and re-encodes analyzed scenes into the output directory.
type Emitter struct {
	runner          *transcode.Runner
	ffprobeBinary   string
	outputDir       string
	minSceneSeconds float64
	settings        transcode.Settings
	logger          *slog.Logger
}

// NewEmitter builds an Emitter writing into outputDir. Scenes shorter than
// minSceneSeconds are skipped at emission time.
func NewEmitter(runner *transcode.Runner, ffprobeBinary, outputDir string, minSceneSeconds float64, settings transcode.Settings, logger *slog.Logger) *Emitter {
	if minSceneSeconds <= 0 {
		minSceneSeconds = 1.0
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Emitter{
		runner:          runner,
		ffprobeBinary:   ffprobeBinary,
		outputDir:       outputDir,
		minSceneSeconds: minSceneSeconds,
		settings:        settings,
		logger:          logger,
	}
}

// Emit writes one segment and sidecar per scene of the job's persisted
// analysis. Per-scene transcode failures are logged and do not abort the
// remaining scenes; the returned count covers successful emissions. An
// unparsable analysis or unreadable source is a job-level error.
func (e *Emitter) Emit(ctx context.Context, job jobstore.Job) (int, error) {
	result, err := visionary.ParseAnalysis(job.AnalysisJSON)
	if err != nil {
		return 0, err
	}

	probed, err := ffprobe.Inspect(ctx, e.ffprobeBinary, job.Key)
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "finalize", "probe", "probe source audio", err)
	}
	copyAudio := probed.AudioCodec() == aacCodec

	if err := os.MkdirAll(e.outputDir, 0o755); err != nil {
		return 0, fmt.Errorf("output directory: %w", err)
	}

	emitted := 0
	for i, scene := range result.Scenes {
		duration := scene.End.Seconds() - scene.Start.Seconds()
		if duration < e.minSceneSeconds {
			e.logger.Debug("skipping short scene",
				logging.String(logging.FieldJobKey, job.Key),
				logging.Int(logging.FieldScene, i),
				logging.Float64("duration", duration))
			continue
		}

		outputPath := naming.UniquePath(e.outputDir, e.baseName(result, scene), ".mp4")
		args := transcode.SegmentArgs(job.Key, outputPath, scene.Start.Seconds(), scene.End.Seconds(), copyAudio, e.settings)
		if err := e.runner.Run(ctx, "segment", args); err != nil {
			e.logger.Error("scene transcode failed",
				logging.String(logging.FieldJobKey, job.Key),
				logging.Int(logging.FieldScene, i),
				logging.Error(err))
			continue
		}

		if err := e.writeSidecar(outputPath, result, scene); err != nil {
			e.logger.Error("sidecar write failed",
				logging.String(logging.FieldJobKey, job.Key),
				logging.String("output", outputPath),
				logging.Error(err))
			continue
		}

		e.logger.Info("scene emitted",
			logging.String(logging.FieldJobKey, job.Key),
			logging.Int(logging.FieldScene, i),
			logging.String("output", outputPath))
		emitted++
	}
	return emitted, nil
}

// baseName builds the segment filename stem: "<year> - <title>", both
// resolved through precedence and sanitization.
func (e *Emitter) baseName(result *visionary.AnalysisResult, scene visionary.SceneDescriptor) string {
	title := naming.SanitizeLabel(scene.Title)
	if title == "" {
		title = "Untitled Event"
	}
	return yearLabel(result.EffectiveYear(scene)) + " - " + title
}

func (e *Emitter) writeSidecar(segmentPath string, result *visionary.AnalysisResult, scene visionary.SceneDescriptor) error {
	location := strings.TrimSpace(result.EffectiveLocation(scene))
	if location == "" {
		location = unknownValue
	}
	sidecar := Sidecar{
		Title:       scene.Title,
		Description: scene.Description,
		Year:        yearLabel(result.EffectiveYear(scene)),
		Location:    location,
		People:      strings.Join(scene.People, ", "),
	}
	data, err := json.MarshalIndent(sidecar, "", "  ")
	if err != nil {
		return err
	}

	path := strings.TrimSuffix(segmentPath, filepath.Ext(segmentPath)) + ".json"
	return os.WriteFile(path, data, 0o644)
}

func yearLabel(year int) string {
	if year <= 0 {
		return unknownValue
	}
	return strconv.Itoa(year)
}
