package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate reports configuration problems that must stop the run before any
// job is touched.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.InputDir) == "" {
		problems = append(problems, "paths.input_dir is required")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		problems = append(problems, "paths.output_dir is required")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		problems = append(problems, "paths.log_dir is required")
	}
	if c.Scan.LegacyMinBytes < 0 {
		problems = append(problems, "scan.legacy_min_bytes must not be negative")
	}
	if c.Scan.GeneralMinBytes < 0 {
		problems = append(problems, "scan.general_min_bytes must not be negative")
	}
	if c.Selection.BlurThreshold <= 0 {
		problems = append(problems, "selection.blur_threshold must be positive")
	}
	if c.Selection.SimilarityThreshold <= 0 || c.Selection.SimilarityThreshold > 1 {
		problems = append(problems, "selection.similarity_threshold must be in (0, 1]")
	}
	if c.Selection.SampleFPS <= 0 {
		problems = append(problems, "selection.sample_fps must be positive")
	}
	if c.Scenes.ChangeThreshold <= 0 || c.Scenes.ChangeThreshold >= 1 {
		problems = append(problems, "scenes.change_threshold must be in (0, 1)")
	}
	if c.Scenes.MinSceneSeconds < 0 {
		problems = append(problems, "scenes.min_scene_seconds must not be negative")
	}
	if c.Transcode.CRF < 0 || c.Transcode.CRF > 51 {
		problems = append(problems, "transcode.crf must be between 0 and 51")
	}
	if c.Gemini.PollIntervalSeconds <= 0 {
		problems = append(problems, "gemini.poll_interval_seconds must be positive")
	}
	if c.Gemini.AnalyzeTimeoutSeconds <= 0 {
		problems = append(problems, "gemini.analyze_timeout_seconds must be positive")
	}

	if len(problems) == 0 {
		return nil
	}
	if len(problems) == 1 {
		return errors.New(problems[0])
	}
	return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
}
