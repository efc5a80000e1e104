package transcode

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"keepsake/internal/logging"
	"keepsake/internal/services"
)

// Synthesizer builds condensed proxy clips from selected frame timestamps.
// Each selected frame becomes one second of proxy video; the source's
// original audio rides along re-encoded to AAC.
type Synthesizer struct {
	runner   *Runner
	proxyDir string
	settings Settings
	logger   *slog.Logger
}

// NewSynthesizer returns a Synthesizer writing proxies into proxyDir.
func NewSynthesizer(runner *Runner, proxyDir string, settings Settings, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Synthesizer{
		runner:   runner,
		proxyDir: proxyDir,
		settings: settings,
		logger:   logger,
	}
}

// Synthesize extracts each timestamped frame from source, assembles them
// into a 1 fps clip with the original audio, and returns the proxy path.
// An empty timestamp list is a validation error; the scene had nothing
// worth analyzing.
func (s *Synthesizer) Synthesize(ctx context.Context, source string, timestamps []float64) (string, error) {
	if len(timestamps) == 0 {
		return "", services.Wrap(services.ErrValidation, "proxy", "synthesize", fmt.Sprintf("no frames selected for %s", source), nil)
	}

	workspace := filepath.Join(os.TempDir(), "keepsake-proxy-"+uuid.NewString())
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		return "", fmt.Errorf("proxy workspace: %w", err)
	}
	defer os.RemoveAll(workspace)

	for i, timestamp := range timestamps {
		framePath := filepath.Join(workspace, fmt.Sprintf("frame-%04d.png", i))
		if err := s.runner.Run(ctx, "frame grab", FrameGrabArgs(source, timestamp, framePath)); err != nil {
			return "", err
		}
	}

	if err := os.MkdirAll(s.proxyDir, 0o755); err != nil {
		return "", fmt.Errorf("proxy directory: %w", err)
	}
	output := filepath.Join(s.proxyDir, proxyName(source))
	pattern := filepath.Join(workspace, "frame-%04d.png")
	if err := s.runner.Run(ctx, "proxy mux", ProxyArgs(pattern, source, output, s.settings)); err != nil {
		return "", err
	}

	s.logger.Info("proxy created",
		logging.String("source", source),
		logging.String("proxy", output),
		logging.Int("frames", len(timestamps)))
	return output, nil
}

func proxyName(source string) string {
	base := filepath.Base(source)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return "proxy_" + base + ".mp4"
}
