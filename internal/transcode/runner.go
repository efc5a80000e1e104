package transcode

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"

	"keepsake/internal/logging"
	"keepsake/internal/services"
)

// Runner executes ffmpeg with prepared argument lists.
type Runner struct {
	binary string
	logger *slog.Logger
}

// NewRunner returns a Runner for the given ffmpeg binary ("ffmpeg" when
// empty).
func NewRunner(binary string, logger *slog.Logger) *Runner {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{binary: binary, logger: logger}
}

// Run executes one ffmpeg invocation, returning an external-tool error
// carrying the tail of ffmpeg's output on failure.
func (r *Runner) Run(ctx context.Context, operation string, args []string) error {
	r.logger.Debug("running ffmpeg",
		logging.String("operation", operation),
		logging.String("args", strings.Join(args, " ")))

	cmd := exec.CommandContext(ctx, r.binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		detail := tail(string(output), 4)
		return services.Wrap(services.ErrExternalTool, "transcode", operation, detail, err)
	}
	return nil
}

// tail keeps the last n non-empty lines of ffmpeg output for error detail.
func tail(text string, n int) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	kept := make([]string, 0, n)
	for i := len(lines) - 1; i >= 0 && len(kept) < n; i-- {
		line := strings.TrimSpace(lines[i])
		if line != "" {
			kept = append([]string{line}, kept...)
		}
	}
	return strings.Join(kept, "; ")
}
