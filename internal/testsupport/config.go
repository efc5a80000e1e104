package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"keepsake/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.InputDir = filepath.Join(base, "input")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Gemini.APIKey = "test"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	if err := os.MkdirAll(builder.cfg.Paths.InputDir, 0o755); err != nil {
		t.Fatalf("mkdir input dir: %v", err)
	}

	return builder.cfg
}

// WithAPIKey overrides the analysis API key on the test config.
func WithAPIKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Gemini.APIKey = key
	}
}

// WithStubbedBinaries writes stand-in ffmpeg/ffprobe executables into the
// test workspace and points the config at them. The ffmpeg stub creates
// the output file named by its final argument; the ffprobe stub reports a
// 20-second container with an AAC audio stream.
func WithStubbedBinaries() ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		b.cfg.Transcode.FFmpegBinary = StubBinary(b.t, binDir, "ffmpeg", StubFFmpegScript)
		b.cfg.Transcode.FFprobeBinary = StubBinary(b.t, binDir, "ffprobe", StubFFprobeScript)
	}
}

// StubFFmpegScript touches the output file named by the final argument and
// succeeds, which satisfies both frame grabs and segment encodes.
const StubFFmpegScript = `#!/bin/sh
for last; do :; done
case "$last" in
-) ;;
*) : > "$last" ;;
esac
exit 0
`

// StubFFprobeScript reports a fixed 20-second container carrying an AAC
// audio stream.
const StubFFprobeScript = `#!/bin/sh
cat <<'EOF'
{"streams":[{"index":0,"codec_type":"video","codec_name":"mpeg2video","duration":"20.000000"},{"index":1,"codec_type":"audio","codec_name":"aac","channels":2}],"format":{"duration":"20.000000"}}
EOF
`

// StubBinary writes an executable script under dir and returns its path.
func StubBinary(t testing.TB, dir, name, script string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return target
}
