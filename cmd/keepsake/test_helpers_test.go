package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	configPath string
	inputDir   string
	outputDir  string
	logDir     string
	storePath  string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	env := &cliTestEnv{
		configPath: filepath.Join(base, "config.toml"),
		inputDir:   filepath.Join(base, "input"),
		outputDir:  filepath.Join(base, "output"),
		logDir:     filepath.Join(base, "logs"),
		storePath:  filepath.Join(base, "output", "jobs.db"),
	}
	for _, dir := range []string{env.inputDir, env.outputDir, env.logDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	env.writeConfig(t, "test")
	return env
}

// writeConfig rewrites the env's config file; an empty apiKey leaves the
// gemini section out entirely.
func (e *cliTestEnv) writeConfig(t *testing.T, apiKey string) {
	t.Helper()

	body := fmt.Sprintf(`[paths]
input_dir = %q
output_dir = %q
log_dir = %q
`, e.inputDir, e.outputDir, e.logDir)
	if apiKey != "" {
		body += fmt.Sprintf("\n[gemini]\napi_key = %q\n", apiKey)
	}
	if err := os.WriteFile(e.configPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	root := newRootCommand()
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func requireContains(t *testing.T, output, want string) {
	t.Helper()
	if !strings.Contains(output, want) {
		t.Fatalf("output missing %q:\n%s", want, output)
	}
}
