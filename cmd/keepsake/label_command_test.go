package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLabelWithoutAPIKeyUsesPlaceholder(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeConfig(t, "")
	t.Setenv("GEMINI_API_KEY", "")

	source := filepath.Join(env.inputDir, "Christmas 2004", "VIDEO_TS", "VTS_01_2.VOB")
	if err := os.MkdirAll(filepath.Dir(source), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(source, []byte("vob"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	out, err := runCLI(t, "label", source, "--config", env.configPath)
	if err != nil {
		t.Fatalf("label without api key must not fail: %v", err)
	}
	requireContains(t, out, "Unidentified Event")
	requireContains(t, out, "Christmas 2004 - Ch01-2 - Unidentified Event.mp4")
}

func TestLabelSuggestsNameForLooseFile(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeConfig(t, "")
	t.Setenv("GEMINI_API_KEY", "")

	source := filepath.Join(env.inputDir, "Trips", "beach.mp4")
	if err := os.MkdirAll(filepath.Dir(source), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(source, []byte("mp4"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	out, err := runCLI(t, "label", source, "--config", env.configPath)
	if err != nil {
		t.Fatalf("label: %v", err)
	}
	requireContains(t, out, "Trips - Unidentified Event.mp4")
}
