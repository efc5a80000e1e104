package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"keepsake/internal/jobstore"
)

func seedJobs(t *testing.T, env *cliTestEnv) {
	t.Helper()

	store, err := jobstore.Open(env.storePath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	tape := filepath.Join(env.inputDir, "tape.vob")
	if err := store.Register(ctx, tape, "Christmas 2004"); err != nil {
		t.Fatalf("register: %v", err)
	}
	done := filepath.Join(env.inputDir, "done.mp4")
	if err := store.Register(ctx, done, "Trips"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := store.Update(ctx, done, jobstore.StatusComplete, jobstore.Fields{}); err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestStatusHidesCompletedByDefault(t *testing.T) {
	env := setupCLITestEnv(t)
	seedJobs(t, env)

	out, err := runCLI(t, "status", "--config", env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "tape.vob")
	requireContains(t, out, "Christmas 2004")
	requireContains(t, out, "pending: 1")
	if strings.Contains(out, "done.mp4") {
		t.Fatalf("completed job listed without --all:\n%s", out)
	}

	out, err = runCLI(t, "status", "--all", "--config", env.configPath)
	if err != nil {
		t.Fatalf("status --all: %v", err)
	}
	requireContains(t, out, "done.mp4")
	requireContains(t, out, "complete: 1")
}

func TestStatusEmptyStore(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, "status", "--config", env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "No jobs registered")
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate(short) = %q", got)
	}
	if got := truncate("a long error message", 10); got != "a long ..." {
		t.Fatalf("truncate = %q", got)
	}
}
