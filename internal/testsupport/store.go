package testsupport

import (
	"context"
	"testing"

	"keepsake/internal/config"
	"keepsake/internal/jobstore"
)

// MustOpenStore opens a jobstore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobstore.Store {
	t.Helper()

	store, err := jobstore.Open(cfg.StorePath())
	if err != nil {
		t.Fatalf("jobstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// RegisterJob registers a source path for tests using the provided store.
func RegisterJob(t testing.TB, store *jobstore.Store, key, contextLabel string) {
	t.Helper()

	if err := store.Register(context.Background(), key, contextLabel); err != nil {
		t.Fatalf("store.Register: %v", err)
	}
}
