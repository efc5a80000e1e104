package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile fills the target path with size bytes of filler so scanner
// threshold tests can shape files precisely. A size <= 0 writes one byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}

	const chunkSize = int64(64 * 1024)
	chunk := bytes.Repeat([]byte{0x56}, int(min(size, chunkSize)))

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	for remaining := size; remaining > 0; remaining -= chunkSize {
		portion := chunk
		if remaining < chunkSize {
			portion = chunk[:remaining]
		}
		if _, err := f.Write(portion); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
}
