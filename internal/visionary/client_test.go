package visionary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"keepsake/internal/services"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Options{
		APIKey:       "test-key",
		BaseURL:      server.URL,
		HTTPClient:   server.Client(),
		PollInterval: 5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client, server
}

func writeTempProxy(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "proxy_tape.mp4")
	if err := os.WriteFile(path, []byte("not really a video"), 0o644); err != nil {
		t.Fatalf("write proxy: %v", err)
	}
	return path
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(Options{})
	if err == nil {
		t.Fatal("expected configuration error for missing key")
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration marker, got %v", err)
	}
}

func TestUploadPollsUntilActive(t *testing.T) {
	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload/v1beta/files", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Goog-Api-Key") != "test-key" {
			t.Errorf("missing api key header")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"file": map[string]any{"name": "files/abc123", "uri": "", "state": "PROCESSING"},
		})
	})
	mux.HandleFunc("GET /v1beta/files/abc123", func(w http.ResponseWriter, r *http.Request) {
		state := "PROCESSING"
		uri := ""
		if polls.Add(1) >= 3 {
			state = "ACTIVE"
			uri = "https://example.com/files/abc123"
		}
		json.NewEncoder(w).Encode(map[string]any{"name": "files/abc123", "uri": uri, "state": state})
	})

	client, _ := newTestClient(t, mux)
	handle, err := client.Upload(context.Background(), writeTempProxy(t))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if handle.Name != "files/abc123" || handle.URI == "" {
		t.Fatalf("unexpected handle: %#v", handle)
	}
	if polls.Load() < 3 {
		t.Fatalf("expected at least 3 polls, got %d", polls.Load())
	}
}

func TestUploadFailedStateSurfacesError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload/v1beta/files", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"file": map[string]any{"name": "files/bad", "state": "FAILED"},
		})
	})

	client, _ := newTestClient(t, mux)
	if _, err := client.Upload(context.Background(), writeTempProxy(t)); err == nil {
		t.Fatal("expected error for FAILED remote state")
	}
}

func TestUploadHonorsContextCancellation(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload/v1beta/files", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"file": map[string]any{"name": "files/slow", "state": "PROCESSING"},
		})
	})
	mux.HandleFunc("GET /v1beta/files/slow", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"name": "files/slow", "state": "PROCESSING"})
	})

	client, _ := newTestClient(t, mux)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := client.Upload(ctx, writeTempProxy(t)); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestResolveHandle(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1beta/files/kept", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"name": "files/kept", "uri": "https://example.com/kept", "state": "ACTIVE"})
	})
	mux.HandleFunc("GET /v1beta/files/gone", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"name": "files/gone", "state": "PROCESSING"})
	})

	client, _ := newTestClient(t, mux)

	handle, err := client.ResolveHandle(context.Background(), "files/kept")
	if err != nil {
		t.Fatalf("ResolveHandle failed: %v", err)
	}
	if handle.URI != "https://example.com/kept" {
		t.Fatalf("unexpected handle: %#v", handle)
	}

	if _, err := client.ResolveHandle(context.Background(), "files/gone"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found marker for non-active file, got %v", err)
	}
}

func TestAnalyzeParsesFencedResponse(t *testing.T) {
	payload := `{"year": 1992, "scenes": [{"start": 0, "end": 12, "title": "Pool Party", "description": "Kids jump in the pool.", "people": ["Anna", "Ben"]}]}`
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1beta/models/gemini-1.5-flash:generateContent", func(w http.ResponseWriter, r *http.Request) {
		var request generateRequest
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(request.Contents) != 1 || len(request.Contents[0].Parts) != 2 {
			t.Errorf("unexpected request shape: %#v", request)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]any{{"text": "```json\n" + payload + "\n```"}},
				},
			}},
		})
	})

	client, _ := newTestClient(t, mux)
	result, raw, err := client.Analyze(context.Background(), Handle{Name: "files/abc", URI: "https://example.com/abc"})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.Year != 1992 || len(result.Scenes) != 1 {
		t.Fatalf("unexpected result: %#v", result)
	}

	var reparsed AnalysisResult
	if err := json.Unmarshal([]byte(raw), &reparsed); err != nil {
		t.Fatalf("raw payload is not standalone JSON: %v", err)
	}
}

func TestAnalyzeRejectsMalformedResponse(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1beta/models/gemini-1.5-flash:generateContent", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]any{{"text": "I could not analyze this video."}},
				},
			}},
		})
	})

	client, _ := newTestClient(t, mux)
	if _, _, err := client.Analyze(context.Background(), Handle{Name: "files/abc"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation marker, got %v", err)
	}
}

func TestShortLabel(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1beta/models/gemini-1.5-flash:generateContent", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]any{{"text": "  Kids Opening Presents \n"}},
				},
			}},
		})
	})

	client, _ := newTestClient(t, mux)
	label, err := client.ShortLabel(context.Background(), Handle{Name: "files/abc"})
	if err != nil {
		t.Fatalf("ShortLabel failed: %v", err)
	}
	if label != "Kids Opening Presents" {
		t.Fatalf("label = %q", label)
	}
}

func TestDeleteBestEffort(t *testing.T) {
	var deleted atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /v1beta/files/abc", func(w http.ResponseWriter, r *http.Request) {
		deleted.Store(true)
		fmt.Fprint(w, "{}")
	})

	client, _ := newTestClient(t, mux)
	if err := client.Delete(context.Background(), "files/abc"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !deleted.Load() {
		t.Fatal("delete request never reached the server")
	}
}

func TestServerErrorIsTransient(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend unavailable", http.StatusServiceUnavailable)
	})

	client, _ := newTestClient(t, mux)
	if _, err := client.ResolveHandle(context.Background(), "files/abc"); !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}
