package workflow_test

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"keepsake/internal/jobstore"
	"keepsake/internal/logging"
	"keepsake/internal/scanner"
	"keepsake/internal/scenes"
	"keepsake/internal/testsupport"
	"keepsake/internal/visionary"
	"keepsake/internal/workflow"
)

// eventRecorder collects the event_type attribute of every log record so
// tests can assert which stage events the driver emitted.
type eventRecorder struct {
	mu     sync.Mutex
	events []string
}

func (r *eventRecorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *eventRecorder) Handle(_ context.Context, record slog.Record) error {
	record.Attrs(func(attr slog.Attr) bool {
		if attr.Key == logging.FieldEventType {
			r.mu.Lock()
			r.events = append(r.events, attr.Value.String())
			r.mu.Unlock()
		}
		return true
	})
	return nil
}

func (r *eventRecorder) WithAttrs([]slog.Attr) slog.Handler { return r }
func (r *eventRecorder) WithGroup(string) slog.Handler      { return r }

func (r *eventRecorder) contains(event string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == event {
			return true
		}
	}
	return false
}

func (r *eventRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fakeScanner struct {
	candidates []scanner.Candidate
	err        error
}

func (f *fakeScanner) Scan() ([]scanner.Candidate, error) { return f.candidates, f.err }

type fakeSegmenter struct {
	scenes  []scenes.Scene
	failFor map[string]error
}

func (f *fakeSegmenter) Detect(_ context.Context, path string) ([]scenes.Scene, error) {
	if err := f.failFor[path]; err != nil {
		return nil, err
	}
	if f.scenes != nil {
		return f.scenes, nil
	}
	return []scenes.Scene{{Start: 0, End: 10}}, nil
}

type fakeSelector struct{}

func (fakeSelector) Select(_ context.Context, _ string, start, end float64) []float64 {
	if start >= end {
		return nil
	}
	return []float64{start, (start + end) / 2}
}

type fakeSynthesizer struct {
	failFor map[string]error
	calls   int
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, source string, timestamps []float64) (string, error) {
	f.calls++
	if err := f.failFor[source]; err != nil {
		return "", err
	}
	if len(timestamps) == 0 {
		return "", errors.New("no frames")
	}
	return "/proxies/proxy_" + filepath.Base(source) + ".mp4", nil
}

type fakeAnalyzer struct {
	uploadErr   error
	analyzeErr  error
	resolveErr  error
	analyzed    int
	deleted     []string
	labelResult string
}

func (f *fakeAnalyzer) Upload(_ context.Context, path string) (visionary.Handle, error) {
	if f.uploadErr != nil {
		return visionary.Handle{}, f.uploadErr
	}
	return visionary.Handle{Name: "files/" + filepath.Base(path), URI: "uri://" + filepath.Base(path)}, nil
}

func (f *fakeAnalyzer) ResolveHandle(_ context.Context, name string) (visionary.Handle, error) {
	if f.resolveErr != nil {
		return visionary.Handle{}, f.resolveErr
	}
	return visionary.Handle{Name: name, URI: "uri://" + name}, nil
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ visionary.Handle) (*visionary.AnalysisResult, string, error) {
	if f.analyzeErr != nil {
		return nil, "", f.analyzeErr
	}
	f.analyzed++
	raw := `{"year": 1999, "scenes": [{"start": 0, "end": 5, "title": "Party", "description": "x"}]}`
	result, err := visionary.ParseAnalysis(raw)
	if err != nil {
		return nil, "", err
	}
	return result, raw, nil
}

func (f *fakeAnalyzer) ShortLabel(_ context.Context, _ visionary.Handle) (string, error) {
	if f.labelResult == "" {
		return "Beach Volleyball", nil
	}
	return f.labelResult, nil
}

func (f *fakeAnalyzer) Delete(_ context.Context, name string) error {
	f.deleted = append(f.deleted, name)
	return nil
}

type fakeEmitter struct {
	err     error
	emitted int
}

func (f *fakeEmitter) Emit(_ context.Context, _ jobstore.Job) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.emitted++
	return 2, nil
}

type fixture struct {
	store    *jobstore.Store
	scanner  *fakeScanner
	segments *fakeSegmenter
	synth    *fakeSynthesizer
	analyzer *fakeAnalyzer
	emitter  *fakeEmitter
	events   *eventRecorder
	manager  *workflow.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	f := &fixture{
		store:    store,
		scanner:  &fakeScanner{},
		segments: &fakeSegmenter{failFor: map[string]error{}},
		synth:    &fakeSynthesizer{failFor: map[string]error{}},
		analyzer: &fakeAnalyzer{},
		emitter:  &fakeEmitter{},
		events:   &eventRecorder{},
	}
	f.manager = workflow.NewManager(workflow.Deps{
		Store:       store,
		Scanner:     f.scanner,
		Segmenter:   f.segments,
		Selector:    fakeSelector{},
		Synthesizer: f.synth,
		Analyzer:    f.analyzer,
		Emitter:     f.emitter,
		Logger:      slog.New(f.events),
	})
	return f
}

func mustGet(t *testing.T, store *jobstore.Store, key string) *jobstore.Job {
	t.Helper()
	job, err := store.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get %s: %v", key, err)
	}
	if job == nil {
		t.Fatalf("job %s not found", key)
	}
	return job
}

func TestSubmitDrivesJobToAnalyzed(t *testing.T) {
	f := newFixture(t)
	f.scanner.candidates = []scanner.Candidate{{Path: "/in/tapes/VIDEO_TS/VTS_01_1.VOB", Context: "tapes"}}

	if err := f.manager.Submit(context.Background()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	job := mustGet(t, f.store, "/in/tapes/VIDEO_TS/VTS_01_1.VOB")
	if job.Status != jobstore.StatusAnalyzed {
		t.Fatalf("status = %s, want analyzed", job.Status)
	}
	if job.ProxyPath == "" || job.RemoteName == "" || job.AnalysisJSON == "" {
		t.Fatalf("stage outputs missing: %#v", job)
	}
	if job.ErrorMessage != "" {
		t.Fatalf("unexpected error message: %q", job.ErrorMessage)
	}
	if len(f.analyzer.deleted) != 1 {
		t.Fatalf("remote proxy not cleaned up: %v", f.analyzer.deleted)
	}
}

func TestSubmitIsolatesPerJobFailures(t *testing.T) {
	f := newFixture(t)
	f.scanner.candidates = []scanner.Candidate{
		{Path: "/in/a.mp4", Context: "a"},
		{Path: "/in/b.mp4", Context: "b"},
	}
	f.segments.failFor["/in/a.mp4"] = errors.New("boundary detection exploded")

	if err := f.manager.Submit(context.Background()); err != nil {
		t.Fatalf("Submit must not abort on per-job failure: %v", err)
	}

	failed := mustGet(t, f.store, "/in/a.mp4")
	if failed.Status != jobstore.StatusPending {
		t.Fatalf("failed job advanced to %s", failed.Status)
	}
	if failed.ErrorMessage == "" {
		t.Fatal("failed job carries no error message")
	}

	ok := mustGet(t, f.store, "/in/b.mp4")
	if ok.Status != jobstore.StatusAnalyzed {
		t.Fatalf("healthy job stuck at %s", ok.Status)
	}
}

func TestSubmitResumesFromPersistedStatus(t *testing.T) {
	f := newFixture(t)
	key := "/in/resume.mp4"
	testsupport.RegisterJob(t, f.store, key, "resume")
	if err := f.store.Update(context.Background(), key, jobstore.StatusProxyCreated, jobstore.Fields{ProxyPath: "/proxies/p.mp4"}); err != nil {
		t.Fatalf("seed status: %v", err)
	}

	if err := f.manager.Submit(context.Background()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if f.synth.calls != 0 {
		t.Fatalf("proxy stage re-ran for an already-proxied job (%d calls)", f.synth.calls)
	}
	job := mustGet(t, f.store, key)
	if job.Status != jobstore.StatusAnalyzed {
		t.Fatalf("status = %s, want analyzed", job.Status)
	}
}

func TestSubmitSkipsUploadedJobWithoutHandle(t *testing.T) {
	f := newFixture(t)
	key := "/in/lost-handle.mp4"
	testsupport.RegisterJob(t, f.store, key, "lost")
	if err := f.store.Update(context.Background(), key, jobstore.StatusUploaded, jobstore.Fields{ProxyPath: "/proxies/p.mp4"}); err != nil {
		t.Fatalf("seed status: %v", err)
	}

	if err := f.manager.Submit(context.Background()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if f.analyzer.analyzed != 0 {
		t.Fatal("analysis ran without a remote handle")
	}
	job := mustGet(t, f.store, key)
	if job.Status != jobstore.StatusUploaded {
		t.Fatalf("status = %s, want uploaded", job.Status)
	}
	if job.ErrorMessage == "" {
		t.Fatal("missing-handle condition not recorded")
	}

	// the skip must surface as its own event, not as a completion
	if !f.events.contains("stage_skip") {
		t.Fatalf("skip not reported: %v", f.events.all())
	}
	if f.events.contains("stage_complete") {
		t.Fatalf("skipped job reported as complete: %v", f.events.all())
	}
	if f.events.contains("stage_failure") {
		t.Fatalf("skipped job reported as failed: %v", f.events.all())
	}
}

func TestSubmitRetryAfterUploadFailure(t *testing.T) {
	f := newFixture(t)
	f.scanner.candidates = []scanner.Candidate{{Path: "/in/flaky.mp4", Context: "flaky"}}
	f.analyzer.uploadErr = errors.New("network down")

	if err := f.manager.Submit(context.Background()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	job := mustGet(t, f.store, "/in/flaky.mp4")
	if job.Status != jobstore.StatusProxyCreated {
		t.Fatalf("status = %s, want proxy_created after failed upload", job.Status)
	}

	// next run picks up where the last one stopped
	f.analyzer.uploadErr = nil
	if err := f.manager.Submit(context.Background()); err != nil {
		t.Fatalf("second Submit failed: %v", err)
	}
	job = mustGet(t, f.store, "/in/flaky.mp4")
	if job.Status != jobstore.StatusAnalyzed {
		t.Fatalf("status = %s, want analyzed after retry", job.Status)
	}
	if job.ErrorMessage != "" {
		t.Fatalf("stale error message survived retry: %q", job.ErrorMessage)
	}
}

func TestFinalizeCompletesAnalyzedJobs(t *testing.T) {
	f := newFixture(t)
	key := "/in/done.mp4"
	testsupport.RegisterJob(t, f.store, key, "done")
	if err := f.store.Update(context.Background(), key, jobstore.StatusAnalyzed, jobstore.Fields{AnalysisJSON: `{"scenes":[{"start":0,"end":5,"title":"T","description":"d"}]}`}); err != nil {
		t.Fatalf("seed status: %v", err)
	}

	if err := f.manager.Finalize(context.Background()); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	job := mustGet(t, f.store, key)
	if job.Status != jobstore.StatusComplete {
		t.Fatalf("status = %s, want complete", job.Status)
	}
	if f.emitter.emitted != 1 {
		t.Fatalf("emitter ran %d times, want 1", f.emitter.emitted)
	}
}

func TestFinalizeLeavesJobOnEmitterFailure(t *testing.T) {
	f := newFixture(t)
	key := "/in/stuck.mp4"
	testsupport.RegisterJob(t, f.store, key, "stuck")
	if err := f.store.Update(context.Background(), key, jobstore.StatusAnalyzed, jobstore.Fields{AnalysisJSON: `{"scenes":[{"start":0,"end":5,"title":"T","description":"d"}]}`}); err != nil {
		t.Fatalf("seed status: %v", err)
	}
	f.emitter.err = errors.New("disk full")

	if err := f.manager.Finalize(context.Background()); err != nil {
		t.Fatalf("Finalize must tolerate per-job failure: %v", err)
	}
	job := mustGet(t, f.store, key)
	if job.Status != jobstore.StatusAnalyzed {
		t.Fatalf("status = %s, want analyzed preserved", job.Status)
	}
	if job.ErrorMessage == "" {
		t.Fatal("emitter failure not recorded")
	}
}

func TestLabelUploadsAndCleansUp(t *testing.T) {
	f := newFixture(t)

	label, err := f.manager.Label(context.Background(), "/in/clip.mp4")
	if err != nil {
		t.Fatalf("Label failed: %v", err)
	}
	if label != "Beach Volleyball" {
		t.Fatalf("label = %q", label)
	}
	if len(f.analyzer.deleted) != 1 {
		t.Fatalf("uploaded clip not cleaned up: %v", f.analyzer.deleted)
	}
}
