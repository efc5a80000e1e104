// Package workflow drives registered jobs through the pipeline's status
// ladder. Each run takes a snapshot of the jobs sitting at one status and
// advances them sequentially; per-job failures are recorded on the job and
// never abort the batch, so re-running the same command naturally resumes
// wherever the previous run stopped.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"keepsake/internal/jobstore"
	"keepsake/internal/logging"
	"keepsake/internal/scanner"
	"keepsake/internal/scenes"
	"keepsake/internal/services"
	"keepsake/internal/visionary"
)

// SourceScanner discovers candidate source files.
type SourceScanner interface {
	Scan() ([]scanner.Candidate, error)
}

// Segmenter partitions a source file into scene intervals.
type Segmenter interface {
	Detect(ctx context.Context, path string) ([]scenes.Scene, error)
}

// FrameSelector picks representative timestamps within one scene window.
type FrameSelector interface {
	Select(ctx context.Context, path string, start, end float64) []float64
}

// ProxySynthesizer assembles a condensed proxy clip from selected frames.
type ProxySynthesizer interface {
	Synthesize(ctx context.Context, source string, timestamps []float64) (string, error)
}

// Analyzer is the remote analysis service surface the driver consumes.
type Analyzer interface {
	Upload(ctx context.Context, path string) (visionary.Handle, error)
	ResolveHandle(ctx context.Context, name string) (visionary.Handle, error)
	Analyze(ctx context.Context, handle visionary.Handle) (*visionary.AnalysisResult, string, error)
	ShortLabel(ctx context.Context, handle visionary.Handle) (string, error)
	Delete(ctx context.Context, name string) error
}

// SegmentEmitter turns one analyzed job into final artifacts.
type SegmentEmitter interface {
	Emit(ctx context.Context, job jobstore.Job) (int, error)
}

// Deps collects the collaborators a Manager drives.
type Deps struct {
	Store       *jobstore.Store
	Scanner     SourceScanner
	Segmenter   Segmenter
	Selector    FrameSelector
	Synthesizer ProxySynthesizer
	Analyzer    Analyzer
	Emitter     SegmentEmitter
	Logger      *slog.Logger
}

// errStageSkipped marks a job deliberately left at its current status.
// runPass reports it as a skip, not a completion or failure.
var errStageSkipped = errors.New("stage skipped")

// Manager sequences the pipeline stages over the job store.
type Manager struct {
	store       *jobstore.Store
	scanner     SourceScanner
	segmenter   Segmenter
	selector    FrameSelector
	synthesizer ProxySynthesizer
	analyzer    Analyzer
	emitter     SegmentEmitter
	logger      *slog.Logger
}

// NewManager wires a Manager from its collaborators.
func NewManager(deps Deps) *Manager {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		store:       deps.Store,
		scanner:     deps.Scanner,
		segmenter:   deps.Segmenter,
		selector:    deps.Selector,
		synthesizer: deps.Synthesizer,
		analyzer:    deps.Analyzer,
		emitter:     deps.Emitter,
		logger:      logging.NewComponentLogger(logger, "workflow"),
	}
}

// Submit registers newly discovered sources and drives jobs through proxy
// creation, upload, and analysis. Only configuration-level failures abort;
// everything else is recorded per job and retried on the next run.
func (m *Manager) Submit(ctx context.Context) error {
	if err := m.registerCandidates(ctx); err != nil {
		return err
	}
	if err := m.runPass(ctx, "proxy", jobstore.StatusPending, m.buildProxy); err != nil {
		return err
	}
	if err := m.runPass(ctx, "upload", jobstore.StatusProxyCreated, m.upload); err != nil {
		return err
	}
	return m.runPass(ctx, "analyze", jobstore.StatusUploaded, m.analyze)
}

// Finalize drives analyzed jobs through segment emission.
func (m *Manager) Finalize(ctx context.Context) error {
	return m.runPass(ctx, "finalize", jobstore.StatusAnalyzed, m.emit)
}

// Label uploads one clip and returns a short free-text description. The
// remote copy is removed best-effort afterwards.
func (m *Manager) Label(ctx context.Context, path string) (string, error) {
	handle, err := m.analyzer.Upload(ctx, path)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := m.analyzer.Delete(ctx, handle.Name); err != nil {
			m.logger.Debug("remote cleanup failed", logging.String("remote", handle.Name), logging.Error(err))
		}
	}()
	return m.analyzer.ShortLabel(ctx, handle)
}

func (m *Manager) registerCandidates(ctx context.Context) error {
	candidates, err := m.scanner.Scan()
	if err != nil {
		return fmt.Errorf("scan input tree: %w", err)
	}
	for _, candidate := range candidates {
		if err := m.store.Register(ctx, candidate.Path, candidate.Context); err != nil {
			return err
		}
	}
	m.logger.Info("scan complete", logging.Int("candidates", len(candidates)))
	return nil
}

// runPass snapshots the jobs at one status and advances each in turn. The
// snapshot means jobs advanced by an earlier pass in the same run are
// picked up by the next pass, while failures stay put for the next
// invocation.
func (m *Manager) runPass(ctx context.Context, stage string, status jobstore.Status, fn func(context.Context, jobstore.Job) error) error {
	snapshot, err := m.store.ByStatus(ctx, status)
	if err != nil {
		return err
	}

	for _, job := range snapshot {
		jobCtx := services.WithJobKey(ctx, job.Key)
		jobCtx = services.WithStage(jobCtx, stage)
		jobCtx = services.WithRequestID(jobCtx, uuid.NewString())
		log := logging.WithContext(jobCtx, m.logger)

		log.Info("stage start", logging.String(logging.FieldEventType, "stage_start"))
		if err := fn(jobCtx, *job); err != nil {
			if errors.Is(err, errStageSkipped) {
				log.Warn("stage skipped",
					logging.String(logging.FieldEventType, "stage_skip"),
					logging.Error(err))
				continue
			}
			if services.IsFatal(err) {
				return err
			}
			log.Error("stage failed",
				logging.String(logging.FieldEventType, "stage_failure"),
				logging.Error(err))
			if storeErr := m.store.Update(ctx, job.Key, job.Status, jobstore.Fields{ErrorMessage: err.Error()}); storeErr != nil {
				log.Error("record job error", logging.Error(storeErr))
			}
			continue
		}
		log.Info("stage complete", logging.String(logging.FieldEventType, "stage_complete"))
	}
	return nil
}

func (m *Manager) buildProxy(ctx context.Context, job jobstore.Job) error {
	detected, err := m.segmenter.Detect(ctx, job.Key)
	if err != nil {
		return err
	}

	var timestamps []float64
	for _, scene := range detected {
		timestamps = append(timestamps, m.selector.Select(ctx, job.Key, scene.Start, scene.End)...)
	}

	proxyPath, err := m.synthesizer.Synthesize(ctx, job.Key, timestamps)
	if err != nil {
		return err
	}
	return m.store.Update(ctx, job.Key, jobstore.StatusProxyCreated, jobstore.Fields{
		ProxyPath:  proxyPath,
		ClearError: true,
	})
}

func (m *Manager) upload(ctx context.Context, job jobstore.Job) error {
	if job.ProxyPath == "" {
		return services.Wrap(services.ErrValidation, "upload", "precheck", "job has no proxy path", nil)
	}
	handle, err := m.analyzer.Upload(ctx, job.ProxyPath)
	if err != nil {
		return err
	}
	return m.store.Update(ctx, job.Key, jobstore.StatusUploaded, jobstore.Fields{
		RemoteName: handle.Name,
		RemoteURI:  handle.URI,
		ClearError: true,
	})
}

func (m *Manager) analyze(ctx context.Context, job jobstore.Job) error {
	if !job.HasRemoteHandle() {
		// No automated re-upload path: the handle was lost, an operator
		// has to reset the job by hand.
		if err := m.store.Update(ctx, job.Key, job.Status, jobstore.Fields{
			ErrorMessage: "no remote handle recorded; reset status to retry upload",
		}); err != nil {
			return err
		}
		return fmt.Errorf("%w: no remote handle recorded", errStageSkipped)
	}

	handle, err := m.analyzer.ResolveHandle(ctx, job.RemoteName)
	if err != nil {
		return err
	}
	result, raw, err := m.analyzer.Analyze(ctx, handle)
	if err != nil {
		return err
	}

	if err := m.store.Update(ctx, job.Key, jobstore.StatusAnalyzed, jobstore.Fields{
		AnalysisJSON: raw,
		ClearError:   true,
	}); err != nil {
		return err
	}

	if err := m.analyzer.Delete(ctx, handle.Name); err != nil {
		logging.WithContext(ctx, m.logger).Debug("remote cleanup failed", logging.Error(err))
	}
	logging.WithContext(ctx, m.logger).Info("analysis stored", logging.Int("scenes", len(result.Scenes)))
	return nil
}

func (m *Manager) emit(ctx context.Context, job jobstore.Job) error {
	emitted, err := m.emitter.Emit(ctx, job)
	if err != nil {
		return err
	}
	if err := m.store.Update(ctx, job.Key, jobstore.StatusComplete, jobstore.Fields{ClearError: true}); err != nil {
		return err
	}
	logging.WithContext(ctx, m.logger).Info("job finalized", logging.Int("segments", emitted))
	return nil
}
