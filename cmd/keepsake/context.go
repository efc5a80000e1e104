package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"keepsake/internal/config"
	"keepsake/internal/finalize"
	"keepsake/internal/frameselect"
	"keepsake/internal/jobstore"
	"keepsake/internal/logging"
	"keepsake/internal/scanner"
	"keepsake/internal/scenes"
	"keepsake/internal/transcode"
	"keepsake/internal/visionary"
	"keepsake/internal/workflow"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) newLogger(cfg *config.Config) (*slog.Logger, error) {
	format := cfg.Logging.Format
	if format == "console" && !stdoutIsTerminal() {
		format = "json"
	}
	outputs := []string{"stdout"}
	if dir := strings.TrimSpace(cfg.Paths.LogDir); dir != "" {
		outputs = append(outputs, filepath.Join(dir, "keepsake.log"))
	}
	return logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      format,
		OutputPaths: outputs,
	})
}

func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// withStore opens the job store for the duration of fn, surfacing a
// friendly message when another keepsake process holds the lock.
func (c *commandContext) withStore(fn func(*config.Config, *jobstore.Store, *slog.Logger) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.newLogger(cfg)
	if err != nil {
		return err
	}

	store, err := jobstore.Open(cfg.StorePath())
	if err != nil {
		if errors.Is(err, jobstore.ErrStoreLocked) {
			return fmt.Errorf("job store %s is in use by another keepsake process", cfg.StorePath())
		}
		return err
	}
	defer store.Close()

	return fn(cfg, store, logger)
}

// buildManager wires the full pipeline from configuration.
func buildManager(cfg *config.Config, store *jobstore.Store, logger *slog.Logger) (*workflow.Manager, error) {
	client, err := visionary.NewClient(visionary.Options{
		APIKey:         cfg.Gemini.APIKey,
		Model:          cfg.Gemini.Model,
		BaseURL:        cfg.Gemini.BaseURL,
		PollInterval:   time.Duration(cfg.Gemini.PollIntervalSeconds) * time.Second,
		AnalyzeTimeout: time.Duration(cfg.Gemini.AnalyzeTimeoutSeconds) * time.Second,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	settings := transcode.Settings{
		CRF:               cfg.Transcode.CRF,
		Preset:            cfg.Transcode.Preset,
		AudioBitrate:      cfg.Transcode.AudioBitrate,
		ProxyAudioBitrate: cfg.Transcode.ProxyBitrate,
	}
	runner := transcode.NewRunner(cfg.FFmpegBinary(), logger)
	source := frameselect.NewFFmpegSource(cfg.FFmpegBinary(), float64(cfg.Selection.SampleFPS))

	return workflow.NewManager(workflow.Deps{
		Store:       store,
		Scanner:     scanner.New(cfg.Paths.InputDir, cfg.Scan.LegacyMinBytes, cfg.Scan.GeneralMinBytes, cfg.Scan.Extensions, logger),
		Segmenter:   scenes.NewSegmenter(cfg.FFmpegBinary(), cfg.FFprobeBinary(), cfg.Scenes.ChangeThreshold, logger),
		Selector:    frameselect.NewSelector(source, cfg.Selection.BlurThreshold, cfg.Selection.SimilarityThreshold, logger),
		Synthesizer: transcode.NewSynthesizer(runner, cfg.ProxyDir(), settings, logger),
		Analyzer:    client,
		Emitter:     finalize.NewEmitter(runner, cfg.FFprobeBinary(), cfg.Paths.OutputDir, cfg.Scenes.MinSceneSeconds, settings, logger),
		Logger:      logger,
	}), nil
}
