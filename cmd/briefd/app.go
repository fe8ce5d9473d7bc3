package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/briefd/internal/config"
	"github.com/fyrsmithlabs/briefd/internal/document"
	"github.com/fyrsmithlabs/briefd/internal/llm"
	"github.com/fyrsmithlabs/briefd/internal/logging"
	"github.com/fyrsmithlabs/briefd/internal/tasks"
	"github.com/fyrsmithlabs/briefd/internal/telemetry"
	"github.com/fyrsmithlabs/briefd/internal/vision"
)

// app holds everything both the HTTP and MCP front ends need.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	telemetry *telemetry.Telemetry
	client    *llm.Client
	prompts   *tasks.PromptSet
	captioner *vision.Captioner
	documents *document.Reader
	generator *tasks.Generator
}

// newApp loads configuration and builds the services. logWriter overrides
// the log sink when non-nil.
func newApp(ctx context.Context, configPath string, logWriter zapcore.WriteSyncer) (*app, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logCfg, err := logging.FromSettings(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("invalid logging configuration: %w", err)
	}
	logCfg.Output.Writer = logWriter

	// Telemetry first so its log provider can feed the zap bridge. Its own
	// startup messages go to a nop logger.
	tel, err := telemetry.New(ctx, telemetry.FromSettings(cfg.Observability, version), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	logger, err := logging.NewLogger(logCfg, tel.LoggerProvider())
	if err != nil {
		_ = tel.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	client, err := llm.New(llm.ConfigFrom(cfg.Model), logger)
	if err != nil {
		_ = tel.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}
	client.WithTracer(tel.Tracer("github.com/fyrsmithlabs/briefd/internal/llm"))

	prompts, err := tasks.NewPromptSet(
		tasks.WithDir(cfg.Prompts.Dir),
		tasks.WithPromptLogger(logger),
	)
	if err != nil {
		_ = tel.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to load prompt templates: %w", err)
	}

	generator, err := tasks.NewGenerator(client, prompts, logger)
	if err != nil {
		_ = tel.Shutdown(context.Background())
		return nil, err
	}
	captioner, err := vision.NewCaptioner(client, logger)
	if err != nil {
		_ = tel.Shutdown(context.Background())
		return nil, err
	}

	logger.Info(ctx, "services initialized",
		zap.String("provider", client.Provider()),
		zap.String("base_url", cfg.Model.BaseURL),
		zap.String("text_model", client.TextModel()),
		zap.String("vision_model", client.VisionModel()),
		zap.Strings("prompts", prompts.Names()),
		zap.Bool("telemetry", tel.IsEnabled()),
	)

	return &app{
		cfg:       cfg,
		logger:    logger,
		telemetry: tel,
		client:    client,
		prompts:   prompts,
		captioner: captioner,
		documents: document.NewReader(logger),
		generator: generator,
	}, nil
}

// watchPrompts starts the template watcher when configured.
func (a *app) watchPrompts(ctx context.Context) {
	if !a.cfg.Prompts.Watch || a.cfg.Prompts.Dir == "" {
		return
	}
	if err := a.prompts.Watch(ctx); err != nil {
		a.logger.Warn(ctx, "prompt watcher disabled", zap.Error(err))
		return
	}
	a.logger.Info(ctx, "watching prompt templates", zap.String("dir", a.cfg.Prompts.Dir))
}

// Close flushes telemetry and logs.
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := a.telemetry.Shutdown(ctx); err != nil {
		a.logger.Warn(ctx, "telemetry shutdown failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}
