package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpserver "github.com/fyrsmithlabs/briefd/internal/http"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the briefd HTTP API.

Endpoints:
  GET  /health            liveness and configured models
  GET  /metrics           Prometheus metrics
  POST /process-image     multipart "file" (image/*) -> {"text": caption}
  POST /process-document  multipart "file" (.txt .pdf .docx) -> {"text": content}
  POST /generate-tasks    project brief JSON -> {"tasks": [...]}

Examples:
  briefd serve
  BRIEFD_SERVER_PORT=9000 BRIEFD_MODEL_TEXT_MODEL=llama3.2 briefd serve
  briefd serve --config briefd.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), *configPath)
		},
	}
}

// runServe blocks until ctx is cancelled, then shuts the server down.
func runServe(ctx context.Context, configPath string) error {
	a, err := newApp(ctx, configPath, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	srv, err := httpserver.NewServer(httpserver.Services{
		Captioner: a.captioner,
		Documents: a.documents,
		Tasks:     a.generator,
	}, a.logger, &httpserver.Config{
		Host:           a.cfg.Server.Host,
		Port:           a.cfg.Server.Port,
		BodyLimit:      a.cfg.Server.BodyLimit,
		MaxUploadBytes: a.cfg.Server.MaxUploadBytes,
		CORSOrigins:    a.cfg.Server.CORSOrigins,
		Version:        version,
		Provider:       a.client.Provider(),
		TextModel:      a.client.TextModel(),
		VisionModel:    a.client.VisionModel(),
	})
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}
	srv.Echo().GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	a.watchPrompts(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info(context.Background(), "shutdown signal received",
		zap.Duration("timeout", a.cfg.Server.ShutdownTimeout.Duration()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
