package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/briefd/internal/mcp"
)

func newMCPCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the tools over MCP on stdio",
		Long: `Serve generate_tasks, read_document and caption_image as Model Context
Protocol tools on stdin/stdout. Logs go to stderr.

Example MCP client entry:
  {"command": "briefd", "args": ["mcp"]}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMCP(cmd.Context(), *configPath)
		},
	}
}

func runMCP(ctx context.Context, configPath string) error {
	a, err := newApp(ctx, configPath, zapcore.Lock(os.Stderr))
	if err != nil {
		return err
	}
	defer a.Close()

	srv, err := mcp.NewServer(&mcp.Config{
		Name:            "briefd",
		Version:         version,
		MaxContentBytes: a.cfg.Server.MaxUploadBytes,
	}, mcp.Services{
		Captioner: a.captioner,
		Documents: a.documents,
		Tasks:     a.generator,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create mcp server: %w", err)
	}

	a.watchPrompts(ctx)
	return srv.Run(ctx)
}
