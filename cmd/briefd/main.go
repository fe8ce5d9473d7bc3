// Briefd turns project briefs, sketches and documents into development tasks
// using a locally hosted LLM.
//
// Usage:
//
//	# Start the HTTP API on :8000
//	briefd serve
//
//	# Serve the same capabilities as MCP tools on stdio
//	briefd mcp
//
//	# Extract tasks from a saved model reply
//	briefd extract reply.txt
//
// Configuration comes from an optional YAML file (--config) overlaid with
// BRIEFD_* environment variables.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "briefd",
		Short: "Task generation, image captioning and document reading on a local LLM",
		Long: `briefd wraps a locally hosted LLM runtime (Ollama or any OpenAI-compatible
endpoint) and exposes three capabilities:

  - caption an image with the vision model
  - extract plain text from .txt, .pdf and .docx files
  - turn a project brief into an ordered list of development tasks`,
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	root.AddCommand(
		newServeCmd(&configPath),
		newMCPCmd(&configPath),
		newExtractCmd(),
		newReadCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "briefd by Fyrsmith Labs\n")
			fmt.Fprintf(out, "Version:    %s\n", version)
			fmt.Fprintf(out, "Commit:     %s\n", gitCommit)
			fmt.Fprintf(out, "Build Date: %s\n", buildDate)
		},
	}
}
