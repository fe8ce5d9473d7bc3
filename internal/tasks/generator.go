package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tyler-sommer/stick"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/briefd/internal/apperr"
	"github.com/fyrsmithlabs/briefd/internal/logging"
)

// Completer sends a single-turn prompt to a text model and returns the reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Generator builds task lists from project briefs.
type Generator struct {
	model   Completer
	prompts *PromptSet
	logger  *logging.Logger
}

// NewGenerator creates a Generator. prompts may be nil to use the built-in
// templates only.
func NewGenerator(model Completer, prompts *PromptSet, logger *logging.Logger) (*Generator, error) {
	if model == nil {
		return nil, fmt.Errorf("tasks: model is required")
	}
	if prompts == nil {
		var err error
		if prompts, err = NewPromptSet(); err != nil {
			return nil, err
		}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Generator{model: model, prompts: prompts, logger: logger.Named("tasks")}, nil
}

// BuildPrompt renders the generate_tasks template for brief. Description and
// requirements are embedded verbatim; inspiration and integrations only when
// present.
func (g *Generator) BuildPrompt(brief ProjectBrief) (string, error) {
	integrations := make([]string, 0, len(brief.Integrations))
	for _, name := range brief.Integrations {
		if s := strings.TrimSpace(name); s != "" {
			integrations = append(integrations, s)
		}
	}
	inspiration := strings.TrimSpace(brief.Inspiration())

	return g.prompts.Render(GenerateTasksPrompt, map[string]stick.Value{
		"description":      brief.Description,
		"requirements":     brief.Requirements,
		"inspiration":      inspiration,
		"has_inspiration":  inspiration != "",
		"integrations":     strings.Join(integrations, ", "),
		"has_integrations": len(integrations) > 0,
	})
}

// Generate asks the text model for tasks and extracts them from the reply.
// The task count is whatever the model produced.
func (g *Generator) Generate(ctx context.Context, brief ProjectBrief) ([]Task, error) {
	prompt, err := g.BuildPrompt(brief)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}
	g.logger.Trace(ctx, "task prompt", zap.String("prompt", prompt))

	start := time.Now()
	reply, err := g.model.Complete(ctx, prompt)
	if err != nil {
		err = apperr.Model("text", err)
		g.logger.Error(ctx, "task generation failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return nil, err
	}
	g.logger.Trace(ctx, "task reply", zap.String("reply", reply))

	tasks := Extract(reply)
	if len(tasks) == 0 {
		g.logger.Warn(ctx, "no tasks found in model reply", zap.Int("reply_len", len(reply)))
	}
	g.logger.Info(ctx, "tasks generated",
		zap.Int("count", len(tasks)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return tasks, nil
}
