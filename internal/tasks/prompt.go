package tasks

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/tyler-sommer/stick"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/briefd/internal/logging"
)

// GenerateTasksPrompt is the template rendered for every brief.
const GenerateTasksPrompt = "generate_tasks"

//go:embed templates/*.twig
var builtinTemplates embed.FS

// PromptSet holds named Twig templates. Built-in templates are embedded;
// files in an override directory replace them by name.
type PromptSet struct {
	env    *stick.Env
	dir    string
	logger *logging.Logger
	// base is the set without directory overrides.
	base map[string]string

	mu        sync.RWMutex
	templates map[string]string
}

// PromptOption configures a PromptSet.
type PromptOption func(*PromptSet) error

// WithDir loads *.twig overrides from dir.
func WithDir(dir string) PromptOption {
	return func(p *PromptSet) error {
		p.dir = dir
		return nil
	}
}

// WithTemplates adds in-memory templates, replacing any with the same name.
func WithTemplates(m map[string]string) PromptOption {
	return func(p *PromptSet) error {
		for name, tpl := range m {
			if err := p.validate(name, tpl); err != nil {
				return err
			}
			p.base[name] = tpl
		}
		return nil
	}
}

// WithPromptLogger sets the logger used for reload events.
func WithPromptLogger(l *logging.Logger) PromptOption {
	return func(p *PromptSet) error {
		if l != nil {
			p.logger = l
		}
		return nil
	}
}

// NewPromptSet loads the built-in templates, then applies opts and any
// override directory.
func NewPromptSet(opts ...PromptOption) (*PromptSet, error) {
	p := &PromptSet{
		env:    stick.New(nil),
		logger: logging.NewNop(),
		base:   make(map[string]string),
	}
	builtins, err := loadTemplates(builtinTemplates, "templates")
	if err != nil {
		return nil, fmt.Errorf("load built-in templates: %w", err)
	}
	for name, tpl := range builtins {
		p.base[name] = tpl
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.templates = maps.Clone(p.base)

	if p.dir != "" {
		if err := p.Reload(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Names returns the available template names, sorted.
func (p *PromptSet) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.templates))
	for name := range p.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render executes the named template with vars.
func (p *PromptSet) Render(name string, vars map[string]stick.Value) (string, error) {
	p.mu.RLock()
	tpl, ok := p.templates[name]
	p.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("template %q not found", name)
	}

	var out strings.Builder
	if err := p.env.Execute(tpl, &out, vars); err != nil {
		return "", fmt.Errorf("execute %q: %w", name, err)
	}
	return out.String(), nil
}

// Reload rebuilds the set from the base templates and the current contents
// of the override directory, so a deleted override falls back to its base
// template. A template that fails to parse aborts the reload and leaves the
// current set untouched.
func (p *PromptSet) Reload() error {
	if p.dir == "" {
		return nil
	}
	overrides, err := loadTemplates(os.DirFS(p.dir), ".")
	if err != nil {
		return fmt.Errorf("load templates from %s: %w", p.dir, err)
	}
	for name, tpl := range overrides {
		if err := p.validate(name, tpl); err != nil {
			return err
		}
	}

	templates := maps.Clone(p.base)
	for name, tpl := range overrides {
		templates[name] = tpl
	}

	p.mu.Lock()
	p.templates = templates
	p.mu.Unlock()
	return nil
}

// Watch reloads the override directory whenever a file in it changes, until
// ctx is done. It returns immediately when no directory is configured.
func (p *PromptSet) Watch(ctx context.Context) error {
	if p.dir == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(p.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", p.dir, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !strings.HasSuffix(event.Name, ".twig") || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) {
					continue
				}
				if err := p.Reload(); err != nil {
					p.logger.Warn(ctx, "prompt reload failed", zap.String("file", event.Name), zap.Error(err))
					continue
				}
				p.logger.Info(ctx, "prompts reloaded", zap.String("file", event.Name))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				p.logger.Warn(ctx, "prompt watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}

func (p *PromptSet) validate(name, tpl string) error {
	if _, err := p.env.Parse(tpl); err != nil {
		return fmt.Errorf("parse template %q: %w", name, err)
	}
	return nil
}

func loadTemplates(fsys fs.FS, dir string) (map[string]string, error) {
	out := make(map[string]string)
	err := fs.WalkDir(fsys, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".twig") {
			return nil
		}
		content, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		out[strings.TrimSuffix(filepath.Base(path), ".twig")] = string(content)
		return nil
	})
	return out, err
}
