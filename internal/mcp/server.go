package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fyrsmithlabs/briefd/internal/logging"
	"github.com/fyrsmithlabs/briefd/internal/tasks"
)

// Captioner describes an image.
type Captioner interface {
	Caption(ctx context.Context, image []byte) (string, error)
}

// DocumentReader extracts text from file bytes.
type DocumentReader interface {
	Read(ctx context.Context, data []byte, filename string) (string, error)
}

// TaskGenerator turns a brief into tasks.
type TaskGenerator interface {
	Generate(ctx context.Context, brief tasks.ProjectBrief) ([]tasks.Task, error)
}

// Services are the capabilities behind the tools.
type Services struct {
	Captioner Captioner
	Documents DocumentReader
	Tasks     TaskGenerator
}

// Server exposes Services as MCP tools.
type Server struct {
	mcp      *mcp.Server
	services Services
	metrics  *Metrics
	logger   *logging.Logger
	config   *Config
}

// Config configures the MCP server.
type Config struct {
	// Name is the implementation name reported to clients (default: "briefd").
	Name    string
	Version string

	// MaxContentBytes caps decoded file and image payloads. Zero disables it.
	MaxContentBytes int64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:            "briefd",
		Version:         "dev",
		MaxContentBytes: 5 << 20,
	}
}

// NewServer creates an MCP server with every tool registered.
func NewServer(cfg *Config, services Services, logger *logging.Logger) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if services.Captioner == nil {
		return nil, fmt.Errorf("captioner is required")
	}
	if services.Documents == nil {
		return nil, fmt.Errorf("document reader is required")
	}
	if services.Tasks == nil {
		return nil, fmt.Errorf("task generator is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	s := &Server{
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		services: services,
		metrics:  NewMetrics(logger),
		logger:   logger.Named("mcp"),
		config:   cfg,
	}
	s.registerTools()
	return s, nil
}

// Run serves on stdio until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info(ctx, "starting MCP server on stdio transport")
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}
