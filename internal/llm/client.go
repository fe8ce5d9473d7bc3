// Package llm talks to the local model runtime through langchaingo.
//
// A Client holds one model per role: a text model for task generation and a
// vision model for image captions. Ollama is reached through its native API;
// any other runtime through its OpenAI-compatible endpoint.
package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/briefd/internal/apperr"
	"github.com/fyrsmithlabs/briefd/internal/config"
	"github.com/fyrsmithlabs/briefd/internal/logging"
)

const instrumentationName = "github.com/fyrsmithlabs/briefd/internal/llm"

// Providers.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Role selects which model serves a call.
type Role string

const (
	RoleText   Role = "text"
	RoleVision Role = "vision"
)

// placeholderToken satisfies the openai client, which refuses an empty key.
// Local OpenAI-compatible servers ignore it.
const placeholderToken = "briefd-local"

// Config configures a Client.
type Config struct {
	Provider    string
	BaseURL     string
	APIKey      string
	TextModel   string
	VisionModel string
	// Timeout bounds each call. Zero means no bound.
	Timeout time.Duration
	// RateLimit is calls per second shared by both roles. Zero disables it.
	RateLimit float64
	Burst     int
}

// ConfigFrom maps the model section of the application config.
func ConfigFrom(m config.ModelConfig) Config {
	return Config{
		Provider:    m.Provider,
		BaseURL:     m.BaseURL,
		APIKey:      m.APIKey.Value(),
		TextModel:   m.TextModel,
		VisionModel: m.VisionModel,
		Timeout:     m.Timeout.Duration(),
		RateLimit:   m.RateLimit,
		Burst:       m.Burst,
	}
}

// Client issues single-turn chat calls to the text and vision models.
// It is safe for concurrent use.
type Client struct {
	cfg     Config
	text    llms.Model
	vision  llms.Model
	limiter *rate.Limiter
	tracer  trace.Tracer
	logger  *logging.Logger
}

// New creates a Client for cfg.Provider. No connection is made until the
// first call.
func New(cfg Config, logger *logging.Logger) (*Client, error) {
	text, err := newModel(cfg, cfg.TextModel)
	if err != nil {
		return nil, fmt.Errorf("text model: %w", err)
	}
	vision, err := newModel(cfg, cfg.VisionModel)
	if err != nil {
		return nil, fmt.Errorf("vision model: %w", err)
	}
	return NewWithModels(cfg, text, vision, logger), nil
}

// NewWithModels creates a Client around existing models.
func NewWithModels(cfg Config, text, vision llms.Model, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return &Client{
		cfg:     cfg,
		text:    text,
		vision:  vision,
		limiter: limiter,
		tracer:  otel.Tracer(instrumentationName),
		logger:  logger.Named("llm"),
	}
}

// WithTracer replaces the tracer taken from the global provider.
func (c *Client) WithTracer(tracer trace.Tracer) *Client {
	if tracer != nil {
		c.tracer = tracer
	}
	return c
}

func newModel(cfg Config, model string) (llms.Model, error) {
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("model name is required")
	}
	switch cfg.Provider {
	case ProviderOllama, "":
		return ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(model),
		)
	case ProviderOpenAI:
		token := cfg.APIKey
		if token == "" {
			token = placeholderToken
		}
		return openai.New(
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithModel(model),
			openai.WithToken(token),
		)
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
}

// TextModel returns the configured text model name.
func (c *Client) TextModel() string { return c.cfg.TextModel }

// VisionModel returns the configured vision model name.
func (c *Client) VisionModel() string { return c.cfg.VisionModel }

// Provider returns the configured provider.
func (c *Client) Provider() string { return c.cfg.Provider }

// Complete sends prompt to the text model and returns its reply.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	return c.call(ctx, RoleText, []llms.ContentPart{llms.TextPart(prompt)})
}

// DescribeImage sends instruction and one image to the vision model. The
// image travels base64-encoded inside the JSON request body.
func (c *Client) DescribeImage(ctx context.Context, instruction string, image []byte, mimeType string) (string, error) {
	var imagePart llms.ContentPart
	if c.cfg.Provider == ProviderOpenAI {
		imagePart = llms.ImageURLPart("data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image))
	} else {
		// The ollama client marshals raw bytes as base64.
		imagePart = llms.BinaryPart(mimeType, image)
	}
	return c.call(ctx, RoleVision, []llms.ContentPart{llms.TextPart(instruction), imagePart})
}

func (c *Client) call(ctx context.Context, role Role, parts []llms.ContentPart) (string, error) {
	model, name := c.text, c.cfg.TextModel
	if role == RoleVision {
		model, name = c.vision, c.cfg.VisionModel
	}

	ctx, span := c.tracer.Start(ctx, "llm.generate", trace.WithAttributes(
		attribute.String("llm.provider", c.cfg.Provider),
		attribute.String("llm.role", string(role)),
		attribute.String("llm.model", name),
	))
	defer span.End()

	start := time.Now()
	InFlight.WithLabelValues(string(role)).Inc()
	defer InFlight.WithLabelValues(string(role)).Dec()

	reply, err := c.generate(ctx, model, name, parts)

	elapsed := time.Since(start)
	RequestDuration.WithLabelValues(string(role), name).Observe(elapsed.Seconds())
	RequestsTotal.WithLabelValues(string(role), name, apperr.Kind(err)).Inc()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn(ctx, "model call failed",
			zap.String("role", string(role)),
			zap.String("model", name),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return "", err
	}

	span.SetAttributes(attribute.Int("llm.reply_chars", len(reply)))
	c.logger.Debug(ctx, "model call completed",
		zap.String("role", string(role)),
		zap.String("model", name),
		zap.Duration("elapsed", elapsed),
	)
	return reply, nil
}

func (c *Client) generate(ctx context.Context, model llms.Model, name string, parts []llms.ContentPart) (string, error) {
	if model == nil {
		return "", &apperr.ModelInvocationError{Model: name, Err: errors.New("model not configured")}
	}

	callCtx := ctx
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(callCtx); err != nil {
			return "", c.classify(ctx, callCtx, name, fmt.Errorf("rate limiter: %w", err))
		}
	}

	resp, err := model.GenerateContent(callCtx, []llms.MessageContent{
		{Role: llms.ChatMessageTypeHuman, Parts: parts},
	})
	if err != nil {
		return "", c.classify(ctx, callCtx, name, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", &apperr.ModelInvocationError{Model: name, Err: errors.New("empty response")}
	}
	return resp.Choices[0].Content, nil
}

// classify reports a TimeoutError only when the call's own bound expired;
// cancellation by the caller stays a ModelInvocationError.
func (c *Client) classify(parent, callCtx context.Context, name string, err error) error {
	if c.cfg.Timeout > 0 && parent.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return &apperr.TimeoutError{Model: name, After: c.cfg.Timeout}
	}
	return &apperr.ModelInvocationError{Model: name, Err: err}
}
