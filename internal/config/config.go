// Package config loads briefd configuration from an optional YAML file and
// BRIEFD_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds the complete briefd configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Model         ModelConfig         `koanf:"model"`
	Prompts       PromptsConfig       `koanf:"prompts"`
	Logging       LoggingConfig       `koanf:"logging"`
	Observability ObservabilityConfig `koanf:"observability"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	// BodyLimit is an echo size string such as "6M" applied to every request.
	BodyLimit string `koanf:"body_limit"`
	// MaxUploadBytes caps uploaded image and document files.
	MaxUploadBytes int64    `koanf:"max_upload_bytes"`
	CORSOrigins    []string `koanf:"cors_origins"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ModelConfig selects the local LLM runtime and models.
type ModelConfig struct {
	// Provider is "ollama" or "openai" (any OpenAI-compatible server).
	Provider    string   `koanf:"provider"`
	BaseURL     string   `koanf:"base_url"`
	APIKey      Secret   `koanf:"api_key"`
	VisionModel string   `koanf:"vision_model"`
	TextModel   string   `koanf:"text_model"`
	Timeout     Duration `koanf:"timeout"`
	// RateLimit is requests per second across both models. 0 disables limiting.
	RateLimit float64 `koanf:"rate_limit"`
	Burst     int     `koanf:"burst"`
}

// PromptsConfig points at optional template overrides.
type PromptsConfig struct {
	Dir   string `koanf:"dir"`
	Watch bool   `koanf:"watch"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	// OTEL mirrors log entries to the OpenTelemetry log pipeline.
	OTEL bool `koanf:"otel"`
}

// ObservabilityConfig holds OpenTelemetry configuration.
type ObservabilityConfig struct {
	EnableTelemetry bool     `koanf:"enable_telemetry"`
	ServiceName     string   `koanf:"service_name"`
	Endpoint        string   `koanf:"endpoint"`
	Protocol        string   `koanf:"protocol"`
	Insecure        bool     `koanf:"insecure"`
	SampleRate      float64  `koanf:"sample_rate"`
	MetricsInterval Duration `koanf:"metrics_interval"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 5 << 20
	}
	if cfg.Server.BodyLimit == "" {
		cfg.Server.BodyLimit = "6M"
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"http://localhost:5173"}
	}

	if cfg.Model.Provider == "" {
		cfg.Model.Provider = "ollama"
	}
	if cfg.Model.BaseURL == "" {
		cfg.Model.BaseURL = "http://localhost:11434"
	}
	if cfg.Model.VisionModel == "" {
		cfg.Model.VisionModel = "llama3.2-vision"
	}
	if cfg.Model.TextModel == "" {
		cfg.Model.TextModel = "deepseek-r1:1.5b"
	}
	if cfg.Model.Timeout == 0 {
		cfg.Model.Timeout = Duration(120 * time.Second)
	}
	if cfg.Model.RateLimit > 0 && cfg.Model.Burst == 0 {
		cfg.Model.Burst = 1
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = "briefd"
	}
	if cfg.Observability.Endpoint == "" {
		cfg.Observability.Endpoint = "localhost:4317"
	}
	if cfg.Observability.Protocol == "" {
		cfg.Observability.Protocol = "grpc"
	}
	if cfg.Observability.SampleRate == 0 {
		cfg.Observability.SampleRate = 1.0
	}
	if cfg.Observability.MetricsInterval == 0 {
		cfg.Observability.MetricsInterval = Duration(15 * time.Second)
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.MaxUploadBytes < 0 {
		errs = append(errs, fmt.Errorf("server.max_upload_bytes cannot be negative"))
	}

	switch c.Model.Provider {
	case "ollama", "openai":
	default:
		errs = append(errs, fmt.Errorf("model.provider must be 'ollama' or 'openai', got %q", c.Model.Provider))
	}
	if u, err := url.Parse(c.Model.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("model.base_url must be an absolute URL, got %q", c.Model.BaseURL))
	}
	if strings.TrimSpace(c.Model.VisionModel) == "" || strings.TrimSpace(c.Model.TextModel) == "" {
		errs = append(errs, errors.New("model.vision_model and model.text_model are required"))
	}
	if c.Model.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("model.rate_limit cannot be negative"))
	}

	switch c.Observability.Protocol {
	case "grpc", "http/protobuf":
	default:
		errs = append(errs, fmt.Errorf("observability.protocol must be 'grpc' or 'http/protobuf', got %q", c.Observability.Protocol))
	}
	if c.Observability.SampleRate < 0 || c.Observability.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("observability.sample_rate must be in [0,1], got %v", c.Observability.SampleRate))
	}

	return errors.Join(errs...)
}
