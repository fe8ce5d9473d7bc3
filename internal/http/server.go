// Package http exposes image captioning, document reading and task generation
// over HTTP.
package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/briefd/internal/apperr"
	"github.com/fyrsmithlabs/briefd/internal/document"
	"github.com/fyrsmithlabs/briefd/internal/logging"
	"github.com/fyrsmithlabs/briefd/internal/tasks"
)

// Captioner describes an image.
type Captioner interface {
	Caption(ctx context.Context, image []byte) (string, error)
}

// DocumentReader extracts text from an uploaded file.
type DocumentReader interface {
	Read(ctx context.Context, data []byte, filename string) (string, error)
}

// TaskGenerator turns a brief into tasks.
type TaskGenerator interface {
	Generate(ctx context.Context, brief tasks.ProjectBrief) ([]tasks.Task, error)
}

// Services are the capabilities behind the endpoints.
type Services struct {
	Captioner Captioner
	Documents DocumentReader
	Tasks     TaskGenerator
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
	// BodyLimit caps every request body, e.g. "6M". Empty disables it.
	BodyLimit string
	// MaxUploadBytes caps a single uploaded file. Zero disables it.
	MaxUploadBytes int64
	CORSOrigins    []string

	// Reported by /health.
	Version     string
	Provider    string
	TextModel   string
	VisionModel string
}

// Server provides the briefd HTTP endpoints.
type Server struct {
	echo     *echo.Echo
	services Services
	metrics  *HTTPMetrics
	logger   *logging.Logger
	config   *Config
}

// NewServer creates a new HTTP server.
func NewServer(services Services, logger *logging.Logger, cfg *Config) (*Server, error) {
	if services.Captioner == nil || services.Documents == nil || services.Tasks == nil {
		return nil, fmt.Errorf("captioner, document reader and task generator are required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host:           "localhost",
			Port:           8000,
			BodyLimit:      "6M",
			MaxUploadBytes: 5 << 20,
			CORSOrigins:    []string{"http://localhost:5173"},
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:     e,
		services: services,
		metrics:  NewHTTPMetrics(logger),
		logger:   logger.Named("http"),
		config:   cfg,
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(s.contextMiddleware())
	e.Use(s.metrics.MetricsMiddleware())
	if len(cfg.CORSOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization, echo.HeaderXRequestID},
			AllowCredentials: true,
		}))
	}
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	s.registerRoutes()
	return s, nil
}

// contextMiddleware carries the request ID into the request context and logs
// each request when it completes.
func (s *Server) contextMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			ctx := logging.WithRequestID(req.Context(), c.Response().Header().Get(echo.HeaderXRequestID))
			c.SetRequest(req.WithContext(ctx))

			err := next(c)

			status := c.Response().Status
			var he *echo.HTTPError
			if errors.As(err, &he) {
				status = he.Code
			} else if err != nil {
				status = http.StatusInternalServerError
			}

			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("uri", req.RequestURI),
				zap.Int("status", status),
				zap.Duration("duration", time.Since(start)),
			}
			if status >= http.StatusInternalServerError {
				s.logger.Error(ctx, "http request", append(fields, zap.Error(err))...)
			} else {
				s.logger.Info(ctx, "http request", fields...)
			}
			return err
		}
	}
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.POST("/process-image", s.handleProcessImage)
	s.echo.POST("/process-document", s.handleProcessDocument)
	s.echo.POST("/generate-tasks", s.handleGenerateTasks)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:      "ok",
		Version:     s.config.Version,
		Provider:    s.config.Provider,
		TextModel:   s.config.TextModel,
		VisionModel: s.config.VisionModel,
	})
}

func (s *Server) handleProcessImage(c echo.Context) error {
	fh, err := s.formFile(c)
	if err != nil {
		return err
	}

	contentType := fh.Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(contentType, "image/") {
		return toHTTPError(&apperr.UnsupportedFormatError{
			Subject: "content type",
			Value:   contentType,
			Allowed: []string{"image/*"},
		})
	}

	data, err := s.readUpload(c, fh)
	if err != nil {
		return err
	}

	caption, err := s.services.Captioner.Caption(c.Request().Context(), data)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, TextResponse{Text: caption})
}

func (s *Server) handleProcessDocument(c echo.Context) error {
	fh, err := s.formFile(c)
	if err != nil {
		return err
	}

	// Reject by extension before reading the body.
	if _, err := document.Format(fh.Filename); err != nil {
		return toHTTPError(err)
	}

	data, err := s.readUpload(c, fh)
	if err != nil {
		return err
	}

	text, err := s.services.Documents.Read(c.Request().Context(), data, fh.Filename)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, TextResponse{Text: text})
}

func (s *Server) handleGenerateTasks(c echo.Context) error {
	// Bind skips empty bodies, which would hide the missing required fields.
	if c.Request().ContentLength == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "request body is required")
	}

	var brief tasks.ProjectBrief
	if err := c.Bind(&brief); err != nil {
		s.logger.Warn(c.Request().Context(), "invalid generate-tasks request", zap.Error(err))
		return err
	}

	generated, err := s.services.Tasks.Generate(c.Request().Context(), brief)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, TasksResponse{Tasks: generated})
}

func (s *Server) formFile(c echo.Context) (*multipart.FileHeader, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return nil, he
		}
		return nil, echo.NewHTTPError(http.StatusBadRequest, "multipart field \"file\" is required").SetInternal(err)
	}
	if s.config.MaxUploadBytes > 0 && fh.Size > s.config.MaxUploadBytes {
		return nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("file exceeds %d bytes", s.config.MaxUploadBytes))
	}
	return fh, nil
}

func (s *Server) readUpload(c echo.Context, fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "failed to open uploaded file").SetInternal(err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "failed to read uploaded file").SetInternal(err)
	}
	s.metrics.RecordUpload(c, int64(len(data)))
	return data, nil
}

// toHTTPError maps the error taxonomy to status codes. The message carries
// the underlying cause.
func toHTTPError(err error) error {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperr.ErrUnsupportedFormat):
		code = http.StatusBadRequest
	case errors.Is(err, apperr.ErrExtraction):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrTimeout):
		code = http.StatusGatewayTimeout
	case errors.Is(err, apperr.ErrModelInvocation):
		code = http.StatusInternalServerError
	default:
		return echo.NewHTTPError(code, "internal server error").SetInternal(err)
	}
	return echo.NewHTTPError(code, err.Error()).SetInternal(err)
}

// Echo returns the underlying router so callers can mount extra handlers
// such as /metrics.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start starts the HTTP server. It returns http.ErrServerClosed after Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
