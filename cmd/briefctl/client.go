package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	httpserver "github.com/fyrsmithlabs/briefd/internal/http"
	"github.com/fyrsmithlabs/briefd/internal/tasks"
)

// Client calls the briefd HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned status %d: %s", e.Status, e.Message)
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (*httpserver.HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	var out httpserver.HealthResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProcessImage uploads path to /process-image.
func (c *Client) ProcessImage(ctx context.Context, path string) (*httpserver.TextResponse, error) {
	var out httpserver.TextResponse
	if err := c.upload(ctx, "/process-image", path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProcessDocument uploads path to /process-document.
func (c *Client) ProcessDocument(ctx context.Context, path string) (*httpserver.TextResponse, error) {
	var out httpserver.TextResponse
	if err := c.upload(ctx, "/process-document", path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateTasks posts brief to /generate-tasks.
func (c *Client) GenerateTasks(ctx context.Context, brief tasks.ProjectBrief) (*httpserver.TasksResponse, error) {
	body, err := json.Marshal(brief)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate-tasks", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out httpserver.TasksResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// upload sends path as the multipart "file" field, typed by its sniffed MIME.
func (c *Client) upload(ctx context.Context, endpoint, path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", path, err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(path)))
	h.Set("Content-Type", mimetype.Detect(data).String())
	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create form part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("failed to write form part: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if readErr != nil {
			return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
		}
		var msg struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &msg) == nil && msg.Message != "" {
			return &APIError{Status: resp.StatusCode, Message: msg.Message}
		}
		return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
