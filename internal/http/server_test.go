package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/briefd/internal/apperr"
	"github.com/fyrsmithlabs/briefd/internal/document"
	"github.com/fyrsmithlabs/briefd/internal/logging"
	"github.com/fyrsmithlabs/briefd/internal/tasks"
)

type fakeCaptioner struct {
	caption string
	err     error
	got     []byte
}

func (f *fakeCaptioner) Caption(_ context.Context, image []byte) (string, error) {
	f.got = image
	return f.caption, f.err
}

type fakeGenerator struct {
	tasks []tasks.Task
	err   error
	brief tasks.ProjectBrief
	calls int
}

func (f *fakeGenerator) Generate(_ context.Context, brief tasks.ProjectBrief) ([]tasks.Task, error) {
	f.calls++
	f.brief = brief
	return f.tasks, f.err
}

type testDeps struct {
	captioner *fakeCaptioner
	generator *fakeGenerator
	logger    *logging.TestLogger
}

func setupTestServer(t *testing.T, cfg *Config) (*Server, *testDeps) {
	t.Helper()
	deps := &testDeps{
		captioner: &fakeCaptioner{caption: "A whiteboard sketch of a login page."},
		generator: &fakeGenerator{tasks: []tasks.Task{}},
		logger:    logging.NewTestLogger(),
	}
	server, err := NewServer(Services{
		Captioner: deps.captioner,
		Documents: document.NewReader(deps.logger.Logger),
		Tasks:     deps.generator,
	}, deps.logger.Logger, cfg)
	require.NoError(t, err)
	return server, deps
}

func multipartBody(t *testing.T, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func upload(t *testing.T, s *Server, path, filename, contentType string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, filename, contentType, content)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set(echo.HeaderContentType, ct)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func postJSON(s *Server, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Message
}

func TestNewServer(t *testing.T) {
	t.Run("uses defaults when config is nil", func(t *testing.T) {
		server, _ := setupTestServer(t, nil)
		assert.Equal(t, 8000, server.config.Port)
		assert.Equal(t, int64(5<<20), server.config.MaxUploadBytes)
	})

	t.Run("returns error when logger is nil", func(t *testing.T) {
		_, err := NewServer(Services{
			Captioner: &fakeCaptioner{},
			Documents: document.NewReader(nil),
			Tasks:     &fakeGenerator{},
		}, nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "logger is required")
	})

	t.Run("returns error when a service is missing", func(t *testing.T) {
		_, err := NewServer(Services{Captioner: &fakeCaptioner{}}, logging.NewNop(), nil)
		assert.Error(t, err)
	})
}

func TestHandleHealth(t *testing.T) {
	server, _ := setupTestServer(t, &Config{
		Provider:    "ollama",
		TextModel:   "deepseek-r1:1.5b",
		VisionModel: "llama3.2-vision",
		Version:     "test",
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, HealthResponse{
		Status: "ok", Version: "test", Provider: "ollama",
		TextModel: "deepseek-r1:1.5b", VisionModel: "llama3.2-vision",
	}, resp)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestHandleProcessImage(t *testing.T) {
	t.Run("returns caption", func(t *testing.T) {
		server, deps := setupTestServer(t, nil)

		rec := upload(t, server, "/process-image", "sketch.png", "image/png", []byte("png-bytes"))

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp TextResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "A whiteboard sketch of a login page.", resp.Text)
		assert.Equal(t, []byte("png-bytes"), deps.captioner.got)
	})

	t.Run("rejects non-image content type", func(t *testing.T) {
		server, deps := setupTestServer(t, nil)

		rec := upload(t, server, "/process-image", "notes.txt", "text/plain", []byte("hello"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, errorMessage(t, rec), "text/plain")
		assert.Nil(t, deps.captioner.got)
	})

	t.Run("missing file field", func(t *testing.T) {
		server, _ := setupTestServer(t, nil)

		rec := postJSON(server, "/process-image", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("model failure is 500 with cause", func(t *testing.T) {
		server, deps := setupTestServer(t, nil)
		deps.captioner.err = &apperr.ModelInvocationError{Model: "vision", Err: errors.New("connection refused")}

		rec := upload(t, server, "/process-image", "sketch.png", "image/png", []byte("png"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, errorMessage(t, rec), "connection refused")
	})

	t.Run("timeout is 504", func(t *testing.T) {
		server, deps := setupTestServer(t, nil)
		deps.captioner.err = &apperr.TimeoutError{Model: "llama3.2-vision", After: time.Minute}

		rec := upload(t, server, "/process-image", "sketch.png", "image/png", []byte("png"))

		assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	})

	t.Run("oversized upload is 413", func(t *testing.T) {
		server, deps := setupTestServer(t, &Config{MaxUploadBytes: 8})

		rec := upload(t, server, "/process-image", "big.png", "image/png", bytes.Repeat([]byte("x"), 9))

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Nil(t, deps.captioner.got)
	})
}

func TestHandleProcessDocument(t *testing.T) {
	t.Run("reads text file", func(t *testing.T) {
		server, _ := setupTestServer(t, nil)

		rec := upload(t, server, "/process-document", "notes.txt", "text/plain", []byte("hello world"))

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp TextResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "hello world", resp.Text)
	})

	t.Run("extension match is case-insensitive", func(t *testing.T) {
		server, _ := setupTestServer(t, nil)

		rec := upload(t, server, "/process-document", "NOTES.TXT", "", []byte("upper"))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unsupported extension is 400", func(t *testing.T) {
		server, _ := setupTestServer(t, nil)

		rec := upload(t, server, "/process-document", "data.csv", "text/csv", []byte("a,b"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, errorMessage(t, rec), ".csv")
	})

	t.Run("corrupt document is 422", func(t *testing.T) {
		server, _ := setupTestServer(t, nil)

		rec := upload(t, server, "/process-document", "brief.docx", "", []byte("not a zip"))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, errorMessage(t, rec), "docx")
	})
}

func TestHandleGenerateTasks(t *testing.T) {
	t.Run("returns tasks", func(t *testing.T) {
		server, deps := setupTestServer(t, nil)
		deps.generator.tasks = []tasks.Task{
			{ID: "TASK-1", Title: "Set up CI", Description: "Configure build pipeline.", Order: 0},
		}

		rec := postJSON(server, "/generate-tasks",
			`{"description":"todo app","requirements":"offline","inspiration_text":"paper notebook","integrations":["calendar"]}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t,
			`{"tasks":[{"id":"TASK-1","title":"Set up CI","description":"Configure build pipeline.","order":0}]}`,
			rec.Body.String())
		assert.Equal(t, "todo app", deps.generator.brief.Description)
		assert.Equal(t, "paper notebook", deps.generator.brief.Inspiration())
		assert.Equal(t, []string{"calendar"}, deps.generator.brief.Integrations)
	})

	t.Run("empty task list encodes as array", func(t *testing.T) {
		server, _ := setupTestServer(t, nil)

		rec := postJSON(server, "/generate-tasks", `{"description":"","requirements":""}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"tasks":[]}`, rec.Body.String())
	})

	t.Run("bad requests are 400", func(t *testing.T) {
		for name, body := range map[string]string{
			"empty body":           ``,
			"missing requirements": `{"description":"d"}`,
			"wrong type":           `{"description":1,"requirements":"r"}`,
			"malformed":            `{"description":`,
		} {
			t.Run(name, func(t *testing.T) {
				server, deps := setupTestServer(t, nil)
				rec := postJSON(server, "/generate-tasks", body)
				assert.Equal(t, http.StatusBadRequest, rec.Code)
				assert.Zero(t, deps.generator.calls)
			})
		}
	})

	t.Run("model failure is 500 with cause", func(t *testing.T) {
		server, deps := setupTestServer(t, nil)
		deps.generator.err = &apperr.ModelInvocationError{Model: "text", Err: errors.New("model \"deepseek-r1:1.5b\" not found")}

		rec := postJSON(server, "/generate-tasks", `{"description":"d","requirements":"r"}`)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, errorMessage(t, rec), "not found")
	})

	t.Run("unexpected errors are masked", func(t *testing.T) {
		server, deps := setupTestServer(t, nil)
		deps.generator.err = errors.New("template exploded")

		rec := postJSON(server, "/generate-tasks", `{"description":"d","requirements":"r"}`)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "internal server error", errorMessage(t, rec))
	})
}

func TestCORS(t *testing.T) {
	server, _ := setupTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/generate-tasks", nil)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:5173")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))

	req = httptest.NewRequest(http.MethodOptions, "/generate-tasks", nil)
	req.Header.Set(echo.HeaderOrigin, "http://evil.example")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec = httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestRequestLogging(t *testing.T) {
	server, deps := setupTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(echo.HeaderXRequestID, "client-req-1")
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	assert.Equal(t, "client-req-1", rec.Header().Get(echo.HeaderXRequestID))
	deps.logger.AssertField(t, "http request", "request.id", "client-req-1")
	deps.logger.AssertField(t, "http request", "status", int64(http.StatusOK))
}
