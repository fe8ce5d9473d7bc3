package mcp

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/briefd/internal/apperr"
	"github.com/fyrsmithlabs/briefd/internal/document"
	"github.com/fyrsmithlabs/briefd/internal/logging"
	"github.com/fyrsmithlabs/briefd/internal/tasks"
)

// 1x1 transparent PNG.
var pngPixel = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

type fakeCaptioner struct {
	caption string
	err     error
	calls   int
}

func (f *fakeCaptioner) Caption(context.Context, []byte) (string, error) {
	f.calls++
	return f.caption, f.err
}

type fakeGenerator struct {
	tasks []tasks.Task
	err   error
	brief tasks.ProjectBrief
}

func (f *fakeGenerator) Generate(_ context.Context, brief tasks.ProjectBrief) ([]tasks.Task, error) {
	f.brief = brief
	return f.tasks, f.err
}

func newTestServer(t *testing.T) (*Server, *fakeCaptioner, *fakeGenerator) {
	t.Helper()
	captioner := &fakeCaptioner{caption: "A hand-drawn wireframe."}
	generator := &fakeGenerator{tasks: []tasks.Task{
		{ID: "TASK-1", Title: "Design schema", Description: "Model users and notes.", Order: 0},
		{ID: "TASK-2", Title: "Build UI", Description: "Create the editor view.", Order: 1},
	}}
	s, err := NewServer(nil, Services{
		Captioner: captioner,
		Documents: document.NewReader(nil),
		Tasks:     generator,
	}, logging.NewNop())
	require.NoError(t, err)
	return s, captioner, generator
}

func encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func TestNewServer_RequiresServices(t *testing.T) {
	_, err := NewServer(nil, Services{Captioner: &fakeCaptioner{}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document reader")
}

func TestGenerateTasks(t *testing.T) {
	s, _, gen := newTestServer(t)

	res, out, err := s.generateTasks(context.Background(), nil, generateTasksInput{
		Description:     "notes app",
		Requirements:    "sync across devices",
		InspirationText: "minimal paper look",
		Integrations:    []string{"Dropbox"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, out.Count)
	assert.Equal(t, "TASK-2", out.Tasks[1].ID)
	assert.Equal(t, "minimal paper look", gen.brief.Inspiration())
	assert.Equal(t, []string{"Dropbox"}, gen.brief.Integrations)

	require.Len(t, res.Content, 1)
	text := res.Content[0].(*mcp.TextContent).Text
	assert.Contains(t, text, "Generated 2 tasks")
	assert.Contains(t, text, "TASK-1 Design schema: Model users and notes.")
}

func TestGenerateTasks_NoInspiration(t *testing.T) {
	s, _, gen := newTestServer(t)

	_, _, err := s.generateTasks(context.Background(), nil, generateTasksInput{
		Description: "d", Requirements: "r",
	})
	require.NoError(t, err)
	assert.Nil(t, gen.brief.InspirationText)
}

func TestGenerateTasks_ModelFailure(t *testing.T) {
	s, _, gen := newTestServer(t)
	gen.err = &apperr.TimeoutError{Model: "deepseek-r1:1.5b"}

	_, _, err := s.generateTasks(context.Background(), nil, generateTasksInput{Description: "d", Requirements: "r"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrTimeout)
}

func TestReadDocument(t *testing.T) {
	s, _, _ := newTestServer(t)

	t.Run("text", func(t *testing.T) {
		_, out, err := s.readDocument(context.Background(), nil, readDocumentInput{
			Filename: "brief.TXT",
			Content:  encode([]byte("Build a recipe app.")),
		})
		require.NoError(t, err)
		assert.Equal(t, "Build a recipe app.", out.Text)
	})

	t.Run("unpadded base64", func(t *testing.T) {
		_, out, err := s.readDocument(context.Background(), nil, readDocumentInput{
			Filename: "a.txt",
			Content:  base64.RawStdEncoding.EncodeToString([]byte("ab")),
		})
		require.NoError(t, err)
		assert.Equal(t, "ab", out.Text)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		_, _, err := s.readDocument(context.Background(), nil, readDocumentInput{
			Filename: "sheet.xlsx",
			Content:  encode([]byte("x")),
		})
		assert.ErrorIs(t, err, apperr.ErrUnsupportedFormat)
	})

	t.Run("corrupt pdf", func(t *testing.T) {
		_, _, err := s.readDocument(context.Background(), nil, readDocumentInput{
			Filename: "doc.pdf",
			Content:  encode([]byte("definitely not a pdf")),
		})
		assert.ErrorIs(t, err, apperr.ErrExtraction)
	})

	t.Run("invalid base64", func(t *testing.T) {
		_, _, err := s.readDocument(context.Background(), nil, readDocumentInput{
			Filename: "a.txt",
			Content:  "!!!not base64!!!",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "base64")
	})

	t.Run("empty content", func(t *testing.T) {
		_, _, err := s.readDocument(context.Background(), nil, readDocumentInput{Filename: "a.txt"})
		require.Error(t, err)
	})
}

func TestReadDocument_TooLarge(t *testing.T) {
	s, err := NewServer(&Config{Name: "briefd", MaxContentBytes: 4}, Services{
		Captioner: &fakeCaptioner{},
		Documents: document.NewReader(nil),
		Tasks:     &fakeGenerator{},
	}, nil)
	require.NoError(t, err)

	_, _, err = s.readDocument(context.Background(), nil, readDocumentInput{
		Filename: "a.txt",
		Content:  encode([]byte("0123456789")),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 4 bytes")
}

func TestCaptionImage(t *testing.T) {
	t.Run("sniffs mime when omitted", func(t *testing.T) {
		s, captioner, _ := newTestServer(t)

		_, out, err := s.captionImage(context.Background(), nil, captionImageInput{Content: encode(pngPixel)})
		require.NoError(t, err)
		assert.Equal(t, "A hand-drawn wireframe.", out.Text)
		assert.Equal(t, 1, captioner.calls)
	})

	t.Run("rejects non-image bytes", func(t *testing.T) {
		s, captioner, _ := newTestServer(t)

		_, _, err := s.captionImage(context.Background(), nil, captionImageInput{Content: encode([]byte("plain text"))})
		assert.ErrorIs(t, err, apperr.ErrUnsupportedFormat)
		assert.Zero(t, captioner.calls)
	})

	t.Run("rejects declared non-image type", func(t *testing.T) {
		s, _, _ := newTestServer(t)

		_, _, err := s.captionImage(context.Background(), nil, captionImageInput{
			Content:  encode(pngPixel),
			MimeType: "application/pdf",
		})
		assert.ErrorIs(t, err, apperr.ErrUnsupportedFormat)
	})

	t.Run("model failure", func(t *testing.T) {
		s, captioner, _ := newTestServer(t)
		captioner.err = &apperr.ModelInvocationError{Model: "vision", Err: errors.New("connection refused")}

		_, _, err := s.captionImage(context.Background(), nil, captionImageInput{Content: encode(pngPixel)})
		assert.ErrorIs(t, err, apperr.ErrModelInvocation)
	})
}

func TestServer_InMemorySession(t *testing.T) {
	s, _, _ := newTestServer(t)
	ctx := context.Background()

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := s.mcp.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer serverSession.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer session.Close()

	list, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range list.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{toolGenerateTasks, toolReadDocument, toolCaptionImage}, names)

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name: toolReadDocument,
		Arguments: map[string]any{
			"filename": "notes.txt",
			"content":  encode([]byte("hello from mcp")),
		},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	require.NotEmpty(t, res.Content)
	assert.Equal(t, "hello from mcp", res.Content[0].(*mcp.TextContent).Text)
}
