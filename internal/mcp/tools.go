package mcp

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/briefd/internal/apperr"
	"github.com/fyrsmithlabs/briefd/internal/document"
	"github.com/fyrsmithlabs/briefd/internal/tasks"
	"github.com/fyrsmithlabs/briefd/internal/vision"
)

const (
	toolGenerateTasks = "generate_tasks"
	toolReadDocument  = "read_document"
	toolCaptionImage  = "caption_image"
)

type generateTasksInput struct {
	Description     string   `json:"description" jsonschema:"What the project is"`
	Requirements    string   `json:"requirements" jsonschema:"Functional and technical requirements"`
	InspirationText string   `json:"inspiration_text,omitempty" jsonschema:"Optional description of visual inspiration, e.g. from caption_image"`
	Integrations    []string `json:"integrations,omitempty" jsonschema:"Optional third-party integrations the project needs"`
}

type generateTasksOutput struct {
	Tasks []tasks.Task `json:"tasks" jsonschema:"Ordered tasks extracted from the model reply"`
	Count int          `json:"count" jsonschema:"Number of tasks"`
}

type readDocumentInput struct {
	Filename string `json:"filename" jsonschema:"Original file name; the extension selects the decoder (.txt, .pdf, .docx)"`
	Content  string `json:"content" jsonschema:"Base64-encoded file bytes"`
}

type readDocumentOutput struct {
	Text string `json:"text" jsonschema:"Extracted plain text"`
}

type captionImageInput struct {
	Content  string `json:"content" jsonschema:"Base64-encoded image bytes"`
	MimeType string `json:"mime_type,omitempty" jsonschema:"Optional image MIME type; sniffed from the bytes when omitted"`
}

type captionImageOutput struct {
	Text string `json:"text" jsonschema:"Free-text description of the image"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        toolGenerateTasks,
		Description: "Generate an ordered list of independent development tasks from a project brief",
	}, s.generateTasks)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        toolReadDocument,
		Description: "Extract plain text from a .txt, .pdf or .docx file",
	}, s.readDocument)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        toolCaptionImage,
		Description: "Describe an image in detail using the vision model",
	}, s.captionImage)
}

// instrument wraps a tool body with metrics and failure logging.
func (s *Server) instrument(ctx context.Context, tool string, fn func() error) error {
	start := time.Now()
	s.metrics.IncrementActive(ctx, tool)
	err := fn()
	s.metrics.DecrementActive(ctx, tool)
	s.metrics.RecordInvocation(ctx, tool, time.Since(start), err)
	if err != nil {
		s.logger.Warn(ctx, "tool call failed",
			zap.String("tool", tool),
			zap.String("kind", apperr.Kind(err)),
			zap.Error(err),
		)
	}
	return err
}

func (s *Server) generateTasks(ctx context.Context, _ *mcp.CallToolRequest, args generateTasksInput) (*mcp.CallToolResult, generateTasksOutput, error) {
	var out generateTasksOutput
	err := s.instrument(ctx, toolGenerateTasks, func() error {
		brief := tasks.ProjectBrief{
			Description:  args.Description,
			Requirements: args.Requirements,
			Integrations: args.Integrations,
		}
		if args.InspirationText != "" {
			inspiration := args.InspirationText
			brief.InspirationText = &inspiration
		}

		generated, err := s.services.Tasks.Generate(ctx, brief)
		if err != nil {
			return fmt.Errorf("task generation failed: %w", err)
		}
		out = generateTasksOutput{Tasks: generated, Count: len(generated)}
		return nil
	})
	if err != nil {
		return nil, generateTasksOutput{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Generated %d tasks", out.Count)
	for _, t := range out.Tasks {
		fmt.Fprintf(&b, "\n%s %s: %s", t.ID, t.Title, t.Description)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: b.String()}},
	}, out, nil
}

func (s *Server) readDocument(ctx context.Context, _ *mcp.CallToolRequest, args readDocumentInput) (*mcp.CallToolResult, readDocumentOutput, error) {
	var out readDocumentOutput
	err := s.instrument(ctx, toolReadDocument, func() error {
		if _, err := document.Format(args.Filename); err != nil {
			return err
		}
		data, err := s.decode(args.Content)
		if err != nil {
			return err
		}
		text, err := s.services.Documents.Read(ctx, data, args.Filename)
		if err != nil {
			return err
		}
		out.Text = text
		return nil
	})
	if err != nil {
		return nil, readDocumentOutput{}, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: out.Text}},
	}, out, nil
}

func (s *Server) captionImage(ctx context.Context, _ *mcp.CallToolRequest, args captionImageInput) (*mcp.CallToolResult, captionImageOutput, error) {
	var out captionImageOutput
	err := s.instrument(ctx, toolCaptionImage, func() error {
		data, err := s.decode(args.Content)
		if err != nil {
			return err
		}
		mime := args.MimeType
		if mime == "" {
			mime = vision.DetectMIME(data)
		}
		if !strings.HasPrefix(mime, "image/") {
			return &apperr.UnsupportedFormatError{
				Subject: "content type",
				Value:   mime,
				Allowed: []string{"image/*"},
			}
		}
		caption, err := s.services.Captioner.Caption(ctx, data)
		if err != nil {
			return err
		}
		out.Text = caption
		return nil
	})
	if err != nil {
		return nil, captionImageOutput{}, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: out.Text}},
	}, out, nil
}

// decode reads a base64 payload, accepting padded and unpadded input.
func (s *Server) decode(content string) ([]byte, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("content is required")
	}
	if limit := s.config.MaxContentBytes; limit > 0 && int64(base64.StdEncoding.DecodedLen(len(content))) > limit+2 {
		return nil, fmt.Errorf("content exceeds %d bytes", limit)
	}

	data, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(content, "="))
		if err != nil {
			return nil, fmt.Errorf("content is not valid base64: %w", err)
		}
	}
	if limit := s.config.MaxContentBytes; limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("content exceeds %d bytes", limit)
	}
	return data, nil
}
