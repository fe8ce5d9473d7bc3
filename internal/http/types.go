package http

import "github.com/fyrsmithlabs/briefd/internal/tasks"

// TextResponse is the response body for POST /process-image and
// POST /process-document.
type TextResponse struct {
	Text string `json:"text"`
}

// TasksResponse is the response body for POST /generate-tasks.
type TasksResponse struct {
	Tasks []tasks.Task `json:"tasks"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version,omitempty"`
	Provider    string `json:"provider,omitempty"`
	TextModel   string `json:"text_model,omitempty"`
	VisionModel string `json:"vision_model,omitempty"`
}
