package tasks

import (
	"encoding/json"
	"errors"
)

// Task is a single unit of work recovered from model output.
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Order       int    `json:"order"`
}

// ProjectBrief is the client's description of the project to plan.
type ProjectBrief struct {
	Description     string   `json:"description"`
	Requirements    string   `json:"requirements"`
	InspirationText *string  `json:"inspirationText,omitempty"`
	Integrations    []string `json:"integrations"`
}

var (
	ErrMissingDescription  = errors.New("description is required")
	ErrMissingRequirements = errors.New("requirements is required")
)

// UnmarshalJSON requires description and requirements to be present as
// strings (empty is allowed). The inspiration field is accepted in camel or
// snake case.
func (b *ProjectBrief) UnmarshalJSON(data []byte) error {
	var aux struct {
		Description      *string  `json:"description"`
		Requirements     *string  `json:"requirements"`
		InspirationText  *string  `json:"inspirationText"`
		InspirationSnake *string  `json:"inspiration_text"`
		Integrations     []string `json:"integrations"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Description == nil {
		return ErrMissingDescription
	}
	if aux.Requirements == nil {
		return ErrMissingRequirements
	}

	b.Description = *aux.Description
	b.Requirements = *aux.Requirements
	b.InspirationText = aux.InspirationText
	if b.InspirationText == nil {
		b.InspirationText = aux.InspirationSnake
	}
	b.Integrations = aux.Integrations
	return nil
}

// Inspiration returns the inspiration text or "".
func (b ProjectBrief) Inspiration() string {
	if b.InspirationText == nil {
		return ""
	}
	return *b.InspirationText
}
