// Package apperr defines the error taxonomy shared by the document reader,
// the image captioner and the task generator.
//
// Every typed error wraps a sentinel so callers can use errors.Is for the kind
// and errors.As for the details:
//
//	if errors.Is(err, apperr.ErrUnsupportedFormat) { ... }
//
//	var mie *apperr.ModelInvocationError
//	if errors.As(err, &mie) { log(mie.Model) }
package apperr

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel kinds.
var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrExtraction        = errors.New("extraction failed")
	ErrModelInvocation   = errors.New("model invocation failed")
	ErrTimeout           = errors.New("model invocation timed out")
)

// UnsupportedFormatError reports client input that does not match an accepted
// format: an unknown file extension or a non-image content type.
type UnsupportedFormatError struct {
	Subject string // what was checked, e.g. "extension" or "content type"
	Value   string // the offending value as received
	Allowed []string
}

func (e *UnsupportedFormatError) Error() string {
	value := e.Value
	if value == "" {
		value = "<none>"
	}
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("unsupported %s %q", e.Subject, value)
	}
	return fmt.Sprintf("unsupported %s %q (allowed: %v)", e.Subject, value, e.Allowed)
}

// Is matches ErrUnsupportedFormat.
func (e *UnsupportedFormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}

// ExtractionError reports bytes of a declared-valid format that the decoder
// could not parse.
type ExtractionError struct {
	Format string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract %s text: %v", e.Format, e.Err)
}

// Unwrap exposes the decoder error.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Is matches ErrExtraction.
func (e *ExtractionError) Is(target error) bool {
	return target == ErrExtraction
}

// ModelInvocationError reports an unreachable or failing model runtime.
type ModelInvocationError struct {
	Model string
	Err   error
}

func (e *ModelInvocationError) Error() string {
	return fmt.Sprintf("model %s invocation failed: %v", e.Model, e.Err)
}

// Unwrap exposes the transport or runtime error.
func (e *ModelInvocationError) Unwrap() error {
	return e.Err
}

// Is matches ErrModelInvocation.
func (e *ModelInvocationError) Is(target error) bool {
	return target == ErrModelInvocation
}

// TimeoutError reports a model call that exceeded its configured bound.
type TimeoutError struct {
	Model string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("model %s did not respond within %s", e.Model, e.After)
}

// Is matches ErrTimeout.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// Kind returns a short label for metrics and logs.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, ErrExtraction):
		return "extraction"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrModelInvocation):
		return "model_invocation"
	default:
		return "internal"
	}
}

// Model attributes err to a model call. Errors that already carry a model
// classification pass through unchanged.
func Model(model string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrModelInvocation) || errors.Is(err, ErrTimeout) {
		return err
	}
	return &ModelInvocationError{Model: model, Err: err}
}
