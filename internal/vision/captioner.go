// Package vision captions images with the vision model.
package vision

import (
	"context"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/briefd/internal/apperr"
	"github.com/fyrsmithlabs/briefd/internal/logging"
)

// Instruction is sent with every image.
const Instruction = "Describe this image in detail"

// Describer sends an instruction and one image to a vision model.
type Describer interface {
	DescribeImage(ctx context.Context, instruction string, image []byte, mimeType string) (string, error)
}

// Captioner produces free-text descriptions of images.
type Captioner struct {
	model  Describer
	logger *logging.Logger
}

// NewCaptioner creates a Captioner.
func NewCaptioner(model Describer, logger *logging.Logger) (*Captioner, error) {
	if model == nil {
		return nil, fmt.Errorf("vision: model is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Captioner{model: model, logger: logger.Named("vision")}, nil
}

// Caption returns the model's reply verbatim. The MIME type sent alongside the
// image is sniffed from its bytes.
func (c *Captioner) Caption(ctx context.Context, image []byte) (string, error) {
	mime := DetectMIME(image)

	caption, err := c.model.DescribeImage(ctx, Instruction, image, mime)
	if err != nil {
		err = apperr.Model("vision", err)
		c.logger.Error(ctx, "caption failed",
			zap.String("mime", mime),
			zap.Int("size", len(image)),
			zap.Error(err),
		)
		return "", err
	}

	c.logger.Info(ctx, "image captioned",
		zap.String("mime", mime),
		zap.Int("size", len(image)),
		zap.Int("caption_len", len(caption)),
	)
	return caption, nil
}

// DetectMIME returns the sniffed MIME type of data.
func DetectMIME(data []byte) string {
	return mimetype.Detect(data).String()
}
