// Package document extracts plain text from uploaded .txt, .pdf and .docx
// files.
package document

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/briefd/internal/apperr"
	"github.com/fyrsmithlabs/briefd/internal/logging"
)

// Supported extensions, lower case.
const (
	ExtText = ".txt"
	ExtPDF  = ".pdf"
	ExtDOCX = ".docx"
)

// SupportedExtensions lists the accepted extensions in display order.
var SupportedExtensions = []string{ExtText, ExtPDF, ExtDOCX}

// Reader extracts text from document bytes. It holds no per-call state.
type Reader struct {
	logger *logging.Logger
}

// NewReader creates a Reader.
func NewReader(logger *logging.Logger) *Reader {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Reader{logger: logger.Named("document")}
}

// Format returns the lower-cased extension of filename, or an
// UnsupportedFormatError when it is not supported.
func Format(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, s := range SupportedExtensions {
		if ext == s {
			return ext, nil
		}
	}
	return "", &apperr.UnsupportedFormatError{
		Subject: "file extension",
		Value:   filepath.Ext(filename),
		Allowed: SupportedExtensions,
	}
}

// Read returns the text content of data. The extension is checked before any
// bytes are parsed.
func (r *Reader) Read(ctx context.Context, data []byte, filename string) (string, error) {
	format, err := Format(filename)
	if err != nil {
		return "", err
	}

	var text string
	switch format {
	case ExtText:
		text, err = readText(data)
	case ExtPDF:
		text, err = readPDF(data)
	case ExtDOCX:
		text, err = readDOCX(data)
	}
	if err != nil {
		err = &apperr.ExtractionError{Format: strings.TrimPrefix(format, "."), Err: err}
		r.logger.Warn(ctx, "document extraction failed",
			zap.String("filename", filename),
			zap.Int("size", len(data)),
			zap.Error(err),
		)
		return "", err
	}

	r.logger.Debug(ctx, "document read",
		zap.String("format", format),
		zap.Int("size", len(data)),
		zap.Int("chars", utf8.RuneCountInString(text)),
	)
	return text, nil
}

var errInvalidUTF8 = errors.New("content is not valid UTF-8")

func readText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errInvalidUTF8
	}
	return string(data), nil
}
