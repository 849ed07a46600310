package tasks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// ReadPDFTask is the name the extractor is registered under
const ReadPDFTask = "readPDF"

// ReadPDF loads the PDF at path and returns its plain text.
// Relative paths resolve against the working directory. Every failure
// (missing file, unreadable file, malformed PDF) is returned as an error.
func ReadPDF(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}

	logger := zap.L().With(zap.String("task", ReadPDFTask), zap.String("path", abs))
	logger.Debug("read_pdf started")

	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}

	text, err := ExtractText(data)
	if err != nil {
		return "", fmt.Errorf("parse pdf %s: %w", abs, err)
	}

	logger.Debug("read_pdf complete", zap.Int("size_bytes", len(data)), zap.Int("text_len", len(text)))
	return text, nil
}

// NewReadPDF returns the extractor as a task whose relative paths resolve against root
func NewReadPDF(root string) TaskFunc {
	return func(ctx context.Context, path string) (string, error) {
		if path == "" {
			return "", errors.New("path is required")
		}
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
		return ReadPDF(ctx, path)
	}
}

// ExtractText returns the text layer of a PDF held in memory. Runs on the same
// line are concatenated without a separator; lines and pages are joined by newlines.
func ExtractText(data []byte) (text string, err error) {
	if len(data) == 0 {
		return "", errors.New("empty pdf")
	}

	// the parser panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}

		rows, err := p.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, rowsText(rows))
	}

	return strings.Join(pages, "\n"), nil
}

// rowsText joins a page's rows top to bottom, each row's runs left to right
func rowsText(rows pdf.Rows) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		var b strings.Builder
		for _, t := range row.Content {
			b.WriteString(t.S)
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}
