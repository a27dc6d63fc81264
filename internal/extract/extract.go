// Package extract converts corpus source files into clean plain text.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNoText indicates a source file produced no usable text, e.g. a
// scanned-image PDF without a text layer.
var ErrNoText = errors.New("no extractable text")

// Text reads the file at path and returns its cleaned plain text.
// PDF and plain-text sources are supported; anything else is an error.
func Text(path string) (string, error) {
	var raw string
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		raw, err = pdfText(path)
	case ".txt":
		raw, err = fileText(path)
	default:
		return "", fmt.Errorf("unsupported source type %q", filepath.Ext(path))
	}
	if err != nil {
		return "", err
	}

	cleaned := Clean(raw)
	if cleaned == "" {
		return "", fmt.Errorf("%w: %s", ErrNoText, path)
	}
	return cleaned, nil
}

func pdfText(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	body, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text %s: %w", path, err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return "", fmt.Errorf("copy pdf text %s: %w", path, err)
	}
	return buf.String(), nil
}

func fileText(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), nil
}

var (
	pageArtifactRe = regexp.MustCompile(`Page \d+ of \d+`)
	pageNumberRe   = regexp.MustCompile(`(?m)^\s*\d+\s*$`)
	strayCharRe    = regexp.MustCompile(`[^\w\s.,;:!?()\[\]{}'"/-]`)
	spaceRunRe     = regexp.MustCompile(`[ \t]+`)
	lineEdgeRe     = regexp.MustCompile(`[ \t]*\n[ \t]*`)
	blankRunRe     = regexp.MustCompile(`\n{3,}`)
)

// Clean normalizes extracted text for segmentation: strips page
// headers/footers and stray PDF artifacts, collapses whitespace runs,
// and reduces blank-line runs to single paragraph breaks. Newlines are
// preserved because chunk boundaries prefer to snap to them.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	text = pageArtifactRe.ReplaceAllString(text, "")
	text = pageNumberRe.ReplaceAllString(text, "")
	text = strayCharRe.ReplaceAllString(text, "")

	text = spaceRunRe.ReplaceAllString(text, " ")
	text = lineEdgeRe.ReplaceAllString(text, "\n")
	text = blankRunRe.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
