package ingest

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/podforge/podforge/internal/models"
)

// Extractor turns an input document into plain text for generation.
// The engine treats ingestion as an external collaborator; this package
// supplies the text-family implementation.
type Extractor interface {
	Extract(filename string, data []byte) (string, error)
}

// TextExtractor handles plain-text-family documents (.txt, .md, .markdown,
// .html loaded as text). Binary formats surface unsupported_format.
type TextExtractor struct{}

var _ Extractor = (*TextExtractor)(nil)

func NewTextExtractor() *TextExtractor { return &TextExtractor{} }

var (
	mdHeading   = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdCodeFence = regexp.MustCompile("(?s)```.*?```")
	mdLink      = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	htmlTag     = regexp.MustCompile(`<[^>]+>`)
)

func (e *TextExtractor) Extract(filename string, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", models.NewError(models.ErrUnsupportedFormat, "%s is not valid UTF-8 text", filename)
	}
	text := string(data)

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", "":
		// as-is
	case ".md", ".markdown":
		text = mdCodeFence.ReplaceAllString(text, "")
		text = mdHeading.ReplaceAllString(text, "")
		text = mdLink.ReplaceAllString(text, "$1")
	case ".html", ".htm":
		text = htmlTag.ReplaceAllString(text, " ")
	default:
		return "", models.NewError(models.ErrUnsupportedFormat,
			"unrecognized document format %q", filepath.Ext(filename))
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", models.NewError(models.ErrUnsupportedFormat, "%s contains no extractable text", filename)
	}
	return text, nil
}
