package ingest

import (
	"strings"
	"testing"

	"github.com/podforge/podforge/internal/models"
)

func TestExtractPlainText(t *testing.T) {
	e := NewTextExtractor()
	got, err := e.Extract("notes.txt", []byte("  plain text content  \n"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "plain text content" {
		t.Errorf("unexpected text %q", got)
	}
}

func TestExtractMarkdown(t *testing.T) {
	e := NewTextExtractor()
	doc := "# Heading\n\nSome [linked text](https://example.com) here.\n\n```go\ncode block\n```\n\nMore prose."
	got, err := e.Extract("notes.md", []byte(doc))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if strings.Contains(got, "#") || strings.Contains(got, "```") {
		t.Errorf("markdown syntax leaked: %q", got)
	}
	if strings.Contains(got, "example.com") {
		t.Errorf("link URL not stripped: %q", got)
	}
	if !strings.Contains(got, "linked text") {
		t.Errorf("link label lost: %q", got)
	}
	if !strings.Contains(got, "More prose.") {
		t.Errorf("prose lost: %q", got)
	}
}

func TestExtractHTML(t *testing.T) {
	e := NewTextExtractor()
	got, err := e.Extract("page.html", []byte("<p>Hello <b>world</b></p>"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if strings.Contains(got, "<") {
		t.Errorf("tags leaked: %q", got)
	}
	if !strings.Contains(got, "Hello") || !strings.Contains(got, "world") {
		t.Errorf("text lost: %q", got)
	}
}

func TestExtractUnsupportedExtension(t *testing.T) {
	e := NewTextExtractor()
	_, err := e.Extract("report.pdf", []byte("%PDF-ish"))
	if !models.IsKind(err, models.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported_format, got %v", err)
	}
}

func TestExtractBinaryInput(t *testing.T) {
	e := NewTextExtractor()
	_, err := e.Extract("data.txt", []byte{0xff, 0xfe, 0x00, 0x80})
	if !models.IsKind(err, models.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported_format, got %v", err)
	}
}

func TestExtractEmptyResult(t *testing.T) {
	e := NewTextExtractor()
	_, err := e.Extract("empty.md", []byte("```\nonly a code block\n```"))
	if !models.IsKind(err, models.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported_format, got %v", err)
	}
}
