package render

import (
	"strings"
	"testing"
	"time"
)

func TestToHTML(t *testing.T) {
	html, err := ToHTML("# Title\n\nA paragraph with **bold** text.")
	if err != nil {
		t.Fatalf("ToHTML: %v", err)
	}
	if !strings.Contains(html, "<h1") || !strings.Contains(html, "Title") {
		t.Errorf("heading missing: %q", html)
	}
	if !strings.Contains(html, "<strong>bold</strong>") {
		t.Errorf("bold missing: %q", html)
	}
}

func TestToHTML_Table(t *testing.T) {
	html, err := ToHTML("| a | b |\n|---|---|\n| 1 | 2 |")
	if err != nil {
		t.Fatalf("ToHTML: %v", err)
	}
	if !strings.Contains(html, "<table") {
		t.Errorf("GFM table not rendered: %q", html)
	}
}

func TestToHTML_Sanitizes(t *testing.T) {
	html, err := ToHTML("hello <script>alert(1)</script> world")
	if err != nil {
		t.Fatalf("ToHTML: %v", err)
	}
	if strings.Contains(html, "<script") {
		t.Errorf("script tag survived sanitization: %q", html)
	}
}

func TestDocument(t *testing.T) {
	html, err := Document("# Doc", Meta{
		OriginalFilename: "scan_001.pdf",
		Language:         "es",
		ProcessedAt:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	for _, want := range []string{
		`<html lang="es">`,
		"scan_001.pdf",
		"ES",
		"2026-03-01 12:00:00",
		"<h1",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestDocument_EscapesMetadata(t *testing.T) {
	html, err := Document("body", Meta{
		OriginalFilename: `<img src=x onerror=alert(1)>.pdf`,
		Language:         "en",
		ProcessedAt:      time.Now(),
	})
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if strings.Contains(html, "<img src=x") {
		t.Errorf("filename not escaped: %q", html)
	}
}
