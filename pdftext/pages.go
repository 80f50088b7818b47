package pdftext

import (
	"regexp"
	"strings"
)

var pageHeaderRe = regexp.MustCompile(`^(?:Page|page|PAGE)\s+\d+\s*$`)
var bareNumberRe = regexp.MustCompile(`^\d{1,4}$`)

// SplitOCRPages splits OCR output into per-page texts using best-effort
// heuristics: form-feed characters, "Page N" header lines, and bare page
// numbers standing alone. Real-world documents defeat these regularly,
// so the result is a convenience ordering, not a page-accurate split.
// Text with no recognizable breaks comes back as a single page.
func SplitOCRPages(text string) []Page {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var rawPages []string
	if strings.ContainsRune(text, '\f') {
		rawPages = strings.Split(text, "\f")
	} else {
		rawPages = splitOnPageHeaders(text)
	}

	var pages []Page
	for _, raw := range rawPages {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		pages = append(pages, Page{
			Number:  len(pages) + 1,
			Text:    raw,
			HasText: true,
		})
	}
	if len(pages) == 0 {
		pages = append(pages, Page{Number: 1, Text: strings.TrimSpace(text), HasText: true})
	}
	return pages
}

func splitOnPageHeaders(text string) []string {
	lines := strings.Split(text, "\n")
	var parts []string
	var current strings.Builder

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if pageHeaderRe.MatchString(trimmed) || bareNumberRe.MatchString(trimmed) {
			if strings.TrimSpace(current.String()) != "" {
				parts = append(parts, current.String())
				current.Reset()
			}
			continue
		}
		current.WriteString(line)
		current.WriteByte('\n')
	}
	if strings.TrimSpace(current.String()) != "" {
		parts = append(parts, current.String())
	}
	if len(parts) == 0 {
		return []string{text}
	}
	return parts
}
