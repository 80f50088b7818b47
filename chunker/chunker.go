// Package chunker splits long text into bounded-size pieces on paragraph
// boundaries, preserving order, so a structuring request never exceeds
// the remote model's input budget.
package chunker

import (
	"regexp"
	"strings"
)

// DefaultMaxSize is the default chunk size in characters.
const DefaultMaxSize = 400_000

var paragraphRe = regexp.MustCompile(`\n\n+`)

// Split divides text into chunks of at most maxSize characters, cutting
// only at blank-line paragraph boundaries. Paragraph order is preserved
// and no paragraph is lost or duplicated. A single paragraph longer than
// maxSize becomes its own oversized chunk; it is not split further.
// maxSize <= 0 uses DefaultMaxSize.
func Split(text string, maxSize int) []string {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	paragraphs := paragraphRe.Split(text, -1)

	var chunks []string
	var current strings.Builder

	for _, para := range paragraphs {
		if current.Len() > 0 && current.Len()+len(para) > maxSize {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
		current.WriteString(para)
		current.WriteString("\n\n")
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		chunks = append(chunks, s)
	}
	return chunks
}

// Join reassembles chunks with paragraph separators. Join(Split(t))
// reproduces t's paragraphs in original order, modulo exact whitespace.
func Join(chunks []string) string {
	return strings.Join(chunks, "\n\n")
}
