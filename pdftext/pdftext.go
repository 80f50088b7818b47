// Package pdftext extracts the embedded text layer from PDF files.
//
// Extraction is pure Go via pdfcpu: each page's content stream is parsed
// for text-showing operators. The result is one Page per PDF page with a
// HasText flag; a PDF whose concatenated text is shorter than the usable
// threshold is reported with HasText=false on every page so callers fall
// back to OCR. The package never fabricates text: corrupt or non-PDF
// input surfaces as an error.
package pdftext

import (
	"fmt"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// DefaultUsableTextMin is the minimum concatenated text length for a
// PDF's text layer to count as usable.
const DefaultUsableTextMin = 100

// Page is the extracted text of one PDF page.
type Page struct {
	Number  int    `json:"page_number"`
	Text    string `json:"text"`
	HasText bool   `json:"has_text"`
}

// ErrNotPDF is returned when the input lacks a PDF signature.
type ErrNotPDF struct {
	Path string
}

func (e *ErrNotPDF) Error() string {
	return fmt.Sprintf("pdftext: not a PDF file: %s", e.Path)
}

// Extract reads the embedded text layer of the PDF at path, one Page per
// PDF page. usableMin <= 0 uses DefaultUsableTextMin. When the whole
// document yields fewer than usableMin characters, every page is
// reported with HasText=false (the text layer is considered unusable,
// not partially usable).
func Extract(path string, usableMin int) ([]Page, error) {
	if usableMin <= 0 {
		usableMin = DefaultUsableTextMin
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pdftext: open: %w", err)
	}
	defer f.Close()

	sig := make([]byte, 4)
	if n, _ := f.Read(sig); n < 4 || string(sig) != "%PDF" {
		return nil, &ErrNotPDF{Path: path}
	}
	if _, err := f.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("pdftext: seek: %w", err)
	}

	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return nil, fmt.Errorf("pdftext: read %s: %w", path, err)
	}

	pages := make([]Page, 0, ctx.PageCount)
	total := 0
	for nr := 1; nr <= ctx.PageCount; nr++ {
		text := extractPageText(ctx, nr)
		total += len(text)
		pages = append(pages, Page{
			Number:  nr,
			Text:    text,
			HasText: text != "",
		})
	}

	if len(pages) == 0 {
		pages = append(pages, Page{Number: 1})
	}

	// A sprinkle of characters across a scanned document is noise, not a
	// text layer. Below the threshold the whole document goes to OCR.
	if total < usableMin {
		for i := range pages {
			pages[i].HasText = false
		}
	}

	return pages, nil
}

func extractPageText(ctx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil || r == nil {
		return ""
	}
	return textFromContentStream(r)
}

// HasUsableText reports whether any page carries usable embedded text.
func HasUsableText(pages []Page) bool {
	for _, p := range pages {
		if p.HasText {
			return true
		}
	}
	return false
}

// JoinPages concatenates the text-bearing pages with page-order markers,
// separated by horizontal rules.
func JoinPages(pages []Page) string {
	var parts []string
	for _, p := range pages {
		if !p.HasText {
			continue
		}
		parts = append(parts, fmt.Sprintf("[Page %d]\n\n%s", p.Number, p.Text))
	}
	return strings.Join(parts, "\n\n---\n\n")
}
