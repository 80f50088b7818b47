// Package render turns processed Markdown into a standalone HTML
// document: goldmark for the conversion, bluemonday to sanitize the
// result before it is wrapped in the page template.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

var policy = bluemonday.UGCPolicy()

// Meta is the document metadata shown in the rendered page header.
type Meta struct {
	OriginalFilename string
	Language         string
	ProcessedAt      time.Time
}

// ToHTML converts Markdown to a sanitized HTML fragment.
func ToHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render: markdown: %w", err)
	}
	return string(policy.SanitizeBytes(buf.Bytes())), nil
}

// Document converts Markdown into a complete standalone HTML page with
// a metadata header block.
func Document(markdown string, meta Meta) (string, error) {
	body, err := ToHTML(markdown)
	if err != nil {
		return "", err
	}

	var out bytes.Buffer
	err = pageTmpl.Execute(&out, pageData{
		Title:     meta.OriginalFilename,
		Language:  meta.Language,
		LangUpper: strings.ToUpper(meta.Language),
		Processed: meta.ProcessedAt.Format("2006-01-02 15:04:05"),
		Filename:  meta.OriginalFilename,
		Body:      template.HTML(body),
	})
	if err != nil {
		return "", fmt.Errorf("render: template: %w", err)
	}
	return out.String(), nil
}

type pageData struct {
	Title     string
	Language  string
	LangUpper string
	Processed string
	Filename  string
	Body      template.HTML
}

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="{{.Language}}">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}} - Processed</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 800px;
            margin: 0 auto;
            padding: 2rem;
            background-color: #f9fafb;
        }
        h1, h2, h3, h4, h5, h6 { margin-top: 2rem; margin-bottom: 1rem; font-weight: 600; }
        p { margin-bottom: 1rem; }
        pre { background-color: #f3f4f6; padding: 1rem; border-radius: 0.375rem; overflow-x: auto; }
        code { background-color: #f3f4f6; padding: 0.125rem 0.25rem; border-radius: 0.25rem; font-size: 0.875rem; }
        blockquote { border-left: 4px solid #e5e7eb; padding-left: 1rem; margin-left: 0; color: #6b7280; }
        table { border-collapse: collapse; width: 100%; margin-bottom: 1rem; }
        th, td { border: 1px solid #e5e7eb; padding: 0.5rem; text-align: left; }
        th { background-color: #f3f4f6; font-weight: 600; }
        .metadata {
            background-color: #f3f4f6;
            border: 1px solid #e5e7eb;
            border-radius: 0.375rem;
            padding: 1rem;
            margin-bottom: 2rem;
            font-size: 0.875rem;
        }
    </style>
</head>
<body>
    <div class="metadata">
        <p><strong>Original File:</strong> {{.Filename}}</p>
        <p><strong>Processed:</strong> {{.Processed}}</p>
        <p><strong>Language:</strong> {{.LangUpper}}</p>
    </div>
    {{.Body}}
</body>
</html>
`))
