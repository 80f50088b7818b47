package openrouter

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Position marks where a chunk sits in the full document. It only
// adjusts the instructional prompt for continuity across chunks.
type Position string

const (
	PositionFirst    Position = "first"
	PositionMiddle   Position = "middle"
	PositionLast     Position = "last"
	PositionComplete Position = "complete"
)

// StructureMarkdown converts raw extracted text into clean Markdown via
// the configured text model. When no API key is configured, or the
// remote call fails, it falls back to FormatPlainText, a local
// heuristic that never touches the network.
func (c *Client) StructureMarkdown(ctx context.Context, text, language, model string, pos Position) (string, error) {
	if c.cfg.APIKey == "" {
		c.logger.Debug("no API key, using plain-text formatting")
		return FormatPlainText(text), nil
	}

	systemPrompt := fmt.Sprintf("You are a document formatting expert. Your task is to take raw OCR text and structure it into clean, well-formatted Markdown. Preserve the document's original structure while improving readability. The document is in %s.", language)
	if pos != PositionComplete {
		systemPrompt += fmt.Sprintf("\n\nThis is the %s chunk of a larger document. Maintain continuity with other chunks.", pos)
	}
	systemPrompt += "\n\nIMPORTANT: Output ONLY the markdown content directly. Do NOT wrap the output in code blocks or backticks."

	md, _, err := c.complete(ctx, chatRequest{
		Model: model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: "Please convert this raw text into well-structured Markdown:\n\n" + text},
		},
		Temperature: 0.3,
		MaxTokens:   50_000,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		c.logger.Warn("structuring failed, using plain-text formatting", "model", model, "error", err)
		return FormatPlainText(text), nil
	}

	return StripCodeFence(md), nil
}

var fenceRe = regexp.MustCompile("(?s)^```(?:markdown)?\n(.*)\n```$")

// StripCodeFence removes a code-fence wrapper from a model response and
// trims stray leading/trailing backticks. Applying it to an already
// unwrapped string is a no-op.
func StripCodeFence(md string) string {
	md = strings.TrimSpace(md)
	if m := fenceRe.FindStringSubmatch(md); m != nil {
		md = strings.TrimSpace(m[1])
	}
	md = strings.Trim(md, "`")
	return strings.TrimSpace(md)
}

// FormatPlainText applies a crude Markdown structure to raw text:
// short all-caps lines become headings, bullet and numbered lines pass
// through, everything else is grouped into paragraphs.
func FormatPlainText(text string) string {
	var out []string
	var para strings.Builder

	flush := func() {
		if s := strings.TrimSpace(para.String()); s != "" {
			out = append(out, s)
		}
		para.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			flush()
		case looksLikeHeading(trimmed):
			flush()
			out = append(out, "## "+trimmed)
		case isListLine(trimmed):
			flush()
			out = append(out, trimmed)
		default:
			if para.Len() > 0 {
				para.WriteByte(' ')
			}
			para.WriteString(trimmed)
		}
	}
	flush()

	return strings.Join(out, "\n\n")
}

var listRe = regexp.MustCompile(`^(?:[-*•]|\d+[.)])\s+`)

func isListLine(line string) bool {
	return listRe.MatchString(line)
}

// looksLikeHeading reports whether a line reads like a section title:
// short, all uppercase, and containing at least one letter.
func looksLikeHeading(line string) bool {
	if len(line) == 0 || len(line) > 60 {
		return false
	}
	hasLetter := false
	for _, r := range line {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if (r >= 'A' && r <= 'Z') || (r >= 'À' && r <= 'Þ') {
			hasLetter = true
		}
	}
	return hasLetter
}
