package openrouter

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// OCRRequest describes one extraction job.
type OCRRequest struct {
	// Data is the raw file content, sent inline as a base64 data URL.
	Data []byte
	// Filename is used only to derive the MIME type for images.
	Filename string
	// IsPDF selects the PDF prompt wording and MIME type.
	IsPDF bool
	// Language of the document, embedded in the prompt.
	Language string
	// Models is the ordered candidate list: configured model first, then
	// fallbacks. Tried in order, stopping at the first success.
	Models []string
}

// OCRResult is a successful extraction.
type OCRResult struct {
	// Text is the raw extracted text.
	Text string
	// Model is the candidate that produced it.
	Model string
	// Usage is the provider's token accounting for the winning call.
	Usage Usage
}

// ExtractText runs OCR over the file, trying each candidate model in
// order until one accepts the request. The context's deadline (or the
// configured Timeout if the context has none) bounds the whole attempt;
// hitting it aborts the in-flight call and is reported as a timeout, not
// retried on the next model.
func (c *Client) ExtractText(ctx context.Context, req OCRRequest) (*OCRResult, error) {
	if c.cfg.APIKey == "" {
		return nil, &ErrNoAPIKey{}
	}
	if int64(len(req.Data)) > c.cfg.MaxFileBytes {
		return nil, &ErrFileTooLarge{Size: int64(len(req.Data)), Max: c.cfg.MaxFileBytes}
	}
	if len(req.Models) == 0 {
		return nil, fmt.Errorf("openrouter: no candidate models")
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s",
		mimeTypeFor(req.Filename, req.IsPDF),
		base64.StdEncoding.EncodeToString(req.Data))
	prompt := ocrPrompt(req.IsPDF, req.Language)

	var lastErr error
	for _, model := range req.Models {
		c.logger.Debug("attempting OCR", "model", model, "bytes", len(req.Data))

		text, usage, err := c.complete(ctx, chatRequest{
			Model: model,
			Messages: []message{{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: prompt},
					{Type: "image_url", ImageURL: &imageURL{URL: dataURL, Detail: "high"}},
				},
			}},
			Temperature: 0.1,
			MaxTokens:   100_000,
		})
		if err == nil {
			c.logger.Info("OCR succeeded", "model", model, "chars", len(text))
			return &OCRResult{Text: text, Model: model, Usage: *usage}, nil
		}

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("openrouter: OCR request timed out: %w", err)
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}

		c.logger.Warn("OCR model failed", "model", model, "error", err)
		lastErr = err
	}

	return nil, &ErrAllModelsFailed{Models: req.Models, Last: lastErr}
}

// ocrPrompt demands a complete, unabridged extraction: vision models
// left to their own devices summarize long documents.
func ocrPrompt(isPDF bool, language string) string {
	kind := "image"
	if isPDF {
		kind = "PDF document"
	}
	return fmt.Sprintf(`You are an expert OCR system. Extract ALL text from this %s.

CRITICAL INSTRUCTIONS:
1. Extract EVERY SINGLE PAGE of text from the document
2. DO NOT summarize or skip sections
3. DO NOT use placeholders like "[Document continues...]" or "[Additional pages...]"
4. Extract the COMPLETE text from beginning to end
5. If this is a multi-page document, process ALL pages
6. Preserve the original formatting, structure, and line breaks
7. Include page numbers or section breaks where visible

The document is in %s. Output ONLY the extracted text, nothing else.`, kind, language)
}

func mimeTypeFor(filename string, isPDF bool) string {
	if isPDF {
		return "application/pdf"
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
