package openrouter

import "fmt"

// ProviderError is a non-success response (or malformed payload) from
// the remote provider for one model attempt.
type ProviderError struct {
	Model  string
	Status int
	Body   string
}

func (e *ProviderError) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("openrouter: model %s: status %d: %s", e.Model, e.Status, e.Body)
	}
	return fmt.Sprintf("openrouter: status %d: %s", e.Status, e.Body)
}

// ErrFileTooLarge rejects an OCR input before any network call.
type ErrFileTooLarge struct {
	Size int64
	Max  int64
}

func (e *ErrFileTooLarge) Error() string {
	return fmt.Sprintf("openrouter: file too large for OCR: %d bytes (max %d)", e.Size, e.Max)
}

// ErrAllModelsFailed is returned when every candidate model was
// exhausted without a successful OCR response. Last carries the final
// failure detail.
type ErrAllModelsFailed struct {
	Models []string
	Last   error
}

func (e *ErrAllModelsFailed) Error() string {
	return fmt.Sprintf("openrouter: OCR failed after trying all %d models: %v", len(e.Models), e.Last)
}

func (e *ErrAllModelsFailed) Unwrap() error { return e.Last }

// ErrNoAPIKey is returned when an operation requires a credential and
// none is configured.
type ErrNoAPIKey struct{}

func (e *ErrNoAPIKey) Error() string {
	return "openrouter: API key not configured"
}
