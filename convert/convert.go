// Package convert orchestrates the conversion of one uploaded document
// into Markdown and HTML outputs.
//
// Per document the flow is a small state machine: pending → processing,
// then either embedded-text extraction (PDFs with a usable text layer)
// or remote OCR, optional chunked structuring, output writing, and a
// terminal completed/failed transition. No partial output is ever marked
// completed: the record either gets both output paths or a failure
// message and none.
//
// Settings are snapshotted once per attempt; concurrent settings updates
// affect later documents in a batch, never the one in flight.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mvillars/docuforge/chunker"
	"github.com/mvillars/docuforge/events"
	"github.com/mvillars/docuforge/openrouter"
	"github.com/mvillars/docuforge/pdftext"
	"github.com/mvillars/docuforge/registry"
	"github.com/mvillars/docuforge/render"
)

// Processing methods recorded per conversion.
const (
	MethodEmbeddedText           = "embedded-text"
	MethodEmbeddedTextFormatting = "embedded-text-formatting"
	MethodPageByPageOCR          = "page-by-page-ocr"
	MethodFullOCR                = "full-ocr"
	MethodSingleImage            = "single-image"
)

// Remote is the outbound provider surface the orchestrator needs.
// Satisfied by *openrouter.Client.
type Remote interface {
	ExtractText(ctx context.Context, req openrouter.OCRRequest) (*openrouter.OCRResult, error)
	StructureMarkdown(ctx context.Context, text, language, model string, pos openrouter.Position) (string, error)
}

// Config configures a Converter.
type Config struct {
	// UploadRoot is the file-store root all document paths are relative to.
	UploadRoot string
	// ChunkThreshold is the raw-text length above which structuring is
	// chunked (default 400000).
	ChunkThreshold int
	// EmbeddedTextMin is the minimum embedded-text length for a PDF text
	// layer to count as usable (default 100).
	EmbeddedTextMin int
	// FallbackModels are OCR candidates tried after the configured model.
	FallbackModels []string
	// NewRemote builds a provider client for one conversion attempt from
	// the snapshotted API key. Required.
	NewRemote func(apiKey string) Remote
	// Events is optional; nil disables event logging.
	Events *events.Logger
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.ChunkThreshold <= 0 {
		c.ChunkThreshold = chunker.DefaultMaxSize
	}
	if c.EmbeddedTextMin <= 0 {
		c.EmbeddedTextMin = pdftext.DefaultUsableTextMin
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Converter runs document conversions against a registry store.
type Converter struct {
	store  *registry.Store
	cfg    Config
	logger *slog.Logger
}

// New creates a Converter.
func New(store *registry.Store, cfg Config) *Converter {
	cfg.defaults()
	return &Converter{store: store, cfg: cfg, logger: cfg.Logger}
}

// Result is the ephemeral outcome of one successful conversion.
type Result struct {
	Markdown         string `json:"-"`
	PageCount        int    `json:"page_count"`
	ProcessingMethod string `json:"processing_method"`
	ExtractedText    string `json:"extracted_text"` // preview, first 500 chars
}

// Outcome is one document's entry in a batch result.
type Outcome struct {
	DocumentID int64           `json:"id"`
	Filename   string          `json:"filename"`
	Status     registry.Status `json:"status"`
	Error      string          `json:"error,omitempty"`
	PageCount  int             `json:"page_count,omitempty"`
	Method     string          `json:"processing_method,omitempty"`
}

// ProcessPending converts every pending document of a project, strictly
// sequentially, one completing or failing before the next begins. A
// document's failure never aborts its siblings; the returned slice has
// one outcome per processed document.
func (c *Converter) ProcessPending(ctx context.Context, projectID int64) ([]Outcome, error) {
	project, err := c.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	pending, err := c.store.ListPending(ctx, projectID)
	if err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, 0, len(pending))
	for _, doc := range pending {
		outcomes = append(outcomes, c.ProcessDocument(ctx, project, doc))
	}
	return outcomes, nil
}

// ProcessDocument runs the full conversion state machine for one
// document. The terminal state is always recorded in the registry; the
// returned Outcome mirrors it.
func (c *Converter) ProcessDocument(ctx context.Context, project *registry.Project, doc *registry.Document) Outcome {
	if err := c.store.MarkProcessing(ctx, doc.ID); err != nil {
		return Outcome{DocumentID: doc.ID, Filename: doc.OriginalFilename, Status: registry.StatusFailed, Error: err.Error()}
	}

	res, ocrModel, textModel, err := c.convert(ctx, project, doc)
	if err != nil {
		c.logger.Error("document conversion failed", "document", doc.ID, "error", err)
		if dbErr := c.store.MarkFailed(ctx, doc.ID, err.Error()); dbErr != nil {
			c.logger.Error("mark failed", "document", doc.ID, "error", dbErr)
		}
		c.logEvent(ctx, events.TypeDocumentFailed, doc.ID, false)
		return Outcome{DocumentID: doc.ID, Filename: doc.OriginalFilename, Status: registry.StatusFailed, Error: err.Error()}
	}

	mdRel, htmlRel, err := c.writeOutputs(project, doc, res)
	if err != nil {
		c.logger.Error("writing outputs failed", "document", doc.ID, "error", err)
		if dbErr := c.store.MarkFailed(ctx, doc.ID, err.Error()); dbErr != nil {
			c.logger.Error("mark failed", "document", doc.ID, "error", dbErr)
		}
		c.logEvent(ctx, events.TypeDocumentFailed, doc.ID, false)
		return Outcome{DocumentID: doc.ID, Filename: doc.OriginalFilename, Status: registry.StatusFailed, Error: err.Error()}
	}

	if err := c.store.MarkCompleted(ctx, doc.ID, mdRel, htmlRel, ocrModel, textModel); err != nil {
		return Outcome{DocumentID: doc.ID, Filename: doc.OriginalFilename, Status: registry.StatusFailed, Error: err.Error()}
	}
	c.logEvent(ctx, events.TypeDocumentProcessed, doc.ID, true)

	c.logger.Info("document converted",
		"document", doc.ID, "method", res.ProcessingMethod, "pages", res.PageCount)

	return Outcome{
		DocumentID: doc.ID,
		Filename:   doc.OriginalFilename,
		Status:     registry.StatusCompleted,
		PageCount:  res.PageCount,
		Method:     res.ProcessingMethod,
	}
}

// convert performs extraction and structuring, returning the result and
// the models that produced it.
func (c *Converter) convert(ctx context.Context, project *registry.Project, doc *registry.Document) (*Result, string, string, error) {
	snap, err := c.store.Snapshot(ctx)
	if err != nil {
		return nil, "", "", err
	}
	remote := c.cfg.NewRemote(snap.APIKey)
	fullPath := filepath.Join(c.cfg.UploadRoot, filepath.FromSlash(doc.FilePath))

	raw, pageCount, method, ocrModel, err := c.extract(ctx, remote, snap, project, doc, fullPath)
	if err != nil {
		return nil, "", "", err
	}
	if strings.TrimSpace(raw) == "" {
		return nil, "", "", fmt.Errorf("no text could be extracted from the document")
	}
	if method == MethodEmbeddedText && snap.APIKey == "" {
		method = MethodEmbeddedTextFormatting
	}

	markdown, err := c.structure(ctx, remote, snap, project.Language, raw)
	if err != nil {
		return nil, "", "", err
	}

	preview := raw
	if len(preview) > 500 {
		preview = preview[:500]
	}
	return &Result{
		Markdown:         markdown,
		PageCount:        pageCount,
		ProcessingMethod: method,
		ExtractedText:    preview,
	}, ocrModel, snap.TextModel, nil
}

// extract picks the extraction path and returns the raw text, page
// count, processing method, and the OCR model used (empty on the
// embedded-text path).
func (c *Converter) extract(ctx context.Context, remote Remote, snap registry.Settings, project *registry.Project, doc *registry.Document, fullPath string) (string, int, string, string, error) {
	if doc.FileType == registry.FilePDF {
		pages, err := pdftext.Extract(fullPath, c.cfg.EmbeddedTextMin)
		switch err.(type) {
		case nil:
			if pdftext.HasUsableText(pages) {
				return pdftext.JoinPages(pages), len(pages), MethodEmbeddedText, "", nil
			}
			// Scanned PDF: the whole file goes to OCR as one payload.
			raw, model, ocrErr := c.runOCR(ctx, remote, snap, project.Language, doc, fullPath, true)
			if ocrErr != nil {
				return "", 0, "", "", ocrErr
			}
			return raw, len(pages), MethodPageByPageOCR, model, nil
		case *pdftext.ErrNotPDF:
			return "", 0, "", "", err
		default:
			if errors.Is(err, fs.ErrNotExist) {
				return "", 0, "", "", err
			}
			// Unparseable but signed as PDF: extraction is best-effort,
			// OCR still gets a chance.
			c.logger.Warn("embedded text extraction failed, falling back to OCR",
				"document", doc.ID, "error", err)
			raw, model, ocrErr := c.runOCR(ctx, remote, snap, project.Language, doc, fullPath, true)
			if ocrErr != nil {
				return "", 0, "", "", ocrErr
			}
			return raw, len(pdftext.SplitOCRPages(raw)), MethodFullOCR, model, nil
		}
	}

	raw, model, err := c.runOCR(ctx, remote, snap, project.Language, doc, fullPath, false)
	if err != nil {
		return "", 0, "", "", err
	}
	return raw, 1, MethodSingleImage, model, nil
}

func (c *Converter) runOCR(ctx context.Context, remote Remote, snap registry.Settings, language string, doc *registry.Document, fullPath string, isPDF bool) (string, string, error) {
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", "", fmt.Errorf("read upload: %w", err)
	}

	models := []string{snap.OCRModel}
	for _, m := range c.cfg.FallbackModels {
		if m != snap.OCRModel {
			models = append(models, m)
		}
	}

	res, err := remote.ExtractText(ctx, openrouter.OCRRequest{
		Data:     data,
		Filename: doc.OriginalFilename,
		IsPDF:    isPDF,
		Language: language,
		Models:   models,
	})
	if err != nil {
		return "", "", err
	}
	return res.Text, res.Model, nil
}

// ChunkSeparator joins independently structured chunks in the final
// Markdown.
const ChunkSeparator = "\n\n---\n\n"

func (c *Converter) structure(ctx context.Context, remote Remote, snap registry.Settings, language, raw string) (string, error) {
	if len(raw) <= c.cfg.ChunkThreshold {
		return remote.StructureMarkdown(ctx, raw, language, snap.TextModel, openrouter.PositionComplete)
	}

	chunks := chunker.Split(raw, c.cfg.ChunkThreshold)
	c.logger.Info("structuring in chunks", "chunks", len(chunks), "chars", len(raw))

	parts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		pos := openrouter.PositionMiddle
		switch i {
		case 0:
			pos = openrouter.PositionFirst
		case len(chunks) - 1:
			pos = openrouter.PositionLast
		}
		md, err := remote.StructureMarkdown(ctx, chunk, language, snap.TextModel, pos)
		if err != nil {
			return "", fmt.Errorf("structure chunk %d/%d: %w", i+1, len(chunks), err)
		}
		parts = append(parts, md)
	}
	return strings.Join(parts, ChunkSeparator), nil
}

// writeOutputs writes the Markdown and HTML files and returns their
// registry-relative paths. On any failure both files are removed so a
// failed document leaves no outputs behind.
func (c *Converter) writeOutputs(project *registry.Project, doc *registry.Document, res *Result) (string, string, error) {
	base := strings.TrimSuffix(doc.OriginalFilename, filepath.Ext(doc.OriginalFilename))
	stamp := time.Now().Unix()

	mdRel := filepath.ToSlash(filepath.Join("projects", project.Name, "processed", "markdown", fmt.Sprintf("%s_%d.md", base, stamp)))
	htmlRel := filepath.ToSlash(filepath.Join("projects", project.Name, "processed", "html", fmt.Sprintf("%s_%d.html", base, stamp)))

	mdAbs := filepath.Join(c.cfg.UploadRoot, filepath.FromSlash(mdRel))
	htmlAbs := filepath.Join(c.cfg.UploadRoot, filepath.FromSlash(htmlRel))

	html, err := render.Document(res.Markdown, render.Meta{
		OriginalFilename: doc.OriginalFilename,
		Language:         project.Language,
		ProcessedAt:      time.Now(),
	})
	if err != nil {
		return "", "", err
	}

	cleanup := func() {
		os.Remove(mdAbs)
		os.Remove(htmlAbs)
	}
	if err := writeFile(mdAbs, []byte(res.Markdown)); err != nil {
		cleanup()
		return "", "", err
	}
	if err := writeFile(htmlAbs, []byte(html)); err != nil {
		cleanup()
		return "", "", err
	}
	return mdRel, htmlRel, nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir outputs: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func (c *Converter) logEvent(ctx context.Context, eventType string, docID int64, success bool) {
	if c.cfg.Events == nil {
		return
	}
	c.cfg.Events.Log(ctx, events.Event{
		Type:       eventType,
		EntityType: "document",
		EntityID:   fmt.Sprintf("%d", docID),
		Success:    success,
	})
}
