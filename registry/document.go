package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrDocumentNotFound is returned when an operation targets a document
// that does not exist.
type ErrDocumentNotFound struct {
	ID int64
}

func (e *ErrDocumentNotFound) Error() string {
	return fmt.Sprintf("registry: document not found: %d", e.ID)
}

// CreateDocument inserts a pending document record for an upload and
// returns its ID.
func (s *Store) CreateDocument(ctx context.Context, projectID int64, originalFilename string, fileType FileType, filePath string) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO documents (project_id, original_filename, file_type, file_path, status, created_at)
		VALUES (?,?,?,?,?,?)`,
		projectID, originalFilename, fileType, filePath, StatusPending, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("registry: create document: %w", err)
	}
	return res.LastInsertId()
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, id int64) (*Document, error) {
	d := &Document{}
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, project_id, original_filename, file_type, file_path, status,
		       COALESCE(processed_markdown_path, ''), COALESCE(processed_html_path, ''),
		       COALESCE(ocr_model, ''), COALESCE(text_model, ''),
		       COALESCE(processing_error, ''), created_at, COALESCE(processed_at, 0)
		FROM documents WHERE id = ?`, id).Scan(
		&d.ID, &d.ProjectID, &d.OriginalFilename, &d.FileType, &d.FilePath, &d.Status,
		&d.ProcessedMarkdown, &d.ProcessedHTML, &d.OCRModel, &d.TextModel,
		&d.ProcessingError, &d.CreatedAt, &d.ProcessedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &ErrDocumentNotFound{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("registry: get document: %w", err)
	}
	return d, nil
}

// ListDocuments returns all documents of a project, newest first.
func (s *Store) ListDocuments(ctx context.Context, projectID int64) ([]*Document, error) {
	return s.listDocuments(ctx, `WHERE project_id = ? ORDER BY created_at DESC, id DESC`, projectID)
}

// ListPending returns a project's pending documents in upload order, so
// a processing batch works through them oldest first.
func (s *Store) ListPending(ctx context.Context, projectID int64) ([]*Document, error) {
	return s.listDocuments(ctx, `WHERE project_id = ? AND status = 'pending' ORDER BY created_at ASC, id ASC`, projectID)
}

func (s *Store) listDocuments(ctx context.Context, clause string, args ...any) ([]*Document, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, project_id, original_filename, file_type, file_path, status,
		       COALESCE(processed_markdown_path, ''), COALESCE(processed_html_path, ''),
		       COALESCE(ocr_model, ''), COALESCE(text_model, ''),
		       COALESCE(processing_error, ''), created_at, COALESCE(processed_at, 0)
		FROM documents `+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("registry: list documents: %w", err)
	}
	defer rows.Close()

	var out []*Document
	for rows.Next() {
		d := &Document{}
		if err := rows.Scan(
			&d.ID, &d.ProjectID, &d.OriginalFilename, &d.FileType, &d.FilePath, &d.Status,
			&d.ProcessedMarkdown, &d.ProcessedHTML, &d.OCRModel, &d.TextModel,
			&d.ProcessingError, &d.CreatedAt, &d.ProcessedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// MarkProcessing transitions a document to processing, clearing any
// stale error from a previous attempt.
func (s *Store) MarkProcessing(ctx context.Context, id int64) error {
	return s.exec(ctx, id, `
		UPDATE documents
		SET status = 'processing', processing_error = NULL
		WHERE id = ?`, id)
}

// MarkCompleted transitions a document to completed, recording both
// output paths, the models that produced them, and the completion time.
func (s *Store) MarkCompleted(ctx context.Context, id int64, markdownPath, htmlPath, ocrModel, textModel string) error {
	return s.exec(ctx, id, `
		UPDATE documents
		SET status = 'completed',
		    processed_markdown_path = ?,
		    processed_html_path = ?,
		    ocr_model = ?,
		    text_model = ?,
		    processing_error = NULL,
		    processed_at = ?
		WHERE id = ?`,
		markdownPath, htmlPath, ocrModel, textModel, time.Now().Unix(), id)
}

// MarkFailed transitions a document to failed with the error message.
// No output paths are ever set on this path.
func (s *Store) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	return s.exec(ctx, id, `
		UPDATE documents
		SET status = 'failed',
		    processed_markdown_path = NULL,
		    processed_html_path = NULL,
		    processing_error = ?,
		    processed_at = NULL
		WHERE id = ?`, errMsg, id)
}

// DeleteDocument removes a document row, returning its file paths so the
// caller can remove them from disk best-effort.
func (s *Store) DeleteDocument(ctx context.Context, id int64) ([]string, error) {
	d, err := s.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("registry: delete document: %w", err)
	}
	var paths []string
	for _, p := range []string{d.FilePath, d.ProcessedMarkdown, d.ProcessedHTML} {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

func (s *Store) exec(ctx context.Context, id int64, query string, args ...any) error {
	res, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("registry: update document: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return &ErrDocumentNotFound{ID: id}
	}
	return nil
}
