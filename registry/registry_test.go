package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/mvillars/docuforge/dbopen"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	db := dbopen.OpenMemory(t)
	s, err := New(db)
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	return s
}

func TestProjectCRUD(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	id, err := s.CreateProject(ctx, "archive-1923", "es", "municipal records")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	p, err := s.GetProject(ctx, id)
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if p.Name != "archive-1923" || p.Language != "es" {
		t.Errorf("project: got %+v", p)
	}

	// Duplicate name rejected.
	if _, err := s.CreateProject(ctx, "archive-1923", "es", ""); err == nil {
		t.Error("duplicate project name should fail")
	}

	list, err := s.ListProjects(ctx)
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("ListProjects: got %d, want 1", len(list))
	}
}

func TestGetProjectNotFound(t *testing.T) {
	s := openTest(t)

	_, err := s.GetProject(context.Background(), 42)
	var nf *ErrProjectNotFound
	if !errors.As(err, &nf) {
		t.Errorf("error: got %v, want ErrProjectNotFound", err)
	}
}

func TestDocumentLifecycle(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	pid, _ := s.CreateProject(ctx, "p", "en", "")
	id, err := s.CreateDocument(ctx, pid, "scan.pdf", FilePDF, "projects/p/uploads/1_scan.pdf")
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}

	d, _ := s.GetDocument(ctx, id)
	if d.Status != StatusPending {
		t.Errorf("status after create: got %s, want pending", d.Status)
	}
	if d.ProcessedAt != 0 {
		t.Error("processed_at should be unset on pending")
	}

	if err := s.MarkProcessing(ctx, id); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	d, _ = s.GetDocument(ctx, id)
	if d.Status != StatusProcessing {
		t.Errorf("status: got %s, want processing", d.Status)
	}

	if err := s.MarkCompleted(ctx, id, "md/out.md", "html/out.html", "m-ocr", "m-text"); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	d, _ = s.GetDocument(ctx, id)
	if d.Status != StatusCompleted {
		t.Errorf("status: got %s, want completed", d.Status)
	}
	if d.ProcessedAt == 0 {
		t.Error("processed_at must be set on completed")
	}
	if d.ProcessingError != "" {
		t.Error("processing_error must be empty on completed")
	}
	if d.ProcessedMarkdown != "md/out.md" || d.ProcessedHTML != "html/out.html" {
		t.Errorf("output paths: got %q / %q", d.ProcessedMarkdown, d.ProcessedHTML)
	}
	if d.OCRModel != "m-ocr" || d.TextModel != "m-text" {
		t.Errorf("models: got %q / %q", d.OCRModel, d.TextModel)
	}
}

func TestMarkFailedClearsOutputs(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	pid, _ := s.CreateProject(ctx, "p", "en", "")
	id, _ := s.CreateDocument(ctx, pid, "scan.pdf", FilePDF, "f.pdf")

	if err := s.MarkFailed(ctx, id, "OCR failed after trying all models"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	d, _ := s.GetDocument(ctx, id)
	if d.Status != StatusFailed {
		t.Errorf("status: got %s, want failed", d.Status)
	}
	if d.ProcessingError == "" {
		t.Error("processing_error must be set on failed")
	}
	if d.ProcessedAt != 0 {
		t.Error("processed_at must not be set on failed")
	}
	if d.ProcessedMarkdown != "" || d.ProcessedHTML != "" {
		t.Error("no output paths may survive a failure")
	}
}

func TestListPendingOrder(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	pid, _ := s.CreateProject(ctx, "p", "en", "")
	a, _ := s.CreateDocument(ctx, pid, "a.pdf", FilePDF, "a.pdf")
	b, _ := s.CreateDocument(ctx, pid, "b.png", FileImage, "b.png")
	c, _ := s.CreateDocument(ctx, pid, "c.pdf", FilePDF, "c.pdf")
	s.MarkProcessing(ctx, b)
	s.MarkFailed(ctx, b, "x")

	pending, err := s.ListPending(ctx, pid)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending: got %d, want 2", len(pending))
	}
	if pending[0].ID != a || pending[1].ID != c {
		t.Errorf("pending order: got [%d %d], want [%d %d]", pending[0].ID, pending[1].ID, a, c)
	}
}

func TestDeleteProjectCascades(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	pid, _ := s.CreateProject(ctx, "p", "en", "")
	for i := 0; i < 3; i++ {
		id, _ := s.CreateDocument(ctx, pid, "f.pdf", FilePDF, "orig.pdf")
		s.MarkProcessing(ctx, id)
		s.MarkCompleted(ctx, id, "out.md", "out.html", "", "")
	}

	paths, err := s.DeleteProject(ctx, pid)
	if err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	// 3 docs x (original + markdown + html).
	if len(paths) != 9 {
		t.Errorf("paths: got %d, want 9", len(paths))
	}

	var n int
	if err := s.DB.QueryRow(`SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("documents after delete: got %d, want 0", n)
	}
	if _, err := s.GetProject(ctx, pid); err == nil {
		t.Error("project should be gone")
	}
}

func TestDeleteProjectMissing(t *testing.T) {
	s := openTest(t)
	_, err := s.DeleteProject(context.Background(), 99)
	var nf *ErrProjectNotFound
	if !errors.As(err, &nf) {
		t.Errorf("error: got %v, want ErrProjectNotFound", err)
	}
}

func TestSettingsSeedAndSnapshot(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	snap, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.APIKey != "" {
		t.Errorf("seeded API key should be empty, got %q", snap.APIKey)
	}
	if snap.OCRModel == "" || snap.TextModel == "" {
		t.Error("seeded model ids should be non-empty")
	}
}

func TestSettingsMasking(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	if err := s.UpdateSettings(ctx, map[string]string{KeyAPIKey: "sk-or-secret"}); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}

	masked, _ := s.GetSettingsMasked(ctx)
	if masked[KeyAPIKey] != MaskedValue {
		t.Errorf("masked key: got %q", masked[KeyAPIKey])
	}

	// Round-tripping the masked placeholder must not clobber the key.
	if err := s.UpdateSettings(ctx, map[string]string{KeyAPIKey: MaskedValue}); err != nil {
		t.Fatalf("UpdateSettings masked: %v", err)
	}
	snap, _ := s.Snapshot(ctx)
	if snap.APIKey != "sk-or-secret" {
		t.Errorf("API key after masked update: got %q, want sk-or-secret", snap.APIKey)
	}

	// Empty values are skipped too.
	if err := s.UpdateSettings(ctx, map[string]string{KeyOCRModel: ""}); err != nil {
		t.Fatal(err)
	}
	snap, _ = s.Snapshot(ctx)
	if snap.OCRModel == "" {
		t.Error("empty update must not clear a setting")
	}
}
