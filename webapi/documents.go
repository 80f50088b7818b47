package webapi

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mvillars/docuforge/events"
	"github.com/mvillars/docuforge/registry"
)

// fileTypeFor maps an upload's extension and declared MIME type to the
// stored file type. Anything outside the allowlist is rejected.
func fileTypeFor(filename, contentType string) (registry.FileType, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return registry.FileImage, nil
	case ".pdf":
		return registry.FilePDF, nil
	}
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return registry.FileImage, nil
	case "application/pdf":
		return registry.FilePDF, nil
	}
	return "", &ValidationError{Msg: fmt.Sprintf("unsupported file type: %s", filename)}
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// sanitizeFilename keeps only filesystem-safe characters from the
// client-supplied name.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = unsafeChars.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == ".." {
		name = "upload"
	}
	return name
}

// UploadedDocument is one entry in the upload response.
type UploadedDocument struct {
	ID       int64             `json:"id"`
	Filename string            `json:"filename"`
	FileType registry.FileType `json:"file_type"`
	Status   registry.Status   `json:"status"`
	Error    string            `json:"error,omitempty"`
}

// handleDocumentUpload accepts one or more files under the multipart
// field "files" (or "file") and creates a pending document per accepted
// upload. A rejected file does not abort its siblings.
func (s *Service) handleDocumentUpload(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	project, err := s.store.GetProject(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		files = r.MultipartForm.File["file"]
	}
	if len(files) == 0 {
		respondError(w, http.StatusBadRequest, "no files in request")
		return
	}

	results := make([]UploadedDocument, 0, len(files))
	accepted := 0
	for _, fh := range files {
		res := s.storeUpload(r, project, fh)
		if res.Error == "" {
			accepted++
		}
		results = append(results, res)
	}

	status := http.StatusCreated
	if accepted == 0 {
		status = http.StatusBadRequest
	}
	respond(w, status, map[string]any{"documents": results, "accepted": accepted})
}

func (s *Service) storeUpload(r *http.Request, project *registry.Project, fh *multipart.FileHeader) UploadedDocument {
	out := UploadedDocument{Filename: fh.Filename}

	fileType, err := fileTypeFor(fh.Filename, fh.Header.Get("Content-Type"))
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.FileType = fileType

	safe := sanitizeFilename(fh.Filename)
	out.Filename = safe
	rel := filepath.ToSlash(filepath.Join("projects", project.Name, "uploads",
		fmt.Sprintf("%d_%s", time.Now().UnixMilli(), safe)))
	abs := filepath.Join(s.cfg.UploadRoot, filepath.FromSlash(rel))

	if err := s.copyUpload(fh, abs); err != nil {
		s.logger.Error("store upload", "filename", fh.Filename, "error", err)
		out.Error = "failed to store file"
		return out
	}

	docID, err := s.store.CreateDocument(r.Context(), project.ID, safe, fileType, rel)
	if err != nil {
		os.Remove(abs)
		s.logger.Error("create document", "filename", fh.Filename, "error", err)
		out.Error = "failed to record document"
		return out
	}

	out.ID = docID
	out.Status = registry.StatusPending
	s.logEvent(r.Context(), events.TypeDocumentUploaded, "document", strconv.FormatInt(docID, 10), true)
	s.logger.Info("document uploaded",
		"document", docID, "project", project.ID, "filename", safe, "bytes", fh.Size)
	return out
}

func (s *Service) copyUpload(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		os.Remove(dst)
		return err
	}
	return f.Close()
}

// handleProcess converts every pending document of the project and
// returns the per-document outcomes.
func (s *Service) handleProcess(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	outcomes, err := s.conv.ProcessPending(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	completed := 0
	for _, o := range outcomes {
		if o.Status == registry.StatusCompleted {
			completed++
		}
	}
	respond(w, http.StatusOK, map[string]any{
		"processed": len(outcomes),
		"completed": completed,
		"failed":    len(outcomes) - completed,
		"documents": outcomes,
	})
}

func (s *Service) handleDocumentGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	doc, err := s.store.GetDocument(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respond(w, http.StatusOK, doc)
}

func (s *Service) handleDocumentContent(w http.ResponseWriter, r *http.Request) {
	s.serveProcessed(w, r, false)
}

func (s *Service) handleDocumentDownload(w http.ResponseWriter, r *http.Request) {
	s.serveProcessed(w, r, true)
}

// serveProcessed streams a document's processed Markdown or HTML file,
// or the raw upload itself. The format query parameter selects which;
// markdown is the default. The original is available in any status, the
// processed outputs only once the document completed.
func (s *Service) serveProcessed(w http.ResponseWriter, r *http.Request, attachment bool) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	doc, err := s.store.GetDocument(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	format := r.URL.Query().Get("format")
	var rel, contentType, ext string
	switch format {
	case "", "markdown", "md":
		rel, contentType, ext = doc.ProcessedMarkdown, "text/markdown; charset=utf-8", ".md"
	case "html":
		rel, contentType, ext = doc.ProcessedHTML, "text/html; charset=utf-8", ".html"
	case "original", "raw":
		ext = filepath.Ext(doc.OriginalFilename)
		rel, contentType = doc.FilePath, uploadContentType(doc.OriginalFilename)
	default:
		respondError(w, http.StatusBadRequest, "format must be markdown, html or original")
		return
	}
	if format != "original" && format != "raw" && doc.Status != registry.StatusCompleted {
		respondError(w, http.StatusConflict, fmt.Sprintf("document is %s, not completed", doc.Status))
		return
	}
	if rel == "" {
		respondError(w, http.StatusNotFound, "processed output missing")
		return
	}

	abs, err := s.resolveStored(rel)
	if err != nil {
		s.logger.Error("resolve processed path", "document", id, "path", rel, "error", err)
		respondError(w, http.StatusForbidden, "invalid file path")
		return
	}

	f, err := os.Open(abs)
	if err != nil {
		s.logger.Error("open document file", "document", id, "format", format, "error", err)
		respondError(w, http.StatusNotFound, "file missing on disk")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", contentType)
	if attachment {
		base := strings.TrimSuffix(doc.OriginalFilename, filepath.Ext(doc.OriginalFilename))
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", base+ext))
	}
	io.Copy(w, f)
}

// uploadContentType maps a stored upload's extension to its MIME type.
func uploadContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".pdf":
		return "application/pdf"
	}
	return "application/octet-stream"
}

// resolveStored turns a registry-relative path into an absolute one,
// rejecting anything that escapes the upload root.
func (s *Service) resolveStored(rel string) (string, error) {
	root, err := filepath.Abs(s.cfg.UploadRoot)
	if err != nil {
		return "", err
	}
	abs := filepath.Join(root, filepath.FromSlash(rel))
	abs = filepath.Clean(abs)
	if abs != root && !strings.HasPrefix(abs, root+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes upload root: %s", rel)
	}
	return abs, nil
}

func (s *Service) handleDocumentDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	paths, err := s.store.DeleteDocument(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.removeFiles(paths)

	s.logEvent(r.Context(), events.TypeDocumentDeleted, "document", strconv.FormatInt(id, 10), true)
	s.logger.Info("document deleted", "id", id, "files", len(paths))
	respond(w, http.StatusOK, map[string]any{"deleted": true, "files_removed": len(paths)})
}
