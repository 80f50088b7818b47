package webapi

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/mvillars/docuforge/events"
	"github.com/mvillars/docuforge/merge"
)

// handleMergePDFs merges the uploaded PDFs, in form order, and streams
// the combined document back. POST /api/merge/pdfs, multipart field
// "files".
func (s *Service) handleMergePDFs(w http.ResponseWriter, r *http.Request) {
	s.handleMerge(w, r, "merged.pdf", func(inputs []string, out string) (*merge.Result, error) {
		for _, in := range inputs {
			if strings.ToLower(filepath.Ext(in)) != ".pdf" {
				return nil, &ValidationError{Msg: "all inputs must be PDF files"}
			}
		}
		return merge.PDFs(inputs, out)
	})
}

// handleMergeImages binds the uploaded images into a single PDF, one
// page per image, in form order. POST /api/merge/images, multipart
// field "files".
func (s *Service) handleMergeImages(w http.ResponseWriter, r *http.Request) {
	s.handleMerge(w, r, "images.pdf", func(inputs []string, out string) (*merge.Result, error) {
		for _, in := range inputs {
			switch strings.ToLower(filepath.Ext(in)) {
			case ".jpg", ".jpeg", ".png", ".gif", ".webp":
			default:
				return nil, &ValidationError{Msg: "all inputs must be images"}
			}
		}
		return merge.ImagesToPDF(inputs, out)
	})
}

func (s *Service) handleMerge(w http.ResponseWriter, r *http.Request, outName string, run func(inputs []string, out string) (*merge.Result, error)) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		respondError(w, http.StatusBadRequest, "no files in request")
		return
	}

	err := merge.WithTempDir(s.cfg.TempDir, func(dir string) error {
		inputs := make([]string, 0, len(files))
		for i, fh := range files {
			dst := filepath.Join(dir, fmt.Sprintf("in_%04d_%s", i, sanitizeFilename(fh.Filename)))
			if err := saveMultipart(fh, dst); err != nil {
				return fmt.Errorf("store input %s: %w", fh.Filename, err)
			}
			inputs = append(inputs, dst)
		}

		outPath := filepath.Join(dir, outName)
		res, err := run(inputs, outPath)
		if err != nil {
			return err
		}

		f, err := os.Open(res.Path)
		if err != nil {
			return err
		}
		defer f.Close()

		s.logEvent(r.Context(), events.TypeMergeCompleted, "merge", outName, true)
		s.logger.Info("merge completed",
			"inputs", len(inputs), "pages", res.PageCount, "bytes", res.SizeBytes)

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", outName))
		w.Header().Set("Content-Length", fmt.Sprintf("%d", res.SizeBytes))
		_, err = io.Copy(w, f)
		return err
	})
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			respondError(w, http.StatusBadRequest, verr.Msg)
			return
		}
		s.logger.Error("merge failed", "error", err)
		respondError(w, http.StatusInternalServerError, "merge failed")
	}
}

func saveMultipart(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
