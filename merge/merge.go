// Package merge provides the standalone document-assembly utilities:
// merging several PDFs into one, and binding a set of images into a
// single PDF. Both are thin wrappers over pdfcpu operating on files, with
// temp-dir workflows that clean up on success and failure alike.
package merge

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/mvillars/docuforge/idgen"
)

// Result describes a produced merge output.
type Result struct {
	Path      string `json:"path"`
	PageCount int    `json:"page_count"`
	SizeBytes int64  `json:"size_bytes"`
}

// PDFs merges the input PDF files, in order, into a single PDF at
// outPath. At least two inputs are required.
func PDFs(inputs []string, outPath string) (*Result, error) {
	if len(inputs) < 2 {
		return nil, fmt.Errorf("merge: need at least 2 PDFs, got %d", len(inputs))
	}
	for _, in := range inputs {
		if _, err := os.Stat(in); err != nil {
			return nil, fmt.Errorf("merge: input: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return nil, fmt.Errorf("merge: mkdir: %w", err)
	}
	if err := api.MergeCreateFile(inputs, outPath, false, nil); err != nil {
		os.Remove(outPath)
		return nil, fmt.Errorf("merge: pdfcpu merge: %w", err)
	}

	return describe(outPath)
}

// ImagesToPDF binds the input images, in order, into a single PDF with
// one page per image.
func ImagesToPDF(inputs []string, outPath string) (*Result, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("merge: no input images")
	}
	for _, in := range inputs {
		if _, err := os.Stat(in); err != nil {
			return nil, fmt.Errorf("merge: input: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return nil, fmt.Errorf("merge: mkdir: %w", err)
	}
	if err := api.ImportImagesFile(inputs, outPath, nil, nil); err != nil {
		os.Remove(outPath)
		return nil, fmt.Errorf("merge: pdfcpu import images: %w", err)
	}

	return describe(outPath)
}

func describe(path string) (*Result, error) {
	pages, err := api.PageCountFile(path)
	if err != nil {
		return nil, fmt.Errorf("merge: page count: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("merge: stat output: %w", err)
	}
	return &Result{Path: path, PageCount: pages, SizeBytes: info.Size()}, nil
}

// WithTempDir creates a unique scratch directory under root, runs fn
// with it, and removes it afterwards regardless of fn's outcome.
func WithTempDir(root string, fn func(dir string) error) error {
	dir := filepath.Join(root, idgen.Prefixed("mrg_", idgen.Default)())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("merge: temp dir: %w", err)
	}
	defer os.RemoveAll(dir)
	return fn(dir)
}
