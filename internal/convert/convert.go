// Package convert turns PDF documents into .docx documents holding, per page,
// the page text as a paragraph and/or the rendered page as a picture.
package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Run converts the PDF at pdfPath and writes the document to cfg.OutPath.
// The output file is replaced atomically; on failure nothing is written.
func (t *Transformer) Run(ctx context.Context, pdfPath string, cfg Config) (Result, error) {
	info, err := os.Stat(pdfPath)
	if err != nil {
		return Result{}, fmt.Errorf("stat input: %w", err)
	}
	if info.IsDir() {
		return Result{}, fmt.Errorf("input is a directory: %s", pdfPath)
	}
	if cfg.MaxInputBytes > 0 && info.Size() > cfg.MaxInputBytes {
		return Result{}, fmt.Errorf("input too large: %d bytes (max %d)", info.Size(), cfg.MaxInputBytes)
	}
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return Result{}, fmt.Errorf("read input: %w", err)
	}

	outPath := cfg.OutPath
	if outPath == "" {
		outPath = DefaultOutPath(pdfPath)
	}

	out, err := t.Convert(ctx, data, Request{
		Mode:       cfg.Mode,
		Scale:      cfg.Scale,
		ImageWidth: cfg.ImageWidth,
		Title:      strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath)),
	})
	if err != nil {
		return Result{}, err
	}
	if err := writeFileAtomic(outPath, out.Data); err != nil {
		return Result{}, err
	}
	return Result{
		Source:     pdfPath,
		OutPath:    outPath,
		Mode:       cfg.Mode.String(),
		Pages:      out.Pages,
		Paragraphs: out.Paragraphs,
		Images:     out.Images,
		Bytes:      len(out.Data),
	}, nil
}

// DefaultOutPath swaps the extension of pdfPath for .docx.
func DefaultOutPath(pdfPath string) string {
	return strings.TrimSuffix(pdfPath, filepath.Ext(pdfPath)) + ".docx"
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".pdf2docx-*.docx")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("chmod output: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}
