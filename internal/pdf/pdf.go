// Package pdf opens PDF documents for page-by-page text extraction and
// rasterization.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"strings"
)

// NativeDPI is the resolution of PDF user space: one point per pixel.
const NativeDPI = 72.0

var (
	// ErrNotPDF means the input lacks a PDF header.
	ErrNotPDF = errors.New("not a PDF document")
	// ErrDamaged means the input has a PDF header but no end-of-file
	// trailer, as happens with cut-off uploads.
	ErrDamaged = errors.New("PDF is truncated or damaged")
	// ErrRasterUnsupported is returned by engines that only extract text.
	ErrRasterUnsupported = errors.New("engine cannot rasterize pages")
)

// Document is an opened PDF. Pages are addressed by zero-based index. A
// Document is used by one goroutine at a time and must be closed.
type Document interface {
	NumPage() int
	// Text returns the page's characters in content order, without layout.
	Text(page int) (string, error)
	// Render rasterizes the page at scale times its native resolution.
	Render(page int, scale float64) (image.Image, error)
	Close() error
}

// Opener opens a Document over data. data is not modified and may be shared
// between concurrently opened documents.
type Opener func(data []byte) (Document, error)

// Engine names an Opener.
type Engine string

const (
	// EngineFitz uses MuPDF for text and rendering.
	EngineFitz Engine = "fitz"
	// EngineText is a pure Go text-only engine.
	EngineText Engine = "text"
)

// Engines lists the supported engine names.
func Engines() []Engine { return []Engine{EngineFitz, EngineText} }

// CanRender reports whether the engine supports Render.
func (e Engine) CanRender() bool { return e == EngineFitz }

// Opener returns the opener for e.
func (e Engine) Opener() (Opener, error) {
	switch e {
	case EngineFitz, "":
		return OpenFitz, nil
	case EngineText:
		return OpenText, nil
	}
	return nil, fmt.Errorf("unknown pdf engine %q", string(e))
}

// ParseEngine parses an engine name.
func ParseEngine(s string) (Engine, error) {
	e := Engine(strings.ToLower(strings.TrimSpace(s)))
	if _, err := e.Opener(); err != nil {
		return "", err
	}
	if e == "" {
		e = EngineFitz
	}
	return e, nil
}

// headerWindow is how far into the file the %PDF- marker may appear.
// Readers tolerate leading junk before it.
const headerWindow = 1024

// Sniff reports ErrNotPDF unless data carries a PDF header near its start.
func Sniff(data []byte) error {
	head := data
	if len(head) > headerWindow {
		head = head[:headerWindow]
	}
	if !bytes.Contains(head, []byte("%PDF-")) {
		return ErrNotPDF
	}
	return nil
}

// trailerWindow is how far from the end the %%EOF marker may appear.
const trailerWindow = 1024

// Validate checks both ends of data: the header Sniff looks for, and a
// startxref/%%EOF trailer near the end. MuPDF rebuilds files without a
// trailer and would convert whatever survives, so such input is refused.
func Validate(data []byte) error {
	if err := Sniff(data); err != nil {
		return err
	}
	tail := data
	if len(tail) > trailerWindow {
		tail = tail[len(tail)-trailerWindow:]
	}
	eof := bytes.LastIndex(tail, []byte("%%EOF"))
	if eof < 0 || !bytes.Contains(tail[:eof], []byte("startxref")) {
		return ErrDamaged
	}
	return nil
}

// DPI converts a scale factor to a rendering resolution.
func DPI(scale float64) float64 { return NativeDPI * scale }
