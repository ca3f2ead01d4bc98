package pdf

import (
	"bytes"
	"fmt"
	"image"

	lpdf "github.com/ledongthuc/pdf"
)

// textDocument extracts the text layer in pure Go. It cannot render.
type textDocument struct {
	r *lpdf.Reader
}

// OpenText opens data with the pure Go text engine.
func OpenText(data []byte) (doc Document, err error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	// The parser panics on some malformed inputs.
	defer func() {
		if p := recover(); p != nil {
			doc, err = nil, fmt.Errorf("open pdf: %v", p)
		}
	}()
	r, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return &textDocument{r: r}, nil
}

func (d *textDocument) NumPage() int { return d.r.NumPage() }

func (d *textDocument) Text(page int) (text string, err error) {
	if err := checkPage(page, d.NumPage()); err != nil {
		return "", err
	}
	defer func() {
		if p := recover(); p != nil {
			text, err = "", fmt.Errorf("extract text from page %d: %v", page, p)
		}
	}()
	p := d.r.Page(page + 1)
	if p.V.IsNull() {
		return "", nil
	}
	// Font resource names are only unique within a page.
	fonts := make(map[string]*lpdf.Font)
	for _, name := range p.Fonts() {
		f := p.Font(name)
		fonts[name] = &f
	}
	text, err = p.GetPlainText(fonts)
	if err != nil {
		return "", fmt.Errorf("extract text from page %d: %w", page, err)
	}
	return text, nil
}

func (d *textDocument) Render(page int, scale float64) (image.Image, error) {
	return nil, ErrRasterUnsupported
}

func (d *textDocument) Close() error { return nil }
