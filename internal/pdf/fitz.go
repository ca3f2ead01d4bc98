package pdf

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// fitzDocument renders and extracts text with MuPDF.
type fitzDocument struct {
	doc *fitz.Document
}

// OpenFitz opens data with MuPDF.
func OpenFitz(data []byte) (Document, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return &fitzDocument{doc: doc}, nil
}

func (d *fitzDocument) NumPage() int { return d.doc.NumPage() }

func (d *fitzDocument) Text(page int) (string, error) {
	if err := checkPage(page, d.NumPage()); err != nil {
		return "", err
	}
	text, err := d.doc.Text(page)
	if err != nil {
		return "", fmt.Errorf("extract text from page %d: %w", page, err)
	}
	return text, nil
}

func (d *fitzDocument) Render(page int, scale float64) (image.Image, error) {
	if err := checkPage(page, d.NumPage()); err != nil {
		return nil, err
	}
	if scale <= 0 {
		return nil, fmt.Errorf("invalid scale %v", scale)
	}
	img, err := d.doc.ImageDPI(page, DPI(scale))
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", page, err)
	}
	return img, nil
}

func (d *fitzDocument) Close() error {
	if d.doc == nil {
		return nil
	}
	err := d.doc.Close()
	d.doc = nil
	return err
}

func checkPage(page, n int) error {
	if page < 0 || page >= n {
		return fmt.Errorf("page %d out of range [0,%d)", page, n)
	}
	return nil
}
