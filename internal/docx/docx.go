// Package docx builds and reads minimal WordprocessingML (.docx) documents
// made of plain paragraphs and inline pictures.
//
// Documents are serialized with github.com/fumiama/go-docx. Equal input gives
// equal parts; only the order of entries in the zip archive may differ.
package docx

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"io"
	"math"
)

// EMUsPerInch is the number of English Metric Units in one inch.
const EMUsPerInch = 914400

// ErrSealed is returned when a document is modified after it was written.
var ErrSealed = errors.New("docx: document already written")

// Kind tells paragraphs and pictures apart.
type Kind int

const (
	KindParagraph Kind = iota
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindParagraph:
		return "paragraph"
	case KindImage:
		return "image"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Image is an embedded PNG picture.
type Image struct {
	Data []byte
	// Pixel size of Data.
	WidthPx  int
	HeightPx int
	// Display size in EMUs. Height is derived from the aspect ratio.
	CX int64
	CY int64
	// Alt text, stored as the drawing's name.
	Alt string
}

// WidthInches is the display width.
func (i *Image) WidthInches() float64 { return float64(i.CX) / EMUsPerInch }

// HeightInches is the display height.
func (i *Image) HeightInches() float64 { return float64(i.CY) / EMUsPerInch }

// Block is one unit of body content.
type Block struct {
	Kind  Kind
	Text  string
	Image *Image
}

// Properties are written to docProps/core.xml.
type Properties struct {
	Title   string
	Creator string
}

// Document is an append-only sequence of blocks.
type Document struct {
	Props  Properties
	blocks []Block
	sealed bool
}

// New returns an empty document.
func New() *Document {
	return &Document{Props: Properties{Creator: "pdf2docx"}}
}

// AddParagraph appends a text paragraph. Newlines become line breaks and
// tabs become tab stops when written.
func (d *Document) AddParagraph(text string) error {
	if d.sealed {
		return ErrSealed
	}
	d.blocks = append(d.blocks, Block{Kind: KindParagraph, Text: text})
	return nil
}

// AddPicture appends png as an inline picture widthInches wide. The display
// height follows from the image's pixel aspect ratio.
func (d *Document) AddPicture(png []byte, widthInches float64, alt string) error {
	if d.sealed {
		return ErrSealed
	}
	if widthInches <= 0 || math.IsNaN(widthInches) || math.IsInf(widthInches, 0) {
		return fmt.Errorf("docx: invalid picture width %v", widthInches)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(png))
	if err != nil {
		return fmt.Errorf("docx: decode picture: %w", err)
	}
	if format != "png" {
		return fmt.Errorf("docx: picture is %s, want png", format)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("docx: empty picture %dx%d", cfg.Width, cfg.Height)
	}
	cx := int64(math.Round(widthInches * EMUsPerInch))
	cy := cx * int64(cfg.Height) / int64(cfg.Width)
	d.blocks = append(d.blocks, Block{
		Kind: KindImage,
		Image: &Image{
			Data:     png,
			WidthPx:  cfg.Width,
			HeightPx: cfg.Height,
			CX:       cx,
			CY:       cy,
			Alt:      alt,
		},
	})
	return nil
}

// Blocks returns the blocks in document order.
func (d *Document) Blocks() []Block {
	out := make([]Block, len(d.blocks))
	copy(out, d.blocks)
	return out
}

// Len is the number of blocks.
func (d *Document) Len() int { return len(d.blocks) }

// WriteTo serializes the document. A document can be written once.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	if d.sealed {
		return 0, ErrSealed
	}
	d.sealed = true
	cw := &countingWriter{w: w}
	if err := d.writePackage(cw); err != nil {
		return cw.n, err
	}
	if cw.err != nil {
		return cw.n, fmt.Errorf("docx: write package: %w", cw.err)
	}
	return cw.n, nil
}

// Bytes serializes the document into memory.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	if err != nil && c.err == nil {
		c.err = err
	}
	return n, err
}
