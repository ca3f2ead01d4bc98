package docx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"time"

	gdocx "github.com/fumiama/go-docx"
)

const (
	nsW  = gdocx.XMLNS_W
	nsR  = gdocx.XMLNS_R
	nsWP = gdocx.XMLNS_WP
	nsA  = gdocx.XMLNS_DRAWINGML_MAIN

	xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

	templateName = "default"
	corePart     = "xml/" + templateName + "/docProps/core.xml"
)

func (d *Document) writePackage(w io.Writer) error {
	f := gdocx.New().UseTemplate(templateName, gdocx.DefaultTemplateFilesList, templateFS{core: []byte(d.coreXML())})

	for i, b := range d.blocks {
		p := f.AddParagraph()
		switch b.Kind {
		case KindParagraph:
			addText(p, b.Text)
		case KindImage:
			if err := addPicture(p, b.Image); err != nil {
				return fmt.Errorf("docx: block %d: %w", i, err)
			}
		}
	}
	f.Document.Body.Items = append(f.Document.Body.Items, letterPage())

	// go-docx ignores the error from closing the archive; the counting
	// writer in WriteTo remembers the first write failure.
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("docx: write package: %w", err)
	}
	return nil
}

func addText(p *gdocx.Paragraph, text string) {
	text = sanitize(strings.ReplaceAll(text, "\r\n", "\n"))
	if text == "" {
		return
	}
	run := p.AddText(text)
	for _, c := range run.Children {
		if t, ok := c.(*gdocx.Text); ok {
			t.XMLSpace = "preserve"
		}
	}
}

// addPicture embeds img at its own display size. go-docx has no descr
// attribute, so the alt text is carried as the drawing's name.
func addPicture(p *gdocx.Paragraph, img *Image) error {
	run, err := p.AddInlineDrawing(img.Data)
	if err != nil {
		return err
	}
	for _, c := range run.Children {
		dr, ok := c.(*gdocx.Drawing)
		if !ok || dr.Inline == nil {
			continue
		}
		dr.Inline.Size(img.CX, img.CY)
		if alt := sanitize(img.Alt); alt != "" && dr.Inline.DocPr != nil {
			dr.Inline.DocPr.Name = alt
		}
	}
	return nil
}

// US Letter with one-inch margins: 6.5in of usable width.
func letterPage() *gdocx.SectPr {
	return &gdocx.SectPr{
		PgSz: &gdocx.PgSz{W: 12240, H: 15840},
		PgMar: &gdocx.PgMar{
			Top: 1440, Left: 1440, Bottom: 1440, Right: 1440,
			Header: 720, Footer: 720,
		},
	}
}

func (d *Document) coreXML() string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"`)
	b.WriteString(` xmlns:dc="http://purl.org/dc/elements/1.1/">`)
	if d.Props.Title != "" {
		b.WriteString("<dc:title>")
		escapeTo(&b, d.Props.Title)
		b.WriteString("</dc:title>")
	}
	if d.Props.Creator != "" {
		b.WriteString("<dc:creator>")
		escapeTo(&b, d.Props.Creator)
		b.WriteString("</dc:creator>")
	}
	b.WriteString(`</cp:coreProperties>`)
	return b.String()
}

// templateFS serves go-docx's embedded template with docProps/core.xml
// replaced by the document's own properties.
type templateFS struct {
	core []byte
}

func (t templateFS) Open(name string) (fs.File, error) {
	if name != corePart {
		return gdocx.TemplateXMLFS.Open(name)
	}
	return &memFile{Reader: bytes.NewReader(t.core), name: "core.xml"}, nil
}

type memFile struct {
	*bytes.Reader
	name string
}

func (f *memFile) Stat() (fs.FileInfo, error) { return f, nil }
func (f *memFile) Close() error               { return nil }
func (f *memFile) Name() string               { return f.name }
func (f *memFile) Mode() fs.FileMode          { return 0o444 }
func (f *memFile) ModTime() time.Time         { return time.Time{} }
func (f *memFile) IsDir() bool                { return false }
func (f *memFile) Sys() any                   { return nil }

func escapeTo(b *strings.Builder, s string) {
	// strings.Builder never fails a write.
	_ = xml.EscapeText(b, []byte(sanitize(s)))
}

// sanitize drops characters XML 1.0 cannot carry, such as the form feeds
// PDF text extraction emits between pages.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return r
		case r < 0x20:
			return -1
		case r >= 0xD800 && r <= 0xDFFF:
			return -1
		case r == 0xFFFE || r == 0xFFFF:
			return -1
		}
		return r
	}, s)
}
