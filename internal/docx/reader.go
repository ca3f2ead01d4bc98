package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"image"
	"io"
	"path"
	"strconv"
	"strings"
)

// ReadBytes parses a .docx held in memory. See Read.
func ReadBytes(data []byte) ([]Block, error) {
	return Read(bytes.NewReader(data), int64(len(data)))
}

// Read parses the body of a .docx into blocks. A paragraph holding a drawing
// becomes an image block; any other paragraph becomes a text block with line
// breaks as "\n" and tabs as "\t".
func Read(r io.ReaderAt, size int64) ([]Block, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	docFile, ok := files["word/document.xml"]
	if !ok {
		return nil, fmt.Errorf("word/document.xml not found")
	}
	rels := map[string]string{}
	if relFile, ok := files["word/_rels/document.xml.rels"]; ok {
		if rels, err = readRels(relFile); err != nil {
			return nil, err
		}
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	blocks, embeds, err := parseBody(rc)
	if err != nil {
		return nil, err
	}
	for i, relID := range embeds {
		img := blocks[i].Image
		target, ok := rels[relID]
		if !ok {
			return nil, fmt.Errorf("picture %d: unknown relationship %q", i, relID)
		}
		f, ok := files[path.Join("word", target)]
		if !ok {
			return nil, fmt.Errorf("picture %d: missing part %s", i, target)
		}
		if img.Data, err = readAll(f); err != nil {
			return nil, err
		}
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(img.Data)); err == nil {
			img.WidthPx, img.HeightPx = cfg.Width, cfg.Height
		}
	}
	return blocks, nil
}

func readAll(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	return b, nil
}

func readRels(f *zip.File) (map[string]string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	var doc struct {
		Relationships []struct {
			ID     string `xml:"Id,attr"`
			Target string `xml:"Target,attr"`
		} `xml:"Relationship"`
	}
	if err := xml.NewDecoder(rc).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.Name, err)
	}
	out := make(map[string]string, len(doc.Relationships))
	for _, r := range doc.Relationships {
		out[r.ID] = r.Target
	}
	return out, nil
}

type bodyParser struct {
	blocks []Block
	// block index -> relationship id of the picture
	embeds map[int]string

	inPara  bool
	inText  bool
	text    strings.Builder
	picture *Image
	embed   string
}

func parseBody(r io.Reader) ([]Block, map[int]string, error) {
	dec := xml.NewDecoder(r)
	p := &bodyParser{embeds: map[int]string{}}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("parse xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			p.handleStart(t)
		case xml.EndElement:
			p.handleEnd(t)
		case xml.CharData:
			if p.inText {
				p.text.Write(t)
			}
		}
	}
	return p.blocks, p.embeds, nil
}

func (p *bodyParser) handleStart(t xml.StartElement) {
	switch t.Name.Space {
	case nsW:
		switch t.Name.Local {
		case "p":
			p.inPara = true
			p.text.Reset()
			p.picture = nil
			p.embed = ""
		case "t":
			p.inText = p.inPara
		case "br":
			if p.inPara {
				p.text.WriteByte('\n')
			}
		case "tab":
			if p.inPara {
				p.text.WriteByte('\t')
			}
		case "drawing":
			if p.inPara {
				p.picture = &Image{}
			}
		}
	case nsWP:
		if p.picture == nil {
			return
		}
		switch t.Name.Local {
		case "extent":
			p.picture.CX, _ = strconv.ParseInt(attr(t, "", "cx"), 10, 64)
			p.picture.CY, _ = strconv.ParseInt(attr(t, "", "cy"), 10, 64)
		case "docPr":
			p.picture.Alt = attr(t, "", "descr")
			if p.picture.Alt == "" {
				p.picture.Alt = attr(t, "", "name")
			}
		}
	case nsA:
		if p.picture != nil && t.Name.Local == "blip" {
			p.embed = attr(t, nsR, "embed")
		}
	}
}

func (p *bodyParser) handleEnd(t xml.EndElement) {
	if t.Name.Space != nsW {
		return
	}
	switch t.Name.Local {
	case "t":
		p.inText = false
	case "p":
		if !p.inPara {
			return
		}
		if p.picture != nil {
			p.embeds[len(p.blocks)] = p.embed
			p.blocks = append(p.blocks, Block{Kind: KindImage, Image: p.picture})
		} else {
			p.blocks = append(p.blocks, Block{Kind: KindParagraph, Text: p.text.String()})
		}
		p.inPara = false
		p.picture = nil
	}
}

func attr(t xml.StartElement, space, local string) string {
	for _, a := range t.Attr {
		if a.Name.Local == local && (space == "" || a.Name.Space == space) {
			return a.Value
		}
	}
	return ""
}
