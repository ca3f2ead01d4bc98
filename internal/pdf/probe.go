package pdf

import (
	"bytes"
	"fmt"

	rpdf "rsc.io/pdf"
)

// PageSize is a page's MediaBox size in points.
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Info summarizes a PDF without rendering it.
type Info struct {
	Pages int        `json:"pages"`
	Sizes []PageSize `json:"sizes"`
}

// Probe reads the page tree of data and reports page count and sizes.
func Probe(data []byte) (info Info, err error) {
	if err := Validate(data); err != nil {
		return Info{}, err
	}
	defer func() {
		if p := recover(); p != nil {
			info, err = Info{}, fmt.Errorf("probe pdf: %v", p)
		}
	}()
	doc, err := rpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Info{}, fmt.Errorf("probe pdf: %w", err)
	}
	n := doc.NumPage()
	info = Info{Pages: n, Sizes: make([]PageSize, 0, n)}
	for i := 1; i <= n; i++ {
		info.Sizes = append(info.Sizes, mediaBox(doc.Page(i).V))
	}
	return info, nil
}

// mediaBox walks up the page tree since MediaBox is inheritable.
func mediaBox(v rpdf.Value) PageSize {
	for depth := 0; v.Kind() != rpdf.Null && depth < 32; depth++ {
		box := v.Key("MediaBox")
		if box.Kind() == rpdf.Array && box.Len() == 4 {
			return PageSize{
				Width:  box.Index(2).Float64() - box.Index(0).Float64(),
				Height: box.Index(3).Float64() - box.Index(1).Float64(),
			}
		}
		v = v.Key("Parent")
	}
	return PageSize{}
}
