package convert

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/thywilljoshua/pdf-to-docx/internal/pdf"
)

// fakeDoc serves numbered pages. Page i text is "page i" and its image is
// (10+i) x 20 pixels so order survives into the output.
type fakeDoc struct {
	pages     int
	textErrAt int
	rendErrAt int
	closed    *atomic.Int32
}

func (d *fakeDoc) NumPage() int { return d.pages }

func (d *fakeDoc) Text(page int) (string, error) {
	if page == d.textErrAt {
		return "", errors.New("broken text layer")
	}
	return fmt.Sprintf("  page %d\n", page), nil
}

func (d *fakeDoc) Render(page int, scale float64) (image.Image, error) {
	if page == d.rendErrAt {
		return nil, errors.New("broken content stream")
	}
	return image.NewGray(image.Rect(0, 0, 10+page, 20)), nil
}

func (d *fakeDoc) Close() error {
	d.closed.Add(1)
	return nil
}

// fakeSource is an Opener over fakeDoc that counts opens and closes.
type fakeSource struct {
	pages     int
	textErrAt int
	rendErrAt int
	openErr   error

	opened atomic.Int32
	closed atomic.Int32
}

func newFakeSource(pages int) *fakeSource {
	return &fakeSource{pages: pages, textErrAt: -1, rendErrAt: -1}
}

func (s *fakeSource) open(data []byte) (pdf.Document, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	s.opened.Add(1)
	return &fakeDoc{pages: s.pages, textErrAt: s.textErrAt, rendErrAt: s.rendErrAt, closed: &s.closed}, nil
}

type fakeCaptioner struct {
	mu    sync.Mutex
	calls int
	reply string
	err   error
}

func (c *fakeCaptioner) Caption(ctx context.Context, png []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.reply, c.err
}
