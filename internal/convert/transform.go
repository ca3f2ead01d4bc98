package convert

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/thywilljoshua/pdf-to-docx/internal/ai"
	"github.com/thywilljoshua/pdf-to-docx/internal/docx"
	"github.com/thywilljoshua/pdf-to-docx/internal/pdf"
)

const (
	DefaultScale      = 2.0
	DefaultImageWidth = 6.5
)

// Options configure a Transformer. The zero value renders with MuPDF,
// sequentially, without captions or logging.
type Options struct {
	// Engine picks the opener when Open is nil. Requests for page images are
	// refused up front when the engine cannot render.
	Engine    pdf.Engine
	Open      pdf.Opener
	Captioner ai.Captioner
	// Workers > 1 renders pages in parallel, each worker holding its own
	// opened document.
	Workers int
	Logger  *zerolog.Logger
	// OnPage is called after each page with the number of pages done. Calls
	// are serialized.
	OnPage func(done, total int)
}

// Request is one conversion. Zero Scale and ImageWidth take the defaults.
type Request struct {
	Mode       Mode
	Scale      float64
	ImageWidth float64 // inches
	Title      string
}

func (r Request) normalize() (Request, error) {
	if !r.Mode.Valid() {
		return r, fmt.Errorf("%w: mode %d", ErrInvalidRequest, int(r.Mode))
	}
	if r.Scale == 0 {
		r.Scale = DefaultScale
	}
	if r.ImageWidth == 0 {
		r.ImageWidth = DefaultImageWidth
	}
	if !positive(r.Scale) {
		return r, fmt.Errorf("%w: scale must be > 0, got %v", ErrInvalidRequest, r.Scale)
	}
	if !positive(r.ImageWidth) {
		return r, fmt.Errorf("%w: image width must be > 0, got %v", ErrInvalidRequest, r.ImageWidth)
	}
	return r, nil
}

func positive(f float64) bool { return f > 0 && !math.IsInf(f, 0) && !math.IsNaN(f) }

// Output is a serialized document with block counts.
type Output struct {
	Data       []byte
	Pages      int
	Paragraphs int
	Images     int
}

// Transformer converts PDF bytes into .docx bytes. It holds no per-call
// state and may be shared.
type Transformer struct {
	engine    pdf.Engine
	open      pdf.Opener
	captioner ai.Captioner
	workers   int
	log       zerolog.Logger
	onPage    func(done, total int)
}

func New(opts Options) *Transformer {
	t := &Transformer{
		engine:    opts.Engine,
		open:      opts.Open,
		captioner: opts.Captioner,
		workers:   opts.Workers,
		log:       zerolog.Nop(),
		onPage:    opts.OnPage,
	}
	if t.open == nil {
		if open, err := t.engine.Opener(); err == nil {
			t.open = open
		} else {
			t.open = pdf.OpenFitz
		}
	}
	if t.captioner == nil {
		t.captioner = ai.Noop{}
	}
	if t.workers < 1 {
		t.workers = 1
	}
	if opts.Logger != nil {
		t.log = *opts.Logger
	}
	return t
}

// Transform converts data with MuPDF. scale and widthInches must be > 0.
func Transform(data []byte, mode Mode, scale, widthInches float64) ([]byte, error) {
	if !positive(scale) || !positive(widthInches) {
		return nil, fmt.Errorf("%w: scale %v, width %v", ErrInvalidRequest, scale, widthInches)
	}
	return New(Options{}).Transform(context.Background(), data, Request{Mode: mode, Scale: scale, ImageWidth: widthInches})
}

// Transform converts data and returns the serialized document.
func (t *Transformer) Transform(ctx context.Context, data []byte, req Request) ([]byte, error) {
	out, err := t.Convert(ctx, data, req)
	if err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Convert is Transform with block counts. ctx is only passed to the
// captioner; a conversion is never abandoned halfway.
func (t *Transformer) Convert(ctx context.Context, data []byte, req Request) (*Output, error) {
	req, err := req.normalize()
	if err != nil {
		return nil, err
	}
	if req.Mode.IncludesImages() && t.engine != "" && !t.engine.CanRender() {
		return nil, fmt.Errorf("%w: engine %q cannot render page images for mode %s", ErrInvalidRequest, t.engine, req.Mode)
	}
	start := time.Now()
	log := t.log.With().Str("mode", req.Mode.String()).Logger()

	src, err := t.open(data)
	if err != nil {
		return nil, &OpenError{Err: err}
	}
	defer src.Close()

	n := src.NumPage()
	log.Debug().Int("pages", n).Float64("scale", req.Scale).Msg("source opened")

	pages := make([]pageResult, n)
	p := &progress{total: n, fn: t.onPage}
	if workers := min(t.workers, n); workers > 1 {
		err = t.renderParallel(ctx, data, src, req, pages, workers, p)
	} else {
		err = t.renderRange(ctx, src, req, pages, 0, 1, p, nil)
	}
	if err != nil {
		log.Debug().Err(err).Msg("conversion failed")
		return nil, err
	}

	out, err := assemble(pages, req)
	if err != nil {
		return nil, err
	}
	log.Info().
		Int("pages", out.Pages).
		Int("paragraphs", out.Paragraphs).
		Int("images", out.Images).
		Int("bytes", len(out.Data)).
		Dur("elapsed", time.Since(start)).
		Msg("document converted")
	return out, nil
}

type pageResult struct {
	text string
	png  []byte
	alt  string
}

// renderRange handles pages first, first+stride, ... of doc. It stops early
// once stop is set by a failing sibling.
func (t *Transformer) renderRange(ctx context.Context, doc pdf.Document, req Request, pages []pageResult, first, stride int, p *progress, stop *atomic.Bool) error {
	for i := first; i < len(pages); i += stride {
		if stop != nil && stop.Load() {
			return nil
		}
		r, err := t.renderPage(ctx, doc, i, req)
		if err != nil {
			if stop != nil {
				stop.Store(true)
			}
			return &PageRenderError{Page: i, Err: err}
		}
		pages[i] = r
		p.done()
	}
	return nil
}

func (t *Transformer) renderParallel(ctx context.Context, data []byte, src pdf.Document, req Request, pages []pageResult, workers int, p *progress) error {
	var (
		g    errgroup.Group
		stop atomic.Bool
	)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			doc := src
			if w > 0 {
				d, err := t.open(data)
				if err != nil {
					stop.Store(true)
					return &OpenError{Err: err}
				}
				defer d.Close()
				doc = d
			}
			return t.renderRange(ctx, doc, req, pages, w, workers, p, &stop)
		})
	}
	return g.Wait()
}

func (t *Transformer) renderPage(ctx context.Context, doc pdf.Document, i int, req Request) (pageResult, error) {
	var r pageResult
	if req.Mode.IncludesText() {
		text, err := doc.Text(i)
		if err != nil {
			return r, err
		}
		r.text = strings.TrimSpace(text)
	}
	if req.Mode.IncludesImages() {
		img, err := doc.Render(i, req.Scale)
		if err != nil {
			return r, err
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return r, fmt.Errorf("encode png: %w", err)
		}
		r.png = buf.Bytes()
		r.alt = t.caption(ctx, i, r.png)
	}
	t.log.Debug().Int("page", i).Int("text_len", len(r.text)).Int("png_bytes", len(r.png)).Msg("page rendered")
	return r, nil
}

// caption falls back to "Page N" when the captioner fails or says nothing.
func (t *Transformer) caption(ctx context.Context, i int, png []byte) string {
	fallback := fmt.Sprintf("Page %d", i+1)
	if _, ok := t.captioner.(ai.Noop); ok {
		return fallback
	}
	c, err := t.captioner.Caption(ctx, png)
	if err != nil {
		t.log.Warn().Err(err).Int("page", i).Msg("caption failed")
		return fallback
	}
	if c = strings.TrimSpace(c); c == "" {
		return fallback
	}
	return c
}

func assemble(pages []pageResult, req Request) (*Output, error) {
	doc := docx.New()
	doc.Props.Title = req.Title
	out := &Output{Pages: len(pages)}
	for i, p := range pages {
		if req.Mode.IncludesText() {
			if err := doc.AddParagraph(p.text); err != nil {
				return nil, &PageRenderError{Page: i, Err: fmt.Errorf("add paragraph: %w", err)}
			}
			out.Paragraphs++
		}
		if req.Mode.IncludesImages() {
			if err := doc.AddPicture(p.png, req.ImageWidth, p.alt); err != nil {
				return nil, &PageRenderError{Page: i, Err: fmt.Errorf("embed image: %w", err)}
			}
			out.Images++
		}
	}
	data, err := doc.Bytes()
	if err != nil {
		return nil, &SerializeError{Err: err}
	}
	out.Data = data
	return out, nil
}

type progress struct {
	mu    sync.Mutex
	n     int
	total int
	fn    func(done, total int)
}

func (p *progress) done() {
	if p.fn == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.n++
	p.fn(p.n, p.total)
}
