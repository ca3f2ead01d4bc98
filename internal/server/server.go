// Package server exposes the transformer over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/thywilljoshua/pdf-to-docx/internal/convert"
)

// DocxContentType is the media type of the response body.
const DocxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Converter is satisfied by *convert.Transformer.
type Converter interface {
	Convert(ctx context.Context, data []byte, req convert.Request) (*convert.Output, error)
}

type Config struct {
	MaxUploadBytes int64
	// Timeout bounds one conversion; zero means none.
	Timeout time.Duration
	// Defaults fill form fields the client leaves out.
	Defaults convert.Request
}

type Server struct {
	conv Converter
	cfg  Config
	log  zerolog.Logger
}

func New(conv Converter, cfg Config, log zerolog.Logger) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 64 << 20
	}
	return &Server{conv: conv, cfg: cfg, log: log}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "pdf2docx"})
	})
	r.Post("/convert", s.handleConvert)
	return r
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info().Str("addr", addr).Msg("listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Page  *int   `json:"page,omitempty"`
}

type outcome struct {
	out *convert.Output
	err error
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	w.Header().Set("X-Conversion-ID", id)
	log := s.log.With().Str("conversion_id", id).Logger()
	start := time.Now()

	// multipart framing adds a little on top of the file itself
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+64<<10)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(w, log, http.StatusRequestEntityTooLarge, "upload too large", "too_large", -1)
			return
		}
		s.fail(w, log, http.StatusBadRequest, "missing multipart field \"file\"", string(convert.KindInvalidRequest), -1)
		return
	}
	defer file.Close()
	if header.Size > s.cfg.MaxUploadBytes {
		s.fail(w, log, http.StatusRequestEntityTooLarge, "upload too large", "too_large", -1)
		return
	}
	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		s.fail(w, log, http.StatusBadRequest, "read upload: "+err.Error(), string(convert.KindInvalidRequest), -1)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		s.fail(w, log, http.StatusRequestEntityTooLarge, "upload too large", "too_large", -1)
		return
	}

	req, err := s.parseRequest(r)
	if err != nil {
		s.fail(w, log, http.StatusBadRequest, err.Error(), string(convert.KindInvalidRequest), -1)
		return
	}
	req.Title = header.Filename

	ctx := r.Context()
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	done := make(chan outcome, 1)
	go func() {
		out, err := s.conv.Convert(ctx, data, req)
		done <- outcome{out: out, err: err}
	}()

	var res outcome
	select {
	case res = <-done:
	case <-ctx.Done():
		s.fail(w, log, http.StatusServiceUnavailable, "conversion timed out", "timeout", -1)
		return
	}
	if res.err != nil {
		kind, page := convert.Classify(res.err)
		s.fail(w, log, statusFor(kind), res.err.Error(), string(kind), page)
		return
	}

	name := convert.DocxName(header.Filename)
	w.Header().Set("Content-Type", DocxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.out.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.out.Data); err != nil {
		log.Warn().Err(err).Msg("write response")
		return
	}
	log.Info().
		Str("file", name).
		Str("mode", req.Mode.String()).
		Int("pages", res.out.Pages).
		Int("bytes", len(res.out.Data)).
		Dur("elapsed", time.Since(start)).
		Msg("conversion served")
}

func (s *Server) parseRequest(r *http.Request) (convert.Request, error) {
	req := s.cfg.Defaults
	if v := r.FormValue("mode"); v != "" {
		m, err := convert.ParseMode(v)
		if err != nil {
			return req, err
		}
		req.Mode = m
	}
	for _, f := range []struct {
		name string
		dst  *float64
	}{{"scale", &req.Scale}, {"width", &req.ImageWidth}} {
		v := r.FormValue(f.name)
		if v == "" {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil || n <= 0 {
			return req, fmt.Errorf("%s must be a positive number, got %q", f.name, v)
		}
		*f.dst = n
	}
	return req, nil
}

func statusFor(kind convert.ErrorKind) int {
	switch kind {
	case convert.KindInvalidRequest:
		return http.StatusBadRequest
	case convert.KindOpen, convert.KindPageRender:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, log zerolog.Logger, status int, msg, kind string, page int) {
	resp := errorResponse{Error: msg, Kind: kind}
	if page >= 0 {
		resp.Page = &page
	}
	log.Warn().Int("status", status).Str("kind", kind).Msg(msg)
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
