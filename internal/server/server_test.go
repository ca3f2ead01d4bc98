package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thywilljoshua/pdf-to-docx/internal/convert"
	"github.com/thywilljoshua/pdf-to-docx/internal/docx"
	"github.com/thywilljoshua/pdf-to-docx/internal/pdf"
	"github.com/thywilljoshua/pdf-to-docx/internal/pdf/pdftest"
)

type converterFunc func(ctx context.Context, data []byte, req convert.Request) (*convert.Output, error)

func (f converterFunc) Convert(ctx context.Context, data []byte, req convert.Request) (*convert.Output, error) {
	return f(ctx, data, req)
}

func newTestServer(t *testing.T, conv Converter, cfg Config) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(New(conv, cfg, zerolog.Nop()).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func upload(t *testing.T, url, filename string, data []byte, fields map[string]string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if data != nil {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	resp, err := http.Post(url+"/convert", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeError(t *testing.T, resp *http.Response) errorResponse {
	t.Helper()
	var e errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	return e
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, convert.New(convert.Options{}), Config{})
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestConvertReturnsDocument(t *testing.T) {
	ts := newTestServer(t, convert.New(convert.Options{}), Config{Defaults: convert.Request{Mode: convert.TextAndImages}})
	src := pdftest.Build(pdftest.WithText("Hello World"))

	resp := upload(t, ts.URL, "My Scan.pdf", src, map[string]string{"mode": "text-only"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, DocxContentType, resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="my-scan.docx"`, resp.Header.Get("Content-Disposition"))
	_, err := uuid.Parse(resp.Header.Get("X-Conversion-ID"))
	assert.NoError(t, err)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	blocks, err := docx.ReadBytes(data)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "Hello World", blocks[0].Text)
}

func TestConvertPassesFormFields(t *testing.T) {
	var got convert.Request
	conv := converterFunc(func(ctx context.Context, data []byte, req convert.Request) (*convert.Output, error) {
		got = req
		return &convert.Output{Data: []byte("PK")}, nil
	})
	ts := newTestServer(t, conv, Config{Defaults: convert.Request{Mode: convert.TextAndImages, Scale: 2, ImageWidth: 6.5}})

	resp := upload(t, ts.URL, "a.pdf", []byte("%PDF-1.4"), map[string]string{"mode": "images", "scale": "1.25"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, convert.ImagesOnly, got.Mode)
	assert.Equal(t, 1.25, got.Scale)
	assert.Equal(t, 6.5, got.ImageWidth)
	assert.Equal(t, "a.pdf", got.Title)
}

func TestConvertBadRequests(t *testing.T) {
	ts := newTestServer(t, convert.New(convert.Options{}), Config{})
	tests := []struct {
		name   string
		data   []byte
		fields map[string]string
	}{
		{name: "missing file", fields: map[string]string{"mode": "text"}},
		{name: "unknown mode", data: []byte("%PDF-"), fields: map[string]string{"mode": "ocr"}},
		{name: "zero scale", data: []byte("%PDF-"), fields: map[string]string{"scale": "0"}},
		{name: "bad width", data: []byte("%PDF-"), fields: map[string]string{"width": "wide"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := upload(t, ts.URL, "in.pdf", tt.data, tt.fields)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "invalid_request", decodeError(t, resp).Kind)
		})
	}
}

func TestConvertUnreadableInput(t *testing.T) {
	full := pdftest.Build(pdftest.WithText("Hello World"), pdftest.Letter)
	ts := newTestServer(t, convert.New(convert.Options{}), Config{})
	for name, data := range map[string][]byte{
		"not a pdf": []byte("plain text"),
		"truncated": full[:len(full)/2],
	} {
		t.Run(name, func(t *testing.T) {
			resp := upload(t, ts.URL, "in.pdf", data, nil)
			assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
			e := decodeError(t, resp)
			assert.Equal(t, "open", e.Kind)
			assert.Nil(t, e.Page)
		})
	}
}

func TestConvertImagesOnTextEngineIsBadRequest(t *testing.T) {
	conv := convert.New(convert.Options{Engine: pdf.EngineText})
	ts := newTestServer(t, conv, Config{Defaults: convert.Request{Mode: convert.TextOnly}})
	src := pdftest.Build(pdftest.WithText("Hello World"))

	resp := upload(t, ts.URL, "in.pdf", src, map[string]string{"mode": "images-only"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_request", decodeError(t, resp).Kind)

	resp = upload(t, ts.URL, "in.pdf", src, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestConvertErrorStatuses(t *testing.T) {
	tests := []struct {
		err      error
		status   int
		kind     string
		wantPage *int
	}{
		{err: &convert.PageRenderError{Page: 3, Err: errors.New("bad stream")}, status: http.StatusUnprocessableEntity, kind: "page_render", wantPage: ptr(3)},
		{err: &convert.SerializeError{Err: errors.New("zip")}, status: http.StatusInternalServerError, kind: "serialize"},
		{err: errors.New("boom"), status: http.StatusInternalServerError, kind: "other"},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			conv := converterFunc(func(context.Context, []byte, convert.Request) (*convert.Output, error) { return nil, tt.err })
			ts := newTestServer(t, conv, Config{})
			resp := upload(t, ts.URL, "in.pdf", []byte("%PDF-"), nil)
			assert.Equal(t, tt.status, resp.StatusCode)
			e := decodeError(t, resp)
			assert.Equal(t, tt.kind, e.Kind)
			assert.Equal(t, tt.wantPage, e.Page)
		})
	}
}

func TestConvertUploadTooLarge(t *testing.T) {
	conv := converterFunc(func(context.Context, []byte, convert.Request) (*convert.Output, error) {
		t.Error("converter must not run")
		return nil, nil
	})
	ts := newTestServer(t, conv, Config{MaxUploadBytes: 1024})

	for name, size := range map[string]int{"over limit": 4 << 10, "far over limit": 128 << 10} {
		t.Run(name, func(t *testing.T) {
			resp := upload(t, ts.URL, "big.pdf", bytes.Repeat([]byte("x"), size), nil)
			assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
		})
	}
}

func TestConvertTimeoutDiscardsResult(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	conv := converterFunc(func(context.Context, []byte, convert.Request) (*convert.Output, error) {
		<-release
		return &convert.Output{Data: []byte("late")}, nil
	})
	ts := newTestServer(t, conv, Config{Timeout: 20 * time.Millisecond})

	resp := upload(t, ts.URL, "slow.pdf", []byte("%PDF-"), nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "timeout", decodeError(t, resp).Kind)
}

func ptr(i int) *int { return &i }
