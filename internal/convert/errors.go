package convert

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest wraps rejected parameters such as a non-positive scale.
var ErrInvalidRequest = errors.New("invalid conversion request")

// OpenError means the source bytes could not be opened as a PDF.
type OpenError struct {
	Err error
}

func (e *OpenError) Error() string { return fmt.Sprintf("open source document: %v", e.Err) }

func (e *OpenError) Unwrap() error { return e.Err }

// PageRenderError means text extraction, rendering or embedding failed for
// the zero-based Page.
type PageRenderError struct {
	Page int
	Err  error
}

func (e *PageRenderError) Error() string { return fmt.Sprintf("page %d: %v", e.Page, e.Err) }

func (e *PageRenderError) Unwrap() error { return e.Err }

// SerializeError means the output document could not be written.
type SerializeError struct {
	Err error
}

func (e *SerializeError) Error() string { return fmt.Sprintf("serialize document: %v", e.Err) }

func (e *SerializeError) Unwrap() error { return e.Err }

// ErrorKind classifies conversion errors for callers that report them.
type ErrorKind string

const (
	KindNone           ErrorKind = ""
	KindInvalidRequest ErrorKind = "invalid_request"
	KindOpen           ErrorKind = "open"
	KindPageRender     ErrorKind = "page_render"
	KindSerialize      ErrorKind = "serialize"
	KindOther          ErrorKind = "other"
)

// Classify returns the kind of err and, for page errors, the page index.
// The page is -1 otherwise.
func Classify(err error) (ErrorKind, int) {
	var (
		openErr *OpenError
		pageErr *PageRenderError
		serErr  *SerializeError
	)
	switch {
	case err == nil:
		return KindNone, -1
	case errors.As(err, &pageErr):
		return KindPageRender, pageErr.Page
	case errors.As(err, &openErr):
		return KindOpen, -1
	case errors.As(err, &serErr):
		return KindSerialize, -1
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest, -1
	}
	return KindOther, -1
}
