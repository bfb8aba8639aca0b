package extract

import (
	"context"
	"strings"
)

// Extractor turns raw document bytes into per-page text, in page order.
type Extractor interface {
	ExtractPages(ctx context.Context, data []byte) ([]string, error)
	Name() string
}

// ParseError reports bytes that could not be read as a PDF document.
type ParseError struct {
	Detail string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unreadable document"
}

func (e *ParseError) Unwrap() error { return e.Err }

func parseErr(err error) *ParseError {
	return &ParseError{Detail: err.Error(), Err: err}
}

// Text runs e over data and joins the pages in order with no separator.
func Text(ctx context.Context, e Extractor, data []byte) (string, int, error) {
	if err := sniff(data); err != nil {
		return "", 0, err
	}

	pages, err := e.ExtractPages(ctx, data)
	if err != nil {
		return "", 0, err
	}

	var sb strings.Builder
	for _, p := range pages {
		sb.WriteString(p)
	}
	return sb.String(), len(pages), nil
}
