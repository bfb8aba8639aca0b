package extract

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const pdfMIME = "application/pdf"

// sniff rejects payloads that do not look like a PDF before any parser sees them.
func sniff(data []byte) error {
	if len(data) == 0 {
		return &ParseError{Detail: "empty document"}
	}

	mt := strings.ToLower(strings.TrimSpace(mimetype.Detect(data).String()))
	if i := strings.Index(mt, ";"); i > 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if mt != pdfMIME {
		return &ParseError{Detail: fmt.Sprintf("unsupported content type %q", mt)}
	}
	return nil
}
