package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var disablePdfcpuConfig sync.Once

// Native reads the text layer in-process. Files the reader cannot open are
// rewritten once by pdfcpu in relaxed mode and retried.
type Native struct {
	logger *slog.Logger
}

func NewNative(logger *slog.Logger) *Native {
	if logger == nil {
		logger = slog.Default()
	}
	return &Native{logger: logger}
}

func (n *Native) Name() string { return "native" }

func (n *Native) ExtractPages(ctx context.Context, data []byte) ([]string, error) {
	r, openErr := openPDF(data)
	if openErr != nil {
		repaired, err := repairPDF(data)
		if err != nil {
			n.logger.Debug("pdf repair failed", "error", err)
			return nil, parseErr(openErr)
		}
		r, err = openPDF(repaired)
		if err != nil {
			return nil, parseErr(openErr)
		}
		n.logger.Debug("pdf opened after repair", "original_error", openErr)
	}

	total := r.NumPage()
	pages := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pages = append(pages, pageText(r, i))
	}
	return pages, nil
}

// openPDF guards against reader panics on malformed cross-reference tables.
func openPDF(data []byte) (r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r, err = nil, fmt.Errorf("malformed PDF: %v", rec)
		}
	}()
	data = downgradeHeader(data)
	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

var (
	pdf2Header   = []byte("%PDF-2.")
	pdf17Version = []byte("%PDF-1.7")
)

// downgradeHeader presents PDF 2.x files as 1.7, the newest version the
// reader accepts. The header keeps its length so xref offsets stay valid.
func downgradeHeader(data []byte) []byte {
	if !bytes.HasPrefix(data, pdf2Header) || len(data) < len(pdf17Version) {
		return data
	}
	out := make([]byte, len(data))
	copy(out, data)
	copy(out, pdf17Version)
	return out
}

// pageText returns "" for null pages and pages whose text layer cannot be read.
func pageText(r *pdf.Reader, num int) (text string) {
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
		}
	}()

	page := r.Page(num)
	if page.V.IsNull() {
		return ""
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return text
}

func repairPDF(data []byte) (repaired []byte, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			repaired, err = nil, fmt.Errorf("pdfcpu: %v", rec)
		}
	}()

	disablePdfcpuConfig.Do(api.DisableConfigDir)

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	var out bytes.Buffer
	if err := api.Optimize(bytes.NewReader(data), &out, conf); err != nil {
		return nil, fmt.Errorf("pdfcpu optimize: %w", err)
	}
	return out.Bytes(), nil
}
