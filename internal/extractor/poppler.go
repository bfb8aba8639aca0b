// Package extractor wraps the poppler command line tools used by the
// out-of-process PDF backend.
package extractor

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

type ExtractorConfig struct {
	PDFInfoBinary    string
	PDFToTextBinary  string
	PDFInfoTimeout   time.Duration
	PDFToTextTimeout time.Duration
	Logger           *slog.Logger
}

func (c ExtractorConfig) withDefaults() ExtractorConfig {
	if c.PDFInfoBinary == "" {
		c.PDFInfoBinary = "pdfinfo"
	}
	if c.PDFToTextBinary == "" {
		c.PDFToTextBinary = "pdftotext"
	}
	if c.PDFInfoTimeout <= 0 {
		c.PDFInfoTimeout = 5 * time.Second
	}
	if c.PDFToTextTimeout <= 0 {
		c.PDFToTextTimeout = 10 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// ErrDocument marks failures caused by the PDF itself rather than the tooling.
var ErrDocument = errors.New("invalid document")

var errOutputLimit = errors.New("output exceeds limit")

const (
	maxInfoBytes     = 64 << 10
	maxPageTextBytes = 10 << 20
	maxPages         = 50000
)

type PDFInfo struct {
	Pages     int
	Encrypted bool
}

// GetPDFInfo reads the page count and encryption flag reported by pdfinfo.
func GetPDFInfo(ctx context.Context, pdfPath string, cfg ExtractorConfig) (PDFInfo, error) {
	cfg = cfg.withDefaults()

	out, stderr, err := run(ctx, cfg.PDFInfoTimeout, maxInfoBytes, cfg.PDFInfoBinary, pdfPath)
	if err != nil {
		return PDFInfo{}, classifyPopplerErr(ctx, cfg, "pdfinfo", err, stderr, 0)
	}

	fields := infoFields(out)
	pages, err := parsePages(fields)
	if err != nil {
		return PDFInfo{}, err
	}
	return PDFInfo{
		Pages:     pages,
		Encrypted: strings.HasPrefix(strings.ToLower(fields["encrypted"]), "yes"),
	}, nil
}

// TextForPage returns the text layer of a single 1-based page.
func TextForPage(ctx context.Context, pdfPath string, page int, cfg ExtractorConfig) (string, error) {
	cfg = cfg.withDefaults()

	if page < 1 {
		return "", fmt.Errorf("invalid page number: %d (must be >= 1)", page)
	}

	n := strconv.Itoa(page)
	out, stderr, err := run(ctx, cfg.PDFToTextTimeout, maxPageTextBytes, cfg.PDFToTextBinary,
		"-f", n, "-l", n, "-nopgbrk", "-enc", "UTF-8", pdfPath, "-")
	if err != nil {
		return "", classifyPopplerErr(ctx, cfg, "pdftotext", err, stderr, page)
	}
	return out, nil
}

// run executes name with a deadline, keeping at most limit bytes of stdout.
// The process is killed as soon as stdout overflows.
func run(ctx context.Context, timeout time.Duration, limit int, name string, args ...string) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)

	stdout := &cappedBuffer{limit: limit, onOverflow: cancel}
	var stderr bytes.Buffer
	cmd.Stdout = stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if stdout.overflow {
		return "", stderr.String(), errOutputLimit
	}
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "", stderr.String(), fmt.Errorf("timed out after %s: %w", timeout, ctx.Err())
	}
	if err != nil {
		return "", stderr.String(), err
	}
	return stdout.String(), stderr.String(), nil
}

type cappedBuffer struct {
	bytes.Buffer
	limit      int
	overflow   bool
	onOverflow func()
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if b.overflow {
		return 0, errOutputLimit
	}
	if b.Len()+len(p) > b.limit {
		b.overflow = true
		b.onOverflow()
		return 0, errOutputLimit
	}
	return b.Buffer.Write(p)
}

// infoFields splits pdfinfo's "Key:   value" lines into a lowercase-keyed map.
func infoFields(out string) map[string]string {
	fields := make(map[string]string)
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if _, seen := fields[key]; !seen {
			fields[key] = strings.TrimSpace(value)
		}
	}
	return fields
}

func parsePages(fields map[string]string) (int, error) {
	raw, ok := fields["pages"]
	if !ok {
		return 0, errors.New("pdfinfo: pages field not found in output")
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("pdfinfo: invalid page count: %w", err)
	}
	if n < 0 || n > maxPages {
		return 0, fmt.Errorf("pdfinfo: unreasonable page count: %d", n)
	}
	return n, nil
}

// documentFaults maps poppler stderr markers to the reason reported to callers.
var documentFaults = []struct {
	markers []string
	reason  string
}{
	{[]string{"Incorrect password"}, "PDF is password protected"},
	{[]string{"PDF file is damaged", "Syntax Error", "Couldn't find trailer dictionary", "May not be a PDF file"}, "PDF file is damaged or corrupted"},
	{[]string{"Couldn't open file"}, "unable to open PDF"},
}

func classifyPopplerErr(ctx context.Context, cfg ExtractorConfig, tool string, err error, stderr string, page int) error {
	where := tool
	if page > 0 {
		where = fmt.Sprintf("%s page %d", tool, page)
	}

	switch ctxErr := ctx.Err(); {
	case errors.Is(ctxErr, context.DeadlineExceeded):
		return fmt.Errorf("%s timeout: %w", where, ctxErr)
	case errors.Is(ctxErr, context.Canceled):
		return fmt.Errorf("%s canceled: %w", where, ctxErr)
	}
	if errors.Is(err, errOutputLimit) {
		return fmt.Errorf("%s: extracted text too large", where)
	}

	stderr = strings.TrimSpace(stderr)
	if stderr == "" {
		return fmt.Errorf("%s failed: %w", where, err)
	}
	cfg.Logger.Debug("poppler error", "tool", tool, "page", page, "stderr", truncate(stderr, 500))

	// A usage dump means we invoked the tool wrongly, whatever else it printed.
	if strings.Contains(stderr, "Usage:") {
		return fmt.Errorf("%s failed (bad invocation)", where)
	}
	for _, f := range documentFaults {
		for _, m := range f.markers {
			if strings.Contains(stderr, m) {
				return fmt.Errorf("%w: %s", ErrDocument, f.reason)
			}
		}
	}
	return fmt.Errorf("%s failed: %s", where, truncate(stderr, 200))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
