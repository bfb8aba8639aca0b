package extractor

import (
	"context"
	"errors"
	"testing"
)

func TestParsePages(t *testing.T) {
	t.Parallel()

	out := "Producer:       LibreOffice\nCreationDate:   Tue Mar  5 10:15:02 2024\nPages:          3\nEncrypted:      no\n"
	n, err := parsePages(infoFields(out))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 pages, got %d", n)
	}
}

func TestParsePagesMissingField(t *testing.T) {
	t.Parallel()

	if _, err := parsePages(infoFields("Producer: x\n")); err == nil {
		t.Fatalf("expected error for missing pages field")
	}
}

func TestParsePagesRejectsGarbage(t *testing.T) {
	t.Parallel()

	for _, out := range []string{"Pages: many\n", "Pages: -1\n", "Pages: 900000\n"} {
		if _, err := parsePages(infoFields(out)); err == nil {
			t.Fatalf("expected error for %q", out)
		}
	}
}

func TestCappedBufferStopsAtLimit(t *testing.T) {
	t.Parallel()

	called := false
	b := &cappedBuffer{limit: 4, onOverflow: func() { called = true }}
	if _, err := b.Write([]byte("abc")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := b.Write([]byte("de")); !errors.Is(err, errOutputLimit) {
		t.Fatalf("expected errOutputLimit, got %v", err)
	}
	if !called || b.String() != "abc" {
		t.Fatalf("overflow not recorded: called=%v buf=%q", called, b.String())
	}
}

func TestClassifyDamagedPDFIsDocumentError(t *testing.T) {
	t.Parallel()

	cfg := ExtractorConfig{}.withDefaults()
	err := classifyPopplerErr(context.Background(), cfg, "pdfinfo", errors.New("exit status 1"),
		"Syntax Error: Couldn't find trailer dictionary", 0)
	if !errors.Is(err, ErrDocument) {
		t.Fatalf("expected ErrDocument, got %v", err)
	}
}

func TestClassifyUsageOutputIsNotDocumentError(t *testing.T) {
	t.Parallel()

	cfg := ExtractorConfig{}.withDefaults()
	err := classifyPopplerErr(context.Background(), cfg, "pdftotext", errors.New("exit status 99"),
		"pdftotext version 22.02.0\nUsage: pdftotext [options] <PDF-file> [<text-file>]\n  -layout  Syntax Error", 2)
	if errors.Is(err, ErrDocument) {
		t.Fatalf("usage dump must not be classified as a document error: %v", err)
	}
}

func TestTextForPageRejectsInvalidPage(t *testing.T) {
	t.Parallel()

	if _, err := TextForPage(context.Background(), "unused.pdf", 0, ExtractorConfig{}); err == nil {
		t.Fatalf("expected error for page 0")
	}
}
