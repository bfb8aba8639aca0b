package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubExtractor struct {
	pages []string
	err   error
	calls int
}

func (s *stubExtractor) ExtractPages(ctx context.Context, data []byte) ([]string, error) {
	s.calls++
	return s.pages, s.err
}

func (s *stubExtractor) Name() string { return "stub" }

var pdfHeader = []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

func TestTextConcatenatesPagesInOrder(t *testing.T) {
	t.Parallel()

	stub := &stubExtractor{pages: []string{"Open accounts: 5", "", "Accounts ever late: 0"}}

	text, pages, err := Text(context.Background(), stub, pdfHeader)
	require.NoError(t, err)

	assert.Equal(t, "Open accounts: 5Accounts ever late: 0", text)
	assert.Equal(t, 3, pages)
}

func TestTextRejectsNonPDFBeforeParsing(t *testing.T) {
	t.Parallel()

	stub := &stubExtractor{}

	_, _, err := Text(context.Background(), stub, []byte("just some plain text"))

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Error(), "unsupported content type")
	assert.Zero(t, stub.calls)
}

func TestTextRejectsEmptyPayload(t *testing.T) {
	t.Parallel()

	_, _, err := Text(context.Background(), &stubExtractor{}, nil)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "empty document", perr.Error())
}

func TestTextPassesExtractorErrorsThrough(t *testing.T) {
	t.Parallel()

	want := &ParseError{Detail: "boom"}
	_, _, err := Text(context.Background(), &stubExtractor{err: want}, pdfHeader)

	assert.True(t, errors.Is(err, want))
}

func TestNativeRejectsTruncatedPDF(t *testing.T) {
	t.Parallel()

	data := append(append([]byte{}, pdfHeader...), []byte("1 0 obj\n<< /Type /Catalog\n")...)

	_, _, err := Text(context.Background(), NewNative(nil), data)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.NotEmpty(t, perr.Error())
}

// buildPDF writes a minimal well-formed PDF with one Helvetica text line per page.
func buildPDF(version string, pages ...string) []byte {
	n := len(pages)
	fontID := 3 + 2*n

	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
	}
	kids := ""
	for i := range pages {
		kids += fmt.Sprintf("%d 0 R ", 3+2*i)
	}
	objs = append(objs, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, n))
	for i, text := range pages {
		content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		objs = append(objs,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>", fontID, 4+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}
	objs = append(objs, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%%PDF-%s\n%%\xe2\xe3\xcf\xd3\n", version)
	offsets := make([]int, len(objs))
	for i, obj := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

func TestNativeExtractsPagesInOrder(t *testing.T) {
	t.Parallel()

	for _, version := range []string{"1.4", "1.7", "2.0"} {
		version := version
		t.Run(version, func(t *testing.T) {
			t.Parallel()

			data := buildPDF(version, "Open accounts: 5", "Accounts ever late: 0")

			pages, err := NewNative(nil).ExtractPages(context.Background(), data)
			require.NoError(t, err)
			require.Len(t, pages, 2)
			assert.Contains(t, pages[0], "Open accounts: 5")
			assert.Contains(t, pages[1], "Accounts ever late: 0")

			text, n, err := Text(context.Background(), NewNative(nil), data)
			require.NoError(t, err)
			assert.Equal(t, 2, n)
			assert.Equal(t, pages[0]+pages[1], text)
		})
	}
}

func TestDowngradeHeaderKeepsLength(t *testing.T) {
	t.Parallel()

	in := []byte("%PDF-2.0\nrest")
	out := downgradeHeader(in)

	assert.Equal(t, "%PDF-1.7\nrest", string(out))
	assert.Equal(t, "%PDF-2.0\nrest", string(in), "input must not be modified")

	legacy := []byte("%PDF-1.4\n")
	assert.Equal(t, legacy, downgradeHeader(legacy))
}

func TestBuildCounts(t *testing.T) {
	t.Parallel()

	words, chars := BuildCounts("FICO Score 720\nOpen accounts:\t5 ")
	assert.Equal(t, 6, words)
	assert.Equal(t, 32, chars)
}
