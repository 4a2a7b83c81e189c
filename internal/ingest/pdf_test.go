package ingest

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestPDF assembles a minimal uncompressed PDF with one page per text,
// computing the xref offsets at build time so the file validates.
func writeTestPDF(t *testing.T, path string, pageTexts []string) {
	t.Helper()
	var buf bytes.Buffer
	var offsets []int
	addObj := func(body string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(body)
	}
	buf.WriteString("%PDF-1.4\n")

	n := len(pageTexts)
	kids := make([]string, n)
	for i := range pageTexts {
		kids[i] = fmt.Sprintf("%d 0 R", 3+i)
	}
	fontObj := 3 + 2*n

	addObj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	addObj(fmt.Sprintf("2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n",
		strings.Join(kids, " "), n))
	for i := range pageTexts {
		addObj(fmt.Sprintf("%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents %d 0 R /Resources << /Font << /F1 %d 0 R >> >> >>\nendobj\n",
			3+i, 3+n+i, fontObj))
	}
	for i, text := range pageTexts {
		stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		addObj(fmt.Sprintf("%d 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n",
			3+n+i, len(stream), stream))
	}
	addObj(fmt.Sprintf("%d 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n", fontObj))

	xrefOffset := buf.Len()
	size := fontObj + 1
	buf.WriteString(fmt.Sprintf("xref\n0 %d\n0000000000 65535 f \n", size))
	for _, off := range offsets {
		buf.WriteString(fmt.Sprintf("%010d 00000 n \n", off))
	}
	buf.WriteString(fmt.Sprintf("trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		size, xrefOffset))

	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
}

func TestExtractPDFPagesSinglePage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "handbook.pdf")
	writeTestPDF(t, path, []string{"Hello World"})

	pages, err := ExtractPDFPages(path)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.NotEmpty(t, pages[0])
	assert.Contains(t, pages[0], "Hello World")
}

func TestExtractPDFPagesMultiPageOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policies.pdf")
	writeTestPDF(t, path, []string{"vacation policy", "expense policy", "remote work policy"})

	pages, err := ExtractPDFPages(path)
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Contains(t, pages[0], "vacation policy")
	assert.Contains(t, pages[1], "expense policy")
	assert.Contains(t, pages[2], "remote work policy")
}

func TestExtractPDFTextJoinsPages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.pdf")
	writeTestPDF(t, path, []string{"page one text", "page two text"})

	text, err := ExtractPDFText(path)
	require.NoError(t, err)
	assert.Contains(t, text, "page one text")
	assert.Contains(t, text, "page two text")
}

func TestContentPageFilenameMatching(t *testing.T) {
	// pdfcpu prefixes extracted content files with the PDF basename.
	cases := []struct {
		name string
		page int
	}{
		{"handbook_Content_page_1.txt", 1},
		{"my report_Content_page_12.txt", 12},
		{"Content_page_3.txt", 3},
		{"Content_page_7", 7},
	}
	for _, tc := range cases {
		m := contentPageRe.FindStringSubmatch(tc.name)
		require.NotNil(t, m, tc.name)
		assert.Equal(t, fmt.Sprint(tc.page), m[1], tc.name)
	}
	assert.Nil(t, contentPageRe.FindStringSubmatch("handbook_Image_page_1.png"))
	assert.Nil(t, contentPageRe.FindStringSubmatch("notes.txt"))
}

func TestLoaderLoadsPDFPerPage(t *testing.T) {
	dir := t.TempDir()
	writeTestPDF(t, filepath.Join(dir, "handbook.pdf"), []string{"first page body", "second page body"})

	docs, err := Loader{}.Load(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "handbook.pdf", docs[0].Meta.Source)
	assert.Equal(t, 1, docs[0].Meta.Page)
	assert.Contains(t, docs[0].Content, "first page body")

	assert.Equal(t, "handbook.pdf", docs[1].Meta.Source)
	assert.Equal(t, 2, docs[1].Meta.Page)
	assert.Contains(t, docs[1].Content, "second page body")
}
