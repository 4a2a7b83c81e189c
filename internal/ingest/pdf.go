package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/rebota-hq/rebota/pkg/textx"
)

// contentPageRe matches pdfcpu's extracted content filenames, which carry the
// PDF basename as a prefix: <basename>_Content_page_<n>.txt.
var contentPageRe = regexp.MustCompile(`Content_page_(\d+)(?:\.txt)?$`)

// ExtractPDFPages extracts plain text per page from the PDF at path.
// The returned slice is indexed by page order (page 1 first). Pages whose
// content could not be extracted come back as empty strings rather than
// failing the whole file.
func ExtractPDFPages(path string) ([]string, error) {
	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pdf %s: %w", filepath.Base(path), err)
	}
	pageCount := pdfCtx.PageCount

	outDir, err := os.MkdirTemp("", "rebota-pdf-*")
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.RemoveAll(outDir) }()

	pages := make([]string, pageCount)
	if err := api.ExtractContentFile(path, outDir, nil, conf); err != nil {
		return nil, fmt.Errorf("extract pdf content %s: %w", filepath.Base(path), err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := contentPageRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		pageNum, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if pageNum < 1 || pageNum > pageCount {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(outDir, e.Name()))
		if err != nil {
			continue
		}
		pages[pageNum-1] = textx.CollapseWhitespace(decodeContentText(string(raw)))
	}
	return pages, nil
}

// ExtractPDFText returns the whole PDF as one string, pages joined by newlines.
func ExtractPDFText(path string) (string, error) {
	pages, err := ExtractPDFPages(path)
	if err != nil {
		return "", err
	}
	return strings.Join(pages, "\n"), nil
}

// decodeContentText pulls the literal string operands out of a PDF content
// stream. It covers the Tj/TJ show-text operators with the common escape
// sequences, which is enough for the text-based HR documents we ingest;
// image-only pages simply yield empty text.
func decodeContentText(stream string) string {
	var b strings.Builder
	depth := 0
	escaped := false
	for _, r := range stream {
		if depth == 0 {
			if r == '(' {
				depth++
			}
			continue
		}
		if escaped {
			switch r {
			case 'n':
				b.WriteRune('\n')
			case 't':
				b.WriteRune('\t')
			case 'r', 'b', 'f':
				// formatting escapes carry no text
			default:
				b.WriteRune(r)
			}
			escaped = false
			continue
		}
		switch r {
		case '\\':
			escaped = true
		case '(':
			depth++
			b.WriteRune(r)
		case ')':
			depth--
			if depth == 0 {
				b.WriteRune(' ')
			} else {
				b.WriteRune(r)
			}
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
