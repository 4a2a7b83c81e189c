package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rebota-hq/rebota/internal/domain"
	"github.com/rebota-hq/rebota/pkg/textx"
)

// Loader reads a source directory into Documents. PDF files yield one
// Document per page; text files yield one Document for the whole file.
// Files with any other extension are silently skipped. A failure on one file
// is logged and does not abort the rest of the batch.
type Loader struct{}

// Load scans dir non-recursively and returns the Documents for every file
// that loaded successfully. An unreadable directory is the only fatal error.
func (l Loader) Load(ctx context.Context, dir string) ([]domain.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read source directory %s: %w", dir, err)
	}
	var docs []domain.Document
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return docs, err
		}
		name := e.Name()
		path := filepath.Join(dir, name)
		switch strings.ToLower(filepath.Ext(name)) {
		case ".pdf":
			pages, err := ExtractPDFPages(path)
			if err != nil {
				slog.Warn("pdf load failed", slog.String("file", name), slog.Any("error", err))
				continue
			}
			for i, page := range pages {
				docs = append(docs, domain.Document{
					Content: page,
					Meta:    domain.Metadata{Source: name, Page: i + 1},
				})
			}
		case ".txt":
			b, err := os.ReadFile(path)
			if err != nil {
				slog.Warn("txt load failed", slog.String("file", name), slog.Any("error", err))
				continue
			}
			if !utf8.Valid(b) {
				slog.Warn("txt decode failed", slog.String("file", name), slog.String("reason", "not valid utf-8"))
				continue
			}
			docs = append(docs, domain.Document{
				Content: textx.SanitizeText(string(b)),
				Meta:    domain.Metadata{Source: name},
			})
		default:
			slog.Debug("skipping unsupported file", slog.String("file", name))
		}
	}
	return docs, nil
}
