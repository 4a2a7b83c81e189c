// Package ingest loads source documents and splits them into chunks.
package ingest

import (
	"fmt"

	"github.com/rebota-hq/rebota/internal/domain"
)

// Chunker splits document text into greedy fixed-width rune windows with
// overlap between consecutive windows. Splitting is deterministic for a given
// Size/Overlap pair.
type Chunker struct {
	Size    int
	Overlap int
}

// NewChunker validates the configuration and returns a Chunker.
func NewChunker(size, overlap int) (Chunker, error) {
	if size <= 0 {
		return Chunker{}, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidArgument, size)
	}
	if overlap < 0 || overlap >= size {
		return Chunker{}, fmt.Errorf("%w: chunk overlap %d must be in [0,%d)", domain.ErrInvalidArgument, overlap, size)
	}
	return Chunker{Size: size, Overlap: overlap}, nil
}

// Split cuts doc into chunks of Size runes stepping Size-Overlap runes at a
// time. Every chunk inherits the document metadata plus its starting rune
// offset. For text of L runes the chunk count is 1 when L <= Size, otherwise
// 1 + ceil((L-Size)/(Size-Overlap)); the final chunk is always longer than
// Overlap, so dropping the first Overlap runes of every chunk after the first
// reconstructs the original text.
func (c Chunker) Split(doc domain.Document) []domain.Chunk {
	runes := []rune(doc.Content)
	if len(runes) == 0 {
		return nil
	}
	step := c.Size - c.Overlap
	var chunks []domain.Chunk
	for start := 0; ; start += step {
		end := start + c.Size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, domain.Chunk{
			Content:    string(runes[start:end]),
			Meta:       doc.Meta,
			StartIndex: start,
		})
		if end == len(runes) {
			return chunks
		}
	}
}

// SplitAll flattens Split over a document sequence, preserving input order.
func (c Chunker) SplitAll(docs []domain.Document) []domain.Chunk {
	var chunks []domain.Chunk
	for _, d := range docs {
		chunks = append(chunks, c.Split(d)...)
	}
	return chunks
}
