// Package chunk divides an ordered item list into bounded-size units of
// work, one per remote task. Chunk boundaries are deterministic: the same
// input and limit always produce the same chunks, and concatenating the
// chunks in index order reproduces the input exactly.
package chunk

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/wildobs/batchpilot/internal/items"
)

// ErrInvalidChunkSize is returned when the per-chunk limit is not positive.
var ErrInvalidChunkSize = errors.New("chunk size must be positive")

// Chunk is one bounded-size, ordered slice of an input list. Index is the
// chunk's stable position, used to derive deterministic task names and
// chunk file names.
type Chunk struct {
	Index int
	Items []string
}

// Divide splits list into chunks of at most maxPerChunk items, preserving
// order. The last chunk may be short. An empty list yields no chunks.
func Divide(list []string, maxPerChunk int) ([]Chunk, error) {
	if maxPerChunk <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidChunkSize, maxPerChunk)
	}

	var chunks []Chunk
	for start := 0; start < len(list); start += maxPerChunk {
		end := start + maxPerChunk
		if end > len(list) {
			end = len(list)
		}
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Items: list[start:end],
		})
	}
	return chunks, nil
}

// FileName returns the chunk-file naming convention for chunk index of the
// list file base: "<base>.chunk<NNN>.json" with a zero-padded index.
func FileName(base string, index int) string {
	return fmt.Sprintf("%s.chunk%03d.json", base, index)
}

// WriteFiles writes each chunk to dir as an item-list JSON file named by
// FileName. Returns the written paths in chunk order.
func WriteFiles(dir, base string, chunks []Chunk) ([]string, error) {
	paths := make([]string, 0, len(chunks))
	for _, c := range chunks {
		path := filepath.Join(dir, FileName(base, c.Index))
		if err := items.WriteListFile(path, c.Items); err != nil {
			return nil, fmt.Errorf("failed to write chunk %d: %w", c.Index, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
