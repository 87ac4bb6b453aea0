// File path: internal/corpus/chunker.go
package corpus

import "strings"

const (
	// DefaultChunkSize is the window width, in words, applied to paper text
	// during ingestion.
	DefaultChunkSize = 500
	// DefaultChunkOverlap is the number of words shared between adjacent
	// windows.
	DefaultChunkOverlap = 100
)

// ChunkWords splits text into overlapping windows of at most size words,
// advancing size-overlap words per window. Splitting happens on whitespace
// word boundaries; text that fits a single window is returned whole. The
// final window carries the remainder and is not shifted back, so it may be
// shorter than size. The function is pure: identical input always yields the
// identical sequence.
func ChunkWords(text string, size, overlap int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	words := strings.Fields(text)
	if len(words) <= size {
		return []string{text}
	}
	var chunks []string
	start := 0
	for start < len(words) {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		start = end - overlap
		if start >= len(words)-overlap {
			break
		}
	}
	return chunks
}
