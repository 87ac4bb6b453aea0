// File path: internal/corpus/types.go
package corpus

// Chunk is the atomic retrievable unit: a bounded slice of a paper's text
// together with its payload metadata and, once computed, its embedding.
type Chunk struct {
	ID        string                 `json:"id"`
	Text      string                 `json:"text"`
	Embedding []float32              `json:"embedding,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// HasEmbedding reports whether a dense vector has been attached to the chunk.
// Chunks without one participate in sparse search only.
func (c Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}
