// File path: internal/api/types.go
package api

// PaperInput is one paper submitted for indexing.
type PaperInput struct {
	PMID            string   `json:"pmid"`
	Title           string   `json:"title"`
	Abstract        string   `json:"abstract"`
	Authors         []string `json:"authors"`
	Journal         string   `json:"journal"`
	PublicationDate string   `json:"publication_date"`
	Keywords        []string `json:"keywords"`
}

type savePapersRequest struct {
	Papers []PaperInput `json:"papers"`
}

type savePapersResponse struct {
	SavedCount       int      `json:"saved_count"`
	TotalChunks      int      `json:"total_chunks"`
	ProcessingTimeMS int64    `json:"processing_time_ms"`
	PaperIDs         []string `json:"paper_ids"`
}

// DenseWeight is a pointer so an explicit 0 (sparse-only fusion) is
// distinguishable from an omitted field, which takes the default.
type searchRequest struct {
	Query       string   `json:"query"`
	TopK        int      `json:"top_k"`
	SearchMode  string   `json:"search_mode"`
	DenseWeight *float64 `json:"dense_weight"`
}

type searchResult struct {
	PMID        string   `json:"pmid"`
	Title       string   `json:"title"`
	Text        string   `json:"text"`
	Score       float64  `json:"score"`
	DenseScore  *float64 `json:"dense_score"`
	SparseScore *float64 `json:"sparse_score"`
	Section     string   `json:"section"`
}

type searchResponse struct {
	Results    []searchResult `json:"results"`
	TookMS     int64          `json:"took_ms"`
	SearchMode string         `json:"search_mode"`
}

type paperRecord struct {
	ID        string   `json:"id"`
	PMID      string   `json:"pmid"`
	Title     string   `json:"title"`
	Abstract  string   `json:"abstract"`
	Journal   string   `json:"journal"`
	Authors   []string `json:"authors"`
	Keywords  []string `json:"keywords"`
	IndexedAt string   `json:"indexed_at"`
}

type papersResponse struct {
	Papers []paperRecord `json:"papers"`
	Total  int           `json:"total"`
}

type statsResponse struct {
	CollectionName  string `json:"collection_name"`
	VectorsCount    int    `json:"vectors_count"`
	WithEmbeddings  int    `json:"with_embeddings"`
	Status          string `json:"status"`
	SearchMode      string `json:"search_mode"`
	DenseEngine     string `json:"dense_engine"`
	SparseEngine    string `json:"sparse_engine"`
	SparseIndexed   bool   `json:"sparse_indexed"`
	SparseVocabSize int    `json:"sparse_vocab_size"`
}
