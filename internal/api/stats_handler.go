// File path: internal/api/stats_handler.go
package api

import (
	"net/http"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.engine.Stats(r.Context())

	denseEngine := "in_memory"
	status := "degraded"
	if stats.DenseAvailable {
		denseEngine = "qdrant"
		status = "ok"
	}
	sparseEngine := "none"
	if stats.SparseBuilt {
		sparseEngine = "bm25_expansion"
	}

	writeJSON(w, http.StatusOK, statsResponse{
		CollectionName:  stats.Collection,
		VectorsCount:    stats.CorpusSize,
		WithEmbeddings:  stats.WithEmbeddings,
		Status:          status,
		SearchMode:      stats.SearchMode,
		DenseEngine:     denseEngine,
		SparseEngine:    sparseEngine,
		SparseIndexed:   stats.SparseBuilt,
		SparseVocabSize: stats.VocabularySize,
	})
}
