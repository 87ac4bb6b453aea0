// File path: internal/api/search_handler.go
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openbiomed/litrag/internal/retriever"
)

const resultTextLimit = 300

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("query required"))
		return
	}
	mode, err := retriever.ParseMode(req.SearchMode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	denseWeight := retriever.DefaultDenseWeight
	if req.DenseWeight != nil {
		denseWeight = *req.DenseWeight
	}

	results, err := s.engine.Search(r.Context(), req.Query, req.TopK, mode, denseWeight)
	if err != nil {
		if errors.Is(err, retriever.ErrInvalidMode) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	formatted := make([]searchResult, 0, len(results))
	for _, res := range results {
		formatted = append(formatted, searchResult{
			PMID:        metaField(res.Metadata, "pmid"),
			Title:       metaField(res.Metadata, "title"),
			Text:        truncateText(res.Text, resultTextLimit),
			Score:       res.Score,
			DenseScore:  res.DenseScore,
			SparseScore: res.SparseScore,
			Section:     metaField(res.Metadata, "section"),
		})
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Results:    formatted,
		TookMS:     time.Since(start).Milliseconds(),
		SearchMode: string(mode),
	})
}

func metaField(meta map[string]interface{}, key string) string {
	if meta == nil {
		return ""
	}
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}

func truncateText(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}
