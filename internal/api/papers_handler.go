// File path: internal/api/papers_handler.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openbiomed/litrag/internal/catalog"
	"github.com/openbiomed/litrag/internal/common"
	"github.com/openbiomed/litrag/internal/corpus"
)

// handleSavePapers chunks title+abstract, indexes the chunks in both
// retrieval legs and persists full bibliographic records to the
// catalog.
func (s *Server) handleSavePapers(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req savePapersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.Papers) == 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("papers required"))
		return
	}

	var (
		texts     []string
		metadatas []map[string]interface{}
		paperIDs  []string
	)
	for _, paper := range req.Papers {
		fullText := paper.Title
		if strings.TrimSpace(paper.Abstract) != "" {
			fullText = paper.Title + ". " + paper.Abstract
		}
		chunks := corpus.ChunkWords(fullText, corpus.DefaultChunkSize, corpus.DefaultChunkOverlap)
		for i, chunk := range chunks {
			texts = append(texts, chunk)
			metadatas = append(metadatas, map[string]interface{}{
				"pmid":             paper.PMID,
				"title":            paper.Title,
				"journal":          paper.Journal,
				"publication_date": paper.PublicationDate,
				"section":          "abstract",
				"chunk_index":      i,
				"authors":          joinHead(paper.Authors, 3),
				"keywords":         joinHead(paper.Keywords, 5),
			})
		}
		paperIDs = append(paperIDs, paper.PMID)
	}

	if len(texts) > 0 {
		if _, err := s.engine.AddDocuments(r.Context(), texts, metadatas, nil); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}

	if s.catalog != nil {
		records := make([]catalog.Paper, 0, len(req.Papers))
		for _, paper := range req.Papers {
			records = append(records, catalog.Paper{
				PMID:            paper.PMID,
				Title:           paper.Title,
				Abstract:        paper.Abstract,
				Authors:         paper.Authors,
				Journal:         paper.Journal,
				PublicationDate: paper.PublicationDate,
				Keywords:        paper.Keywords,
			})
		}
		if err := s.catalog.SavePapers(r.Context(), records); err != nil {
			common.Logger().Warn("api: catalog save failed", "error", err)
		}
	}

	took := time.Since(start).Milliseconds()
	common.Logger().Info("api: papers saved",
		"papers", len(req.Papers), "chunks", len(texts), "took_ms", took)
	writeJSON(w, http.StatusOK, savePapersResponse{
		SavedCount:       len(req.Papers),
		TotalChunks:      len(texts),
		ProcessingTimeMS: took,
		PaperIDs:         paperIDs,
	})
}

// handleListPapers merges chunk-derived summaries with catalog
// records; the catalog wins because it keeps full abstracts and
// complete author lists.
func (s *Server) handleListPapers(w http.ResponseWriter, r *http.Request) {
	byPMID := make(map[string]paperRecord)
	order := make([]string, 0)

	for _, p := range s.engine.Papers() {
		if _, ok := byPMID[p.PMID]; !ok {
			order = append(order, p.PMID)
		}
		byPMID[p.PMID] = paperRecord{
			ID:        p.ID,
			PMID:      p.PMID,
			Title:     p.Title,
			Abstract:  p.Abstract,
			Journal:   p.Journal,
			Authors:   p.Authors,
			Keywords:  p.Keywords,
			IndexedAt: p.IndexedAt,
		}
	}

	if s.catalog != nil {
		papers, err := s.catalog.AllPapers(r.Context())
		if err != nil {
			common.Logger().Warn("api: catalog list failed", "error", err)
		} else {
			for _, p := range papers {
				if _, ok := byPMID[p.PMID]; !ok {
					order = append(order, p.PMID)
				}
				byPMID[p.PMID] = catalogRecord(p)
			}
		}
	}

	records := make([]paperRecord, 0, len(order))
	for _, pmid := range order {
		records = append(records, byPMID[pmid])
	}
	writeJSON(w, http.StatusOK, papersResponse{Papers: records, Total: len(records)})
}

// handleListMetadata returns the catalog records only.
func (s *Server) handleListMetadata(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		writeJSON(w, http.StatusOK, papersResponse{Papers: []paperRecord{}, Total: 0})
		return
	}
	papers, err := s.catalog.AllPapers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	records := make([]paperRecord, 0, len(papers))
	for _, p := range papers {
		records = append(records, catalogRecord(p))
	}
	writeJSON(w, http.StatusOK, papersResponse{Papers: records, Total: len(records)})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if s.catalog != nil {
		if err := s.catalog.Clear(r.Context()); err != nil {
			common.Logger().Warn("api: catalog clear failed", "error", err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func catalogRecord(p catalog.Paper) paperRecord {
	title := p.Title
	if strings.TrimSpace(title) == "" {
		title = "Untitled"
	}
	return paperRecord{
		ID:        p.PMID,
		PMID:      p.PMID,
		Title:     title,
		Abstract:  p.Abstract,
		Journal:   p.Journal,
		Authors:   p.Authors,
		Keywords:  p.Keywords,
		IndexedAt: p.IndexedAt,
	}
}

func joinHead(values []string, limit int) string {
	if len(values) == 0 {
		return ""
	}
	if len(values) > limit {
		values = values[:limit]
	}
	return strings.Join(values, ", ")
}
