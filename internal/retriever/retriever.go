// File path: internal/retriever/retriever.go
package retriever

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openbiomed/litrag/internal/common"
	"github.com/openbiomed/litrag/internal/common/telemetry"
	"github.com/openbiomed/litrag/internal/corpus"
	"github.com/openbiomed/litrag/internal/llm"
	"github.com/openbiomed/litrag/internal/sparse"
	"github.com/openbiomed/litrag/internal/vector"
)

const (
	DefaultTopK        = 5
	DefaultDenseWeight = 0.7

	// Raw lexical scores are rescaled onto [0, 30] for display.
	sparseDisplayScale = 3.0
	sparseDisplayMax   = 30.0

	synergyFactor = 0.1

	defaultEmbedDim = 1536

	engineQdrant = "qdrant"
	engineMemory = "memory"
	engineSparse = "splade"
	engineHybrid = "hybrid"
)

// Mode selects which retrieval legs a search runs.
type Mode string

const (
	ModeDense  Mode = "dense"
	ModeSparse Mode = "sparse"
	ModeHybrid Mode = "hybrid"
)

var ErrInvalidMode = errors.New("invalid search mode")

func ParseMode(raw string) (Mode, error) {
	switch Mode(raw) {
	case ModeDense, ModeSparse, ModeHybrid:
		return Mode(raw), nil
	case "":
		return ModeHybrid, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, raw)
	}
}

// Result is one scored chunk. DenseScore and SparseScore are nil for
// the legs that did not run.
type Result struct {
	ID           string                 `json:"id"`
	Text         string                 `json:"text"`
	DenseScore   *float64               `json:"dense_score"`
	SparseScore  *float64               `json:"sparse_score"`
	Score        float64                `json:"score"`
	Metadata     map[string]interface{} `json:"metadata"`
	MatchedTerms []string               `json:"matched_terms,omitempty"`
	Engine       string                 `json:"search_engine"`
}

type Stats struct {
	Collection     string `json:"collection_name"`
	CorpusSize     int    `json:"vectors_count"`
	WithEmbeddings int    `json:"with_embeddings"`
	SparseBuilt    bool   `json:"sparse_indexed"`
	VocabularySize int    `json:"sparse_vocab_size"`
	DenseAvailable bool   `json:"dense_available"`
	SearchMode     string `json:"search_mode"`
}

// Engine combines a lexical index, an ANN store and an embedding
// provider into one search surface. The mutex serializes mutations so
// readers always see a corpus and an index built from the same
// snapshot.
type Engine struct {
	mu       sync.RWMutex
	corpus   *corpus.Store
	index    *sparse.Index
	expander *sparse.Expander
	provider llm.Provider
	store    vector.Store
	embedDim int
}

func NewEngine(provider llm.Provider, store vector.Store) *Engine {
	return &Engine{
		corpus:   corpus.NewStore(),
		index:    sparse.NewIndex(),
		expander: sparse.NewExpander(llm.NewSuggester(provider)),
		provider: provider,
		store:    store,
		embedDim: defaultEmbedDim,
	}
}

// AddDocuments indexes texts in both legs: embeds and upserts into the
// ANN store, appends to the corpus, and refits the lexical index.
// Missing ids are generated. Embedding failure degrades to sparse-only
// chunks rather than failing the batch.
func (e *Engine) AddDocuments(ctx context.Context, texts []string, metadatas []map[string]interface{}, ids []string) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if len(metadatas) != 0 && len(metadatas) != len(texts) {
		return nil, fmt.Errorf("metadata count %d does not match text count %d", len(metadatas), len(texts))
	}
	if len(ids) == 0 {
		ids = make([]string, len(texts))
		for i := range ids {
			ids[i] = uuid.NewString()
		}
	} else if len(ids) != len(texts) {
		return nil, fmt.Errorf("id count %d does not match text count %d", len(ids), len(texts))
	}

	embeddings := embedBatch(ctx, e.provider, texts)

	chunks := make([]corpus.Chunk, len(texts))
	for i, text := range texts {
		var meta map[string]interface{}
		if len(metadatas) != 0 {
			meta = metadatas[i]
		}
		chunks[i] = corpus.Chunk{ID: ids[i], Text: text, Metadata: meta}
		if embeddings != nil {
			chunks[i].Embedding = embeddings[i]
		}
	}

	if embeddings != nil && e.store != nil && e.store.Available() {
		e.upsertPoints(ctx, chunks)
	}

	e.mu.Lock()
	e.corpus.Append(chunks)
	if embeddings != nil && len(embeddings[0]) > 0 {
		e.embedDim = len(embeddings[0])
	}
	e.rebuildIndexLocked()
	e.mu.Unlock()

	telemetry.RecordIngestBatch(len(texts))
	common.Logger().Info("retriever: documents indexed",
		"count", len(texts), "embedded", embeddings != nil, "corpus_size", e.corpus.Len())
	return ids, nil
}

func (e *Engine) upsertPoints(ctx context.Context, chunks []corpus.Chunk) {
	points := make([]vector.Point, 0, len(chunks))
	for _, c := range chunks {
		if !c.HasEmbedding() {
			continue
		}
		payload := map[string]interface{}{"text": c.Text}
		for k, v := range c.Metadata {
			payload[k] = v
		}
		points = append(points, vector.Point{ID: c.ID, Vector: c.Embedding, Payload: payload})
	}
	if len(points) == 0 {
		return
	}
	if err := e.store.EnsureCollection(ctx, len(points[0].Vector)); err != nil {
		common.Logger().Warn("retriever: ensure collection failed", "error", err)
		return
	}
	if err := e.store.Upsert(ctx, points); err != nil {
		common.Logger().Warn("retriever: vector upsert failed", "error", err)
	}
}

// rebuildIndexLocked refits the lexical index over the current corpus.
// Callers must hold the write lock.
func (e *Engine) rebuildIndexLocked() {
	chunks := e.corpus.Snapshot()
	if len(chunks) == 0 {
		e.index.Reset()
		return
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	e.index.Fit(texts)
}

// Search runs the requested mode. topK <= 0 takes the default.
// denseWeight is valid on [0, 1], zero included (sparse-only fusion);
// only NaN or out-of-range values take the default weighting.
func (e *Engine) Search(ctx context.Context, query string, topK int, mode Mode, denseWeight float64) ([]Result, error) {
	switch mode {
	case ModeDense, ModeSparse, ModeHybrid:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if math.IsNaN(denseWeight) || denseWeight < 0 || denseWeight > 1 {
		denseWeight = DefaultDenseWeight
	}
	if e.corpus.Len() == 0 {
		return []Result{}, nil
	}

	start := time.Now()
	var results []Result
	switch mode {
	case ModeDense:
		results = e.searchDense(ctx, query, topK)
	case ModeSparse:
		results = e.searchSparse(ctx, query, topK)
	case ModeHybrid:
		results = e.searchHybrid(ctx, query, topK, denseWeight)
	}
	telemetry.RecordSearch(string(mode), time.Since(start))
	return results, nil
}

func (e *Engine) searchDense(ctx context.Context, query string, topK int) []Result {
	e.mu.RLock()
	defer e.mu.RUnlock()
	hits, engine := e.denseSearch(ctx, query, topK)
	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		chunk, ok := e.corpus.Get(hit.id)
		if !ok {
			continue
		}
		score := round4(hit.score)
		results = append(results, Result{
			ID:         hit.id,
			Text:       chunk.Text,
			DenseScore: &score,
			Score:      score,
			Metadata:   chunk.Metadata,
			Engine:     engine,
		})
	}
	return results
}

type sparseHit struct {
	id      string
	text    string
	meta    map[string]interface{}
	raw     float64
	display float64
	matched []string
}

// sparseHits scores every document against the expanded query and
// returns positive scorers sorted descending, truncated to limit.
// Caller must hold at least a read lock.
func (e *Engine) sparseHits(ctx context.Context, query string, limit int) []sparseHit {
	if !e.index.Fitted() {
		return nil
	}
	terms := e.expander.Expand(ctx, query)
	chunks := e.corpus.Snapshot()
	hits := make([]sparseHit, 0, len(chunks))
	for idx, chunk := range chunks {
		raw, contributions := e.index.Score(terms, idx, chunk.Text)
		if raw <= 0 {
			continue
		}
		hits = append(hits, sparseHit{
			id:      chunk.ID,
			text:    chunk.Text,
			meta:    chunk.Metadata,
			raw:     raw,
			display: rescaleSparse(raw),
			matched: matchedTerms(terms, contributions),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].raw > hits[j].raw })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

func (e *Engine) searchSparse(ctx context.Context, query string, topK int) []Result {
	e.mu.RLock()
	defer e.mu.RUnlock()
	hits := e.sparseHits(ctx, query, topK)
	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		score := hit.display
		results = append(results, Result{
			ID:           hit.id,
			Text:         hit.text,
			SparseScore:  &score,
			Score:        score,
			Metadata:     hit.meta,
			MatchedTerms: hit.matched,
			Engine:       engineSparse,
		})
	}
	return results
}

// searchHybrid fuses both legs: fused = dense·w + sparseNorm·(1-w),
// plus a synergy boost of 0.1·min(dense, sparseNorm) when a document
// appears in both legs, clamped to 1.0. Sparse scores are normalized
// by the batch maximum before fusion; the displayed sparse score stays
// on the [0, 30] scale.
func (e *Engine) searchHybrid(ctx context.Context, query string, topK int, denseWeight float64) []Result {
	e.mu.RLock()
	defer e.mu.RUnlock()

	full := e.corpus.Len()
	var (
		wg        sync.WaitGroup
		denseHits []denseHit
		sparseLeg []sparseHit
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		denseHits, _ = e.denseSearch(ctx, query, full)
	}()
	go func() {
		defer wg.Done()
		sparseLeg = e.sparseHits(ctx, query, full)
	}()
	wg.Wait()

	denseScores := make(map[string]float64, len(denseHits))
	for _, hit := range denseHits {
		denseScores[hit.id] = hit.score
	}
	sparseByID := make(map[string]sparseHit, len(sparseLeg))
	var maxSparse float64
	for _, hit := range sparseLeg {
		sparseByID[hit.id] = hit
		if hit.display > maxSparse {
			maxSparse = hit.display
		}
	}

	// Union in dense-then-sparse insertion order so equal fused scores
	// break ties deterministically.
	order := make([]string, 0, len(denseHits)+len(sparseLeg))
	seen := make(map[string]struct{}, len(denseHits)+len(sparseLeg))
	for _, hit := range denseHits {
		if _, ok := seen[hit.id]; !ok {
			seen[hit.id] = struct{}{}
			order = append(order, hit.id)
		}
	}
	for _, hit := range sparseLeg {
		if _, ok := seen[hit.id]; !ok {
			seen[hit.id] = struct{}{}
			order = append(order, hit.id)
		}
	}

	sparseWeight := 1.0 - denseWeight
	results := make([]Result, 0, len(order))
	for _, id := range order {
		chunk, ok := e.corpus.Get(id)
		if !ok {
			continue
		}
		dense := denseScores[id]
		var sparseDisplay, sparseNorm float64
		sHit, hasSparse := sparseByID[id]
		if hasSparse {
			sparseDisplay = sHit.display
			if maxSparse > 0 {
				sparseNorm = sHit.display / maxSparse
			}
		}

		fused := dense*denseWeight + sparseNorm*sparseWeight
		if dense > 0 && hasSparse && sHit.raw > 0 {
			fused = math.Min(fused+synergyFactor*math.Min(dense, sparseNorm), 1.0)
		}

		d := round4(dense)
		s := round2(sparseDisplay)
		results = append(results, Result{
			ID:           id,
			Text:         chunk.Text,
			DenseScore:   &d,
			SparseScore:  &s,
			Score:        round4(fused),
			Metadata:     chunk.Metadata,
			MatchedTerms: sHit.matched,
			Engine:       engineHybrid,
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

// SyncFromVector rebuilds the in-process corpus and lexical index from
// the ANN store. Used at startup so restarts keep previously indexed
// papers searchable.
func (e *Engine) SyncFromVector(ctx context.Context) (int, error) {
	if e.store == nil || !e.store.Available() {
		return 0, nil
	}
	points, err := e.store.ScrollAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("scroll collection: %w", err)
	}
	if len(points) == 0 {
		return 0, nil
	}
	chunks := make([]corpus.Chunk, 0, len(points))
	dim := 0
	for _, p := range points {
		text, _ := p.Payload["text"].(string)
		meta := make(map[string]interface{}, len(p.Payload))
		for k, v := range p.Payload {
			if k == "text" {
				continue
			}
			meta[k] = v
		}
		chunks = append(chunks, corpus.Chunk{ID: p.ID, Text: text, Embedding: p.Vector, Metadata: meta})
		if len(p.Vector) > 0 {
			dim = len(p.Vector)
		}
	}
	e.mu.Lock()
	e.corpus.Replace(chunks)
	if dim > 0 {
		e.embedDim = dim
	}
	e.rebuildIndexLocked()
	e.mu.Unlock()
	common.Logger().Info("retriever: corpus rehydrated", "chunks", len(chunks))
	return len(chunks), nil
}

// Clear drops the corpus, the lexical index and the remote collection.
func (e *Engine) Clear(ctx context.Context) error {
	e.mu.Lock()
	e.corpus.Clear()
	e.index.Reset()
	dim := e.embedDim
	e.mu.Unlock()

	if e.store != nil && e.store.Available() {
		if err := e.store.Recreate(ctx, dim); err != nil {
			common.Logger().Error("retriever: collection recreate failed", "error", err)
			return err
		}
	}
	common.Logger().Info("retriever: store cleared")
	return nil
}

func (e *Engine) Stats(ctx context.Context) Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	denseAvailable := e.store != nil && e.store.Available()
	collection := ""
	if e.store != nil {
		collection = e.store.Collection()
	}
	searchMode := "hybrid (in-memory dense + sparse expansion)"
	if denseAvailable {
		searchMode = "hybrid (qdrant dense + sparse expansion)"
	}
	return Stats{
		Collection:     collection,
		CorpusSize:     e.corpus.Len(),
		WithEmbeddings: e.corpus.WithEmbeddings(),
		SparseBuilt:    e.index.Fitted(),
		VocabularySize: e.index.VocabSize(),
		DenseAvailable: denseAvailable,
		SearchMode:     searchMode,
	}
}

// PaperSummary is a paper reconstructed from chunk payloads. The
// abstract is approximate (first chunk, truncated); full records live
// in the catalog.
type PaperSummary struct {
	ID        string
	PMID      string
	Title     string
	Abstract  string
	Journal   string
	Authors   []string
	Keywords  []string
	IndexedAt string
	Section   string
}

// Papers groups indexed chunks by pmid, first chunk wins.
func (e *Engine) Papers() []PaperSummary {
	e.mu.RLock()
	defer e.mu.RUnlock()
	chunks := e.corpus.Snapshot()
	seen := make(map[string]struct{})
	papers := make([]PaperSummary, 0)
	for _, chunk := range chunks {
		pmid := metaString(chunk.Metadata, "pmid")
		if pmid == "" {
			continue
		}
		if _, ok := seen[pmid]; ok {
			continue
		}
		seen[pmid] = struct{}{}
		abstract := chunk.Text
		if len(abstract) > 500 {
			abstract = abstract[:500]
		}
		title := metaString(chunk.Metadata, "title")
		if title == "" {
			title = "Untitled"
		}
		section := metaString(chunk.Metadata, "section")
		if section == "" {
			section = "abstract"
		}
		papers = append(papers, PaperSummary{
			ID:        chunk.ID,
			PMID:      pmid,
			Title:     title,
			Abstract:  abstract,
			Journal:   metaString(chunk.Metadata, "journal"),
			Authors:   metaList(chunk.Metadata, "authors"),
			Keywords:  metaList(chunk.Metadata, "keywords"),
			IndexedAt: metaString(chunk.Metadata, "indexed_at"),
			Section:   section,
		})
	}
	return papers
}

func metaString(meta map[string]interface{}, key string) string {
	if meta == nil {
		return ""
	}
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}

// metaList accepts comma-joined strings or string slices; chunk
// payloads store joined strings, rehydrated payloads may carry either.
func metaList(meta map[string]interface{}, key string) []string {
	if meta == nil {
		return nil
	}
	switch v := meta[key].(type) {
	case string:
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	default:
		return nil
	}
}

// matchedTerms reports up to five query terms that contributed to a
// document's score, in query order.
func matchedTerms(terms []sparse.WeightedTerm, contributions map[string]float64) []string {
	if len(contributions) == 0 {
		return nil
	}
	matched := make([]string, 0, 5)
	for _, t := range terms {
		if _, ok := contributions[t.Term]; ok {
			matched = append(matched, t.Term)
			if len(matched) == 5 {
				break
			}
		}
	}
	return matched
}

func rescaleSparse(raw float64) float64 {
	return round2(math.Min(raw*sparseDisplayScale, sparseDisplayMax))
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
