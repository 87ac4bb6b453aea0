// File path: internal/retriever/dense.go
package retriever

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/openbiomed/litrag/internal/common"
	"github.com/openbiomed/litrag/internal/common/telemetry"
	"github.com/openbiomed/litrag/internal/llm"
)

type denseHit struct {
	id    string
	score float64
}

// denseSearch embeds the query and asks the ANN store for neighbours,
// falling back to a brute-force scan over in-process embeddings when
// the store is unreachable. Collaborator failure yields an empty leg,
// never an error. The second return names the backend that served the
// leg ("qdrant" or "memory").
func (e *Engine) denseSearch(ctx context.Context, query string, limit int) ([]denseHit, string) {
	queryVec := e.embedQuery(ctx, query)
	if queryVec == nil {
		return nil, engineMemory
	}
	start := time.Now()
	if e.store != nil && e.store.Available() {
		points, err := e.store.Query(ctx, queryVec, limit)
		if err == nil {
			telemetry.RecordVectorQuery(false, time.Since(start))
			hits := make([]denseHit, 0, len(points))
			for _, p := range points {
				hits = append(hits, denseHit{id: p.ID, score: normalizeDenseScore(p.Score)})
			}
			return hits, engineQdrant
		}
		common.Logger().Warn("retriever: vector query failed, using local fallback", "error", err)
	}
	hits := e.bruteForceSearch(queryVec, limit)
	telemetry.RecordVectorQuery(true, time.Since(start))
	return hits, engineMemory
}

func (e *Engine) embedQuery(ctx context.Context, query string) []float32 {
	if e.provider == nil {
		return nil
	}
	vectors, err := e.provider.Embed(ctx, []string{query})
	if err != nil {
		if !errors.Is(err, llm.ErrUnavailable) {
			common.Logger().Warn("retriever: query embedding failed", "error", err)
		}
		return nil
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil
	}
	return vectors[0]
}

func (e *Engine) bruteForceSearch(queryVec []float32, limit int) []denseHit {
	chunks := e.corpus.Snapshot()
	hits := make([]denseHit, 0, len(chunks))
	for _, c := range chunks {
		if !c.HasEmbedding() {
			continue
		}
		sim := cosineSimilarity(queryVec, c.Embedding)
		hits = append(hits, denseHit{id: c.ID, score: normalizeDenseScore(sim)})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// Cosine similarity lands in [-1, 1]; shift the negative half into
// [0, 0.5) so every dense score is comparable on [0, 1]. Backend
// scores outside [-1, 1] (float error, non-cosine collections) are
// clamped to the bound.
func normalizeDenseScore(score float64) float64 {
	if score < 0 {
		score = (score + 1) / 2
	}
	return math.Max(0, math.Min(score, 1))
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func embedBatch(ctx context.Context, provider llm.Provider, texts []string) [][]float32 {
	if provider == nil || len(texts) == 0 {
		return nil
	}
	const batchSize = 64
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := provider.Embed(ctx, texts[start:end])
		if err != nil {
			if !errors.Is(err, llm.ErrUnavailable) {
				common.Logger().Warn("retriever: batch embedding failed", "error", err)
			}
			return nil
		}
		if len(vectors) != end-start {
			common.Logger().Warn("retriever: embedding count mismatch",
				"expected", end-start, "got", len(vectors))
			return nil
		}
		out = append(out, vectors...)
	}
	return out
}
