// File path: internal/common/telemetry/telemetry.go
package telemetry

import (
	"expvar"
	"strings"
	"sync"
	"time"
)

var (
	initOnce sync.Once

	searchTotal     *expvar.Map
	searchLatencyMS *expvar.Map

	vectorQueryTotal     *expvar.Int
	vectorQueryFallbacks *expvar.Int
	vectorQueryLatencyMS *expvar.Int

	ingestBatchTotal *expvar.Int
	ingestChunkTotal *expvar.Int
)

func ensureInit() {
	initOnce.Do(func() {
		searchTotal = expvar.NewMap("litrag_search_total")
		searchLatencyMS = expvar.NewMap("litrag_search_latency_ms")

		vectorQueryTotal = expvar.NewInt("litrag_vector_query_total")
		vectorQueryFallbacks = expvar.NewInt("litrag_vector_query_fallbacks")
		vectorQueryLatencyMS = expvar.NewInt("litrag_vector_query_latency_ms")

		ingestBatchTotal = expvar.NewInt("litrag_ingest_batches_total")
		ingestChunkTotal = expvar.NewInt("litrag_ingest_chunks_total")
	})
}

// RecordSearch counts a completed search request by mode.
func RecordSearch(mode string, duration time.Duration) {
	ensureInit()
	key := strings.TrimSpace(strings.ToLower(mode))
	if key == "" {
		key = "unknown"
	}
	searchTotal.Add(key, 1)
	if duration > 0 {
		searchLatencyMS.Add(key, duration.Milliseconds())
	}
}

// RecordVectorQuery counts a nearest-neighbor lookup against the vector
// backend. fallback marks queries served by the local brute-force path.
func RecordVectorQuery(fallback bool, duration time.Duration) {
	ensureInit()
	vectorQueryTotal.Add(1)
	if fallback {
		vectorQueryFallbacks.Add(1)
	}
	if duration > 0 {
		vectorQueryLatencyMS.Add(duration.Milliseconds())
	}
}

// RecordIngestBatch counts a corpus ingestion batch and the chunks it carried.
func RecordIngestBatch(chunks int) {
	ensureInit()
	if chunks <= 0 {
		return
	}
	ingestBatchTotal.Add(1)
	ingestChunkTotal.Add(int64(chunks))
}
