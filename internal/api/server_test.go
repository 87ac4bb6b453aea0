// File path: internal/api/server_test.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openbiomed/litrag/internal/catalog"
	"github.com/openbiomed/litrag/internal/llm"
	"github.com/openbiomed/litrag/internal/retriever"
)

type offlineProvider struct{}

func (offlineProvider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	return "", llm.ErrUnavailable
}

func (offlineProvider) Embed(ctx context.Context, input []string) ([][]float32, error) {
	return nil, llm.ErrUnavailable
}

func (offlineProvider) Name() string { return "offline" }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cat, err := catalog.OpenWithConfig(catalog.Config{Path: filepath.Join(t.TempDir(), "catalog.db")})
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { cat.Close() })
	engine := retriever.NewEngine(offlineProvider{}, nil)
	ts := httptest.NewServer(NewServer(engine, cat))
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func savePapers(t *testing.T, baseURL string) {
	t.Helper()
	longAbstract := strings.Repeat("CRISPR gene editing enables precise genome modification in human cells. ", 6)
	resp := postJSON(t, baseURL+"/v1/papers/save", map[string]interface{}{
		"papers": []map[string]interface{}{
			{
				"pmid":             "38011234",
				"title":            "CRISPR screening in primary T cells",
				"abstract":         longAbstract,
				"authors":          []string{"Kim J", "Lee S", "Park H", "Choi M"},
				"journal":          "Nature Biotechnology",
				"publication_date": "2024-01-15",
				"keywords":         []string{"CRISPR", "T cell"},
			},
			{
				"pmid":     "38015678",
				"title":    "Pacific weather pattern shifts",
				"abstract": "Seasonal weather variation across the Pacific basin.",
				"journal":  "Climate Reports",
			},
		},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save papers returned %d", resp.StatusCode)
	}
	var saved struct {
		SavedCount  int      `json:"saved_count"`
		TotalChunks int      `json:"total_chunks"`
		PaperIDs    []string `json:"paper_ids"`
	}
	decodeBody(t, resp, &saved)
	if saved.SavedCount != 2 || saved.TotalChunks != 2 {
		t.Fatalf("unexpected save response: %+v", saved)
	}
	if len(saved.PaperIDs) != 2 || saved.PaperIDs[0] != "38011234" {
		t.Fatalf("paper ids missing: %v", saved.PaperIDs)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz returned %d", resp.StatusCode)
	}
}

func TestSaveAndSearchSparse(t *testing.T) {
	ts := newTestServer(t)
	savePapers(t, ts.URL)

	resp := postJSON(t, ts.URL+"/v1/search", map[string]interface{}{
		"query":       "CRISPR gene editing",
		"search_mode": "sparse",
		"top_k":       5,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search returned %d", resp.StatusCode)
	}
	var result struct {
		Results []struct {
			PMID        string   `json:"pmid"`
			Title       string   `json:"title"`
			Text        string   `json:"text"`
			Score       float64  `json:"score"`
			SparseScore *float64 `json:"sparse_score"`
			DenseScore  *float64 `json:"dense_score"`
			Section     string   `json:"section"`
		} `json:"results"`
		TookMS     int64  `json:"took_ms"`
		SearchMode string `json:"search_mode"`
	}
	decodeBody(t, resp, &result)
	if result.SearchMode != "sparse" {
		t.Fatalf("search mode echoed wrong: %s", result.SearchMode)
	}
	if len(result.Results) == 0 {
		t.Fatalf("expected results for matching query")
	}
	top := result.Results[0]
	if top.PMID != "38011234" {
		t.Fatalf("expected the CRISPR paper first, got %s", top.PMID)
	}
	if top.SparseScore == nil || *top.SparseScore <= 0 {
		t.Fatalf("sparse score missing: %v", top.SparseScore)
	}
	if top.DenseScore != nil {
		t.Fatalf("dense score should be null in sparse mode")
	}
	if top.Section != "abstract" {
		t.Fatalf("section metadata lost: %q", top.Section)
	}
	if !strings.HasSuffix(top.Text, "...") || len(top.Text) != 303 {
		t.Fatalf("long text should be truncated to 300 chars plus ellipsis, got %d", len(top.Text))
	}
}

func TestSearchDefaultsToHybrid(t *testing.T) {
	ts := newTestServer(t)
	savePapers(t, ts.URL)

	resp := postJSON(t, ts.URL+"/v1/search", map[string]interface{}{
		"query": "CRISPR gene editing",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search returned %d", resp.StatusCode)
	}
	var result struct {
		SearchMode string `json:"search_mode"`
	}
	decodeBody(t, resp, &result)
	if result.SearchMode != "hybrid" {
		t.Fatalf("missing mode should default to hybrid, got %s", result.SearchMode)
	}
}

func TestSearchHonorsZeroDenseWeight(t *testing.T) {
	ts := newTestServer(t)
	savePapers(t, ts.URL)

	resp := postJSON(t, ts.URL+"/v1/search", map[string]interface{}{
		"query":        "CRISPR gene editing",
		"search_mode":  "hybrid",
		"dense_weight": 0,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search returned %d", resp.StatusCode)
	}
	var result struct {
		Results []struct {
			Score float64 `json:"score"`
		} `json:"results"`
	}
	decodeBody(t, resp, &result)
	if len(result.Results) == 0 {
		t.Fatalf("expected results for zero dense weight")
	}
	// Weight 0 puts the whole fused score on the lexical leg, so the
	// best match carries the full batch-normalized score, not the 0.7
	// default weighting.
	if result.Results[0].Score != 1.0 {
		t.Fatalf("expected full lexical score 1.0, got %f", result.Results[0].Score)
	}
}

func TestSearchRejectsBadRequests(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/v1/search", map[string]interface{}{
		"query":       "CRISPR",
		"search_mode": "fuzzy",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid mode should return 400, got %d", resp.StatusCode)
	}

	resp = postJSON(t, ts.URL+"/v1/search", map[string]interface{}{
		"search_mode": "sparse",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing query should return 400, got %d", resp.StatusCode)
	}
}

func TestPapersAndMetadataListings(t *testing.T) {
	ts := newTestServer(t)
	savePapers(t, ts.URL)

	for _, path := range []string{"/v1/papers", "/v1/metadata"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		var listing struct {
			Papers []struct {
				PMID     string   `json:"pmid"`
				Title    string   `json:"title"`
				Abstract string   `json:"abstract"`
				Authors  []string `json:"authors"`
			} `json:"papers"`
			Total int `json:"total"`
		}
		decodeBody(t, resp, &listing)
		if listing.Total != 2 {
			t.Fatalf("%s: expected 2 papers, got %d", path, listing.Total)
		}
		var found bool
		for _, p := range listing.Papers {
			if p.PMID != "38011234" {
				continue
			}
			found = true
			// Catalog records keep the complete author list, not the
			// truncated chunk payload.
			if len(p.Authors) != 4 {
				t.Fatalf("%s: expected full author list, got %v", path, p.Authors)
			}
			if p.Abstract == "" {
				t.Fatalf("%s: abstract missing", path)
			}
		}
		if !found {
			t.Fatalf("%s: CRISPR paper missing from listing", path)
		}
	}
}

func TestStatsReflectsCorpus(t *testing.T) {
	ts := newTestServer(t)
	savePapers(t, ts.URL)

	resp, err := http.Get(ts.URL + "/v1/stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	var stats struct {
		VectorsCount   int    `json:"vectors_count"`
		WithEmbeddings int    `json:"with_embeddings"`
		SparseIndexed  bool   `json:"sparse_indexed"`
		DenseEngine    string `json:"dense_engine"`
		Status         string `json:"status"`
	}
	decodeBody(t, resp, &stats)
	if stats.VectorsCount != 2 {
		t.Fatalf("expected 2 vectors, got %d", stats.VectorsCount)
	}
	if stats.WithEmbeddings != 0 {
		t.Fatalf("offline provider should yield no embeddings, got %d", stats.WithEmbeddings)
	}
	if !stats.SparseIndexed {
		t.Fatalf("sparse index should be built after save")
	}
	if stats.DenseEngine != "in_memory" || stats.Status != "degraded" {
		t.Fatalf("expected degraded in-memory stats, got %+v", stats)
	}
}

func TestClearResetsEverything(t *testing.T) {
	ts := newTestServer(t)
	savePapers(t, ts.URL)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/v1/clear", nil)
	if err != nil {
		t.Fatalf("build clear request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("clear returned %d", resp.StatusCode)
	}

	statsResp, err := http.Get(ts.URL + "/v1/stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	var stats struct {
		VectorsCount int `json:"vectors_count"`
	}
	decodeBody(t, statsResp, &stats)
	if stats.VectorsCount != 0 {
		t.Fatalf("expected empty corpus after clear, got %d", stats.VectorsCount)
	}

	metaResp, err := http.Get(ts.URL + "/v1/metadata")
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}
	var listing struct {
		Total int `json:"total"`
	}
	decodeBody(t, metaResp, &listing)
	if listing.Total != 0 {
		t.Fatalf("expected empty catalog after clear, got %d", listing.Total)
	}
}

func TestLogsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/v1/logs")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	var body struct {
		Entries []map[string]interface{} `json:"entries"`
	}
	decodeBody(t, resp, &body)
	if body.Entries == nil {
		t.Fatalf("expected entries array in logs response")
	}
}
