// File path: internal/catalog/store_test.go
package catalog

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenWithConfig(Config{Path: filepath.Join(t.TempDir(), "catalog.db")})
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSavePapersRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	papers := []Paper{
		{
			PMID:            "38011234",
			Title:           "CRISPR screening in primary T cells",
			Abstract:        "A genome-wide screen identifies regulators of T cell activation.",
			Authors:         []string{"Kim J", "Lee S", "Park H", "Choi M"},
			Journal:         "Nature Biotechnology",
			PublicationDate: "2024-01-15",
			Keywords:        []string{"CRISPR", "T cell", "screening"},
		},
		{
			PMID:  "38015678",
			Title: "Mitochondrial dynamics in aging",
		},
	}
	if err := store.SavePapers(ctx, papers); err != nil {
		t.Fatalf("save papers: %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 papers, got %d", count)
	}

	got, ok, err := store.GetPaper(ctx, "38011234")
	if err != nil || !ok {
		t.Fatalf("get paper: %v ok=%v", err, ok)
	}
	if got.Title != papers[0].Title || got.Journal != papers[0].Journal {
		t.Fatalf("paper fields lost: %+v", got)
	}
	if len(got.Authors) != 4 || got.Authors[3] != "Choi M" {
		t.Fatalf("author list lost: %v", got.Authors)
	}
	if got.IndexedAt == "" {
		t.Fatalf("indexed_at should be stamped on save")
	}
}

func TestSavePapersUpserts(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.SavePapers(ctx, []Paper{{PMID: "1", Title: "Old title"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.SavePapers(ctx, []Paper{{PMID: "1", Title: "New title", Keywords: []string{"updated"}}}); err != nil {
		t.Fatalf("resave: %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("upsert duplicated row: %d", count)
	}
	got, ok, err := store.GetPaper(ctx, "1")
	if err != nil || !ok {
		t.Fatalf("get paper: %v ok=%v", err, ok)
	}
	if got.Title != "New title" || len(got.Keywords) != 1 {
		t.Fatalf("upsert did not replace fields: %+v", got)
	}
}

func TestSavePapersRequiresPMID(t *testing.T) {
	store := openTestStore(t)
	if err := store.SavePapers(context.Background(), []Paper{{Title: "no id"}}); err == nil {
		t.Fatalf("expected error for missing pmid")
	}
}

func TestGetPaperMissing(t *testing.T) {
	store := openTestStore(t)
	_, ok, err := store.GetPaper(context.Background(), "nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("missing paper reported as found")
	}
}

func TestClearRemovesAll(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	if err := store.SavePapers(ctx, []Paper{{PMID: "1"}, {PMID: "2"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	papers, err := store.AllPapers(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(papers) != 0 {
		t.Fatalf("expected empty catalog, got %v", papers)
	}
}
