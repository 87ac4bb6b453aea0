// File path: internal/sparse/index_test.go
package sparse

import (
	"math"
	"testing"
)

var biomedDocs = []string{
	"CRISPR gene editing enables precise genome modification in human cells",
	"Weather patterns over the Pacific shifted dramatically last winter",
	"Cas9 nuclease activity drives targeted gene editing outcomes",
}

func queryTerms(words ...string) []WeightedTerm {
	terms := make([]WeightedTerm, 0, len(words))
	for _, w := range words {
		terms = append(terms, WeightedTerm{Term: w, Weight: 2.0})
	}
	return terms
}

func TestFitIdempotent(t *testing.T) {
	ix := NewIndex()
	ix.Fit(biomedDocs)
	vocab := ix.VocabSize()
	terms := queryTerms("crispr", "gene", "editing")
	first, _ := ix.Score(terms, 0, biomedDocs[0])

	ix.Fit(biomedDocs)
	if ix.VocabSize() != vocab {
		t.Fatalf("vocabulary changed on refit: %d vs %d", ix.VocabSize(), vocab)
	}
	second, _ := ix.Score(terms, 0, biomedDocs[0])
	if math.Abs(first-second) > 1e-12 {
		t.Fatalf("refit changed score: %f vs %f", first, second)
	}
}

func TestScoreRanksRelevantDocumentFirst(t *testing.T) {
	ix := NewIndex()
	ix.Fit(biomedDocs)
	terms := queryTerms("crispr", "gene", "editing")

	relevant, contributions := ix.Score(terms, 0, biomedDocs[0])
	unrelated, _ := ix.Score(terms, 1, biomedDocs[1])

	if relevant <= 0 {
		t.Fatalf("relevant document scored %f, want > 0", relevant)
	}
	if unrelated != 0 {
		t.Fatalf("unrelated document scored %f, want 0", unrelated)
	}
	if len(contributions) != 3 {
		t.Fatalf("expected 3 contributing terms, got %v", contributions)
	}
	for term, score := range contributions {
		if score <= 0 {
			t.Fatalf("term %s contributed %f, want > 0", term, score)
		}
	}
}

func TestScorePhraseExactMatch(t *testing.T) {
	ix := NewIndex()
	ix.Fit(biomedDocs)
	terms := []WeightedTerm{{Term: "gene editing", Weight: 1.0}}

	match, contributions := ix.Score(terms, 0, biomedDocs[0])
	if match != 2.0 {
		t.Fatalf("phrase match should contribute weight*2, got %f", match)
	}
	if contributions["gene editing"] != 2.0 {
		t.Fatalf("phrase contribution missing: %v", contributions)
	}

	// Reversed word order is not a phrase match.
	miss, _ := ix.Score(terms, 1, "editing of a gene requires precision")
	if miss != 0 {
		t.Fatalf("reversed phrase should not match, got %f", miss)
	}
}

func TestScoreUnknownTermContributesNothing(t *testing.T) {
	ix := NewIndex()
	ix.Fit(biomedDocs)
	score, contributions := ix.Score(queryTerms("zzzunknown"), 0, biomedDocs[0])
	if score != 0 || len(contributions) != 0 {
		t.Fatalf("unknown term should score 0, got %f %v", score, contributions)
	}
}

func TestEmptyCorpusSafe(t *testing.T) {
	ix := NewIndex()
	ix.Fit(nil)
	if !ix.Fitted() {
		t.Fatalf("fit on empty corpus should still mark the index fitted")
	}
	score, _ := ix.Score(queryTerms("crispr"), 0, "")
	if score != 0 {
		t.Fatalf("empty corpus should score 0, got %f", score)
	}
}

func TestResetDropsState(t *testing.T) {
	ix := NewIndex()
	ix.Fit(biomedDocs)
	ix.Reset()
	if ix.Fitted() {
		t.Fatalf("reset index should not be fitted")
	}
	if ix.VocabSize() != 0 {
		t.Fatalf("reset index should have empty vocabulary, got %d", ix.VocabSize())
	}
}
