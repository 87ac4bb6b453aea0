// File path: internal/sparse/index.go
package sparse

import (
	"math"
	"strings"
)

const (
	defaultK1 = 1.5
	defaultB  = 0.75

	// phraseBoost multiplies the query weight of a multi-word term when the
	// exact phrase appears in a document.
	phraseBoost = 2.0
)

// WeightedTerm is a query term paired with its weight. Terms containing
// internal whitespace are treated as phrases and matched by exact substring
// rather than scored through BM25.
type WeightedTerm struct {
	Term   string
	Weight float64
}

// Index is the BM25 lexical index over a corpus snapshot. It is a pure
// projection of the corpus: Fit performs a full, non-incremental rebuild and
// must be re-run after every corpus mutation before the next search.
type Index struct {
	k1 float64
	b  float64

	docLens   []int
	avgDocLen float64
	nDocs     int
	df        map[string]int
	idf       map[string]float64
	fitted    bool
}

func NewIndex() *Index {
	return &Index{k1: defaultK1, b: defaultB}
}

// Fit rebuilds the document-frequency statistics from the provided corpus
// snapshot. Fitting the same snapshot twice yields identical statistics.
func (ix *Index) Fit(documents []string) {
	ix.nDocs = len(documents)
	ix.docLens = make([]int, 0, len(documents))
	ix.df = make(map[string]int)
	ix.idf = make(map[string]float64)

	totalLen := 0
	for _, doc := range documents {
		tokens := Tokenize(doc)
		ix.docLens = append(ix.docLens, len(tokens))
		totalLen += len(tokens)
		seen := make(map[string]struct{}, len(tokens))
		for _, token := range tokens {
			if _, ok := seen[token]; ok {
				continue
			}
			seen[token] = struct{}{}
			ix.df[token]++
		}
	}
	if ix.nDocs > 0 {
		ix.avgDocLen = float64(totalLen) / float64(ix.nDocs)
	} else {
		ix.avgDocLen = 0
	}
	n := float64(ix.nDocs)
	for term, df := range ix.df {
		ix.idf[term] = math.Log((n-float64(df)+0.5)/(float64(df)+0.5) + 1)
	}
	ix.fitted = true
}

// Score computes the weighted BM25 score of a document against the expanded
// query terms. Phrase terms contribute weight*phraseBoost on an exact
// lowercase substring match and nothing otherwise; single tokens missing from
// the vocabulary contribute nothing. The per-term contributions are returned
// for match diagnostics.
func (ix *Index) Score(terms []WeightedTerm, docIdx int, docText string) (float64, map[string]float64) {
	docTokens := Tokenize(docText)
	docLen := len(docTokens)
	if docIdx >= 0 && docIdx < len(ix.docLens) {
		docLen = ix.docLens[docIdx]
	}
	termFreqs := make(map[string]int, len(docTokens))
	for _, token := range docTokens {
		termFreqs[token]++
	}

	total := 0.0
	termScores := make(map[string]float64)
	docLower := strings.ToLower(docText)
	for _, qt := range terms {
		if strings.ContainsAny(qt.Term, " \t") {
			if strings.Contains(docLower, qt.Term) {
				contribution := qt.Weight * phraseBoost
				total += contribution
				termScores[qt.Term] = contribution
			}
			continue
		}
		idf, ok := ix.idf[qt.Term]
		if !ok {
			continue
		}
		tf := float64(termFreqs[qt.Term])
		if tf == 0 {
			continue
		}
		denominator := tf + ix.k1*(1-ix.b+ix.b*lengthRatio(float64(docLen), ix.avgDocLen))
		if denominator <= 0 {
			continue
		}
		contribution := idf * (tf * (ix.k1 + 1) / denominator) * qt.Weight
		total += contribution
		termScores[qt.Term] = contribution
	}
	return total, termScores
}

// lengthRatio guards the BM25 length normalization against an empty corpus.
func lengthRatio(docLen, avgDocLen float64) float64 {
	if avgDocLen <= 0 {
		return 0
	}
	return docLen / avgDocLen
}

// Fitted reports whether the index has been built at least once.
func (ix *Index) Fitted() bool {
	return ix.fitted
}

// VocabSize reports the number of distinct terms in the index vocabulary.
func (ix *Index) VocabSize() int {
	return len(ix.idf)
}

// Reset drops all index state, returning the index to its unfitted state.
func (ix *Index) Reset() {
	ix.docLens = nil
	ix.avgDocLen = 0
	ix.nDocs = 0
	ix.df = nil
	ix.idf = nil
	ix.fitted = false
}
