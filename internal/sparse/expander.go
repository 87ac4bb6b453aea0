// File path: internal/sparse/expander.go
package sparse

import (
	"context"
	"fmt"
	"strings"

	"github.com/openbiomed/litrag/internal/common"
)

const (
	// originalTermWeight is assigned to every token of the raw query so the
	// user's own words always dominate expansion terms.
	originalTermWeight = 2.0
	// maxQueryTerms caps the expanded term list.
	maxQueryTerms = 20
)

// Suggester is the term-expansion collaborator: given a raw query it returns
// a comma-separated list of closely related terms. Any error from the
// collaborator degrades expansion to the original query terms.
type Suggester interface {
	Suggest(ctx context.Context, query string) (string, error)
}

// Expander turns a raw query into a weighted term list, optionally enriched
// through a Suggester.
type Expander struct {
	suggester Suggester
}

// NewExpander builds an expander. suggester may be nil, in which case only
// the original query tokens are produced.
func NewExpander(suggester Suggester) *Expander {
	return &Expander{suggester: suggester}
}

// Expand tokenizes the query, assigns each distinct token the original-term
// weight, and appends collaborator suggestions with decreasing weights. The
// i-th newly added expansion term receives weight 1/(1+0.15*i). Multi-word
// suggestions are preserved as phrase terms. Collaborator failures are logged
// and swallowed: the original terms are always returned.
func (e *Expander) Expand(ctx context.Context, query string) []WeightedTerm {
	logger := common.Logger()
	seen := make(map[string]struct{})
	terms := make([]WeightedTerm, 0, maxQueryTerms)
	for _, token := range Tokenize(query) {
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		terms = append(terms, WeightedTerm{Term: token, Weight: originalTermWeight})
	}
	if e == nil || e.suggester == nil {
		return capTerms(terms)
	}
	raw, err := e.suggester.Suggest(ctx, query)
	if err != nil {
		logger.Warn("sparse: query expansion unavailable", "error", err)
		return capTerms(terms)
	}
	added := 0
	for _, candidate := range strings.Split(raw, ",") {
		term := normalizeCandidate(candidate)
		if term == "" {
			continue
		}
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		terms = append(terms, WeightedTerm{Term: term, Weight: 1.0 / (1 + 0.15*float64(added))})
		added++
	}
	logger.Debug("sparse: query expanded", "original", len(seen)-added, "expanded", added)
	return capTerms(terms)
}

func normalizeCandidate(candidate string) string {
	term := strings.ToLower(strings.TrimSpace(candidate))
	term = strings.Trim(term, `"'`)
	return strings.TrimSpace(term)
}

func capTerms(terms []WeightedTerm) []WeightedTerm {
	if len(terms) > maxQueryTerms {
		return terms[:maxQueryTerms]
	}
	return terms
}

// ExpansionPrompt renders the instruction sent to the suggestion collaborator
// for a given query.
func ExpansionPrompt(query string) string {
	return fmt.Sprintf(`Expand this biomedical search query with closely related scientific terms.
IMPORTANT: Focus on synonyms and directly related terms. Do NOT include unrelated concepts.

Query: %q

Rules:
1. Include the EXACT original query terms first
2. Add only synonyms and closely related terms
3. Do NOT add tangentially related concepts
4. Maximum 15 terms total

Example:
Query: "CRISPR gene editing"
Output: CRISPR, gene, editing, Cas9, genome, nuclease, guide RNA, genetic, modification, CRISPR-Cas9, gene therapy

Your output (terms only, comma-separated):`, query)
}
