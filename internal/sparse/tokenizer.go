// File path: internal/sparse/tokenizer.go
package sparse

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Punctuation is stripped except hyphens so compound biomedical terms such as
// "CRISPR-Cas9" survive as single tokens. Letters and digits from any script
// are kept, Greek-letter protein names included ("α-synuclein", "β-amyloid").
var nonToken = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)

// Tokenize lowercases text, strips punctuation except hyphens, and drops
// tokens of a single rune. The output order follows the input text.
func Tokenize(text string) []string {
	cleaned := nonToken.ReplaceAllString(strings.ToLower(text), " ")
	fields := strings.Fields(cleaned)
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if utf8.RuneCountInString(field) > 1 {
			tokens = append(tokens, field)
		}
	}
	return tokens
}
