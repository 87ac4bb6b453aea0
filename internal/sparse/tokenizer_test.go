// File path: internal/sparse/tokenizer_test.go
package sparse

import (
	"reflect"
	"testing"
)

func TestTokenizeLowercasesAndStripsPunctuation(t *testing.T) {
	got := Tokenize("CRISPR-Cas9, Gene Editing!")
	want := []string{"crispr-cas9", "gene", "editing"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestTokenizeKeepsHyphens(t *testing.T) {
	got := Tokenize("state-of-the-art RNA-seq")
	want := []string{"state-of-the-art", "rna-seq"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestTokenizeDropsSingleCharacterTokens(t *testing.T) {
	got := Tokenize("a T cell b")
	want := []string{"cell"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestTokenizeKeepsNonASCIILetters(t *testing.T) {
	got := Tokenize("α-synuclein aggregates; β amyloid")
	want := []string{"α-synuclein", "aggregates", "amyloid"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestTokenizeEmpty(t *testing.T) {
	if got := Tokenize("   "); len(got) != 0 {
		t.Fatalf("expected no tokens, got %v", got)
	}
}
