package retrieval

import (
	"math"
	"strings"
	"unicode"
)

// Cosine returns dot(a, b) / (|a| * |b|). Vectors of unequal length or zero
// norm score 0.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "about": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "can": {}, "do": {}, "does": {}, "for": {}, "from": {}, "how": {}, "i": {},
	"in": {}, "is": {}, "it": {}, "me": {}, "my": {}, "of": {}, "on": {}, "or": {},
	"tell": {}, "that": {}, "the": {}, "this": {}, "to": {}, "what": {}, "which": {},
	"who": {}, "with": {}, "you": {}, "your": {},
}

// Tokenize lowercases text and splits it on anything that is not a letter or
// digit, dropping stopwords.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if _, stop := stopwords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}

// lexicalScore counts occurrences of any query token among the entry's title
// and body tokens.
func lexicalScore(query map[string]struct{}, e KnowledgeEntry) int {
	count := 0
	for _, tok := range Tokenize(e.Title + " " + e.Body) {
		if _, ok := query[tok]; ok {
			count++
		}
	}
	return count
}
