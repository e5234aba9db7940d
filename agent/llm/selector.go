package llm

import (
	"strings"
	"unicode"
	"unicode/utf8"

	contractx "github.com/tanpawarit/albaqer-concierge/agent/contract"
)

const (
	defaultLongQueryChars  = 240
	defaultMaxFastMessages = 5
)

var defaultTriggerTerms = []string{
	"compare", "comparison", "recommend", "best", "difference",
	"analyze", "analyse", "explain", "versus", "vs", "better than",
}

type SelectorConfig struct {
	LongQueryChars  int
	MaxFastMessages int
	TriggerTerms    []string
}

// Call describes one model call awaiting a backend.
type Call struct {
	QueryText       string
	Preferred       contractx.BackendID
	AlwaysReasoning bool
	MessageCount    int
}

// Selector picks a backend per call from the query text alone. It is a pure
// function of its input and safe for concurrent use.
type Selector struct {
	longQueryChars  int
	maxFastMessages int
	words           map[string]struct{}
	phrases         []string
}

func NewSelector(cfg SelectorConfig) Selector {
	s := Selector{
		longQueryChars:  cfg.LongQueryChars,
		maxFastMessages: cfg.MaxFastMessages,
		words:           map[string]struct{}{},
	}
	if s.longQueryChars <= 0 {
		s.longQueryChars = defaultLongQueryChars
	}
	if s.maxFastMessages <= 0 {
		s.maxFastMessages = defaultMaxFastMessages
	}

	terms := cfg.TriggerTerms
	if len(terms) == 0 {
		terms = defaultTriggerTerms
	}
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		switch {
		case term == "":
		case strings.ContainsFunc(term, unicode.IsSpace):
			s.phrases = append(s.phrases, strings.Join(strings.Fields(term), " "))
		default:
			s.words[term] = struct{}{}
		}
	}
	return s
}

func (s Selector) Select(c Call) contractx.BackendID {
	if c.AlwaysReasoning || s.IsComplex(c.QueryText) || c.MessageCount > s.maxFastMessages {
		return contractx.BackendReasoning
	}
	if c.Preferred == "" {
		return contractx.BackendFast
	}
	return c.Preferred
}

// IsComplex reports whether the text asks for comparison or analysis, or is
// long enough to warrant the higher-capability backend.
func (s Selector) IsComplex(text string) bool {
	if utf8.RuneCountInString(strings.TrimSpace(text)) >= s.longQueryChars {
		return true
	}

	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		if s.matchesWord(tok) {
			return true
		}
	}
	if len(s.phrases) > 0 {
		joined := " " + strings.Join(tokens, " ") + " "
		for _, p := range s.phrases {
			if strings.Contains(joined, " "+p+" ") {
				return true
			}
		}
	}
	return false
}

// inflections are the endings matchesWord accepts after a trigger stem.
var inflections = []string{"s", "es", "ed", "ing", "ation", "ations"}

// matchesWord accepts inflections ("comparing", "recommended") of trigger
// words of four letters or more. Other continuations ("bestow",
// "explainer") do not match.
func (s Selector) matchesWord(tok string) bool {
	if _, ok := s.words[tok]; ok {
		return true
	}
	for w := range s.words {
		if len(w) < 4 || len(tok) <= len(w) {
			continue
		}
		rest, ok := strings.CutPrefix(tok, stem(w))
		if !ok {
			continue
		}
		for _, suffix := range inflections {
			if rest == suffix {
				return true
			}
		}
	}
	return false
}

func stem(w string) string {
	return strings.TrimSuffix(w, "e")
}
