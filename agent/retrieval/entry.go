package retrieval

import (
	"context"
	"errors"
	"strings"
)

const DefaultTopK = 3

var (
	ErrCorpusUnavailable  = errors.New("knowledge corpus unavailable")
	ErrDimensionMismatch  = errors.New("embedding dimension mismatch")
	ErrEmbeddingEmpty     = errors.New("embedding is empty")
	ErrDocumentIncomplete = errors.New("knowledge document is incomplete")
)

type KnowledgeEntry struct {
	ID               string            `json:"id"`
	Title            string            `json:"title"`
	Body             string            `json:"body"`
	Category         string            `json:"category"`
	Embedding        []float64         `json:"embedding,omitempty"`
	EmbeddingVersion string            `json:"embedding_version,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

type Mode string

const (
	ModeSemantic Mode = "semantic"
	ModeLexical  Mode = "lexical"
)

type Match struct {
	Entry KnowledgeEntry
	Score float64
	Mode  Mode
}

// Embedder turns text into a fixed-dimension vector. Version identifies the
// embedding function; vectors from different versions are not comparable.
type Embedder interface {
	Version() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Corpus is the read-only knowledge collection.
type Corpus interface {
	Entries(ctx context.Context) ([]KnowledgeEntry, error)
}

// Filter selects eligible entries. A nil Filter accepts everything.
type Filter func(KnowledgeEntry) bool

// MatchMetadata accepts entries whose metadata equals every pair in want.
// The "category" key compares against the entry category.
func MatchMetadata(want map[string]string) Filter {
	if len(want) == 0 {
		return nil
	}
	return func(e KnowledgeEntry) bool {
		for k, v := range want {
			var got string
			if k == "category" {
				got = e.Category
			} else {
				got = e.Metadata[k]
			}
			if !strings.EqualFold(strings.TrimSpace(got), strings.TrimSpace(v)) {
				return false
			}
		}
		return true
	}
}

// StaticCorpus serves a fixed slice of entries.
type StaticCorpus []KnowledgeEntry

func (c StaticCorpus) Entries(context.Context) ([]KnowledgeEntry, error) {
	return c, nil
}
