package retrieval

import (
	"context"
	"sort"
	"sync"
)

// MemoryCorpus is a Corpus and Sink held in process. Local runs ingest into
// it when no database is configured.
type MemoryCorpus struct {
	mu      sync.RWMutex
	entries map[string]KnowledgeEntry
}

var (
	_ Corpus = (*MemoryCorpus)(nil)
	_ Sink   = (*MemoryCorpus)(nil)
)

func NewMemoryCorpus() *MemoryCorpus {
	return &MemoryCorpus{entries: map[string]KnowledgeEntry{}}
}

// FromDocuments builds a corpus of unembedded entries. Only the lexical
// fallback can rank them.
func FromDocuments(docs []Document) *MemoryCorpus {
	c := NewMemoryCorpus()
	for _, d := range docs {
		c.entries[d.ID] = KnowledgeEntry{ID: d.ID, Title: d.Title, Body: d.Body, Category: d.Category, Metadata: d.Metadata}
	}
	return c
}

func (c *MemoryCorpus) UpsertEntries(_ context.Context, entries []KnowledgeEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range entries {
		c.entries[e.ID] = e
	}
	return nil
}

// Entries returns a snapshot ordered by ID.
func (c *MemoryCorpus) Entries(context.Context) ([]KnowledgeEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]KnowledgeEntry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
