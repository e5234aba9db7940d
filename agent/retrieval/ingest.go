package retrieval

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is one knowledge article before embedding.
type Document struct {
	ID       string            `yaml:"id"`
	Title    string            `yaml:"title"`
	Body     string            `yaml:"body"`
	Category string            `yaml:"category"`
	Metadata map[string]string `yaml:"metadata,omitempty"`
}

type documentFile struct {
	Documents []Document `yaml:"documents"`
}

// Sink stores embedded entries, replacing rows with the same ID.
type Sink interface {
	UpsertEntries(ctx context.Context, entries []KnowledgeEntry) error
}

func LoadDocuments(r io.Reader) ([]Document, error) {
	var file documentFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode knowledge documents: %w", err)
	}
	for i, doc := range file.Documents {
		if strings.TrimSpace(doc.ID) == "" || strings.TrimSpace(doc.Title) == "" || strings.TrimSpace(doc.Body) == "" {
			return nil, fmt.Errorf("%w: document %d needs id, title and body", ErrDocumentIncomplete, i)
		}
	}
	return file.Documents, nil
}

// Ingest embeds every document with one embedder so the stored corpus shares a
// single version and dimension. Nothing is written if any document fails.
func Ingest(ctx context.Context, embedder Embedder, sink Sink, docs []Document) (int, error) {
	entries := make([]KnowledgeEntry, 0, len(docs))
	for _, doc := range docs {
		vector, err := embedder.Embed(ctx, doc.Title+"\n\n"+doc.Body)
		if err != nil {
			return 0, fmt.Errorf("embed document %s: %w", doc.ID, err)
		}
		if len(vector) != embedder.Dimension() {
			return 0, fmt.Errorf("%w: document %s has %d, want %d", ErrDimensionMismatch, doc.ID, len(vector), embedder.Dimension())
		}
		entries = append(entries, KnowledgeEntry{
			ID:               strings.TrimSpace(doc.ID),
			Title:            strings.TrimSpace(doc.Title),
			Body:             strings.TrimSpace(doc.Body),
			Category:         strings.TrimSpace(doc.Category),
			Embedding:        vector,
			EmbeddingVersion: embedder.Version(),
			Metadata:         doc.Metadata,
		})
	}
	if len(entries) == 0 {
		return 0, nil
	}
	if err := sink.UpsertEntries(ctx, entries); err != nil {
		return 0, fmt.Errorf("store knowledge entries: %w", err)
	}
	return len(entries), nil
}
