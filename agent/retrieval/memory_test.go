package retrieval

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCorpusUpsertReplacesByID(t *testing.T) {
	t.Parallel()

	c := NewMemoryCorpus()
	ctx := context.Background()
	require.NoError(t, c.UpsertEntries(ctx, []KnowledgeEntry{{ID: "b", Title: "old"}, {ID: "a", Title: "A"}}))
	require.NoError(t, c.UpsertEntries(ctx, []KnowledgeEntry{{ID: "b", Title: "new"}}))

	entries, err := c.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].ID)
	assert.Equal(t, "new", entries[1].Title)
}

func TestFromDocumentsSearchesLexically(t *testing.T) {
	t.Parallel()

	docs, err := LoadDocuments(strings.NewReader(sampleDocuments))
	require.NoError(t, err)

	engine, err := NewEngine(nil, FromDocuments(docs))
	require.NoError(t, err)

	matches, err := engine.Search(context.Background(), "what is aqeeq", DefaultTopK, nil)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "aqeeq", matches[0].Entry.ID)
	assert.Equal(t, ModeLexical, matches[0].Mode)
}
