package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	contractx "github.com/tanpawarit/albaqer-concierge/agent/contract"
	metricsx "github.com/tanpawarit/albaqer-concierge/agent/metrics"
)

var tracer = otel.Tracer("albaqer-concierge/retrieval")

// Engine ranks the whole corpus against a query on every search. There is no
// index; the scan is linear in corpus size.
type Engine struct {
	embedder Embedder
	corpus   Corpus
}

func NewEngine(embedder Embedder, corpus Corpus) (*Engine, error) {
	if corpus == nil {
		return nil, errors.New("knowledge corpus is required")
	}
	return &Engine{embedder: embedder, corpus: corpus}, nil
}

// Search returns at most k entries in non-increasing score order. When the
// embedder fails it falls back to a lexical match and still returns a list.
// An error is returned only when the corpus itself cannot be read.
func (e *Engine) Search(ctx context.Context, text string, k int, filter Filter) ([]Match, error) {
	ctx, span := tracer.Start(ctx, "retrieval.search")
	defer span.End()

	if k <= 0 {
		k = DefaultTopK
	}
	span.SetAttributes(attribute.Int("retrieval.k", k))

	entries, err := e.corpus.Entries(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load corpus")
		return nil, fmt.Errorf("%w: %v", ErrCorpusUnavailable, err)
	}
	eligible := applyFilter(entries, filter)

	vector, err := e.embed(ctx, text)
	if err != nil {
		log.Ctx(ctx).Warn().
			Err(fmt.Errorf("%w: %v", contractx.ErrRetrievalDegraded, err)).
			Int("eligible", len(eligible)).
			Msg("embedding unavailable, using lexical match")
		metricsx.RetrievalSearches.WithLabelValues(string(ModeLexical)).Inc()
		span.SetAttributes(attribute.String("retrieval.mode", string(ModeLexical)))
		return Lexical(eligible, text, k), nil
	}

	matches, usable := e.rank(ctx, eligible, vector, k)
	if usable == 0 && len(eligible) > 0 {
		log.Ctx(ctx).Warn().
			Err(fmt.Errorf("%w: no entry shares embedder version %s", contractx.ErrRetrievalDegraded, e.embedder.Version())).
			Int("eligible", len(eligible)).
			Msg("corpus not comparable with query vector, using lexical match")
		metricsx.RetrievalSearches.WithLabelValues(string(ModeLexical)).Inc()
		span.SetAttributes(attribute.String("retrieval.mode", string(ModeLexical)))
		return Lexical(eligible, text, k), nil
	}

	metricsx.RetrievalSearches.WithLabelValues(string(ModeSemantic)).Inc()
	span.SetAttributes(attribute.String("retrieval.mode", string(ModeSemantic)))
	return matches, nil
}

func (e *Engine) embed(ctx context.Context, text string) ([]float64, error) {
	if e.embedder == nil {
		return nil, errors.New("no embedder configured")
	}
	vector, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return nil, ErrEmbeddingEmpty
	}
	return vector, nil
}

// rank scores the entries comparable with vector. The second result is how
// many entries were comparable at all.
func (e *Engine) rank(ctx context.Context, entries []KnowledgeEntry, vector []float64, k int) ([]Match, int) {
	version := e.embedder.Version()
	matches := make([]Match, 0, len(entries))
	for _, entry := range entries {
		if entry.EmbeddingVersion != "" && entry.EmbeddingVersion != version {
			log.Ctx(ctx).Debug().Str("entry_id", entry.ID).Str("entry_version", entry.EmbeddingVersion).
				Str("query_version", version).Msg("skipping entry embedded with another version")
			continue
		}
		if len(entry.Embedding) != len(vector) {
			log.Ctx(ctx).Debug().Str("entry_id", entry.ID).Int("entry_dim", len(entry.Embedding)).
				Int("query_dim", len(vector)).Msg("skipping entry with mismatched dimension")
			continue
		}
		matches = append(matches, Match{Entry: entry, Score: Cosine(vector, entry.Embedding), Mode: ModeSemantic})
	}
	return topK(matches, k), len(matches)
}

// Lexical ranks entries by how many query tokens appear in their title and
// body. It never fails; no overlap yields an empty list.
func Lexical(entries []KnowledgeEntry, text string, k int) []Match {
	if k <= 0 {
		k = DefaultTopK
	}
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return []Match{}
	}
	query := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		query[tok] = struct{}{}
	}

	matches := make([]Match, 0, len(entries))
	for _, entry := range entries {
		if n := lexicalScore(query, entry); n > 0 {
			matches = append(matches, Match{Entry: entry, Score: float64(n), Mode: ModeLexical})
		}
	}
	return topK(matches, k)
}

func applyFilter(entries []KnowledgeEntry, filter Filter) []KnowledgeEntry {
	if filter == nil {
		return entries
	}
	out := make([]KnowledgeEntry, 0, len(entries))
	for _, entry := range entries {
		if filter(entry) {
			out = append(out, entry)
		}
	}
	return out
}

func topK(matches []Match, k int) []Match {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}
