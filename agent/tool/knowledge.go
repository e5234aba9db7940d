package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/albaqer-concierge/agent/contract"
	datastorex "github.com/tanpawarit/albaqer-concierge/agent/datastore"
	retrievalx "github.com/tanpawarit/albaqer-concierge/agent/retrieval"
)

const (
	ToolGetStoneInfo     = "get_stone_info"
	ToolGetKnowledgeBase = "get_knowledge_base"
)

type stoneInfoArgs struct {
	StoneName string `json:"stone_name" validate:"required,max=100"`
}

func (a *stoneInfoArgs) normalize() {
	a.StoneName = strings.TrimSpace(a.StoneName)
}

func getStoneInfoTool(catalog datastorex.Catalog) Tool {
	return define(ToolGetStoneInfo,
		"Get details about a gemstone including its Islamic and cultural significance.",
		map[string]*schema.ParameterInfo{
			"stone_name": {Type: schema.String, Desc: "Stone name, e.g. Aqeeq or Turquoise", Required: true},
		},
		func(ctx context.Context, args stoneInfoArgs) (Output, error) {
			stone, err := catalog.Stone(ctx, args.StoneName)
			if errors.Is(err, datastorex.ErrNotFound) {
				return Output{Result: notFound("Stone")}, nil
			}
			if err != nil {
				return Output{}, fmt.Errorf("stone info: %w", err)
			}
			return Output{Result: stone}, nil
		},
	)
}

type knowledgeArgs struct {
	Topic    string `json:"topic" validate:"required,max=300"`
	Category string `json:"category" validate:"max=100"`
}

func (a *knowledgeArgs) normalize() {
	a.Topic = strings.TrimSpace(a.Topic)
	a.Category = strings.TrimSpace(a.Category)
}

type KnowledgeArticle struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Content        string  `json:"content"`
	Category       string  `json:"category,omitempty"`
	RelevanceScore float64 `json:"relevance_score"`
	Mode           string  `json:"mode"`
}

func knowledgeBaseTool(searcher Searcher) Tool {
	return define(ToolGetKnowledgeBase,
		"Search the knowledge base (stone care, Islamic guidance, store policies) for relevant articles.",
		map[string]*schema.ParameterInfo{
			"topic":    {Type: schema.String, Desc: "Topic to search, e.g. aqeeq care or zakat on jewelry", Required: true},
			"category": {Type: schema.String, Desc: "Optional article category to restrict the search"},
		},
		func(ctx context.Context, args knowledgeArgs) (Output, error) {
			if searcher == nil {
				return Output{}, errors.New("knowledge base is not configured")
			}

			var filter retrievalx.Filter
			if args.Category != "" {
				filter = retrievalx.MatchMetadata(map[string]string{"category": args.Category})
			}
			matches, err := searcher.Search(ctx, args.Topic, retrievalx.DefaultTopK, filter)
			if err != nil {
				return Output{}, fmt.Errorf("knowledge search: %w", err)
			}
			if len(matches) == 0 {
				return Output{Result: map[string]any{"error": "No relevant information found"}}, nil
			}

			articles := make([]KnowledgeArticle, 0, len(matches))
			sources := make([]contractx.Source, 0, len(matches))
			for _, m := range matches {
				articles = append(articles, KnowledgeArticle{
					ID:             m.Entry.ID,
					Title:          m.Entry.Title,
					Content:        m.Entry.Body,
					Category:       m.Entry.Category,
					RelevanceScore: m.Score,
					Mode:           string(m.Mode),
				})
				sources = append(sources, contractx.Source{
					ID:       m.Entry.ID,
					Title:    m.Entry.Title,
					Category: m.Entry.Category,
					Score:    m.Score,
				})
			}
			return Output{Result: articles, Sources: sources}, nil
		},
	)
}
