package tool

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	datastorex "github.com/tanpawarit/albaqer-concierge/agent/datastore"
)

const ToolSubmitFeedback = "submit_feedback"

type sessionKey struct{}

// ContextWithSession attaches the session a tool call is made on behalf of.
func ContextWithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey{}, sessionID)
}

func SessionFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

type feedbackArgs struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=1000"`
}

func (a *feedbackArgs) normalize() {
	a.Comment = strings.TrimSpace(a.Comment)
}

func submitFeedbackTool(catalog datastorex.Catalog, now func() time.Time) Tool {
	return define(ToolSubmitFeedback,
		"Record the customer's rating (1 to 5) and comment about their experience.",
		map[string]*schema.ParameterInfo{
			"rating":  {Type: schema.Integer, Desc: "Rating from 1 (poor) to 5 (excellent)", Required: true},
			"comment": {Type: schema.String, Desc: "Optional free-text comment"},
		},
		func(ctx context.Context, args feedbackArgs) (Output, error) {
			fb := datastorex.Feedback{
				SessionID: SessionFromContext(ctx),
				Rating:    args.Rating,
				Comment:   args.Comment,
				CreatedAt: now().UTC(),
			}
			if err := catalog.SaveFeedback(ctx, fb); err != nil {
				return Output{}, fmt.Errorf("submit feedback: %w", err)
			}
			return Output{Result: map[string]any{"status": "recorded", "rating": fb.Rating}}, nil
		},
	)
}
