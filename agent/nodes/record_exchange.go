package orchestratornode

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	transcriptx "github.com/tanpawarit/albaqer-concierge/agent/transcript"
)

// RecordExchange hands the finished exchange to the transcript recorder, if any.
func RecordExchange(ctx context.Context, in *GraphState, recorder transcriptx.Recorder, nowFn func() time.Time) (GraphOutput, error) {
	if err := requireState(in); err != nil {
		return GraphOutput{}, err
	}
	if recorder == nil {
		return GraphOutput{Response: in.Response}, nil
	}

	err := recorder.Record(ctx, transcriptx.Exchange{
		SessionID:   in.Query.SessionID,
		Query:       in.Query.Text,
		Response:    in.Response,
		Specialist:  in.Response.Specialist,
		Failed:      in.RunErr != nil,
		ReceivedAt:  in.Now,
		CompletedAt: nowFn().UTC(),
	})
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).
			Str("session_id", in.Query.SessionID).
			Msg("transcript record failed")
	}
	return GraphOutput{Response: in.Response}, nil
}
