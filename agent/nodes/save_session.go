package orchestratornode

import (
	"context"

	"github.com/rs/zerolog/log"

	statex "github.com/tanpawarit/albaqer-concierge/agent/state"
)

// SaveSession records the turn and persists the session when a store is
// configured. A failed save is logged only.
func SaveSession(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if err := requireState(in); err != nil {
		return nil, err
	}
	if in.Session == nil {
		in.Session = statex.NewSession(in.Query.SessionID, in.Now)
	}

	in.Session.Record(statex.Turn{
		Query:      in.Query.Text,
		Specialist: in.Decision.Specialist,
		Backend:    in.Decision.Backend,
		At:         in.Now,
	})

	if store == nil {
		return in, nil
	}
	if err := store.Save(ctx, in.Session); err != nil {
		log.Ctx(ctx).Warn().Err(err).
			Str("session_id", in.Query.SessionID).
			Msg("session save failed")
	}
	return in, nil
}
