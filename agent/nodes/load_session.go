package orchestratornode

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	statex "github.com/tanpawarit/albaqer-concierge/agent/state"
)

// LoadSession attaches the stored session, or a fresh one. Store failures
// never stop the query.
func LoadSession(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if err := requireState(in); err != nil {
		return nil, err
	}
	in.Session = loadSession(ctx, in, store)
	return in, nil
}

func loadSession(ctx context.Context, in *GraphState, store statex.Store) *statex.Session {
	if store == nil {
		return statex.NewSession(in.Query.SessionID, in.Now)
	}
	sess, err := store.Load(ctx, in.Query.SessionID)
	if err == nil {
		return sess
	}
	if !errors.Is(err, statex.ErrSessionNotFound) {
		log.Ctx(ctx).Warn().Err(err).
			Str("session_id", in.Query.SessionID).
			Msg("session load failed, starting a new session")
	}
	return statex.NewSession(in.Query.SessionID, in.Now)
}
