package orchestratornode

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/albaqer-concierge/agent/contract"
)

// RouteQuery classifies the query. A failed primary call is retried once on
// the alternate backend; if that fails too the query cannot be served.
func RouteQuery(ctx context.Context, in *GraphState, router Router) (*GraphState, error) {
	if err := requireState(in); err != nil {
		return nil, err
	}

	decision, err := router.Route(ctx, in.Query)
	if err == nil {
		in.Decision = decision
		return in, nil
	}

	alternate := decision.Backend.Alternate()
	log.Ctx(ctx).Warn().Err(err).
		Str("session_id", in.Query.SessionID).
		Str("backend", string(decision.Backend)).
		Str("retry_backend", string(alternate)).
		Msg("routing failed, retrying on alternate backend")

	retried, retryErr := router.RouteWith(ctx, in.Query, alternate)
	if retryErr != nil {
		return nil, fmt.Errorf("%w: %w", contractx.ErrBackendsUnavailable, errors.Join(err, retryErr))
	}
	in.Decision = retried
	in.RouteRetried = true
	return in, nil
}
