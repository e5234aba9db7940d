package orchestratornode

import (
	"context"

	"github.com/rs/zerolog/log"
)

// RunSpecialist runs the tool loop. A loop failure is kept on the state so the
// reply can degrade to an apology instead of failing the query.
func RunSpecialist(ctx context.Context, in *GraphState, runner SpecialistRunner) (*GraphState, error) {
	if err := requireState(in); err != nil {
		return nil, err
	}

	res, err := runner.Run(ctx, in.Specialist, in.Query)
	in.Result = res
	if err != nil {
		in.RunErr = err
		log.Ctx(ctx).Warn().Err(err).
			Str("session_id", in.Query.SessionID).
			Str("specialist", string(in.Specialist.Name)).
			Int("iterations", res.Iterations).
			Msg("specialist loop failed")
	}
	return in, nil
}
