package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/albaqer-concierge/agent/contract"
)

func ResolveSpecialist(ctx context.Context, in *GraphState, resolver SpecialistResolver) (*GraphState, error) {
	if err := requireState(in); err != nil {
		return nil, err
	}
	spec := resolver.Resolve(ctx, in.Decision.Specialist)
	if spec == nil {
		return nil, fmt.Errorf("%w: no specialist for %q", contractx.ErrUnknownSpecialist, in.Decision.Specialist)
	}
	in.Specialist = spec
	return in, nil
}
