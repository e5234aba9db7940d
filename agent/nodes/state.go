package orchestratornode

import (
	"context"
	"errors"
	"fmt"
	"time"

	specialistx "github.com/tanpawarit/albaqer-concierge/agent/agents/specialist"
	contractx "github.com/tanpawarit/albaqer-concierge/agent/contract"
	statex "github.com/tanpawarit/albaqer-concierge/agent/state"
)

var ErrInvalidMessage = fmt.Errorf("%w: message is empty", contractx.ErrValidation)

// ApologyMessage replaces the answer when the specialist could not run.
const ApologyMessage = "I'm sorry, I'm having trouble answering right now. Please try again in a moment."

type Router interface {
	Route(ctx context.Context, q contractx.Query) (contractx.RoutingDecision, error)
	RouteWith(ctx context.Context, q contractx.Query, backend contractx.BackendID) (contractx.RoutingDecision, error)
}

type SpecialistResolver interface {
	Resolve(ctx context.Context, name contractx.SpecialistName) *specialistx.Specialist
}

type SpecialistRunner interface {
	Run(ctx context.Context, spec *specialistx.Specialist, q contractx.Query) (specialistx.Result, error)
}

type GraphInput struct {
	Query contractx.Query
}

type GraphOutput struct {
	Response contractx.ChatResponse
}

// GraphState is owned by a single Handle call and threaded through every node.
type GraphState struct {
	Query contractx.Query
	Now   time.Time

	Session *statex.Session

	Decision     contractx.RoutingDecision
	RouteRetried bool
	Specialist   *specialistx.Specialist

	Result specialistx.Result
	RunErr error

	Response contractx.ChatResponse
}

var errNilState = errors.New("graph state is nil")

func requireState(in *GraphState) error {
	if in == nil {
		return fmt.Errorf("%w: %v", contractx.ErrValidation, errNilState)
	}
	return nil
}
