package orchestratornode

import (
	"strings"

	contractx "github.com/tanpawarit/albaqer-concierge/agent/contract"
)

// Response metadata keys.
const (
	MetaRoutedBackend   = "routed_backend"
	MetaRoutingFallback = "routing_fallback"
	MetaBackends        = "backends"
	MetaIterations      = "iterations"
	MetaCapReached      = "cap_reached"
	MetaToolInvocations = "tool_invocations"
	MetaTurn            = "turn"
	MetaError           = "error"
)

func FinalizeReply(in *GraphState) (*GraphState, error) {
	if err := requireState(in); err != nil {
		return nil, err
	}

	text := strings.TrimSpace(in.Result.Answer)
	if in.RunErr != nil || text == "" {
		text = ApologyMessage
	}

	sources := in.Result.Sources
	if sources == nil {
		sources = []contractx.Source{}
	}
	invocations := in.Result.Invocations
	if invocations == nil {
		invocations = []contractx.ToolInvocation{}
	}

	meta := map[string]any{
		MetaRoutedBackend:   string(in.Decision.Backend),
		MetaRoutingFallback: in.Decision.Fallback,
		MetaBackends:        in.Result.Backends,
		MetaIterations:      in.Result.Iterations,
		MetaCapReached:      in.Result.CapReached,
		MetaToolInvocations: invocations,
	}
	if in.Session != nil {
		meta[MetaTurn] = in.Session.Turns
	}
	if in.RunErr != nil {
		meta[MetaError] = in.RunErr.Error()
	}

	in.Response = contractx.ChatResponse{
		SessionID:  in.Query.SessionID,
		Text:       text,
		Specialist: in.Specialist.Name,
		Sources:    sources,
		Metadata:   meta,
	}
	return in, nil
}
