package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	nodex "github.com/tanpawarit/albaqer-concierge/agent/nodes"
)

const graphName = "orchestrator.handle_query"

func (o *Orchestrator) compileHandleQueryGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	nodes := []struct {
		key    string
		lambda *compose.Lambda
	}{
		{"validate_request", compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, o.now)
		})},
		{"load_session", compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.LoadSession(ctx, in, o.store)
		})},
		{"route_query", compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.RouteQuery(ctx, in, o.router)
		})},
		{"resolve_specialist", compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ResolveSpecialist(ctx, in, o.registry)
		})},
		{"run_specialist", compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.RunSpecialist(ctx, in, o.loop)
		})},
		{"save_session", compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.SaveSession(ctx, in, o.store)
		})},
		{"finalize_reply", compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.FinalizeReply(in)
		})},
		{"record_exchange", compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.RecordExchange(ctx, in, o.recorder, o.now)
		})},
	}

	prev := compose.START
	for _, n := range nodes {
		if err := graph.AddLambdaNode(n.key, n.lambda); err != nil {
			return nil, fmt.Errorf("add node %s: %w", n.key, err)
		}
		if err := graph.AddEdge(prev, n.key); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", prev, n.key, err)
		}
		prev = n.key
	}
	if err := graph.AddEdge(prev, compose.END); err != nil {
		return nil, fmt.Errorf("add edge %s->%s: %w", prev, compose.END, err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName(graphName))
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}
