// Package orchestrator is the query boundary: one Query in, one ChatResponse
// out.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	contractx "github.com/tanpawarit/albaqer-concierge/agent/contract"
	metricsx "github.com/tanpawarit/albaqer-concierge/agent/metrics"
	nodex "github.com/tanpawarit/albaqer-concierge/agent/nodes"
	statex "github.com/tanpawarit/albaqer-concierge/agent/state"
	transcriptx "github.com/tanpawarit/albaqer-concierge/agent/transcript"
)

var ErrInvalidMessage = nodex.ErrInvalidMessage

var tracer = otel.Tracer("albaqer-concierge/orchestrator")

// Deps wires the orchestrator. Store and Recorder are optional.
type Deps struct {
	Router   nodex.Router
	Registry nodex.SpecialistResolver
	Loop     nodex.SpecialistRunner
	Store    statex.Store
	Recorder transcriptx.Recorder
}

type Orchestrator struct {
	router   nodex.Router
	registry nodex.SpecialistResolver
	loop     nodex.SpecialistRunner
	store    statex.Store
	recorder transcriptx.Recorder

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now func() time.Time
}

func New(deps Deps) (*Orchestrator, error) {
	if deps.Router == nil {
		return nil, errors.New("router is required")
	}
	if deps.Registry == nil {
		return nil, errors.New("specialist registry is required")
	}
	if deps.Loop == nil {
		return nil, errors.New("tool loop is required")
	}

	o := &Orchestrator{
		router:   deps.Router,
		registry: deps.Registry,
		loop:     deps.Loop,
		store:    deps.Store,
		recorder: deps.Recorder,
		now:      time.Now,
	}

	graphRunner, err := o.compileHandleQueryGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// Handle answers one query. Only an invalid query or a total backend outage
// is returned as an error; every other failure becomes a ChatResponse.
func (o *Orchestrator) Handle(ctx context.Context, q contractx.Query) (contractx.ChatResponse, error) {
	ctx, span := tracer.Start(ctx, "orchestrator.handle", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	started := o.now()
	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{Query: q})
	if err != nil {
		outcome := "unavailable"
		if errors.Is(err, contractx.ErrValidation) {
			outcome = "invalid"
		}
		metricsx.QueriesHandled.WithLabelValues(outcome).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		log.Ctx(ctx).Error().Err(err).
			Str("session_id", q.SessionID).
			Str("outcome", outcome).
			Msg("query not handled")
		return contractx.ChatResponse{}, err
	}

	resp := out.Response
	outcome := "ok"
	if _, failed := resp.Metadata[nodex.MetaError]; failed {
		outcome = "degraded"
	}
	metricsx.QueriesHandled.WithLabelValues(outcome).Inc()
	span.SetAttributes(
		attribute.String("session_id", resp.SessionID),
		attribute.String("specialist", string(resp.Specialist)),
		attribute.String("outcome", outcome),
	)
	log.Ctx(ctx).Info().
		Str("session_id", resp.SessionID).
		Str("specialist", string(resp.Specialist)).
		Str("outcome", outcome).
		Int("sources", len(resp.Sources)).
		Dur("elapsed", o.now().Sub(started)).
		Msg("query handled")
	return resp, nil
}
