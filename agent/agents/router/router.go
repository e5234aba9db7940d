// Package router classifies a query into exactly one specialist.
package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	contractx "github.com/tanpawarit/albaqer-concierge/agent/contract"
	llmx "github.com/tanpawarit/albaqer-concierge/agent/llm"
	metricsx "github.com/tanpawarit/albaqer-concierge/agent/metrics"
)

var tracer = otel.Tracer("albaqer-concierge/router")

type Router struct {
	gateway  contractx.ModelGateway
	selector llmx.Selector
	system   string
	names    []contractx.SpecialistName
}

// New builds a router whose system prompt is instructions followed by the
// roster. names is the closed set the output is parsed against.
func New(gateway contractx.ModelGateway, selector llmx.Selector, instructions, roster string, names []contractx.SpecialistName) (*Router, error) {
	if gateway == nil {
		return nil, fmt.Errorf("%w: model gateway is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(instructions) == "" {
		return nil, fmt.Errorf("%w: router instructions", contractx.ErrPromptMissing)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: router needs at least one specialist", contractx.ErrValidation)
	}

	system := strings.TrimSpace(instructions)
	if roster = strings.TrimSpace(roster); roster != "" {
		system += "\n\nSpecialists:\n" + roster
	}
	return &Router{
		gateway:  gateway,
		selector: selector,
		system:   system,
		names:    append([]contractx.SpecialistName(nil), names...),
	}, nil
}

// Backend is where the primary routing call goes. Routing is always treated
// as a reasoning call.
func (r *Router) Backend(q contractx.Query) contractx.BackendID {
	return r.selector.Select(llmx.Call{QueryText: q.Text, AlwaysReasoning: true})
}

func (r *Router) Route(ctx context.Context, q contractx.Query) (contractx.RoutingDecision, error) {
	return r.RouteWith(ctx, q, r.Backend(q))
}

// RouteWith classifies q on an explicit backend. Unparseable output resolves
// to the default specialist; only a gateway failure is an error.
func (r *Router) RouteWith(ctx context.Context, q contractx.Query, backend contractx.BackendID) (contractx.RoutingDecision, error) {
	ctx, span := tracer.Start(ctx, "router.route")
	defer span.End()
	span.SetAttributes(attribute.String("router.backend", string(backend)))

	out, err := r.gateway.Generate(ctx, backend, contractx.ModelRequest{
		System:   r.system,
		Messages: []*schema.Message{schema.UserMessage(q.Text)},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "route")
		return contractx.RoutingDecision{Backend: backend}, fmt.Errorf("%w: %w", contractx.ErrRouting, err)
	}

	decision := contractx.RoutingDecision{Raw: out.Text, Backend: backend}
	name, ok := Parse(out.Text, r.names)
	if !ok {
		name = contractx.DefaultSpecialist
		decision.Fallback = true
		log.Ctx(ctx).Warn().
			Str("backend", string(backend)).
			Str("raw", truncate(out.Text, 120)).
			Str("specialist", string(name)).
			Msg("router output unrecognised, using default specialist")
	}
	decision.Specialist = name

	span.SetAttributes(
		attribute.String("router.specialist", string(name)),
		attribute.Bool("router.fallback", decision.Fallback),
	)
	metricsx.RoutingDecisions.WithLabelValues(string(name), fmt.Sprint(decision.Fallback)).Inc()
	return decision, nil
}

// Parse maps raw model output onto one of names. An exact match wins;
// otherwise the longest name contained in the output is chosen.
func Parse(raw string, names []contractx.SpecialistName) (contractx.SpecialistName, bool) {
	norm := normalize(raw)
	if norm == "" {
		return "", false
	}

	var best contractx.SpecialistName
	for _, name := range names {
		if norm == string(name) {
			return name, true
		}
		if strings.Contains(norm, string(name)) && len(name) > len(best) {
			best = name
		}
	}
	return best, best != ""
}

func normalize(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '\t', '\n':
			return '_'
		}
		return r
	}, s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
