package specialist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/albaqer-concierge/agent/contract"
	llmx "github.com/tanpawarit/albaqer-concierge/agent/llm"
	metricsx "github.com/tanpawarit/albaqer-concierge/agent/metrics"
	toolx "github.com/tanpawarit/albaqer-concierge/agent/tool"
)

const (
	DefaultMaxIterations = 5
	maxIterationsCeiling = 9

	DefaultFallbackMessage = "I apologize, but I wasn't able to complete that request. Please try again."
)

type LoopConfig struct {
	MaxIterations int    `envconfig:"MAX_ITERATIONS" default:"5"`
	Fallback      string `envconfig:"FALLBACK_MESSAGE"`
}

// Result is the outcome of one loop run.
type Result struct {
	Answer      string
	Invocations []contractx.ToolInvocation
	Sources     []contractx.Source
	Iterations  int
	Backends    []contractx.BackendID
	CapReached  bool
}

// Loop alternates model calls and tool calls until the model answers or the
// iteration cap is hit. It keeps no state between runs.
type Loop struct {
	gateway       contractx.ModelGateway
	selector      llmx.Selector
	maxIterations int
	fallback      string
}

func NewLoop(gateway contractx.ModelGateway, selector llmx.Selector, cfg LoopConfig) (*Loop, error) {
	if gateway == nil {
		return nil, fmt.Errorf("%w: model gateway is required", contractx.ErrValidation)
	}
	limit := cfg.MaxIterations
	if limit == 0 {
		limit = DefaultMaxIterations
	}
	if limit < 1 || limit > maxIterationsCeiling {
		return nil, fmt.Errorf("%w: max iterations must be between 1 and %d, got %d", contractx.ErrValidation, maxIterationsCeiling, limit)
	}
	fallback := strings.TrimSpace(cfg.Fallback)
	if fallback == "" {
		fallback = DefaultFallbackMessage
	}
	return &Loop{gateway: gateway, selector: selector, maxIterations: limit, fallback: fallback}, nil
}

// Run answers q with the given specialist. A gateway failure is returned as
// is; tool failures are fed back to the model and never surface as errors.
func (l *Loop) Run(ctx context.Context, spec *Specialist, q contractx.Query) (Result, error) {
	if spec == nil {
		return Result{}, fmt.Errorf("%w: specialist is required", contractx.ErrValidation)
	}
	ctx = toolx.ContextWithSession(ctx, q.SessionID)
	logger := log.Ctx(ctx).With().Str("specialist", string(spec.Name)).Logger()

	var (
		res      Result
		lastText string
		seen     = map[string]struct{}{}
		messages = []*schema.Message{schema.UserMessage(q.Text)}
	)
	defer func() {
		metricsx.LoopIterations.WithLabelValues(string(spec.Name)).Observe(float64(res.Iterations))
	}()

	for round := 1; round <= l.maxIterations; round++ {
		backend := l.selector.Select(llmx.Call{
			QueryText:       q.Text,
			Preferred:       spec.Preferred,
			AlwaysReasoning: spec.AlwaysReasoning,
			MessageCount:    len(messages),
		})
		res.Iterations = round
		res.Backends = append(res.Backends, backend)

		out, err := l.gateway.Generate(ctx, backend, contractx.ModelRequest{
			System:   spec.Instructions,
			Messages: messages,
			Tools:    spec.infos,
		})
		if err != nil {
			return res, err
		}
		if out.Text != "" {
			lastText = out.Text
		}

		if out.IsFinal() || len(out.ToolCalls) == 0 {
			res.Answer = l.answer(out.Text, lastText)
			return res, nil
		}

		calls := withCallIDs(out.ToolCalls, round)
		messages = append(messages, assistantMessage(out, calls))
		for _, call := range calls {
			name := strings.TrimSpace(call.Function.Name)
			tr := spec.invoke(ctx, name, call.Function.Arguments)
			content, inv := record(name, call.Function.Arguments, tr)

			messages = append(messages, schema.ToolMessage(content, call.ID))
			res.Invocations = append(res.Invocations, inv)
			for _, src := range tr.Sources {
				if _, dup := seen[src.ID]; dup {
					continue
				}
				seen[src.ID] = struct{}{}
				res.Sources = append(res.Sources, src)
			}
		}
	}

	res.CapReached = true
	res.Answer = l.answer("", lastText)
	logger.Warn().
		Int("iterations", res.Iterations).
		Int("tool_invocations", len(res.Invocations)).
		Msg("tool loop reached iteration cap")
	return res, nil
}

func (l *Loop) answer(text, lastText string) string {
	if text != "" {
		return text
	}
	if lastText != "" {
		return lastText
	}
	return l.fallback
}

func (s *Specialist) invoke(ctx context.Context, tool, rawArgs string) contractx.ToolResult {
	if s.execute == nil {
		return toolx.DefaultExecutor(string(s.Name))(ctx, tool, rawArgs)
	}
	return s.execute(ctx, tool, rawArgs)
}

// withCallIDs copies calls, filling any missing ID so each tool message can
// reference its call.
func withCallIDs(calls []schema.ToolCall, round int) []schema.ToolCall {
	out := make([]schema.ToolCall, len(calls))
	for i, call := range calls {
		if strings.TrimSpace(call.ID) == "" {
			call.ID = fmt.Sprintf("call_%d_%d", round, i+1)
		}
		if call.Type == "" {
			call.Type = "function"
		}
		out[i] = call
	}
	return out
}

func assistantMessage(out contractx.ModelOutput, calls []schema.ToolCall) *schema.Message {
	msg := schema.AssistantMessage(out.Text, calls)
	if out.Message != nil {
		copied := *out.Message
		copied.ToolCalls = calls
		msg = &copied
	}
	return msg
}

var errResultEncode = errors.New("tool result could not be encoded")

// record renders the tool message body and the invocation record for one call.
func record(tool, rawArgs string, tr contractx.ToolResult) (string, contractx.ToolInvocation) {
	inv := contractx.ToolInvocation{Tool: tool, Arguments: rawArgs}
	if tr.Error != "" {
		inv.Error = tr.Error
		return errorBody(tr.Error), inv
	}
	body, err := json.Marshal(tr.Result)
	if err != nil {
		inv.Error = fmt.Sprintf("%v: %v", errResultEncode, err)
		return errorBody(inv.Error), inv
	}
	inv.Result = string(body)
	return inv.Result, inv
}

func errorBody(msg string) string {
	body, _ := json.Marshal(map[string]string{"error": msg})
	return string(body)
}
