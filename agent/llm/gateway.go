package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/albaqer-concierge/agent/contract"
	metricsx "github.com/tanpawarit/albaqer-concierge/agent/metrics"
)

// Backend is one provider strategy. Implementations own all request and
// response shaping for their provider.
type Backend interface {
	ID() contractx.BackendID
	Generate(ctx context.Context, req contractx.ModelRequest) (contractx.ModelOutput, error)
}

type chatBackend struct {
	id      contractx.BackendID
	model   einomodel.ToolCallingChatModel
	timeout time.Duration
}

func NewChatBackend(id contractx.BackendID, m einomodel.ToolCallingChatModel, timeout time.Duration) Backend {
	return &chatBackend{id: id, model: m, timeout: timeout}
}

func (b *chatBackend) ID() contractx.BackendID {
	return b.id
}

func (b *chatBackend) Generate(ctx context.Context, req contractx.ModelRequest) (contractx.ModelOutput, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	chatModel := b.model
	if len(req.Tools) > 0 {
		bound, err := b.model.WithTools(req.Tools)
		if err != nil {
			return contractx.ModelOutput{}, &contractx.ModelError{Backend: b.id, Kind: contractx.ErrModelMalformed, Err: fmt.Errorf("bind tools: %w", err)}
		}
		chatModel = bound
	}

	input := make([]*schema.Message, 0, len(req.Messages)+1)
	if system := strings.TrimSpace(req.System); system != "" {
		input = append(input, schema.SystemMessage(system))
	}
	input = append(input, req.Messages...)

	msg, err := chatModel.Generate(ctx, input)
	if err != nil {
		return contractx.ModelOutput{}, &contractx.ModelError{Backend: b.id, Kind: classify(ctx, err), Err: err}
	}
	if msg == nil {
		return contractx.ModelOutput{}, &contractx.ModelError{Backend: b.id, Kind: contractx.ErrModelMalformed, Err: errors.New("empty response message")}
	}
	return toOutput(msg), nil
}

func toOutput(msg *schema.Message) contractx.ModelOutput {
	out := contractx.ModelOutput{
		Text:    strings.TrimSpace(msg.Content),
		Message: msg,
	}
	if len(msg.ToolCalls) > 0 {
		out.Kind = contractx.OutputToolRequest
		out.ToolCalls = msg.ToolCalls
		return out
	}
	out.Kind = contractx.OutputFinalAnswer
	return out
}

func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return contractx.ErrModelTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "status code: 401", "status code: 403", "unauthorized", "invalid api key", "authentication", "permission denied"):
		return contractx.ErrModelAuth
	case containsAny(msg, "status code: 429", "rate limit", "too many requests", "quota", "resource_exhausted"):
		return contractx.ErrModelRateLimit
	case containsAny(msg, "timeout", "timed out", "deadline exceeded"):
		return contractx.ErrModelTimeout
	case containsAny(msg, "unmarshal", "invalid character", "unexpected end of json"):
		return contractx.ErrModelMalformed
	default:
		return contractx.ErrModelUnavailable
	}
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// Gateway dispatches calls to a named backend.
type Gateway struct {
	backends map[contractx.BackendID]Backend
}

var _ contractx.ModelGateway = (*Gateway)(nil)

func NewGateway(backends ...Backend) (*Gateway, error) {
	g := &Gateway{backends: make(map[contractx.BackendID]Backend, len(backends))}
	for _, b := range backends {
		if b == nil {
			continue
		}
		if _, dup := g.backends[b.ID()]; dup {
			return nil, fmt.Errorf("%w: duplicate backend %s", contractx.ErrValidation, b.ID())
		}
		g.backends[b.ID()] = b
	}
	if len(g.backends) == 0 {
		return nil, fmt.Errorf("%w: at least one backend is required", contractx.ErrValidation)
	}
	return g, nil
}

func (g *Gateway) Generate(ctx context.Context, backend contractx.BackendID, req contractx.ModelRequest) (contractx.ModelOutput, error) {
	b, ok := g.backends[backend]
	if !ok {
		return contractx.ModelOutput{}, &contractx.ModelError{Backend: backend, Kind: contractx.ErrModelUnavailable, Err: errors.New("backend not configured")}
	}

	start := time.Now()
	out, err := b.Generate(ctx, req)
	metricsx.ModelLatency.WithLabelValues(string(backend)).Observe(time.Since(start).Seconds())
	if err != nil {
		metricsx.ModelCalls.WithLabelValues(string(backend), "error").Inc()
		return contractx.ModelOutput{}, err
	}
	metricsx.ModelCalls.WithLabelValues(string(backend), out.Kind.String()).Inc()
	return out, nil
}
