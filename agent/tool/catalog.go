package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/albaqer-concierge/agent/contract"
	datastorex "github.com/tanpawarit/albaqer-concierge/agent/datastore"
	metricsx "github.com/tanpawarit/albaqer-concierge/agent/metrics"
	retrievalx "github.com/tanpawarit/albaqer-concierge/agent/retrieval"
)

// Searcher is the knowledge retrieval the get_knowledge_base tool reads from.
type Searcher interface {
	Search(ctx context.Context, text string, k int, filter retrievalx.Filter) ([]retrievalx.Match, error)
}

type Deps struct {
	Catalog   datastorex.Catalog
	Knowledge Searcher
	Now       func() time.Time
}

// Output is what a handler hands back. Result is marshalled into the tool
// message; Sources are surfaced on the final response.
type Output struct {
	Result  any
	Sources []contractx.Source
}

type Tool struct {
	Info *schema.ToolInfo
	run  func(ctx context.Context, raw string) (Output, error)
}

func (t Tool) Name() string {
	return t.Info.Name
}

// normalizer lets argument structs clean themselves up before validation.
type normalizer interface {
	normalize()
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func define[A any](name, desc string, params map[string]*schema.ParameterInfo, run func(context.Context, A) (Output, error)) Tool {
	info := &schema.ToolInfo{Name: name, Desc: desc}
	if len(params) > 0 {
		info.ParamsOneOf = schema.NewParamsOneOfByParams(params)
	}
	return Tool{
		Info: info,
		run: func(ctx context.Context, raw string) (Output, error) {
			args, err := decodeArgs[A](raw)
			if err != nil {
				return Output{}, err
			}
			return run(ctx, args)
		},
	}
}

func decodeArgs[A any](raw string) (A, error) {
	var args A
	raw = strings.TrimSpace(raw)
	if raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return args, fmt.Errorf("%w: %v", contractx.ErrToolArgument, err)
		}
	}
	if n, ok := any(&args).(normalizer); ok {
		n.normalize()
	}
	if err := validate.Struct(args); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			// argument type is not a struct; nothing to validate
			return args, nil
		}
		return args, fmt.Errorf("%w: %s", contractx.ErrToolArgument, describeValidation(err))
	}
	return args, nil
}

func describeValidation(err error) string {
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return err.Error()
	}
	parts := make([]string, 0, len(fields))
	for _, fe := range fields {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s must satisfy %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

// Toolbox is the name to handler lookup table. It is built once at startup
// and read concurrently afterwards.
type Toolbox struct {
	tools map[string]Tool
	order []string
}

func NewToolbox(deps Deps) (*Toolbox, error) {
	if deps.Catalog == nil {
		return nil, errors.New("tool catalog is required")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	b := &Toolbox{tools: map[string]Tool{}}
	for _, t := range []Tool{
		searchProductsTool(deps.Catalog),
		checkStockTool(deps.Catalog),
		getStoneInfoTool(deps.Catalog),
		knowledgeBaseTool(deps.Knowledge),
		compareProductsTool(deps.Catalog),
		convertCurrencyTool(deps.Catalog),
		deliveryFeeTool(deps.Catalog),
		paymentMethodsTool(deps.Catalog),
		calculateTool(),
		productReviewsTool(deps.Catalog),
		submitFeedbackTool(deps.Catalog, deps.Now),
	} {
		if err := b.register(t); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (b *Toolbox) register(t Tool) error {
	if t.Info == nil || t.Info.Name == "" {
		return errors.New("tool name is required")
	}
	if _, dup := b.tools[t.Info.Name]; dup {
		return fmt.Errorf("duplicate tool=%s", t.Info.Name)
	}
	b.tools[t.Info.Name] = t
	b.order = append(b.order, t.Info.Name)
	return nil
}

func (b *Toolbox) Lookup(name string) (Tool, bool) {
	t, ok := b.tools[name]
	return t, ok
}

// Names lists registered tools in registration order.
func (b *Toolbox) Names() []string {
	return append([]string(nil), b.order...)
}

// Infos returns the schemas for names, in the given order.
func (b *Toolbox) Infos(names []string) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(names))
	for _, name := range names {
		t, ok := b.tools[name]
		if !ok {
			return nil, fmt.Errorf("unknown tool=%s", name)
		}
		infos = append(infos, t.Info)
	}
	return infos, nil
}

// Invoke runs one tool call. It never returns a Go error: every failure is
// carried in ToolResult.Error so it can be handed back to the model.
func (b *Toolbox) Invoke(ctx context.Context, name, rawArgs string) contractx.ToolResult {
	t, ok := b.tools[name]
	if !ok {
		metricsx.ToolInvocations.WithLabelValues(name, "unavailable").Inc()
		return contractx.ToolResult{Tool: name, Error: fmt.Sprintf("unknown tool=%s", name)}
	}

	out, err := t.run(ctx, rawArgs)
	if err != nil {
		outcome := "argument_error"
		if !errors.Is(err, contractx.ErrToolArgument) {
			outcome = "execution_error"
			err = fmt.Errorf("%w: %v", contractx.ErrToolExecution, err)
		}
		metricsx.ToolInvocations.WithLabelValues(name, outcome).Inc()
		log.Ctx(ctx).Debug().Str("tool", name).Err(err).Msg("tool call failed")
		return contractx.ToolResult{Tool: name, Error: err.Error()}
	}

	metricsx.ToolInvocations.WithLabelValues(name, "ok").Inc()
	return contractx.ToolResult{Tool: name, Result: out.Result, Sources: out.Sources}
}

type Executor func(ctx context.Context, tool, rawArgs string) contractx.ToolResult

// Executor restricts Invoke to the allowed tool names of one owner.
func (b *Toolbox) Executor(owner string, allowed []string) Executor {
	permitted := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		permitted[name] = struct{}{}
	}
	fallback := DefaultExecutor(owner)
	return func(ctx context.Context, tool, rawArgs string) contractx.ToolResult {
		if _, ok := permitted[tool]; !ok {
			return fallback(ctx, tool, rawArgs)
		}
		return b.Invoke(ctx, tool, rawArgs)
	}
}

func DefaultExecutor(owner string) Executor {
	return func(_ context.Context, tool, _ string) contractx.ToolResult {
		metricsx.ToolInvocations.WithLabelValues(tool, "unavailable").Inc()
		return contractx.ToolResult{
			Tool:  tool,
			Error: fmt.Sprintf("tool=%s is unavailable for specialist=%s", tool, owner),
		}
	}
}

// notFound is the result shape tools return when a lookup has no row.
func notFound(what string) map[string]any {
	return map[string]any{"error": what + " not found"}
}
