package contract

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

type OutputKind int

const (
	OutputFinalAnswer OutputKind = iota + 1
	OutputToolRequest
)

func (k OutputKind) String() string {
	switch k {
	case OutputFinalAnswer:
		return "final_answer"
	case OutputToolRequest:
		return "tool_request"
	default:
		return "unknown"
	}
}

type ModelRequest struct {
	System   string
	Messages []*schema.Message
	Tools    []*schema.ToolInfo
}

// ModelOutput is either a final answer or a request for one or more tool calls.
// Text may accompany a tool request when the model narrates before calling.
type ModelOutput struct {
	Kind      OutputKind
	Text      string
	ToolCalls []schema.ToolCall
	Message   *schema.Message
}

func (o ModelOutput) IsFinal() bool {
	return o.Kind == OutputFinalAnswer
}

type ModelGateway interface {
	Generate(ctx context.Context, backend BackendID, req ModelRequest) (ModelOutput, error)
}
