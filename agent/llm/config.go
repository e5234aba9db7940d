package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/albaqer-concierge/agent/contract"
	chatmodelx "github.com/tanpawarit/albaqer-concierge/pkg/chatmodel"
)

const (
	defaultFastBaseURL      = "https://generativelanguage.googleapis.com/v1beta/openai"
	defaultFastModel        = "gemini-2.0-flash"
	defaultFastTemperature  = float32(0.7)
	defaultReasoningBaseURL = "https://api.deepseek.com"
	defaultReasoningModel   = "deepseek-chat"
	defaultReasoningTokens  = 1500
)

type Config struct {
	Fast      chatmodelx.Config `envconfig:"FAST"`
	Reasoning chatmodelx.Config `envconfig:"REASONING"`

	CallTimeout     time.Duration `split_words:"true" default:"30s"`
	LongQueryChars  int           `split_words:"true" default:"240"`
	MaxFastMessages int           `split_words:"true" default:"5"`
	TriggerTerms    []string      `split_words:"true"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Fast.APIKey) == "" {
		return fmt.Errorf("%w: fast backend api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Reasoning.APIKey) == "" {
		return fmt.Errorf("%w: reasoning backend api key is required", contractx.ErrValidation)
	}
	if c.CallTimeout < 0 {
		return fmt.Errorf("%w: call timeout must be >= 0", contractx.ErrValidation)
	}
	return nil
}

// ProviderFor fills provider defaults for the given backend.
func (c Config) ProviderFor(backend contractx.BackendID) chatmodelx.Config {
	var out chatmodelx.Config
	switch backend {
	case contractx.BackendReasoning:
		out = c.Reasoning
		if strings.TrimSpace(out.BaseURL) == "" {
			out.BaseURL = defaultReasoningBaseURL
		}
		if strings.TrimSpace(out.Model) == "" {
			out.Model = defaultReasoningModel
		}
		if out.MaxCompletionToken == nil {
			tokens := defaultReasoningTokens
			out.MaxCompletionToken = &tokens
		}
	default:
		out = c.Fast
		if strings.TrimSpace(out.BaseURL) == "" {
			out.BaseURL = defaultFastBaseURL
		}
		if strings.TrimSpace(out.Model) == "" {
			out.Model = defaultFastModel
		}
		if out.Temperature == nil {
			temp := defaultFastTemperature
			out.Temperature = &temp
		}
	}

	out.BaseURL = strings.TrimSpace(out.BaseURL)
	out.APIKey = strings.TrimSpace(out.APIKey)
	out.Model = strings.TrimSpace(out.Model)
	if out.Timeout <= 0 {
		out.Timeout = c.CallTimeout
	}
	return out
}

func (c Config) SelectorConfig() SelectorConfig {
	return SelectorConfig{
		LongQueryChars:  c.LongQueryChars,
		MaxFastMessages: c.MaxFastMessages,
		TriggerTerms:    c.TriggerTerms,
	}
}

// NewGatewayFromConfig builds one chat backend per provider.
func NewGatewayFromConfig(ctx context.Context, cfg Config) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	backends := make([]Backend, 0, 2)
	for _, id := range []contractx.BackendID{contractx.BackendFast, contractx.BackendReasoning} {
		providerCfg := cfg.ProviderFor(id)
		chatModel, err := providerCfg.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: create %s backend: %v", contractx.ErrModelInvoke, id, err)
		}
		backends = append(backends, NewChatBackend(id, chatModel, cfg.CallTimeout))
	}
	return NewGateway(backends...)
}
