package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
)

type EmbedderConfig struct {
	BaseURL   string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.openai.com/v1"`
	APIKey    string        `envconfig:"API_KEY" split_words:"true"`
	Model     string        `envconfig:"MODEL" split_words:"true" default:"text-embedding-3-small"`
	Dimension int           `envconfig:"DIMENSION" split_words:"true" default:"384"`
	Timeout   time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
	// SendDimensions passes the dimension to the provider. Servers hosting a
	// fixed-size model may reject the parameter.
	SendDimensions bool `split_words:"true" default:"true"`
}

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	client         *openaisdk.Client
	model          string
	dimension      int
	timeout        time.Duration
	sendDimensions bool
}

var _ Embedder = (*OpenAIEmbedder)(nil)

func NewOpenAIEmbedder(client *openaisdk.Client, cfg EmbedderConfig) (*OpenAIEmbedder, error) {
	if client == nil {
		return nil, errors.New("embedding client is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, errors.New("embedding model is required")
	}
	if cfg.Dimension <= 0 {
		return nil, errors.New("embedding dimension must be > 0")
	}
	return &OpenAIEmbedder{
		client:         client,
		model:          model,
		dimension:      cfg.Dimension,
		timeout:        cfg.Timeout,
		sendDimensions: cfg.SendDimensions,
	}, nil
}

func (e *OpenAIEmbedder) Version() string {
	return fmt.Sprintf("%s@%d", e.model, e.dimension)
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("embedding input is empty")
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	params := openaisdk.EmbeddingNewParams{
		Input: openaisdk.EmbeddingNewParamsInputUnion{OfString: openaisdk.String(text)},
		Model: openaisdk.EmbeddingModel(e.model),
	}
	if e.sendDimensions {
		params.Dimensions = openaisdk.Int(int64(e.dimension))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, ErrEmbeddingEmpty
	}
	vector := resp.Data[0].Embedding
	if len(vector) != e.dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), e.dimension)
	}
	return vector, nil
}
