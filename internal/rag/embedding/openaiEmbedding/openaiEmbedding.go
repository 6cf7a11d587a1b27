package openaiEmbedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/akolanti/StudyRAG/internal/domain/ragErrors"
	"github.com/akolanti/StudyRAG/internal/rag/embedding"
	"github.com/akolanti/StudyRAG/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type Config struct {
	APIKey     string
	Model      string
	Dimension  int
	Timeout    time.Duration
	BaseURL    string
	HTTPClient *http.Client
}

type Client struct {
	client    openai.Client
	model     string
	dimension int
	timeout   time.Duration
	logger    *logger_i.Logger
}

func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai embedding: missing api key")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("openai embedding: invalid dimension %d", cfg.Dimension)
	}

	// retries belong to the ingestion orchestrator
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &Client{
		client:    openai.NewClient(opts...),
		model:     cfg.Model,
		dimension: cfg.Dimension,
		timeout:   cfg.Timeout,
		logger:    logger_i.NewLogger("openai_embedding"),
	}, nil
}

func (c *Client) Dimension() int {
	return c.dimension
}

func (c *Client) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:          openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model:          openai.EmbeddingModel(c.model),
		Dimensions:     openai.Int(int64(c.dimension)),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		c.logger.Error("Error getting embedding from OpenAI", "error", err)
		return nil, ragErrors.Unavailable(err)
	}
	if resp == nil || len(resp.Data) == 0 {
		return nil, ragErrors.Unavailable(errors.New("empty embedding response"))
	}

	values := embedding.FromFloat64(resp.Data[0].Embedding)
	if err := embedding.Validate(values, c.dimension); err != nil {
		return nil, ragErrors.Unavailable(err)
	}
	return values, nil
}
