package googleEmbedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/akolanti/StudyRAG/internal/domain/ragErrors"
	"github.com/akolanti/StudyRAG/internal/rag/embedding"
	"github.com/akolanti/StudyRAG/pkg/logger_i"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Gemini embeds stored chunks and search queries with different tasks
const (
	documentTask = "RETRIEVAL_DOCUMENT"
	queryTask    = "RETRIEVAL_QUERY"
)

type Config struct {
	APIKey    string
	Model     string
	Dimension int
	Timeout   time.Duration
	// BaseURL overrides the Gemini endpoint, used by tests.
	BaseURL    string
	HTTPClient *http.Client
}

type Client struct {
	genAi     *genai.Client
	model     string
	dimension int32
	timeout   time.Duration
	logger    *logger_i.Logger
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("google embedding: missing api key")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("google embedding: invalid dimension %d", cfg.Dimension)
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	c, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("google embedding: %w", err)
	}

	logger := logger_i.NewLogger("google_embedding")
	logger.Info("Google Embedding client created", "model", cfg.Model, "dimension", cfg.Dimension)
	return &Client{
		genAi:     c,
		model:     cfg.Model,
		dimension: int32(cfg.Dimension),
		timeout:   cfg.Timeout,
		logger:    logger,
	}, nil
}

func (c *Client) Dimension() int {
	return int(c.dimension)
}

func (c *Client) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	return c.embed(ctx, text, documentTask)
}

func (c *Client) GetQueryEmbedding(ctx context.Context, text string) ([]float32, error) {
	return c.embed(ctx, text, queryTask)
}

func (c *Client) embed(ctx context.Context, text, task string) ([]float32, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	dim := c.dimension
	result, err := c.genAi.Models.EmbedContent(ctx, c.model, genai.Text(text), &genai.EmbedContentConfig{
		OutputDimensionality: &dim,
		TaskType:             task,
	})
	if err != nil {
		if isRateLimited(err) {
			c.logger.Warn("Rate limit hit", "error", err)
		} else {
			c.logger.Error("Error getting embedding from Google", "error", err)
		}
		return nil, ragErrors.Unavailable(err)
	}
	if result == nil || len(result.Embeddings) == 0 || result.Embeddings[0] == nil {
		return nil, ragErrors.Unavailable(errors.New("empty embedding response"))
	}

	values := result.Embeddings[0].Values
	if err := embedding.Validate(values, int(c.dimension)); err != nil {
		return nil, ragErrors.Unavailable(err)
	}
	return values, nil
}

func isRateLimited(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return true
	}
	if s, ok := status.FromError(err); ok && s.Code() == codes.ResourceExhausted {
		return true
	}
	return false
}
