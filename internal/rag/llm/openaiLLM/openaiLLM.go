package openaiLLM

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/akolanti/StudyRAG/internal/rag/prompts"
	"github.com/akolanti/StudyRAG/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type Config struct {
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
	BaseURL     string
	HTTPClient  *http.Client
}

type Client struct {
	client      openai.Client
	model       string
	temperature float64
	timeout     time.Duration
	logger      *logger_i.Logger
}

func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai refine: missing api key")
	}
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
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		logger:      logger_i.NewLogger("llm_openai"),
	}, nil
}

func (c *Client) Refine(ctx context.Context, baseAnswer string, notes string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompts.RefinementSystem),
			openai.UserMessage(prompts.Refinement(baseAnswer, notes)),
		},
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		c.logger.Warn("OpenAI refinement failed", "error", err)
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", errors.New("openai refine: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
