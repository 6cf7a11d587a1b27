package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/akolanti/StudyRAG/internal/domain/ragErrors"
	"github.com/akolanti/StudyRAG/pkg/logger_i"
	"google.golang.org/genai"
)

type Config struct {
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration
	System      string
	// BaseURL overrides the Gemini endpoint, used by tests.
	BaseURL    string
	HTTPClient *http.Client
}

type Client struct {
	client      *genai.Client
	modelName   string
	system      string
	temperature float32
	timeout     time.Duration
	logger      *logger_i.Logger
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: missing api key")
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
		return nil, fmt.Errorf("gemini: %w", err)
	}

	logger := logger_i.NewLogger("llm_gemini")
	logger.Info("Gemini client created", "model", cfg.Model)
	return &Client{
		client:      c,
		modelName:   cfg.Model,
		system:      cfg.System,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		logger:      logger,
	}, nil
}

func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	temperature := c.temperature
	contentConfig := &genai.GenerateContentConfig{Temperature: &temperature}
	if c.system != "" {
		contentConfig.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: c.system}},
		}
	}

	result, err := c.client.Models.GenerateContent(ctx, c.modelName, genai.Text(prompt), contentConfig)
	if err != nil {
		reason := classify(err)
		c.logger.Error("Gemini completion failed", "reason", reason, "error", err)
		return "", ragErrors.NewCompletionError(reason, err)
	}

	text := ""
	if result != nil {
		text = strings.TrimSpace(result.Text())
	}
	if text == "" {
		// blocked prompts come back as a 200 with no candidates
		return "", ragErrors.NewCompletionError(ragErrors.ReasonRejected, errors.New("empty completion"))
	}
	return text, nil
}

// classify maps 4xx API errors to rejected, except timeouts and rate limits
// which are treated like any transport failure.
func classify(err error) ragErrors.CompletionReason {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.Code
		if code >= 400 && code < 500 && code != http.StatusRequestTimeout && code != http.StatusTooManyRequests {
			return ragErrors.ReasonRejected
		}
	}
	return ragErrors.ReasonUnreachable
}
