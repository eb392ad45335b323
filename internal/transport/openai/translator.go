// Package openai translates search queries into plans with an OpenAI-compatible chat model.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/rentsearch/internal/domain"
	"github.com/kailas-cloud/rentsearch/internal/metrics"
)

// Translator is a plan translator backed by a chat completion model.
type Translator struct {
	client   *openai.Client
	model    string
	user     string
	provider string
	timeout  time.Duration
	logger   *zap.Logger
}

// Config holds the chat provider settings.
type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	User     string
	Provider string
	Timeout  time.Duration
	Logger   *zap.Logger
}

// NewTranslator creates an OpenAI-compatible plan translator.
func NewTranslator(cfg *Config) *Translator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Translator{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		user:     cfg.User,
		provider: cfg.Provider,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger,
	}
}

// Translate returns the raw model output for query. The output is not validated here.
func (t *Translator) Translate(ctx context.Context, query string) (string, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		User: t.user,
	}

	start := time.Now()

	resp, err := t.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.PlannerRequestsTotal.WithLabelValues(t.provider, t.model, "error").Inc()
		metrics.PlannerErrorsTotal.WithLabelValues(t.provider, t.model, "api_error").Inc()
		return "", parseAPIError(err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		metrics.PlannerRequestsTotal.WithLabelValues(t.provider, t.model, "error").Inc()
		metrics.PlannerErrorsTotal.WithLabelValues(t.provider, t.model, "empty_response").Inc()
		return "", fmt.Errorf("empty completion: %w", domain.ErrPlannerProviderError)
	}

	metrics.PlannerRequestsTotal.WithLabelValues(t.provider, t.model, "success").Inc()
	metrics.PlannerRequestDuration.WithLabelValues(t.provider, t.model).Observe(duration.Seconds())

	if resp.Usage.TotalTokens > 0 {
		metrics.PlannerTokensTotal.WithLabelValues(t.provider, t.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.PlannerTokensTotal.WithLabelValues(t.provider, t.model, "completion").Add(float64(resp.Usage.CompletionTokens))
	}

	return resp.Choices[0].Message.Content, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (t *Translator) HealthCheck(ctx context.Context) error {
	if _, err := t.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrPlannerProviderError.
func parseAPIError(err error) error {
	wrap := domain.ErrPlannerProviderError

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("chat completion timed out: %w", wrap)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail != "" {
			return fmt.Errorf("chat API error %d: %s: %w",
				reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("chat API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("chat API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("chat request failed: %w", wrap)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
