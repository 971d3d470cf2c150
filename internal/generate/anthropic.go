package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/starford/ansuz/internal/models"
)

// AnthropicOptions configures the hosted model backend.
type AnthropicOptions struct {
	APIKey    string
	Model     string
	MaxTokens int64
	BaseURL   string
	Retry     RetryConfig
}

// Anthropic calls the Messages API and parses the JSON payload it returns.
type Anthropic struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	retry     RetryConfig
	logger    *slog.Logger
}

// NewAnthropic creates the hosted backend.
func NewAnthropic(opts AnthropicOptions, logger *slog.Logger) *Anthropic {
	if logger == nil {
		logger = slog.Default()
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	model := opts.Model
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	retry := opts.Retry
	if retry.Timeout <= 0 {
		retry = DefaultRetryConfig()
	}
	return &Anthropic{
		client:    anthropic.NewClient(reqOpts...),
		model:     model,
		maxTokens: maxTokens,
		retry:     retry,
		logger:    logger,
	}
}

// Generate implements Generator.
func (a *Anthropic) Generate(ctx context.Context, req Request) ([]models.CardFields, error) {
	prompt := PromptWithInput(req)

	var resp *anthropic.Message
	err := retryWithBackoff(ctx, a.retry, a.logger, "anthropic messages", func(attemptCtx context.Context) error {
		msg, apiErr := a.client.Messages.New(attemptCtx, anthropic.MessageNewParams{
			Model:     anthropic.Model(a.model),
			MaxTokens: a.maxTokens,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if apiErr != nil {
			return apiErr
		}
		resp = msg
		return nil
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("anthropic: status %d: %w", apiErr.StatusCode, err)
		}
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	payload, ok := ExtractJSON(sb.String())
	if !ok {
		return nil, errors.New("anthropic: response carried no JSON object")
	}
	return DecodeNotes(payload)
}
