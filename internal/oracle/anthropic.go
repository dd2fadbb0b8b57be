package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"routing-arena/internal/domain"
)

const (
	AnthropicDefaultModel = "claude-haiku-4-5-20251001"
	anthropicMaxTokens    = 64
)

// AnthropicOracle classifies with the Anthropic Messages API using JSON output.
type AnthropicOracle struct {
	client *anthropic.Client
	model  string
}

func NewAnthropicOracle(cfg ProviderConfig) (*AnthropicOracle, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)
	model := cfg.Model
	if model == "" {
		model = AnthropicDefaultModel
	}
	return &AnthropicOracle{client: &client, model: model}, nil
}

func (o *AnthropicOracle) Classify(ctx context.Context, policy, question string) (domain.Label, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(o.model),
		MaxTokens: anthropicMaxTokens,
		System:    []anthropic.TextBlockParam{{Text: policy}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(question)),
		},
		OutputConfig: anthropic.OutputConfigParam{
			Format: anthropic.JSONOutputFormatParam{
				Schema: responseDefinition,
			},
		},
	}

	msg, err := o.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", unavailable("anthropic", apiErr.StatusCode, err)
		}
		return "", unavailable("anthropic", 0, err)
	}
	for _, block := range msg.Content {
		if block.Type == "text" {
			label, err := decodeLabel([]byte(block.Text))
			if err != nil {
				return "", unavailable("anthropic", 0, err)
			}
			return label, nil
		}
	}
	return "", unavailable("anthropic", 0, errors.New("no text content in response"))
}
