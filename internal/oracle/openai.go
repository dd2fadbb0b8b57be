package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"routing-arena/internal/domain"
)

// OpenAIDefaultModel is the model the competition was calibrated against.
const OpenAIDefaultModel = "gpt-4o"

// OpenAIOracle classifies with OpenAI chat completions and a strict JSON schema.
type OpenAIOracle struct {
	client *openai.Client
	model  string
}

func NewOpenAIOracle(cfg ProviderConfig) (*OpenAIOracle, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = OpenAIDefaultModel
	}
	return &OpenAIOracle{client: openai.NewClientWithConfig(config), model: model}, nil
}

func (o *OpenAIOracle) Classify(ctx context.Context, policy, question string) (domain.Label, error) {
	schema, err := json.Marshal(responseDefinition)
	if err != nil {
		return "", unavailable("openai", 0, err)
	}
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: policy},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   schemaName,
				Schema: json.RawMessage(schema),
				Strict: true,
			},
		},
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", unavailable("openai", apiErr.HTTPStatusCode, err)
		}
		return "", unavailable("openai", 0, err)
	}
	if len(resp.Choices) == 0 {
		return "", unavailable("openai", 0, errors.New("no choices in response"))
	}
	label, err := decodeLabel([]byte(resp.Choices[0].Message.Content))
	if err != nil {
		return "", unavailable("openai", 0, err)
	}
	return label, nil
}
