package oracle

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
	"routing-arena/internal/domain"
)

const GeminiDefaultModel = "gemini-2.0-flash"

// GeminiOracle classifies with the Gemini API using a response schema.
type GeminiOracle struct {
	client *genai.Client
	model  string
}

func NewGeminiOracle(ctx context.Context, cfg ProviderConfig) (*GeminiOracle, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = GeminiDefaultModel
	}
	return &GeminiOracle{client: client, model: model}, nil
}

func geminiSchema() *genai.Schema {
	enum := make([]string, 0, len(domain.OracleLabels))
	for _, l := range domain.OracleLabels {
		enum = append(enum, string(l))
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"response": {Type: genai.TypeString, Enum: enum},
		},
		Required: []string{"response"},
	}
}

func (o *GeminiOracle) Classify(ctx context.Context, policy, question string) (domain.Label, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: policy}}},
		ResponseMIMEType:  "application/json",
		ResponseSchema:    geminiSchema(),
	}
	contents := []*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: question}}}}

	result, err := o.client.Models.GenerateContent(ctx, o.model, contents, config)
	if err != nil {
		var apiErr *genai.APIError
		if errors.As(err, &apiErr) {
			return "", unavailable("gemini", apiErr.Code, err)
		}
		return "", unavailable("gemini", 0, err)
	}
	label, err := decodeLabel([]byte(result.Text()))
	if err != nil {
		return "", unavailable("gemini", 0, err)
	}
	return label, nil
}
