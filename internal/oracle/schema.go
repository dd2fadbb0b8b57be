package oracle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"routing-arena/internal/domain"
)

const schemaName = "routing-decision"

// responseDefinition is the structured output every provider is asked for.
var responseDefinition = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"response": map[string]any{
			"type": "string",
			"enum": []any{string(domain.LabelSticos), string(domain.LabelSupportAI), string(domain.LabelOther)},
		},
	},
	"required":             []any{"response"},
	"additionalProperties": false,
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func responseSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		raw, err := json.Marshal(responseDefinition)
		if err != nil {
			compileErr = err
			return
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			compileErr = err
			return
		}
		c := jsonschema.NewCompiler()
		url := "schema://" + schemaName + ".json"
		if err := c.AddResource(url, doc); err != nil {
			compileErr = err
			return
		}
		compiled, compileErr = c.Compile(url)
	})
	return compiled, compileErr
}

type decision struct {
	Response domain.Label `json:"response"`
}

// decodeLabel validates raw provider output against the response schema and
// extracts the label.
func decodeLabel(raw []byte) (domain.Label, error) {
	schema, err := responseSchema()
	if err != nil {
		return "", fmt.Errorf("compile response schema: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("invalid JSON: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return "", fmt.Errorf("schema validation failed: %w", err)
	}
	var d decision
	if err := json.Unmarshal(raw, &d); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return d.Response, nil
}
