package engine

import (
	"fmt"
	"strings"

	"github.com/go-go-golems/agentchain/pkg/schema"
)

type StructuredOutputMode string

const (
	StructuredOutputModeOff        StructuredOutputMode = "off"
	StructuredOutputModeJSONSchema StructuredOutputMode = "json_schema"
)

type StructuredOutputConfig struct {
	Mode        StructuredOutputMode `json:"mode,omitempty"`
	Name        string               `json:"name,omitempty"`
	Description string               `json:"description,omitempty"`
	Schema      map[string]any       `json:"schema,omitempty"`
	Strict      *bool                `json:"strict,omitempty"`
}

// NewStructuredOutputConfig builds a strict json_schema config from a compiled schema.
func NewStructuredOutputConfig(s *schema.Schema, description string) (*StructuredOutputConfig, error) {
	if s == nil {
		return nil, schema.ErrNilSchema
	}
	m, err := s.Map()
	if err != nil {
		return nil, err
	}
	cfg := &StructuredOutputConfig{
		Mode:        StructuredOutputModeJSONSchema,
		Name:        s.Name(),
		Description: description,
		Schema:      m,
	}
	return cfg, cfg.Validate()
}

func (c StructuredOutputConfig) IsEnabled() bool {
	return strings.EqualFold(string(c.Mode), string(StructuredOutputModeJSONSchema))
}

func (c StructuredOutputConfig) StrictOrDefault() bool {
	if c.Strict == nil {
		return true
	}
	return *c.Strict
}

func (c StructuredOutputConfig) Validate() error {
	if !c.IsEnabled() {
		return nil
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("structured output mode %q requires a non-empty schema name", c.Mode)
	}
	if len(c.Schema) == 0 {
		return fmt.Errorf("structured output mode %q requires a non-empty JSON schema", c.Mode)
	}
	return nil
}
