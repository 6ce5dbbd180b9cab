package engine

// ReasoningEffort controls reasoning depth for reasoning models.
type ReasoningEffort string

const (
	ReasoningEffortMinimal ReasoningEffort = "minimal"
	ReasoningEffortLow     ReasoningEffort = "low"
	ReasoningEffortMedium  ReasoningEffort = "medium"
	ReasoningEffortHigh    ReasoningEffort = "high"
)

// InferenceConfig carries per-agent model behavior settings.
//
// Fields use pointer types so that nil means "not set, use provider default".
type InferenceConfig struct {
	// ReasoningEffort controls reasoning depth: "minimal", "low", "medium", "high".
	ReasoningEffort *ReasoningEffort `json:"reasoning_effort,omitempty" yaml:"reasoning_effort,omitempty"`

	// ReasoningSummary controls reasoning summary generation ("auto", "concise", "detailed").
	ReasoningSummary *string `json:"reasoning_summary,omitempty" yaml:"reasoning_summary,omitempty"`

	// Temperature overrides the sampling temperature.
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`

	// MaxResponseTokens caps the output tokens.
	MaxResponseTokens *int `json:"max_response_tokens,omitempty" yaml:"max_response_tokens,omitempty"`

	// Store asks the provider to keep the completion.
	Store *bool `json:"store,omitempty" yaml:"store,omitempty"`
}

// Merge returns a copy of c where every field set on override wins.
func (c *InferenceConfig) Merge(override *InferenceConfig) *InferenceConfig {
	var out InferenceConfig
	if c != nil {
		out = *c
	}
	if override == nil {
		return &out
	}
	if override.ReasoningEffort != nil {
		out.ReasoningEffort = override.ReasoningEffort
	}
	if override.ReasoningSummary != nil {
		out.ReasoningSummary = override.ReasoningSummary
	}
	if override.Temperature != nil {
		out.Temperature = override.Temperature
	}
	if override.MaxResponseTokens != nil {
		out.MaxResponseTokens = override.MaxResponseTokens
	}
	if override.Store != nil {
		out.Store = override.Store
	}
	return &out
}
