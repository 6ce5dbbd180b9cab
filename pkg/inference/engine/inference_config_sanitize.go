package engine

// SanitizeForReasoningModel returns a copy of cfg with sampling fields cleared.
// Reasoning models (e.g., o1/o3/o4/gpt-5) reject temperature.
// The caller is responsible for determining whether the model is a reasoning model.
func SanitizeForReasoningModel(cfg *InferenceConfig) *InferenceConfig {
	if cfg == nil {
		return nil
	}
	sanitized := *cfg
	sanitized.Temperature = nil
	return &sanitized
}

// SanitizeForNonReasoningModel clears the reasoning knobs that plain chat models reject.
func SanitizeForNonReasoningModel(cfg *InferenceConfig) *InferenceConfig {
	if cfg == nil {
		return nil
	}
	sanitized := *cfg
	sanitized.ReasoningEffort = nil
	sanitized.ReasoningSummary = nil
	return &sanitized
}
