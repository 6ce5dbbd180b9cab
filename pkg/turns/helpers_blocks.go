package turns

import "github.com/google/uuid"

// Convenience constructors for commonly used Block shapes.

// Role string constants used for roles in blocks.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// NewUserTextBlock returns a Block representing a user text message.
func NewUserTextBlock(text string) Block {
	return Block{
		ID:      uuid.NewString(),
		Kind:    BlockKindUser,
		Role:    RoleUser,
		Payload: map[string]any{PayloadKeyText: text},
	}
}

// NewAssistantTextBlock returns a Block representing assistant LLM text output.
func NewAssistantTextBlock(text string) Block {
	return Block{
		ID:      uuid.NewString(),
		Kind:    BlockKindLLMText,
		Role:    RoleAssistant,
		Payload: map[string]any{PayloadKeyText: text},
	}
}

// NewAssistantJSONBlock returns an assistant Block whose text is a structured output.
// The raw JSON is kept under PayloadKeyJSON as well so transcripts can tell
// structured answers apart from prose.
func NewAssistantJSONBlock(raw string) Block {
	return Block{
		ID:   uuid.NewString(),
		Kind: BlockKindLLMText,
		Role: RoleAssistant,
		Payload: map[string]any{
			PayloadKeyText: raw,
			PayloadKeyJSON: raw,
		},
	}
}

// NewRefusalBlock returns an assistant Block recording that the model refused to answer.
func NewRefusalBlock(reason string) Block {
	return Block{
		ID:      uuid.NewString(),
		Kind:    BlockKindLLMText,
		Role:    RoleAssistant,
		Payload: map[string]any{PayloadKeyRefusal: reason},
	}
}

// NewReasoningBlock returns a Block carrying a reasoning summary.
func NewReasoningBlock(summary string) Block {
	return Block{
		ID:      uuid.NewString(),
		Kind:    BlockKindReasoning,
		Role:    RoleAssistant,
		Payload: map[string]any{PayloadKeyText: summary},
	}
}

// NewSystemTextBlock returns a Block representing a system directive.
func NewSystemTextBlock(text string) Block {
	return Block{
		ID:      uuid.NewString(),
		Kind:    BlockKindSystem,
		Role:    RoleSystem,
		Payload: map[string]any{PayloadKeyText: text},
	}
}

// WithBlockMetadata sets key/value pairs on a copy of the block's Metadata and returns it.
func WithBlockMetadata(b Block, kvs map[string]any) Block {
	if len(kvs) == 0 {
		return b
	}
	// Clone existing metadata map to avoid aliasing
	cloned := make(map[string]any, len(b.Metadata)+len(kvs))
	for k, v := range b.Metadata {
		cloned[k] = v
	}
	for k, v := range kvs {
		cloned[k] = v
	}
	b.Metadata = cloned
	return b
}

// HasBlockMetadata returns true if the block's Metadata contains key==value.
func HasBlockMetadata(b Block, key string, value string) bool {
	if b.Metadata == nil {
		return false
	}
	v, ok := b.Metadata[key]
	if !ok {
		return false
	}
	if sv, ok := v.(string); ok {
		return sv == value
	}
	return false
}
