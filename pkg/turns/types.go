package turns

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// BlockKind identifies what a Block carries.
type BlockKind string

const (
	BlockKindUser      BlockKind = "user"
	BlockKindSystem    BlockKind = "system"
	BlockKindLLMText   BlockKind = "llm_text"
	BlockKindReasoning BlockKind = "reasoning"
	BlockKindOther     BlockKind = "other"
)

func (k BlockKind) String() string {
	return string(k)
}

// UnmarshalYAML accepts any casing and maps unknown kinds to BlockKindOther.
func (k *BlockKind) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch BlockKind(strings.ToLower(strings.TrimSpace(s))) {
	case BlockKindUser:
		*k = BlockKindUser
	case BlockKindSystem:
		*k = BlockKindSystem
	case BlockKindLLMText:
		*k = BlockKindLLMText
	case BlockKindReasoning:
		*k = BlockKindReasoning
	default:
		*k = BlockKindOther
	}
	return nil
}

// Block represents a single conversation item: one user turn, one assistant
// message, one reasoning summary.
type Block struct {
	ID      string         `yaml:"id,omitempty" json:"id,omitempty"`
	Kind    BlockKind      `yaml:"kind" json:"kind"`
	Role    string         `yaml:"role,omitempty" json:"role,omitempty"`
	Payload map[string]any `yaml:"payload,omitempty" json:"payload,omitempty"`
	// Metadata stores arbitrary metadata about the block (agent name, stage, ...)
	Metadata map[string]any `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// Clone returns a copy of the block with its own Payload and Metadata maps.
// Values inside the maps are shared.
func (b Block) Clone() Block {
	out := b
	if b.Payload != nil {
		out.Payload = make(map[string]any, len(b.Payload))
		for k, v := range b.Payload {
			out.Payload[k] = v
		}
	}
	if b.Metadata != nil {
		out.Metadata = make(map[string]any, len(b.Metadata))
		for k, v := range b.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// Text returns the text payload of the block, or "" when there is none.
func (b Block) Text() string {
	if b.Payload == nil {
		return ""
	}
	if s, ok := b.Payload[PayloadKeyText].(string); ok {
		return s
	}
	return ""
}

func (b Block) String() string {
	return fmt.Sprintf("Block{Kind: %s, Role: %s, Text: %q}", b.Kind, b.Role, b.Text())
}

// FindBlocksByKind returns the blocks of the requested kinds in history order.
func FindBlocksByKind(h History, kinds ...BlockKind) []Block {
	lookup := map[BlockKind]bool{}
	for _, k := range kinds {
		lookup[k] = true
	}
	ret := make([]Block, 0, h.Len())
	for _, b := range h.blocks {
		if lookup[b.Kind] {
			ret = append(ret, b.Clone())
		}
	}
	return ret
}
