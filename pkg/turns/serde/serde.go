package serde

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/go-go-golems/agentchain/pkg/turns"
)

// Options controls serialization behavior.
type Options struct {
	// OmitMetadata drops Block.Metadata on write
	OmitMetadata bool
}

// Transcript is the on-disk shape of a conversation history.
type Transcript struct {
	RunID  string        `yaml:"run_id,omitempty"`
	Blocks []turns.Block `yaml:"blocks"`
}

// NormalizeBlocks applies serde defaults (best-effort) without mutating order.
func NormalizeBlocks(blocks []turns.Block) {
	for i := range blocks {
		b := &blocks[i]
		// Ensure payload is non-nil for stability
		if b.Payload == nil {
			b.Payload = map[string]any{}
		}
		// Synthesize assistant role for llm_text if missing
		if b.Kind == turns.BlockKindLLMText && strings.TrimSpace(b.Role) == "" {
			b.Role = turns.RoleAssistant
		}
	}
}

// ToYAML marshals a history to YAML.
func ToYAML(runID string, h turns.History, opt Options) ([]byte, error) {
	blocks := h.Blocks()
	if opt.OmitMetadata {
		for i := range blocks {
			blocks[i].Metadata = nil
		}
	}
	NormalizeBlocks(blocks)
	if blocks == nil {
		blocks = []turns.Block{}
	}
	return yaml.Marshal(Transcript{RunID: runID, Blocks: blocks})
}

// FromYAML unmarshals a history from YAML and returns it with its run id.
func FromYAML(b []byte) (string, turns.History, error) {
	var t Transcript
	if err := yaml.Unmarshal(b, &t); err != nil {
		return "", turns.History{}, err
	}
	NormalizeBlocks(t.Blocks)
	return t.RunID, turns.NewHistory(t.Blocks...), nil
}

// SaveHistoryYAML writes a history to a YAML file.
func SaveHistoryYAML(path string, runID string, h turns.History, opt Options) error {
	data, err := ToYAML(runID, h, opt)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadHistoryYAML reads a history from a YAML file.
func LoadHistoryYAML(path string) (string, turns.History, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", turns.History{}, err
	}
	return FromYAML(b)
}
