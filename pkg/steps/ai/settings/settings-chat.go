package settings

import (
	"github.com/go-go-golems/agentchain/pkg/steps/ai/types"
	"github.com/huandu/go-clone"
)

type ChatSettings struct {
	// Engine replaces the model of every stage; workflow.models still wins per stage.
	Engine            *string        `yaml:"engine,omitempty" mapstructure:"engine"`
	ApiType           *types.ApiType `yaml:"api_type,omitempty" mapstructure:"api_type"`
	MaxResponseTokens *int           `yaml:"max_response_tokens,omitempty" mapstructure:"max_response_tokens"`
	Temperature       *float64       `yaml:"temperature,omitempty" mapstructure:"temperature"`
}

func NewChatSettings() *ChatSettings {
	apiType := types.ApiTypeOpenAI
	return &ChatSettings{
		ApiType: &apiType,
	}
}

func (s *ChatSettings) Clone() *ChatSettings {
	return clone.Clone(s).(*ChatSettings)
}
