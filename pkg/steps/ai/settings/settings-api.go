package settings

import (
	"github.com/go-go-golems/agentchain/pkg/steps/ai/types"
	"github.com/huandu/go-clone"
)

// APISettings holds credentials and endpoints, keyed "<api-type>-api-key" and
// "<api-type>-base-url".
type APISettings struct {
	APIKeys  map[string]string `yaml:"api_keys,omitempty" mapstructure:"api_keys"`
	BaseUrls map[string]string `yaml:"base_urls,omitempty" mapstructure:"base_urls"`
}

func NewAPISettings() *APISettings {
	baseUrls := map[string]string{}
	for t, u := range types.DefaultBaseURLs {
		baseUrls[BaseURLKey(t)] = u
	}
	return &APISettings{
		APIKeys:  map[string]string{},
		BaseUrls: baseUrls,
	}
}

func APIKeyKey(t types.ApiType) string {
	return string(t) + "-api-key"
}

func BaseURLKey(t types.ApiType) string {
	return string(t) + "-base-url"
}

func (a *APISettings) Clone() *APISettings {
	return clone.Clone(a).(*APISettings)
}
