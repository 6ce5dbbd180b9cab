package factory

import (
	"strings"

	"github.com/go-go-golems/agentchain/pkg/inference/engine"
	"github.com/go-go-golems/agentchain/pkg/security"
	"github.com/go-go-golems/agentchain/pkg/steps/ai/openai"
	"github.com/go-go-golems/agentchain/pkg/steps/ai/settings"
	"github.com/go-go-golems/agentchain/pkg/steps/ai/types"
	"github.com/pkg/errors"
)

// EngineFactory creates AI inference engines based on provider settings.
// This interface allows external control over which AI provider engine is used
// without the calling code needing to know specific implementations.
type EngineFactory interface {
	// CreateEngine creates an Engine instance based on the provided settings.
	// The actual provider is determined from settings.Chat.ApiType.
	CreateEngine(settings *settings.StepSettings) (engine.Engine, error)

	// SupportedProviders returns a list of provider names this factory supports.
	SupportedProviders() []string

	// DefaultProvider returns the name of the default provider used when
	// settings.Chat.ApiType is nil or not specified.
	DefaultProvider() string
}

// StandardEngineFactory is the default implementation of EngineFactory.
// Every supported provider speaks the OpenAI chat completions protocol.
type StandardEngineFactory struct{}

func NewStandardEngineFactory() *StandardEngineFactory {
	return &StandardEngineFactory{}
}

// CreateEngine creates an Engine instance based on the provider specified in settings.Chat.ApiType.
// If no ApiType is specified, defaults to OpenAI.
func (f *StandardEngineFactory) CreateEngine(settings *settings.StepSettings) (engine.Engine, error) {
	if settings == nil {
		return nil, errors.New("settings cannot be nil")
	}

	provider := f.DefaultProvider()
	if settings.Chat != nil && settings.Chat.ApiType != nil {
		provider = strings.ToLower(string(*settings.Chat.ApiType))
	}

	if err := f.validateSettings(settings, provider); err != nil {
		return nil, errors.Wrapf(err, "invalid settings for provider %s", provider)
	}

	switch provider {
	case string(types.ApiTypeOpenAI), string(types.ApiTypeAnyScale), string(types.ApiTypeFireworks):
		s := settings.Clone()
		apiType := types.ApiType(provider)
		s.Chat.ApiType = &apiType
		return openai.NewOpenAIEngine(s)

	default:
		supported := strings.Join(f.SupportedProviders(), ", ")
		return nil, errors.Errorf("unsupported provider %s. Supported providers: %s", provider, supported)
	}
}

func (f *StandardEngineFactory) SupportedProviders() []string {
	return []string{
		string(types.ApiTypeOpenAI),
		string(types.ApiTypeAnyScale),
		string(types.ApiTypeFireworks),
	}
}

func (f *StandardEngineFactory) DefaultProvider() string {
	return string(types.ApiTypeOpenAI)
}

func (f *StandardEngineFactory) validateSettings(settings *settings.StepSettings, provider string) error {
	if settings.Chat == nil {
		return errors.New("chat settings cannot be nil")
	}
	if settings.API == nil {
		return errors.New("API settings cannot be nil")
	}

	apiKeyName := provider + "-api-key"
	if k, ok := settings.API.APIKeys[apiKeyName]; !ok || k == "" {
		return errors.Errorf("missing API key %s", apiKeyName)
	}

	// Base URL is optional for OpenAI (uses default), but required for others
	baseURLName := provider + "-base-url"
	baseURL, ok := settings.API.BaseUrls[baseURLName]
	if !ok && provider != string(types.ApiTypeOpenAI) {
		return errors.Errorf("missing base URL %s for provider %s", baseURLName, provider)
	}
	if ok {
		policy := security.BaseURLPolicy{}
		if settings.Client != nil {
			policy.AllowLocal = settings.Client.AllowLocalBaseURL
		}
		if err := security.CheckBaseURL(baseURL, policy); err != nil {
			return err
		}
	}

	return nil
}

var _ EngineFactory = (*StandardEngineFactory)(nil)
