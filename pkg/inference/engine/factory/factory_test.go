package factory

import (
	"context"
	"testing"
	"time"

	"github.com/go-go-golems/agentchain/pkg/inference/engine"
	"github.com/go-go-golems/agentchain/pkg/inference/middleware"
	"github.com/go-go-golems/agentchain/pkg/security"
	"github.com/go-go-golems/agentchain/pkg/steps/ai/openai"
	"github.com/go-go-golems/agentchain/pkg/steps/ai/settings"
	"github.com/go-go-golems/agentchain/pkg/steps/ai/types"
	"github.com/go-go-golems/agentchain/pkg/turns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createValidOpenAISettings() *settings.StepSettings {
	ss := settings.NewStepSettings()
	ss.API.APIKeys["openai-api-key"] = "test-key"
	return ss
}

func TestStandardEngineFactory_SupportedProviders(t *testing.T) {
	factory := NewStandardEngineFactory()

	providers := factory.SupportedProviders()

	assert.Contains(t, providers, string(types.ApiTypeOpenAI))
	assert.Contains(t, providers, string(types.ApiTypeFireworks))
	assert.Equal(t, string(types.ApiTypeOpenAI), factory.DefaultProvider())
}

func TestStandardEngineFactory_CreateEngine_NilSettings(t *testing.T) {
	factory := NewStandardEngineFactory()

	e, err := factory.CreateEngine(nil)

	assert.Nil(t, e)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "settings cannot be nil")
}

func TestStandardEngineFactory_CreateEngine_OpenAI_Success(t *testing.T) {
	factory := NewStandardEngineFactory()

	e, err := factory.CreateEngine(createValidOpenAISettings())

	require.NoError(t, err)
	assert.IsType(t, &openai.OpenAIEngine{}, e)
}

func TestStandardEngineFactory_CreateEngine_MissingKey(t *testing.T) {
	factory := NewStandardEngineFactory()

	_, err := factory.CreateEngine(settings.NewStepSettings())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai-api-key")
}

func TestStandardEngineFactory_CreateEngine_UnsupportedProvider(t *testing.T) {
	factory := NewStandardEngineFactory()
	ss := createValidOpenAISettings()
	claude := types.ApiType("claude")
	ss.Chat.ApiType = &claude
	ss.API.APIKeys["claude-api-key"] = "k"

	_, err := factory.CreateEngine(ss)
	require.Error(t, err)
}

func TestWrapWithDefaultMiddlewaresAppliesStageTimeout(t *testing.T) {
	ss := createValidOpenAISettings()
	ss.Workflow.StageTimeout = 20 * time.Millisecond

	slow := engine.EngineFunc(func(ctx context.Context, req *engine.Request) (*engine.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	var sawExtra bool
	extra := func(next middleware.HandlerFunc) middleware.HandlerFunc {
		return func(ctx context.Context, req *engine.Request) (*engine.Response, error) {
			sawExtra = true
			return next(ctx, req)
		}
	}

	e, err := WrapWithDefaultMiddlewares(slow, ss, extra)
	require.NoError(t, err)

	_, err = e.RunInference(context.Background(), &engine.Request{
		Agent:   "Intake",
		Stage:   "intake",
		History: turns.NewHistoryFromUserPrompt("hello"),
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, sawExtra)
}

func TestStandardEngineFactory_CreateEngine_LocalBaseURL(t *testing.T) {
	factory := NewStandardEngineFactory()
	ss := createValidOpenAISettings()
	ss.API.BaseUrls["openai-base-url"] = "http://127.0.0.1:4000/v1"

	_, err := factory.CreateEngine(ss)
	require.ErrorIs(t, err, security.ErrUnsupportedScheme)

	ss.Client.AllowLocalBaseURL = true
	e, err := factory.CreateEngine(ss)
	require.NoError(t, err)
	assert.NotNil(t, e)
}
