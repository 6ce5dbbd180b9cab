package openai

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-go-golems/agentchain/pkg/inference/engine"
	"github.com/go-go-golems/agentchain/pkg/steps/ai/settings"
	"github.com/go-go-golems/agentchain/pkg/turns"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
)

// OpenAIEngine implements engine.Engine on top of the chat completions API of
// any OpenAI compatible provider.
type OpenAIEngine struct {
	settings *settings.StepSettings
	client   *go_openai.Client
}

var _ engine.Engine = (*OpenAIEngine)(nil)

// NewOpenAIEngine builds the client from settings once; the engine is safe
// for concurrent use.
func NewOpenAIEngine(s *settings.StepSettings) (*OpenAIEngine, error) {
	if s == nil || s.Chat == nil || s.Chat.ApiType == nil {
		return nil, errors.New("no chat engine specified")
	}
	client, err := MakeClientWithSettings(s.API, s.Client, *s.Chat.ApiType)
	if err != nil {
		return nil, err
	}
	return &OpenAIEngine{
		settings: s,
		client:   client,
	}, nil
}

// RunInference sends the conversation to the provider and returns the new
// items. A refusal is returned as a refusal item with no output.
func (e *OpenAIEngine) RunInference(ctx context.Context, req *engine.Request) (*engine.Response, error) {
	log.Debug().
		Str("agent", req.Agent).
		Int("history_len", req.History.Len()).
		Bool("stream", false).
		Msg("OpenAI RunInference started")

	chatReq, err := MakeCompletionRequest(e.settings, req)
	if err != nil {
		return nil, err
	}

	if e.settings.Client != nil && e.settings.Client.Timeout != nil && *e.settings.Client.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *e.settings.Client.Timeout)
		defer cancel()
	}

	resp, err := e.client.CreateChatCompletion(ctx, *chatReq)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: chat completion", req.Agent)
	}

	ret := &engine.Response{
		Usage: &engine.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}
	if len(resp.Choices) == 0 {
		log.Warn().Str("agent", req.Agent).Msg("OpenAI response has no choices")
		return ret, nil
	}

	choice := resp.Choices[0]
	ret.StopReason = string(choice.FinishReason)
	meta := map[string]any{
		turns.MetaKeyAgent: req.Agent,
		turns.MetaKeyStage: req.Stage,
		turns.MetaKeyModel: resp.Model,
	}

	if choice.Message.Refusal != "" {
		ret.Refusal = choice.Message.Refusal
		ret.Items = append(ret.Items, turns.WithBlockMetadata(turns.NewRefusalBlock(choice.Message.Refusal), meta))
		log.Debug().Str("agent", req.Agent).Str("refusal", choice.Message.Refusal).Msg("OpenAI model refused")
		return ret, nil
	}

	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		return ret, nil
	}

	if req.StructuredOutput != nil && req.StructuredOutput.IsEnabled() {
		ret.Items = append(ret.Items, turns.WithBlockMetadata(turns.NewAssistantJSONBlock(content), meta))
		ret.Output = json.RawMessage(content)
	} else {
		ret.Items = append(ret.Items, turns.WithBlockMetadata(turns.NewAssistantTextBlock(content), meta))
	}

	log.Debug().
		Str("agent", req.Agent).
		Str("finish_reason", ret.StopReason).
		Int("input_tokens", ret.Usage.InputTokens).
		Int("output_tokens", ret.Usage.OutputTokens).
		Msg("OpenAI RunInference completed")
	return ret, nil
}
