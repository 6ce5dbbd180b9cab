package openai

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-go-golems/agentchain/pkg/inference/engine"
	"github.com/go-go-golems/agentchain/pkg/steps/ai/settings"
	ai_types "github.com/go-go-golems/agentchain/pkg/steps/ai/types"
	"github.com/go-go-golems/agentchain/pkg/turns"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
)

func isReasoningModel(engine string) bool {
	m := strings.ToLower(strings.TrimSpace(engine))
	return strings.HasPrefix(m, "o1") ||
		strings.HasPrefix(m, "o3") ||
		strings.HasPrefix(m, "o4") ||
		strings.HasPrefix(m, "gpt-5")
}

// MakeCompletionRequest translates one agent request into a chat completion
// request. The rendered instructions become the leading system message; they
// are never part of the shared history.
func MakeCompletionRequest(
	s *settings.StepSettings,
	req *engine.Request,
) (*go_openai.ChatCompletionRequest, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}

	model := req.Model
	if model == "" && s != nil && s.Chat != nil && s.Chat.Engine != nil {
		model = *s.Chat.Engine
	}
	if model == "" {
		return nil, errors.New("no engine specified")
	}

	msgs := make([]go_openai.ChatCompletionMessage, 0, req.History.Len()+1)
	if strings.TrimSpace(req.Instructions) != "" {
		msgs = append(msgs, go_openai.ChatCompletionMessage{
			Role:    go_openai.ChatMessageRoleSystem,
			Content: req.Instructions,
		})
	}
	msgs = append(msgs, historyToMessages(req.History)...)

	ret := &go_openai.ChatCompletionRequest{
		Model:    model,
		Messages: msgs,
		Metadata: req.Metadata,
	}

	cfg := req.Inference
	if s != nil && s.Chat != nil {
		// chat settings are the fallback, the agent's own config wins
		cfg = (&engine.InferenceConfig{
			Temperature:       s.Chat.Temperature,
			MaxResponseTokens: s.Chat.MaxResponseTokens,
		}).Merge(req.Inference)
	}
	reasoning := isReasoningModel(model)
	if reasoning {
		cfg = engine.SanitizeForReasoningModel(cfg)
	} else {
		cfg = engine.SanitizeForNonReasoningModel(cfg)
	}

	if cfg != nil {
		if cfg.Temperature != nil {
			ret.Temperature = float32(*cfg.Temperature)
		}
		if cfg.MaxResponseTokens != nil {
			if reasoning {
				ret.MaxCompletionTokens = *cfg.MaxResponseTokens
			} else {
				ret.MaxTokens = *cfg.MaxResponseTokens
			}
		}
		if cfg.ReasoningEffort != nil {
			ret.ReasoningEffort = string(*cfg.ReasoningEffort)
		}
		if cfg.Store != nil {
			ret.Store = *cfg.Store
		}
		if cfg.ReasoningSummary != nil {
			log.Trace().Str("summary", *cfg.ReasoningSummary).Msg("reasoning summary is not supported by chat completions, ignoring")
		}
	}

	if so := req.StructuredOutput; so != nil && so.IsEnabled() {
		if err := so.Validate(); err != nil {
			return nil, err
		}
		schemaBytes, err := json.Marshal(so.Schema)
		if err != nil {
			return nil, errors.Wrap(err, "marshal structured output schema")
		}
		ret.ResponseFormat = &go_openai.ChatCompletionResponseFormat{
			Type: go_openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &go_openai.ChatCompletionResponseFormatJSONSchema{
				Name:        so.Name,
				Description: so.Description,
				Schema:      json.RawMessage(schemaBytes),
				Strict:      so.StrictOrDefault(),
			},
		}
	}

	return ret, nil
}

func historyToMessages(h turns.History) []go_openai.ChatCompletionMessage {
	var msgs []go_openai.ChatCompletionMessage
	for _, b := range h.Blocks() {
		var role string
		switch b.Kind {
		case turns.BlockKindUser:
			role = go_openai.ChatMessageRoleUser
		case turns.BlockKindSystem:
			role = go_openai.ChatMessageRoleSystem
		case turns.BlockKindLLMText:
			role = go_openai.ChatMessageRoleAssistant
		case turns.BlockKindReasoning, turns.BlockKindOther:
			// chat completions has no slot for these
			continue
		default:
			continue
		}
		text := strings.TrimSpace(b.Text())
		if text == "" {
			log.Debug().Str("role", b.Role).Str("kind", b.Kind.String()).Msg("OpenAI request: skipping block without text")
			continue
		}
		msgs = append(msgs, go_openai.ChatCompletionMessage{
			Role:    role,
			Content: text,
		})
	}
	return msgs
}

func MakeClient(apiSettings *settings.APISettings, apiType ai_types.ApiType) (*go_openai.Client, error) {
	return MakeClientWithSettings(apiSettings, nil, apiType)
}

// MakeClientWithSettings is MakeClient with the HTTP client knobs applied.
func MakeClientWithSettings(
	apiSettings *settings.APISettings,
	clientSettings *settings.ClientSettings,
	apiType ai_types.ApiType,
) (*go_openai.Client, error) {
	if apiSettings == nil {
		return nil, errors.New("no api settings")
	}
	apiKey, ok := apiSettings.APIKeys[settings.APIKeyKey(apiType)]
	if !ok || apiKey == "" {
		return nil, errors.Errorf("no API key for %s", apiType)
	}
	baseURL, ok := apiSettings.BaseUrls[settings.BaseURLKey(apiType)]
	if !ok || baseURL == "" {
		return nil, errors.Errorf("no base URL for %s", apiType)
	}
	config := go_openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL
	if clientSettings != nil {
		if clientSettings.Organization != nil {
			config.OrgID = *clientSettings.Organization
		}
		httpClient := clientSettings.HTTPClient
		if ua := clientSettings.UserAgent; ua != nil && *ua != "" {
			base := http.DefaultClient
			if httpClient != nil {
				base = httpClient
			}
			cp := *base
			cp.Transport = &userAgentTransport{base: base.Transport, userAgent: *ua}
			httpClient = &cp
		}
		if httpClient != nil {
			config.HTTPClient = httpClient
		}
	}
	client := go_openai.NewClientWithConfig(config)
	return client, nil
}

type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	// RoundTrippers must not modify the caller's request
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.userAgent)
	return base.RoundTrip(r)
}
