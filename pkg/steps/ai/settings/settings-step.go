package settings

import (
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/go-go-golems/agentchain/pkg/inference/engine"
	"github.com/go-go-golems/agentchain/pkg/steps/ai/types"
	"github.com/huandu/go-clone"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type factoryConfigFileWrapper struct {
	Factories *StepSettings
}

type StepSettings struct {
	API      *APISettings      `yaml:"api,omitempty" mapstructure:"api"`
	Chat     *ChatSettings     `yaml:"chat,omitempty" mapstructure:"chat"`
	Client   *ClientSettings   `yaml:"client,omitempty" mapstructure:"client"`
	Workflow *WorkflowSettings `yaml:"workflow,omitempty" mapstructure:"workflow"`
}

func NewStepSettings() *StepSettings {
	return &StepSettings{
		API:      NewAPISettings(),
		Chat:     NewChatSettings(),
		Client:   NewClientSettings(),
		Workflow: NewWorkflowSettings(),
	}
}

func NewStepSettingsFromYAML(s io.Reader) (*StepSettings, error) {
	settings_ := factoryConfigFileWrapper{
		Factories: NewStepSettings(),
	}
	if err := yaml.NewDecoder(s).Decode(&settings_); err != nil {
		return nil, err
	}

	return settings_.Factories, nil
}

// Flat keys bound to command line flags and environment variables. They take
// precedence over the nested config file sections.
const (
	KeyOpenAIAPIKey   = "openai-api-key"
	KeyOpenAIBaseURL  = "openai-base-url"
	KeyModel          = "model"
	KeyApproval       = "approval"
	KeyStageTimeout   = "stage-timeout"
	KeyParallelism    = "parallelism"
	KeyTokenWarnAbove = "token-warn-above"
)

// NewStepSettingsFromViper decodes the nested config sections and then applies
// the flat flag/env overrides.
func NewStepSettingsFromViper(v *viper.Viper) (*StepSettings, error) {
	ss := NewStepSettings()
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		secondsToDurationHook,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(ss, hook); err != nil {
		return nil, errors.Wrap(err, "decode settings")
	}
	// same precedence as UnmarshalYAML: timeout, then timeout_second
	switch {
	case v.IsSet("client.timeout") && ss.Client.Timeout != nil:
		secs := int(ss.Client.Timeout.Seconds())
		ss.Client.TimeoutSeconds = &secs
	case v.IsSet("client.timeout_second") && ss.Client.TimeoutSeconds != nil:
		t := time.Duration(*ss.Client.TimeoutSeconds) * time.Second
		ss.Client.Timeout = &t
	}

	if key := v.GetString(KeyOpenAIAPIKey); key != "" {
		ss.API.APIKeys[APIKeyKey(types.ApiTypeOpenAI)] = key
	}
	if u := v.GetString(KeyOpenAIBaseURL); u != "" {
		ss.API.BaseUrls[BaseURLKey(types.ApiTypeOpenAI)] = u
	}
	if m := v.GetString(KeyModel); m != "" {
		ss.Chat.Engine = &m
	}
	if a := v.GetString(KeyApproval); a != "" {
		ss.Workflow.Approval = a
	}
	if v.IsSet(KeyStageTimeout) {
		ss.Workflow.StageTimeout = v.GetDuration(KeyStageTimeout)
	}
	if v.IsSet(KeyParallelism) {
		ss.Workflow.Parallelism = v.GetInt(KeyParallelism)
	}
	if v.IsSet(KeyTokenWarnAbove) {
		ss.Workflow.TokenWarnAbove = v.GetInt(KeyTokenWarnAbove)
	}

	if err := ss.Validate(); err != nil {
		return nil, err
	}
	return ss, nil
}

// secondsToDurationHook reads bare numbers as seconds when decoding into a
// time.Duration. Strings like "1m30s" are left to the standard duration hook.
func secondsToDurationHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != reflect.TypeOf(time.Duration(0)) || from == to {
		return data, nil
	}
	switch from.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return time.Duration(reflect.ValueOf(data).Int()) * time.Second, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return time.Duration(reflect.ValueOf(data).Uint()) * time.Second, nil
	case reflect.Float32, reflect.Float64:
		return time.Duration(reflect.ValueOf(data).Float() * float64(time.Second)), nil
	default:
		return data, nil
	}
}

// Validate checks the settings for values no component can work with.
// Credentials are checked when the client is built, not here.
func (ss *StepSettings) Validate() error {
	if ss.API == nil || ss.Chat == nil || ss.Client == nil || ss.Workflow == nil {
		return errors.New("incomplete settings: api, chat, client and workflow sections are required")
	}
	if ss.Chat.ApiType == nil {
		return errors.New("no chat api type specified")
	}
	if !ss.Chat.ApiType.IsSupported() {
		return errors.Errorf("unsupported api type %q", *ss.Chat.ApiType)
	}
	switch strings.ToLower(ss.Workflow.Approval) {
	case "auto", "deny", "prompt":
	default:
		return errors.Errorf("unknown approval mode %q (expected auto, deny or prompt)", ss.Workflow.Approval)
	}
	if ss.Workflow.Parallelism < 1 {
		return errors.Errorf("parallelism must be at least 1, got %d", ss.Workflow.Parallelism)
	}
	if ss.Workflow.StageTimeout < 0 {
		return errors.Errorf("stage timeout must not be negative, got %s", ss.Workflow.StageTimeout)
	}
	for stage, effort := range ss.Workflow.ReasoningEfforts {
		switch engine.ReasoningEffort(effort) {
		case engine.ReasoningEffortMinimal, engine.ReasoningEffortLow, engine.ReasoningEffortMedium, engine.ReasoningEffortHigh:
		default:
			return errors.Errorf("unknown reasoning effort %q for stage %s", effort, stage)
		}
	}
	return nil
}

func (ss *StepSettings) Clone() *StepSettings {
	return clone.Clone(ss).(*StepSettings)
}

// GetMetadata returns the non-secret settings as a flat map for logging and events.
func (ss *StepSettings) GetMetadata() map[string]interface{} {
	metadata := make(map[string]interface{})

	if ss.Chat != nil {
		if ss.Chat.Engine != nil {
			metadata["ai-engine"] = *ss.Chat.Engine
		}
		if ss.Chat.ApiType != nil {
			metadata["ai-api-type"] = string(*ss.Chat.ApiType)
		}
		if ss.Chat.MaxResponseTokens != nil {
			metadata["ai-max-response-tokens"] = *ss.Chat.MaxResponseTokens
		}
		if ss.Chat.Temperature != nil {
			metadata["ai-temperature"] = *ss.Chat.Temperature
		}
	}

	if ss.Client != nil {
		if ss.Client.Timeout != nil {
			metadata["timeout"] = ss.Client.Timeout.String()
		}
		if ss.Client.Organization != nil && *ss.Client.Organization != "" {
			metadata["organization"] = *ss.Client.Organization
		}
		if ss.Client.UserAgent != nil {
			metadata["user-agent"] = *ss.Client.UserAgent
		}
		// Note: HTTPClient is not included as it's not a simple scalar value
	}

	if ss.Workflow != nil {
		metadata["workflow-id"] = ss.Workflow.ID
		metadata["approval"] = ss.Workflow.Approval
		if ss.Workflow.StageTimeout > 0 {
			metadata["stage-timeout"] = ss.Workflow.StageTimeout.String()
		}
		for stage, model := range ss.Workflow.Models {
			metadata["model-"+stage] = model
		}
	}

	return metadata
}
