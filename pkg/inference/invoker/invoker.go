// Package invoker runs one agent stage: it renders the agent's instructions,
// calls the engine with the current history and validates the structured
// output against the agent's schema.
package invoker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-go-golems/agentchain/pkg/agents"
	"github.com/go-go-golems/agentchain/pkg/inference/engine"
	"github.com/go-go-golems/agentchain/pkg/schema"
	"github.com/go-go-golems/agentchain/pkg/turns"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	ErrEmptyHistory = errors.New("history is empty")
	ErrNoOutput     = errors.New("agent produced no output")
)

// NoOutputError reports a stage that ended without a valid structured output.
// Reason is one of "absent", "refusal" or "invalid".
type NoOutputError struct {
	Agent  string
	Reason string
	// Refusal is the model's refusal text, if it refused.
	Refusal string
	Err     error
}

func (e *NoOutputError) Error() string {
	switch {
	case e.Refusal != "":
		return fmt.Sprintf("agent %s produced no output: refused: %s", e.Agent, e.Refusal)
	case e.Err != nil:
		return fmt.Sprintf("agent %s produced no output: %s: %v", e.Agent, e.Reason, e.Err)
	default:
		return fmt.Sprintf("agent %s produced no output: %s", e.Agent, e.Reason)
	}
}

func (e *NoOutputError) Is(target error) bool {
	return target == ErrNoOutput
}

func (e *NoOutputError) Unwrap() error {
	return e.Err
}

// StageResult is the validated outcome of one stage.
type StageResult[T any] struct {
	Agent        string `json:"agent" yaml:"agent"`
	OutputText   string `json:"output_text" yaml:"output_text"`
	OutputParsed T      `json:"output_parsed" yaml:"output_parsed"`
}

// Invoker calls agents through an engine. It holds no per-run state and is
// safe for concurrent use.
type Invoker struct {
	engine   engine.Engine
	metadata map[string]string
}

type Option func(*Invoker)

// WithMetadata adds request metadata forwarded to the provider on every call.
func WithMetadata(kv map[string]string) Option {
	return func(i *Invoker) {
		for k, v := range kv {
			i.metadata[k] = v
		}
	}
}

func New(e engine.Engine, opts ...Option) (*Invoker, error) {
	if e == nil {
		return nil, errors.New("invoker needs an engine")
	}
	i := &Invoker{engine: e, metadata: map[string]string{}}
	for _, o := range opts {
		o(i)
	}
	return i, nil
}

// Invoke runs spec against history and decodes the output into T.
// The returned items are what the agent generated; appending them to the
// history is the caller's job. history is never modified.
func Invoke[T any](
	ctx context.Context,
	inv *Invoker,
	spec *agents.Spec,
	history turns.History,
	data interface{},
) (*StageResult[T], []turns.Block, error) {
	if err := spec.Validate(); err != nil {
		return nil, nil, err
	}
	if history.IsEmpty() {
		return nil, nil, errors.Wrap(ErrEmptyHistory, spec.Name)
	}

	instructions, err := spec.Render(data)
	if err != nil {
		return nil, nil, err
	}
	so, err := engine.NewStructuredOutputConfig(spec.Output, spec.Description)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "structured output of agent %s", spec.Name)
	}

	req := &engine.Request{
		Agent:            spec.Name,
		Stage:            spec.SlugOrDefault(),
		Model:            spec.Model,
		Instructions:     instructions,
		History:          history,
		StructuredOutput: so,
		Inference:        spec.InferenceConfig(),
		Metadata:         inv.requestMetadata(),
	}

	resp, err := inv.engine.RunInference(ctx, req)
	// a cancelled run keeps nothing from the interrupted call
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, nil, ctxErr
	}
	if err != nil {
		return nil, nil, errors.Wrapf(err, "agent %s", spec.Name)
	}
	if resp == nil {
		return nil, nil, &NoOutputError{Agent: spec.Name, Reason: "absent"}
	}

	items := make([]turns.Block, len(resp.Items))
	copy(items, resp.Items)

	if resp.Refusal != "" {
		return nil, items, &NoOutputError{Agent: spec.Name, Reason: "refusal", Refusal: resp.Refusal}
	}
	if !resp.HasOutput() {
		return nil, items, &NoOutputError{Agent: spec.Name, Reason: "absent"}
	}

	parsed, err := schema.Decode[T](spec.Output, resp.Output)
	if err != nil {
		log.Debug().Err(err).Str("agent", spec.Name).Msg("agent output failed validation")
		return nil, items, &NoOutputError{Agent: spec.Name, Reason: "invalid", Err: err}
	}

	// re-encode so OutputText is canonical JSON of the typed value
	text, err := json.Marshal(parsed)
	if err != nil {
		return nil, items, errors.Wrapf(err, "encode output of agent %s", spec.Name)
	}

	return &StageResult[T]{
		Agent:        spec.Name,
		OutputText:   string(text),
		OutputParsed: parsed,
	}, items, nil
}

func (i *Invoker) requestMetadata() map[string]string {
	if len(i.metadata) == 0 {
		return nil
	}
	ret := make(map[string]string, len(i.metadata))
	for k, v := range i.metadata {
		ret[k] = v
	}
	return ret
}
