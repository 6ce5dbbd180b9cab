package engine

import (
	"context"
	"encoding/json"

	"github.com/go-go-golems/agentchain/pkg/turns"
)

// Engine is the agent capability: it takes one stage's request (rendered
// instructions, model settings, output schema and the conversation so far) and
// returns the items the model generated plus its structured output.
//
// Engines never modify req.History. Latency, retries and transport are the
// engine's business; callers only see the Response or an error.
type Engine interface {
	RunInference(ctx context.Context, req *Request) (*Response, error)
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(ctx context.Context, req *Request) (*Response, error)

func (f EngineFunc) RunInference(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Request is everything one agent call needs.
type Request struct {
	// Agent is the agent's display name, Stage its slug in the pipeline.
	Agent string
	Stage string
	Model string
	// Instructions is the already rendered instruction template.
	Instructions string
	History      turns.History

	StructuredOutput *StructuredOutputConfig
	Inference        *InferenceConfig

	// Metadata is forwarded to providers that support request metadata.
	Metadata map[string]string
}

// Response is what an engine returns for one agent call.
type Response struct {
	// Items are the newly generated conversation items, in order.
	Items []turns.Block
	// Output is the candidate structured output; nil means the model produced none.
	Output json.RawMessage
	// Refusal is set when the provider reported a refusal instead of an answer.
	Refusal string
	Usage   *Usage
	// StopReason is the provider's finish reason, when known.
	StopReason string
}

// Usage reports token accounting for one call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// HasOutput reports whether the response carries a candidate structured output.
func (r *Response) HasOutput() bool {
	return r != nil && len(r.Output) > 0 && string(r.Output) != "null"
}
