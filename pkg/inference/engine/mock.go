package engine

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-go-golems/agentchain/pkg/turns"
	"github.com/pkg/errors"
)

// MockEngine answers each stage from a script and records every request it
// sees. It is meant for tests and dry runs.
type MockEngine struct {
	mu       sync.Mutex
	handlers map[string]EngineFunc
	requests []*Request
}

var _ Engine = (*MockEngine)(nil)

func NewMockEngine() *MockEngine {
	return &MockEngine{handlers: map[string]EngineFunc{}}
}

// On sets the handler for requests of the given stage.
func (m *MockEngine) On(stage string, f EngineFunc) *MockEngine {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[stage] = f
	return m
}

// OnOutput makes stage answer with a single assistant item holding v as JSON.
func (m *MockEngine) OnOutput(stage string, v interface{}) *MockEngine {
	return m.On(stage, func(ctx context.Context, req *Request) (*Response, error) {
		return JSONResponse(req, v)
	})
}

func (m *MockEngine) RunInference(ctx context.Context, req *Request) (*Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	h, ok := m.handlers[req.Stage]
	m.mu.Unlock()

	if !ok {
		return nil, errors.Errorf("mock engine: no handler for stage %s", req.Stage)
	}
	return h(ctx, req)
}

// Requests returns the requests seen so far, in call order.
func (m *MockEngine) Requests() []*Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	ret := make([]*Request, len(m.requests))
	copy(ret, m.requests)
	return ret
}

// Stages returns the stage of every request seen so far, in call order.
func (m *MockEngine) Stages() []string {
	var ret []string
	for _, r := range m.Requests() {
		ret = append(ret, r.Stage)
	}
	return ret
}

// JSONResponse builds the response an engine gives for structured output v.
func JSONResponse(req *Request, v interface{}) (*Response, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	item := turns.WithBlockMetadata(turns.NewAssistantJSONBlock(string(raw)), map[string]any{
		turns.MetaKeyAgent: req.Agent,
		turns.MetaKeyStage: req.Stage,
		turns.MetaKeyModel: req.Model,
	})
	return &Response{
		Items:      []turns.Block{item},
		Output:     raw,
		StopReason: "stop",
	}, nil
}
