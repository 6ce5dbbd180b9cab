package middleware

import (
	"context"

	"github.com/go-go-golems/agentchain/pkg/inference/engine"
)

// HandlerFunc represents a function that processes one agent call.
type HandlerFunc func(ctx context.Context, req *engine.Request) (*engine.Response, error)

// Middleware wraps a HandlerFunc with additional functionality.
// Middleware are applied in order: Chain(m1, m2, m3) results in m1(m2(m3(handler))).
type Middleware func(HandlerFunc) HandlerFunc

// Chain composes multiple middleware into a single HandlerFunc.
func Chain(handler HandlerFunc, middlewares ...Middleware) HandlerFunc {
	// Apply middlewares in reverse order so they execute in correct order
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

// engineHandlerFunc adapts an Engine to HandlerFunc interface.
func engineHandlerFunc(e engine.Engine) HandlerFunc {
	return func(ctx context.Context, req *engine.Request) (*engine.Response, error) {
		return e.RunInference(ctx, req)
	}
}

// EngineWithMiddleware wraps an Engine with a middleware chain.
type EngineWithMiddleware struct {
	handler HandlerFunc
}

var _ engine.Engine = (*EngineWithMiddleware)(nil)

// NewEngineWithMiddleware creates a new engine with middleware support.
func NewEngineWithMiddleware(e engine.Engine, middlewares ...Middleware) *EngineWithMiddleware {
	handler := engineHandlerFunc(e)
	chainedHandler := Chain(handler, middlewares...)

	return &EngineWithMiddleware{
		handler: chainedHandler,
	}
}

// RunInference executes the middleware chain followed by the underlying engine.
func (e *EngineWithMiddleware) RunInference(ctx context.Context, req *engine.Request) (*engine.Response, error) {
	return e.handler(ctx, req)
}
