package middleware

import (
	"context"
	"time"

	"github.com/go-go-golems/agentchain/pkg/inference/engine"
)

// NewTimeoutMiddleware bounds every agent call with d. A zero or negative d
// leaves the call unbounded.
func NewTimeoutMiddleware(d time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		if d <= 0 {
			return next
		}
		return func(ctx context.Context, req *engine.Request) (*engine.Response, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(ctx, req)
		}
	}
}
