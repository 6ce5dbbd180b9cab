package factory

import (
	"github.com/go-go-golems/agentchain/pkg/inference/engine"
	"github.com/go-go-golems/agentchain/pkg/inference/middleware"
	"github.com/go-go-golems/agentchain/pkg/steps/ai/settings"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// NewEngineFromStepSettings creates the provider engine and wraps it with the
// standard middleware stack: logging, prompt size accounting and the per-stage
// timeout from the workflow settings.
func NewEngineFromStepSettings(stepSettings *settings.StepSettings, extra ...middleware.Middleware) (engine.Engine, error) {
	e, err := NewStandardEngineFactory().CreateEngine(stepSettings)
	if err != nil {
		return nil, err
	}
	return WrapWithDefaultMiddlewares(e, stepSettings, extra...)
}

// WrapWithDefaultMiddlewares applies the standard middleware stack to any engine.
func WrapWithDefaultMiddlewares(e engine.Engine, stepSettings *settings.StepSettings, extra ...middleware.Middleware) (engine.Engine, error) {
	if stepSettings == nil || stepSettings.Workflow == nil {
		return nil, errors.New("workflow settings cannot be nil")
	}

	codec, err := middleware.NewDefaultCodec()
	if err != nil {
		return nil, errors.Wrap(err, "load tokenizer")
	}

	mws := []middleware.Middleware{
		middleware.NewLoggingMiddleware(log.Logger),
		middleware.NewTokenCountMiddleware(codec, stepSettings.Workflow.TokenWarnAbove),
		middleware.NewTimeoutMiddleware(stepSettings.Workflow.StageTimeout),
	}
	mws = append(mws, extra...)
	return middleware.NewEngineWithMiddleware(e, mws...), nil
}
