// Package tracing wraps workflow runs in OpenTelemetry spans. Spans are a side
// channel: nothing here can change the outcome of a run.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const InstrumentationName = "github.com/go-go-golems/agentchain"

const (
	AttrWorkflowID  = attribute.Key("workflow_id")
	AttrTraceSource = attribute.Key("__trace_source__")
	AttrRunID       = attribute.Key("run_id")
	AttrStage       = attribute.Key("stage")
	AttrAgent       = attribute.Key("agent")
	AttrModel       = attribute.Key("model")
	AttrHistoryLen  = attribute.Key("history_len")
	AttrApproved    = attribute.Key("approved")
	AttrState       = attribute.Key("state")
)

// Tracer opens the run span and its per stage children.
type Tracer struct {
	tracer     trace.Tracer
	name       string
	workflowID string
	source     string
}

type Option func(*Tracer)

// WithTracerProvider uses tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(t *Tracer) {
		t.tracer = tp.Tracer(InstrumentationName)
	}
}

// New creates a tracer whose run spans are called name and carry the workflow
// id and trace source.
func New(name, workflowID, source string, opts ...Option) *Tracer {
	t := &Tracer{
		name:       name,
		workflowID: workflowID,
		source:     source,
	}
	for _, o := range opts {
		o(t)
	}
	if t.tracer == nil {
		t.tracer = otel.Tracer(InstrumentationName)
	}
	return t
}

// StartRun opens the span covering a whole run.
func (t *Tracer) StartRun(ctx context.Context, runID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, t.name, trace.WithAttributes(
		AttrWorkflowID.String(t.workflowID),
		AttrTraceSource.String(t.source),
		AttrRunID.String(runID),
	))
}

// StartStage opens a child span for one agent call.
func (t *Tracer) StartStage(ctx context.Context, stage, agent, model string, historyLen int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "stage "+stage, trace.WithAttributes(
		AttrStage.String(stage),
		AttrAgent.String(agent),
		AttrModel.String(model),
		AttrHistoryLen.Int(historyLen),
	))
}

// StartGate opens a child span for the approval decision.
func (t *Tracer) StartGate(ctx context.Context) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "approval gate")
}

// End closes span, marking it failed when err is set.
func End(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
