package workflow

import (
	"github.com/go-go-golems/agentchain/pkg/approval"
	"github.com/go-go-golems/agentchain/pkg/events"
	"github.com/go-go-golems/agentchain/pkg/steps/ai/settings"
	"go.opentelemetry.io/otel/trace"
)

type Option func(*Workflow)

// WithGate replaces the default auto-approve gate.
func WithGate(g approval.Gate) Option {
	return func(w *Workflow) {
		w.gate = g
	}
}

// WithEventSink adds sinks receiving lifecycle events. Repeatable.
func WithEventSink(sinks ...events.EventSink) Option {
	return func(w *Workflow) {
		w.sinks = append(w.sinks, sinks...)
	}
}

func WithWorkflowID(id string) Option {
	return func(w *Workflow) {
		w.workflowID = id
	}
}

func WithTraceSource(source string) Option {
	return func(w *Workflow) {
		w.traceSource = source
	}
}

func WithTraceName(name string) Option {
	return func(w *Workflow) {
		w.traceName = name
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(w *Workflow) {
		w.tracerProvider = tp
	}
}

// WithApprovalMessage sets how the gate's question is built from the state
// after stage one.
func WithApprovalMessage(f func(*State) string) Option {
	return func(w *Workflow) {
		w.approvalMessage = f
	}
}

// WithSettings applies identity and trace naming from the workflow settings.
func WithSettings(ws *settings.WorkflowSettings) Option {
	return func(w *Workflow) {
		if ws == nil {
			return
		}
		if ws.ID != "" {
			WithWorkflowID(ws.ID)(w)
		}
		if ws.TraceName != "" {
			WithTraceName(ws.TraceName)(w)
		}
		if ws.TraceSource != "" {
			WithTraceSource(ws.TraceSource)(w)
		}
	}
}
