package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func attrMap(kvs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	ret := map[attribute.Key]attribute.Value{}
	for _, kv := range kvs {
		ret[kv.Key] = kv.Value
	}
	return ret
}

func TestRunAndStageSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	tr := New("InnovationCenterAgentWorkflow", "wf_1", "agent-builder", WithTracerProvider(tp))

	ctx, run := tr.StartRun(context.Background(), "run-1")
	_, stage := tr.StartStage(ctx, "intake", "Intake", "gpt-5-nano", 1)
	End(stage, errors.New("boom"))
	_, gate := tr.StartGate(ctx)
	End(gate, nil, AttrApproved.Bool(false))
	End(run, nil, AttrState.String("DeniedDone"))

	spans := rec.Ended()
	require.Len(t, spans, 3)

	stageSpan, gateSpan, runSpan := spans[0], spans[1], spans[2]
	require.Equal(t, "InnovationCenterAgentWorkflow", runSpan.Name())
	attrs := attrMap(runSpan.Attributes())
	require.Equal(t, "wf_1", attrs[AttrWorkflowID].AsString())
	require.Equal(t, "agent-builder", attrs[AttrTraceSource].AsString())
	require.Equal(t, "run-1", attrs[AttrRunID].AsString())
	require.Equal(t, "DeniedDone", attrs[AttrState].AsString())

	require.Equal(t, "stage intake", stageSpan.Name())
	require.Equal(t, runSpan.SpanContext().TraceID(), stageSpan.SpanContext().TraceID())
	require.Equal(t, runSpan.SpanContext().SpanID(), stageSpan.Parent().SpanID())
	require.Equal(t, codes.Error, stageSpan.Status().Code)

	require.False(t, attrMap(gateSpan.Attributes())[AttrApproved].AsBool())
	require.Equal(t, codes.Ok, gateSpan.Status().Code)
}

func TestDefaultsToGlobalProvider(t *testing.T) {
	tr := New("x", "wf", "src")
	ctx, span := tr.StartRun(context.Background(), "r")
	require.NotNil(t, ctx)
	End(span, nil)
}
