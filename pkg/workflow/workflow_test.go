package workflow

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"sync/atomic"
	"testing"

	"github.com/go-go-golems/agentchain/pkg/agents"
	"github.com/go-go-golems/agentchain/pkg/approval"
	"github.com/go-go-golems/agentchain/pkg/events"
	"github.com/go-go-golems/agentchain/pkg/inference/engine"
	"github.com/go-go-golems/agentchain/pkg/inference/invoker"
	"github.com/go-go-golems/agentchain/pkg/schema"
	"github.com/go-go-golems/agentchain/pkg/steps/ai/settings"
	"github.com/go-go-golems/agentchain/pkg/turns"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const aliceOrder = "Order: name=Alice, email=a@x.com, grams=50, time=3pm, paid=true"

var fieldRe = regexp.MustCompile(`(\w+)=([^,]+)`)

func parseOrder(text string) map[string]string {
	ret := map[string]string{}
	for _, m := range fieldRe.FindAllStringSubmatch(text, -1) {
		ret[m[1]] = m[2]
	}
	return ret
}

// orderEngine plays all three agents by parsing the user's order line.
func orderEngine() *engine.MockEngine {
	fields := func(req *engine.Request) map[string]string {
		return parseOrder(req.History.At(0).Text())
	}
	defaults := func(ctx context.Context, req *engine.Request) (*engine.Response, error) {
		f := fields(req)
		return engine.JSONResponse(req, agents.Defaults{
			DefaultName:  f["name"],
			DefaultEmail: f["email"],
			DefaultGrams: f["grams"],
			DefaultTime:  f["time"],
			DefaultPaid:  f["paid"] == "true",
		})
	}
	return engine.NewMockEngine().
		On(agents.SlugIntake, defaults).
		On(agents.SlugExtraction, func(ctx context.Context, req *engine.Request) (*engine.Response, error) {
			f := fields(req)
			return engine.JSONResponse(req, agents.OrderForm{
				Name:  f["name"],
				Email: f["email"],
				Grams: f["grams"],
				Time:  f["time"],
				Paid:  f["paid"] == "true",
			})
		}).
		On(agents.SlugConfirmation, defaults)
}

type countingGate struct {
	allow    bool
	err      error
	calls    int32
	messages []string
}

func (g *countingGate) Decide(ctx context.Context, message string) (bool, error) {
	atomic.AddInt32(&g.calls, 1)
	g.messages = append(g.messages, message)
	return g.allow, g.err
}

func newWorkflow(t *testing.T, e engine.Engine, opts ...Option) *Workflow {
	inv, err := invoker.New(e)
	require.NoError(t, err)
	reg, err := agents.NewDefaultRegistry()
	require.NoError(t, err)
	w, err := New(inv, reg, opts...)
	require.NoError(t, err)
	return w
}

func historyLens(reqs []*engine.Request) []int {
	var ret []int
	for _, r := range reqs {
		ret = append(ret, r.History.Len())
	}
	return ret
}

func TestAliceApproved(t *testing.T) {
	mock := orderEngine()
	gate := &countingGate{allow: true}
	rec := &events.RecordingSink{}
	w := newWorkflow(t, mock, WithGate(gate), WithEventSink(rec))

	res, err := w.Run(context.Background(), Input{InputAsText: aliceOrder})
	require.NoError(t, err)

	require.Equal(t, StateDone, res.State)
	require.True(t, res.Approved)
	require.Equal(t, "Alice", res.Intake.OutputParsed.DefaultName)
	require.True(t, res.Intake.OutputParsed.DefaultPaid)

	require.NotNil(t, res.Extraction)
	require.Equal(t, "Alice", res.Extraction.OutputParsed.Name)
	require.NoError(t, schema.MustFor[agents.OrderForm]().Validate([]byte(res.Extraction.OutputText)))
	require.NotNil(t, res.Confirmation)
	require.NoError(t, schema.MustFor[agents.Defaults]().Validate([]byte(res.Confirmation.OutputText)))
	require.Equal(t, res.Confirmation.OutputParsed, res.WorkflowState.Results)

	// exactly three calls, in order, each seeing strictly more history
	require.Equal(t, []string{agents.SlugIntake, agents.SlugExtraction, agents.SlugConfirmation}, mock.Stages())
	require.Equal(t, []int{1, 2, 3}, historyLens(mock.Requests()))
	require.Equal(t, 4, res.History.Len())
	require.Equal(t, turns.BlockKindUser, res.History.At(0).Kind)

	require.EqualValues(t, 1, gate.calls)
	require.Contains(t, gate.messages[0], "Alice")

	require.Equal(t, []events.EventType{
		events.EventTypeRunStarted,
		events.EventTypeStageStarted, events.EventTypeStageCompleted,
		events.EventTypeGateDecided,
		events.EventTypeStageStarted, events.EventTypeStageCompleted,
		events.EventTypeStageStarted, events.EventTypeStageCompleted,
		events.EventTypeRunCompleted,
	}, rec.Types())

	// history length in events never shrinks
	last := 0
	for _, e := range rec.Events() {
		require.GreaterOrEqual(t, e.Metadata().HistoryLen, last)
		last = e.Metadata().HistoryLen
		require.Equal(t, res.RunID, e.Metadata().RunID)
	}
}

func TestConfirmationSeesIntakeDefaults(t *testing.T) {
	mock := orderEngine()
	w := newWorkflow(t, mock)

	_, err := w.Run(context.Background(), Input{InputAsText: aliceOrder})
	require.NoError(t, err)

	reqs := mock.Requests()
	require.NotContains(t, reqs[0].Instructions, "Current widget defaults")
	require.Contains(t, reqs[2].Instructions, "- name: Alice")
}

func TestAliceDenied(t *testing.T) {
	mock := orderEngine()
	rec := &events.RecordingSink{}
	w := newWorkflow(t, mock, WithGate(approval.Deny), WithEventSink(rec))

	res, err := w.Run(context.Background(), Input{InputAsText: aliceOrder})
	require.NoError(t, err)

	require.Equal(t, StateDeniedDone, res.State)
	require.False(t, res.Approved)
	require.Equal(t, "Alice", res.Intake.OutputParsed.DefaultName)
	require.Nil(t, res.Extraction)
	require.Nil(t, res.Confirmation)
	require.Equal(t, []string{agents.SlugIntake}, mock.Stages())
	require.Equal(t, 2, res.History.Len())

	types := rec.Types()
	require.Equal(t, events.EventTypeRunCompleted, types[len(types)-1])
	for _, e := range rec.Events() {
		if g, ok := e.(*events.EventGateDecided); ok {
			require.False(t, g.Approved)
		}
	}
}

func TestStage1NoOutputFailsBeforeGate(t *testing.T) {
	mock := orderEngine().On(agents.SlugIntake, func(ctx context.Context, req *engine.Request) (*engine.Response, error) {
		return &engine.Response{Items: []turns.Block{turns.NewAssistantTextBlock("hmm")}}, nil
	})
	gate := &countingGate{allow: true}
	rec := &events.RecordingSink{}
	w := newWorkflow(t, mock, WithGate(gate), WithEventSink(rec))

	res, err := w.Run(context.Background(), Input{InputAsText: aliceOrder})
	require.Nil(t, res)
	require.ErrorIs(t, err, invoker.ErrNoOutput)

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	require.Equal(t, StateFailed, runErr.State)
	require.Equal(t, agents.SlugIntake, runErr.Stage)
	require.Equal(t, StateStart, runErr.Reached)

	require.EqualValues(t, 0, gate.calls)
	require.Equal(t, []string{agents.SlugIntake}, mock.Stages())
	require.Equal(t, []events.EventType{
		events.EventTypeRunStarted,
		events.EventTypeStageStarted, events.EventTypeStageFailed,
		events.EventTypeRunFailed,
	}, rec.Types())
}

func TestStage2TransportFailureKeepsCause(t *testing.T) {
	mock := orderEngine().On(agents.SlugExtraction, func(ctx context.Context, req *engine.Request) (*engine.Response, error) {
		return nil, io.ErrUnexpectedEOF
	})
	w := newWorkflow(t, mock)

	res, err := w.Run(context.Background(), Input{InputAsText: aliceOrder})
	require.Nil(t, res)
	require.Equal(t, io.ErrUnexpectedEOF, errors.Cause(errors.Unwrap(err)))

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	require.Equal(t, agents.SlugExtraction, runErr.Stage)
	require.Equal(t, StateGateEvaluated, runErr.Reached)
	require.Equal(t, []string{agents.SlugIntake, agents.SlugExtraction}, mock.Stages())
}

func TestStage3InvalidOutputFails(t *testing.T) {
	mock := orderEngine().On(agents.SlugConfirmation, func(ctx context.Context, req *engine.Request) (*engine.Response, error) {
		return engine.JSONResponse(req, map[string]any{"defaultName": "Alice"})
	})
	w := newWorkflow(t, mock)

	_, err := w.Run(context.Background(), Input{InputAsText: aliceOrder})
	require.ErrorIs(t, err, invoker.ErrNoOutput)
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	require.Equal(t, agents.SlugConfirmation, runErr.Stage)
	require.Equal(t, StateStage2Ran, runErr.Reached)
}

func TestGateErrorFailsRun(t *testing.T) {
	mock := orderEngine()
	gate := &countingGate{err: approval.ErrNotInteractive}
	w := newWorkflow(t, mock, WithGate(gate))

	_, err := w.Run(context.Background(), Input{InputAsText: aliceOrder})
	require.ErrorIs(t, err, approval.ErrNotInteractive)
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	require.Equal(t, StageGate, runErr.Stage)
	require.Equal(t, []string{agents.SlugIntake}, mock.Stages())
}

func TestEmptyInput(t *testing.T) {
	mock := orderEngine()
	w := newWorkflow(t, mock)

	_, err := w.Run(context.Background(), Input{InputAsText: "   "})
	require.ErrorIs(t, err, ErrEmptyInput)
	require.Empty(t, mock.Requests())
}

func TestCancellationDuringStageLeavesNoPartialItems(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mock := orderEngine().On(agents.SlugExtraction, func(ctx context.Context, req *engine.Request) (*engine.Response, error) {
		cancel()
		return engine.JSONResponse(req, agents.OrderForm{Name: "late"})
	})
	rec := &events.RecordingSink{}
	w := newWorkflow(t, mock, WithEventSink(rec))

	res, err := w.Run(ctx, Input{InputAsText: aliceOrder})
	require.Nil(t, res)
	require.ErrorIs(t, err, context.Canceled)

	// the failed stage reports the history as it was before the call
	var failed *events.EventStageFailed
	for _, e := range rec.Events() {
		if f, ok := e.(*events.EventStageFailed); ok {
			failed = f
		}
	}
	require.NotNil(t, failed)
	require.Equal(t, agents.SlugExtraction, failed.Metadata().Stage)
	require.Equal(t, 2, failed.Metadata().HistoryLen)
	require.NotContains(t, mock.Stages(), agents.SlugConfirmation)
}

func TestStudentIDSeedsState(t *testing.T) {
	id := "s-123"
	w := newWorkflow(t, orderEngine(), WithGate(approval.Deny))

	res, err := w.Run(context.Background(), Input{InputAsText: aliceOrder, StudentID: &id})
	require.NoError(t, err)
	require.Equal(t, "s-123", *res.WorkflowState.StudentID)
}

func TestRunSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	w := newWorkflow(t, orderEngine(), WithTracerProvider(tp), WithWorkflowID("wf_test"))

	_, err := w.Run(context.Background(), Input{InputAsText: aliceOrder})
	require.NoError(t, err)

	var names []string
	for _, s := range rec.Ended() {
		names = append(names, s.Name())
	}
	require.Equal(t, []string{
		"stage intake", "approval gate", "stage extraction", "stage confirmation",
		"InnovationCenterAgentWorkflow",
	}, names)
}

func TestSettingsNameTheTrace(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	sink := &events.RecordingSink{}
	w := newWorkflow(t, orderEngine(),
		WithTracerProvider(tp),
		WithEventSink(sink),
		WithSettings(&settings.WorkflowSettings{ID: "wf_cfg", TraceName: "OrderIntake"}),
	)

	_, err := w.Run(context.Background(), Input{InputAsText: aliceOrder})
	require.NoError(t, err)
	require.NotEmpty(t, sink.Events())
	for _, e := range sink.Events() {
		require.Equal(t, "wf_cfg", e.Metadata().WorkflowID)
	}

	ended := rec.Ended()
	require.NotEmpty(t, ended)
	require.Equal(t, "OrderIntake", ended[len(ended)-1].Name())
}

func TestRunAllKeepsRunsIndependent(t *testing.T) {
	mock := orderEngine()
	w := newWorkflow(t, mock)

	var inputs []Input
	for i := 0; i < 12; i++ {
		inputs = append(inputs, Input{
			InputAsText: fmt.Sprintf("Order: name=user%d, email=u%d@x.com, grams=%d, time=3pm, paid=true", i, i, i),
		})
	}

	results, err := w.RunAll(context.Background(), inputs, 4)
	require.NoError(t, err)
	require.Len(t, results, len(inputs))

	seen := map[string]bool{}
	for i, res := range results {
		require.Equal(t, StateDone, res.State)
		require.Equal(t, fmt.Sprintf("user%d", i), res.Intake.OutputParsed.DefaultName)
		require.Equal(t, fmt.Sprintf("user%d", i), res.Confirmation.OutputParsed.DefaultName)
		require.Equal(t, 4, res.History.Len())
		require.False(t, seen[res.RunID])
		seen[res.RunID] = true
	}
	require.Len(t, mock.Requests(), 3*len(inputs))
}

func TestRunAllReturnsFirstFailure(t *testing.T) {
	w := newWorkflow(t, orderEngine())
	_, err := w.RunAll(context.Background(), []Input{{InputAsText: aliceOrder}, {InputAsText: ""}}, 2)
	require.ErrorIs(t, err, ErrEmptyInput)
}

func TestNewRequiresAllStages(t *testing.T) {
	inv, err := invoker.New(orderEngine())
	require.NoError(t, err)
	reg, err := agents.NewRegistry(agents.IntakeSpec())
	require.NoError(t, err)

	_, err = New(inv, reg)
	require.ErrorIs(t, err, agents.ErrUnknownAgent)
}

func TestTransitions(t *testing.T) {
	require.True(t, StateGateEvaluated.CanTransition(StateDeniedDone))
	require.False(t, StateStart.CanTransition(StateGateEvaluated))
	require.False(t, StateDone.CanTransition(StateFailed))
	require.True(t, StateDeniedDone.IsTerminal())
	require.False(t, StateStage2Ran.IsTerminal())
}
