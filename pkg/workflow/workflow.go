// Package workflow drives the print job pipeline: intake agent, approval gate,
// extraction agent, confirmation agent.
package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-go-golems/agentchain/pkg/agents"
	"github.com/go-go-golems/agentchain/pkg/approval"
	"github.com/go-go-golems/agentchain/pkg/events"
	"github.com/go-go-golems/agentchain/pkg/inference/invoker"
	"github.com/go-go-golems/agentchain/pkg/steps/ai/settings"
	"github.com/go-go-golems/agentchain/pkg/tracing"
	"github.com/go-go-golems/agentchain/pkg/turns"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var (
	ErrEmptyInput = errors.New("input_as_text is empty")
	ErrNoInvoker  = errors.New("workflow needs an invoker")
)

// StageGate names the approval gate in errors and events.
const StageGate = "gate"

// Workflow is the immutable pipeline definition. Run can be called
// concurrently; every run gets its own history and state.
type Workflow struct {
	inv          *invoker.Invoker
	intake       *agents.Spec
	extraction   *agents.Spec
	confirmation *agents.Spec

	gate            approval.Gate
	sinks           []events.EventSink
	approvalMessage func(*State) string

	workflowID     string
	traceName      string
	traceSource    string
	tracerProvider trace.TracerProvider
	tracer         *tracing.Tracer
}

func New(inv *invoker.Invoker, reg *agents.Registry, opts ...Option) (*Workflow, error) {
	if inv == nil {
		return nil, ErrNoInvoker
	}
	if reg == nil {
		return nil, errors.New("workflow needs an agent registry")
	}

	w := &Workflow{
		inv:             inv,
		gate:            approval.AutoApprove,
		approvalMessage: DefaultApprovalMessage,
		workflowID:      settings.DefaultWorkflowID,
		traceName:       settings.DefaultTraceName,
		traceSource:     settings.DefaultTraceSource,
	}
	for slug, dst := range map[string]**agents.Spec{
		agents.SlugIntake:       &w.intake,
		agents.SlugExtraction:   &w.extraction,
		agents.SlugConfirmation: &w.confirmation,
	} {
		s, err := reg.Get(slug)
		if err != nil {
			return nil, err
		}
		*dst = s
	}

	for _, o := range opts {
		o(w)
	}
	if w.gate == nil {
		return nil, errors.New("workflow gate cannot be nil")
	}

	var tracerOpts []tracing.Option
	if w.tracerProvider != nil {
		tracerOpts = append(tracerOpts, tracing.WithTracerProvider(w.tracerProvider))
	}
	w.tracer = tracing.New(w.traceName, w.workflowID, w.traceSource, tracerOpts...)

	return w, nil
}

// DefaultApprovalMessage asks to continue with the print job stage one collected.
func DefaultApprovalMessage(s *State) string {
	r := s.Results
	if r.IsZero() {
		return "Continue with the print job?"
	}
	paid := "unpaid"
	if r.DefaultPaid {
		paid = "paid"
	}
	return fmt.Sprintf("Continue with the print job for %s <%s>, %s g at %s, %s?",
		r.DefaultName, r.DefaultEmail, r.DefaultGrams, r.DefaultTime, paid)
}

// run is the per-run context threaded through the stages.
type run struct {
	id      string
	state   RunState
	history turns.History
	data    State
	logger  zerolog.Logger
}

func (r *run) transition(to RunState) {
	if !r.state.CanTransition(to) {
		// programming error in the pipeline itself
		panic(fmt.Sprintf("illegal transition %s -> %s", r.state, to))
	}
	r.logger.Debug().Str("from", string(r.state)).Str("to", string(to)).Msg("workflow: transition")
	r.state = to
}

func (w *Workflow) meta(r *run, spec *agents.Spec) events.EventMetadata {
	m := events.EventMetadata{
		RunID:      r.id,
		WorkflowID: w.workflowID,
		State:      string(r.state),
		HistoryLen: r.history.Len(),
	}
	if spec != nil {
		m.Stage = spec.SlugOrDefault()
		m.Agent = spec.Name
	}
	return m
}

func (w *Workflow) publish(ev events.Event) {
	events.Publish(ev, w.sinks...)
}

// Run executes one pipeline run. It returns a Result in Done or DeniedDone,
// or a *RunError and no result.
func (w *Workflow) Run(ctx context.Context, in Input) (res *Result, err error) {
	r := &run{
		id:    uuid.NewString(),
		state: StateStart,
	}
	r.logger = log.With().Str("run_id", r.id).Str("workflow_id", w.workflowID).Logger()

	ctx, span := w.tracer.StartRun(ctx, r.id)
	defer func() {
		tracing.End(span, err, tracing.AttrState.String(string(r.state)))
	}()

	fail := func(stage string, cause error) (*Result, error) {
		reached := r.state
		r.transition(StateFailed)
		runErr := &RunError{RunID: r.id, State: StateFailed, Stage: stage, Reached: reached, Err: cause}
		r.logger.Error().Err(cause).Str("stage", stage).Str("reached", string(reached)).Msg("workflow: run failed")
		w.publish(events.NewRunFailedEvent(w.meta(r, nil), runErr))
		return nil, runErr
	}

	if strings.TrimSpace(in.InputAsText) == "" {
		return fail("", ErrEmptyInput)
	}

	r.history = turns.NewHistoryFromUserPrompt(in.InputAsText)
	r.data = State{StudentID: in.StudentID}
	r.logger.Info().Int("history_len", r.history.Len()).Msg("workflow: run started")
	w.publish(events.NewRunStartedEvent(w.meta(r, nil), in.InputAsText))

	intake, err := runStage[agents.Defaults](ctx, w, r, w.intake)
	if err != nil {
		return fail(w.intake.SlugOrDefault(), err)
	}
	r.data.Results = intake.OutputParsed
	r.transition(StateStage1Ran)

	approved, err := w.decide(ctx, r)
	if err != nil {
		return fail(StageGate, err)
	}
	r.transition(StateGateEvaluated)

	res = &Result{
		RunID:    r.id,
		Approved: approved,
		Intake:   intake,
	}

	if !approved {
		r.transition(StateDeniedDone)
		return w.finish(r, res), nil
	}

	extraction, err := runStage[agents.OrderForm](ctx, w, r, w.extraction)
	if err != nil {
		return fail(w.extraction.SlugOrDefault(), err)
	}
	r.transition(StateStage2Ran)

	confirmation, err := runStage[agents.Defaults](ctx, w, r, w.confirmation)
	if err != nil {
		return fail(w.confirmation.SlugOrDefault(), err)
	}
	r.data.Results = confirmation.OutputParsed
	r.transition(StateStage3Ran)

	res.Extraction = extraction
	res.Confirmation = confirmation
	r.transition(StateDone)
	return w.finish(r, res), nil
}

func (w *Workflow) finish(r *run, res *Result) *Result {
	res.State = r.state
	res.History = r.history
	res.WorkflowState = r.data
	r.logger.Info().
		Str("state", string(r.state)).
		Bool("approved", res.Approved).
		Int("history_len", r.history.Len()).
		Msg("workflow: run completed")
	w.publish(events.NewRunCompletedEvent(w.meta(r, nil), res.Approved))
	return res
}

func (w *Workflow) decide(ctx context.Context, r *run) (bool, error) {
	ctx, span := w.tracer.StartGate(ctx)
	message := w.approvalMessage(&r.data)
	approved, err := w.gate.Decide(ctx, message)
	tracing.End(span, err, tracing.AttrApproved.Bool(approved))
	if err != nil {
		return false, errors.Wrap(err, "approval gate")
	}

	r.logger.Info().Bool("approved", approved).Msg("workflow: gate decided")
	m := w.meta(r, nil)
	m.Stage = StageGate
	w.publish(events.NewGateDecidedEvent(m, message, approved))
	return approved, nil
}

// runStage calls one agent with the run's history and appends the items it
// generated. On error the history is left as it was.
func runStage[T any](ctx context.Context, w *Workflow, r *run, spec *agents.Spec) (*invoker.StageResult[T], error) {
	slug := spec.SlugOrDefault()
	lg := r.logger.With().Str("stage", slug).Str("agent", spec.Name).Logger()
	before := r.history.Len()

	w.publish(events.NewStageStartedEvent(w.meta(r, spec), spec.Model))
	sctx, span := w.tracer.StartStage(ctx, slug, spec.Name, spec.Model, before)
	start := time.Now()

	res, items, err := invoker.Invoke[T](sctx, w.inv, spec, r.history, r.data)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		tracing.End(span, err)
		m := w.meta(r, spec)
		m.DurationMs = &elapsed
		w.publish(events.NewStageFailedEvent(m, err))
		lg.Warn().Err(err).Int64("duration_ms", elapsed).Msg("workflow: stage failed")
		return nil, err
	}

	r.history = turns.Append(r.history, items...)
	tracing.End(span, nil, tracing.AttrHistoryLen.Int(r.history.Len()))

	m := w.meta(r, spec)
	m.DurationMs = &elapsed
	w.publish(events.NewStageCompletedEvent(m, res.OutputText, len(items)))
	lg.Info().
		Int("history_len", r.history.Len()).
		Int("new_items", len(items)).
		Int64("duration_ms", elapsed).
		Msg("workflow: stage completed")
	return res, nil
}

// RunAll executes independent runs with at most parallelism in flight. Results
// are in input order. The first failure cancels the runs still in progress
// and is returned; results of runs that finished stay in place.
func (w *Workflow) RunAll(ctx context.Context, inputs []Input, parallelism int) ([]*Result, error) {
	if parallelism < 1 {
		parallelism = 1
	}
	results := make([]*Result, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			res, err := w.Run(gctx, in)
			if err != nil {
				return errors.Wrapf(err, "input %d", i)
			}
			results[i] = res
			return nil
		})
	}
	err := g.Wait()
	return results, err
}
