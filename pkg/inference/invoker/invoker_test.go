package invoker

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/go-go-golems/agentchain/pkg/agents"
	"github.com/go-go-golems/agentchain/pkg/inference/engine"
	"github.com/go-go-golems/agentchain/pkg/schema"
	"github.com/go-go-golems/agentchain/pkg/turns"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type state struct {
	Results agents.Defaults
}

var alice = agents.Defaults{
	DefaultName:  "Alice",
	DefaultEmail: "a@x.com",
	DefaultGrams: "50",
	DefaultTime:  "3pm",
	DefaultPaid:  true,
}

func newInvoker(t *testing.T, e engine.Engine) *Invoker {
	inv, err := New(e, WithMetadata(map[string]string{"workflow_id": "wf_test"}))
	require.NoError(t, err)
	return inv
}

func TestInvokeReturnsTypedOutputAndItems(t *testing.T) {
	mock := engine.NewMockEngine().OnOutput(agents.SlugIntake, alice)
	inv := newInvoker(t, mock)
	h := turns.NewHistoryFromUserPrompt("Order: name=Alice")

	res, items, err := Invoke[agents.Defaults](context.Background(), inv, agents.IntakeSpec(), h, state{})
	require.NoError(t, err)
	require.Equal(t, alice, res.OutputParsed)
	require.Equal(t, "Intake", res.Agent)
	require.JSONEq(t, `{"defaultName":"Alice","defaultEmail":"a@x.com","defaultGrams":"50","defaultTime":"3pm","defaultPaid":true}`, res.OutputText)
	require.Len(t, items, 1)
	require.Equal(t, 1, h.Len(), "invoke must not touch the history")

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	req := reqs[0]
	require.Equal(t, agents.DefaultModel, req.Model)
	require.Equal(t, "defaults", req.StructuredOutput.Name)
	require.Equal(t, engine.ReasoningEffortLow, *req.Inference.ReasoningEffort)
	require.Equal(t, "wf_test", req.Metadata["workflow_id"])
	require.Contains(t, req.Instructions, "Collect the data from the widget")
}

func TestInvokeRendersWorkflowState(t *testing.T) {
	mock := engine.NewMockEngine().OnOutput(agents.SlugConfirmation, alice)
	inv := newInvoker(t, mock)

	_, _, err := Invoke[agents.Defaults](context.Background(), inv, agents.ConfirmationSpec(),
		turns.NewHistoryFromUserPrompt("x"), state{Results: alice})
	require.NoError(t, err)
	require.Contains(t, mock.Requests()[0].Instructions, "- name: Alice")
}

func TestInvokeEmptyHistory(t *testing.T) {
	mock := engine.NewMockEngine()
	_, _, err := Invoke[agents.Defaults](context.Background(), newInvoker(t, mock), agents.IntakeSpec(), turns.History{}, nil)
	require.ErrorIs(t, err, ErrEmptyHistory)
	require.Empty(t, mock.Requests())
}

func TestInvokeNoOutputCases(t *testing.T) {
	tests := []struct {
		name   string
		resp   *engine.Response
		reason string
	}{
		{
			name:   "nil response",
			resp:   nil,
			reason: "absent",
		},
		{
			name:   "no output",
			resp:   &engine.Response{Items: []turns.Block{turns.NewAssistantTextBlock("sure!")}},
			reason: "absent",
		},
		{
			name:   "null output",
			resp:   &engine.Response{Output: json.RawMessage("null")},
			reason: "absent",
		},
		{
			name:   "refusal",
			resp:   &engine.Response{Refusal: "no", Items: []turns.Block{turns.NewRefusalBlock("no")}},
			reason: "refusal",
		},
		{
			name:   "missing field",
			resp:   &engine.Response{Output: json.RawMessage(`{"defaultName":"Alice"}`)},
			reason: "invalid",
		},
		{
			name:   "wrong type",
			resp:   &engine.Response{Output: json.RawMessage(`{"defaultName":"Alice","defaultEmail":"","defaultGrams":50,"defaultTime":"","defaultPaid":true}`)},
			reason: "invalid",
		},
		{
			name:   "not json",
			resp:   &engine.Response{Output: json.RawMessage(`name=Alice`)},
			reason: "invalid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := tt.resp
			mock := engine.NewMockEngine().On(agents.SlugIntake, func(ctx context.Context, req *engine.Request) (*engine.Response, error) {
				return resp, nil
			})
			res, _, err := Invoke[agents.Defaults](context.Background(), newInvoker(t, mock), agents.IntakeSpec(),
				turns.NewHistoryFromUserPrompt("x"), state{})
			require.Nil(t, res)
			require.ErrorIs(t, err, ErrNoOutput)

			var noOutput *NoOutputError
			require.ErrorAs(t, err, &noOutput)
			require.Equal(t, tt.reason, noOutput.Reason)
			require.Equal(t, "Intake", noOutput.Agent)
		})
	}
}

func TestInvokeInvalidOutputKeepsValidationCause(t *testing.T) {
	mock := engine.NewMockEngine().On(agents.SlugIntake, func(ctx context.Context, req *engine.Request) (*engine.Response, error) {
		return &engine.Response{Output: json.RawMessage(`{"extra":1}`)}, nil
	})
	_, _, err := Invoke[agents.Defaults](context.Background(), newInvoker(t, mock), agents.IntakeSpec(),
		turns.NewHistoryFromUserPrompt("x"), state{})

	var verr *schema.ValidationError
	require.ErrorAs(t, err, &verr)
	require.NotEmpty(t, verr.Errors)
}

func TestInvokeTransportFailureKeepsCause(t *testing.T) {
	mock := engine.NewMockEngine().On(agents.SlugIntake, func(ctx context.Context, req *engine.Request) (*engine.Response, error) {
		return nil, io.ErrUnexpectedEOF
	})
	_, items, err := Invoke[agents.Defaults](context.Background(), newInvoker(t, mock), agents.IntakeSpec(),
		turns.NewHistoryFromUserPrompt("x"), state{})
	require.Error(t, err)
	require.Nil(t, items)
	require.Equal(t, io.ErrUnexpectedEOF, errors.Cause(err))
	require.NotErrorIs(t, err, ErrNoOutput)
}

func TestInvokeCancelledDropsItems(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	mock := engine.NewMockEngine().On(agents.SlugIntake, func(ctx context.Context, req *engine.Request) (*engine.Response, error) {
		cancel()
		// a late answer arriving after cancellation must be discarded
		return engine.JSONResponse(req, alice)
	})
	res, items, err := Invoke[agents.Defaults](ctx, newInvoker(t, mock), agents.IntakeSpec(),
		turns.NewHistoryFromUserPrompt("x"), state{})
	require.ErrorIs(t, err, context.Canceled)
	require.Nil(t, res)
	require.Nil(t, items)
}

func TestNewRequiresEngine(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}
