package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-go-golems/agentchain/pkg/agents"
	"github.com/go-go-golems/agentchain/pkg/approval"
	"github.com/go-go-golems/agentchain/pkg/inference/engine"
	"github.com/go-go-golems/agentchain/pkg/inference/invoker"
	"github.com/go-go-golems/agentchain/pkg/workflow"
	"github.com/stretchr/testify/require"
)

var alice = agents.Defaults{
	DefaultName:  "Alice",
	DefaultEmail: "a@x.com",
	DefaultGrams: "50",
	DefaultTime:  "3pm",
	DefaultPaid:  true,
}

func newTestServer(t *testing.T, e engine.Engine, opts ...workflow.Option) *httptest.Server {
	inv, err := invoker.New(e)
	require.NoError(t, err)
	reg, err := agents.NewDefaultRegistry()
	require.NoError(t, err)
	w, err := workflow.New(inv, reg, opts...)
	require.NoError(t, err)

	srv := httptest.NewServer(NewServer(w).Echo())
	t.Cleanup(srv.Close)
	return srv
}

func happyEngine() *engine.MockEngine {
	return engine.NewMockEngine().
		OnOutput(agents.SlugIntake, alice).
		OnOutput(agents.SlugExtraction, agents.OrderForm{Name: "Alice", Email: "a@x.com", Grams: "50", Time: "3pm", Paid: true}).
		OnOutput(agents.SlugConfirmation, alice)
}

func post(t *testing.T, srv *httptest.Server, body string) (int, map[string]interface{}) {
	resp, err := http.Post(srv.URL+"/api/v1/runs", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &out), string(b))
	return resp.StatusCode, out
}

func TestCreateRunApproved(t *testing.T) {
	srv := newTestServer(t, happyEngine())

	status, out := post(t, srv, `{"input_as_text":"Order: name=Alice"}`)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Done", out["state"])
	require.Equal(t, true, out["approved"])
	require.Len(t, out["history"], 4)

	intake := out["intake"].(map[string]interface{})
	require.Equal(t, "Alice", intake["output_parsed"].(map[string]interface{})["defaultName"])
	require.NotNil(t, out["extraction"])
	require.NotNil(t, out["confirmation"])
}

func TestCreateRunDenied(t *testing.T) {
	srv := newTestServer(t, happyEngine(), workflow.WithGate(approval.Deny))

	status, out := post(t, srv, `{"input_as_text":"Order: name=Alice"}`)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "DeniedDone", out["state"])
	require.NotContains(t, out, "extraction")
	require.NotContains(t, out, "confirmation")
}

func TestCreateRunStatusMapping(t *testing.T) {
	noOutput := engine.NewMockEngine().On(agents.SlugIntake, func(ctx context.Context, req *engine.Request) (*engine.Response, error) {
		return &engine.Response{}, nil
	})
	broken := engine.NewMockEngine().On(agents.SlugIntake, func(ctx context.Context, req *engine.Request) (*engine.Response, error) {
		return nil, io.ErrUnexpectedEOF
	})

	tests := []struct {
		name   string
		engine engine.Engine
		body   string
		status int
	}{
		{name: "bad json", engine: happyEngine(), body: `{`, status: http.StatusBadRequest},
		{name: "empty input", engine: happyEngine(), body: `{"input_as_text":""}`, status: http.StatusBadRequest},
		{name: "no output", engine: noOutput, body: `{"input_as_text":"x"}`, status: http.StatusUnprocessableEntity},
		{name: "transport", engine: broken, body: `{"input_as_text":"x"}`, status: http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.engine)
			status, out := post(t, srv, tt.body)
			require.Equal(t, tt.status, status)
			require.NotEmpty(t, out["error"])
		})
	}
}

func TestRunErrorCarriesStage(t *testing.T) {
	noOutput := engine.NewMockEngine().On(agents.SlugIntake, func(ctx context.Context, req *engine.Request) (*engine.Response, error) {
		return &engine.Response{}, nil
	})
	srv := newTestServer(t, noOutput)
	_, out := post(t, srv, `{"input_as_text":"x"}`)
	require.Equal(t, agents.SlugIntake, out["stage"])
	require.NotEmpty(t, out["run_id"])
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, happyEngine())
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
