package workflow

import (
	"fmt"

	"github.com/go-go-golems/agentchain/pkg/agents"
	"github.com/go-go-golems/agentchain/pkg/inference/invoker"
	"github.com/go-go-golems/agentchain/pkg/turns"
)

// RunState is the orchestrator's position in the pipeline.
type RunState string

const (
	StateStart         RunState = "Start"
	StateStage1Ran     RunState = "Stage1Ran"
	StateGateEvaluated RunState = "GateEvaluated"
	StateStage2Ran     RunState = "Stage2Ran"
	StateStage3Ran     RunState = "Stage3Ran"
	StateDone          RunState = "Done"
	StateDeniedDone    RunState = "DeniedDone"
	StateFailed        RunState = "Failed"
)

func (s RunState) IsTerminal() bool {
	switch s {
	case StateDone, StateDeniedDone, StateFailed:
		return true
	case StateStart, StateStage1Ran, StateGateEvaluated, StateStage2Ran, StateStage3Ran:
		return false
	}
	return false
}

// next lists the legal transitions.
var next = map[RunState][]RunState{
	StateStart:         {StateStage1Ran, StateFailed},
	StateStage1Ran:     {StateGateEvaluated, StateFailed},
	StateGateEvaluated: {StateStage2Ran, StateDeniedDone, StateFailed},
	StateStage2Ran:     {StateStage3Ran, StateFailed},
	StateStage3Ran:     {StateDone, StateFailed},
}

// CanTransition reports whether the machine may move from s to to.
func (s RunState) CanTransition(to RunState) bool {
	for _, n := range next[s] {
		if n == to {
			return true
		}
	}
	return false
}

// State is the per-run scratch record later stages read their defaults from.
type State struct {
	StudentID *string         `json:"studentid" yaml:"studentid"`
	Results   agents.Defaults `json:"results" yaml:"results"`
}

// Input starts a run.
type Input struct {
	InputAsText string `json:"input_as_text" yaml:"input_as_text"`
	// StudentID seeds the workflow state when the caller already knows the student.
	StudentID *string `json:"student_id,omitempty" yaml:"student_id,omitempty"`
}

// Result is what a run that reached Done or DeniedDone returns. Extraction and
// Confirmation are nil when the gate denied the run.
type Result struct {
	RunID         string                                 `json:"run_id" yaml:"run_id"`
	State         RunState                               `json:"state" yaml:"state"`
	Approved      bool                                   `json:"approved" yaml:"approved"`
	Intake        *invoker.StageResult[agents.Defaults]  `json:"intake" yaml:"intake"`
	Extraction    *invoker.StageResult[agents.OrderForm] `json:"extraction,omitempty" yaml:"extraction,omitempty"`
	Confirmation  *invoker.StageResult[agents.Defaults]  `json:"confirmation,omitempty" yaml:"confirmation,omitempty"`
	WorkflowState State                                  `json:"workflow_state" yaml:"workflow_state"`
	History       turns.History                          `json:"-" yaml:"-"`
}

// RunError is returned for every run that ends in Failed. No partial result
// accompanies it.
type RunError struct {
	RunID string
	State RunState
	// Stage is the stage slug, "gate", or empty when the run failed before stage one.
	Stage string
	// Reached is the last state the run got to before failing.
	Reached RunState
	Err     error
}

func (e *RunError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("run %s failed: %v", e.RunID, e.Err)
	}
	return fmt.Sprintf("run %s failed at %s: %v", e.RunID, e.Stage, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}
