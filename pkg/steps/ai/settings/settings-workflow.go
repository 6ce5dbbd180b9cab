package settings

import (
	"time"

	"github.com/huandu/go-clone"
)

const (
	DefaultWorkflowID  = "wf_69378a3a44e881908ee10067b28fbf3b0bb50f80a3aab519"
	DefaultTraceName   = "InnovationCenterAgentWorkflow"
	DefaultTraceSource = "agent-builder"
)

// WorkflowSettings configures the pipeline around the agents: identity for
// tracing, the approval gate, per-stage overrides and run-level policies.
type WorkflowSettings struct {
	ID          string `yaml:"id,omitempty" mapstructure:"id"`
	TraceName   string `yaml:"trace_name,omitempty" mapstructure:"trace_name"`
	TraceSource string `yaml:"trace_source,omitempty" mapstructure:"trace_source"`

	// Approval selects the gate: auto, deny or prompt.
	Approval string `yaml:"approval,omitempty" mapstructure:"approval"`
	// ApprovalDefault is the answer the prompt gate offers on empty input.
	ApprovalDefault string `yaml:"approval_default,omitempty" mapstructure:"approval_default"`

	// StageTimeout bounds every agent call; zero means unbounded.
	StageTimeout time.Duration `yaml:"stage_timeout,omitempty" mapstructure:"stage_timeout"`
	// Parallelism caps concurrently executing runs in batch mode.
	Parallelism int `yaml:"parallelism,omitempty" mapstructure:"parallelism"`
	// TokenWarnAbove logs a warning when a prompt estimate exceeds it; zero disables.
	TokenWarnAbove int `yaml:"token_warn_above,omitempty" mapstructure:"token_warn_above"`

	// Models overrides the model per stage slug.
	Models map[string]string `yaml:"models,omitempty" mapstructure:"models"`
	// ReasoningEfforts overrides the reasoning effort per stage slug.
	ReasoningEfforts map[string]string `yaml:"reasoning_efforts,omitempty" mapstructure:"reasoning_efforts"`
}

func NewWorkflowSettings() *WorkflowSettings {
	return &WorkflowSettings{
		ID:               DefaultWorkflowID,
		TraceName:        DefaultTraceName,
		TraceSource:      DefaultTraceSource,
		Approval:         "auto",
		ApprovalDefault:  "y",
		Parallelism:      4,
		Models:           map[string]string{},
		ReasoningEfforts: map[string]string{},
	}
}

func (w *WorkflowSettings) Clone() *WorkflowSettings {
	return clone.Clone(w).(*WorkflowSettings)
}
