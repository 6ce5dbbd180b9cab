package main

import (
	"github.com/go-go-golems/agentchain/pkg/agents"
	"github.com/go-go-golems/agentchain/pkg/approval"
	"github.com/go-go-golems/agentchain/pkg/inference/engine/factory"
	"github.com/go-go-golems/agentchain/pkg/inference/invoker"
	"github.com/go-go-golems/agentchain/pkg/steps/ai/settings"
	"github.com/go-go-golems/agentchain/pkg/workflow"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

func loadSettings() (*settings.StepSettings, error) {
	ss, err := settings.NewStepSettingsFromViper(viper.GetViper())
	if err != nil {
		return nil, err
	}
	log.Debug().Fields(ss.GetMetadata()).Msg("settings loaded")
	return ss, nil
}

// buildWorkflow wires engine, invoker, registry and gate from settings.
// A nil gate means the one configured in settings.
func buildWorkflow(ss *settings.StepSettings, gate approval.Gate, opts ...workflow.Option) (*workflow.Workflow, error) {
	e, err := factory.NewEngineFromStepSettings(ss)
	if err != nil {
		return nil, err
	}

	inv, err := invoker.New(e, invoker.WithMetadata(map[string]string{
		"workflow_id":      ss.Workflow.ID,
		"__trace_source__": ss.Workflow.TraceSource,
	}))
	if err != nil {
		return nil, err
	}

	reg, err := agents.NewDefaultRegistry()
	if err != nil {
		return nil, err
	}
	if ss.Chat.Engine != nil {
		reg, err = reg.WithModel(*ss.Chat.Engine)
		if err != nil {
			return nil, err
		}
	}
	reg, err = reg.WithOverrides(ss.Workflow)
	if err != nil {
		return nil, err
	}

	if gate == nil {
		gate, err = approval.FromMode(ss.Workflow.Approval, ss.Workflow.ApprovalDefault)
		if err != nil {
			return nil, err
		}
	}

	opts = append([]workflow.Option{
		workflow.WithGate(gate),
		workflow.WithSettings(ss.Workflow),
	}, opts...)
	return workflow.New(inv, reg, opts...)
}
