// Package approval decides whether a run may continue past stage one.
package approval

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// Gate decides once per run whether the downstream stages may run.
// Returning false is a normal outcome; an error means no decision could be
// made and fails the run.
type Gate interface {
	Decide(ctx context.Context, message string) (bool, error)
}

// GateFunc adapts a function to the Gate interface.
type GateFunc func(ctx context.Context, message string) (bool, error)

func (f GateFunc) Decide(ctx context.Context, message string) (bool, error) {
	return f(ctx, message)
}

type staticGate bool

func (g staticGate) Decide(ctx context.Context, _ string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return bool(g), nil
}

// Static always answers allow.
func Static(allow bool) Gate {
	return staticGate(allow)
}

// AutoApprove is the default gate: every run is allowed through.
var AutoApprove Gate = Static(true)

// Deny stops every run after stage one.
var Deny Gate = Static(false)

const (
	ModeAuto   = "auto"
	ModeDeny   = "deny"
	ModePrompt = "prompt"
)

// FromMode builds the gate named in configuration. defaultAnswer is only used
// by the prompt gate.
func FromMode(mode string, defaultAnswer string) (Gate, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeAuto:
		return AutoApprove, nil
	case ModeDeny:
		return Deny, nil
	case ModePrompt:
		return NewTerminalPromptGate(defaultAnswer), nil
	default:
		return nil, errors.Errorf("unknown approval mode %q", mode)
	}
}
