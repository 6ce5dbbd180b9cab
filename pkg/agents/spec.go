package agents

import (
	"bytes"
	"reflect"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/go-go-golems/agentchain/pkg/inference/engine"
	"github.com/go-go-golems/agentchain/pkg/schema"
	"github.com/huandu/go-clone"
	"github.com/iancoleman/strcase"
	"github.com/pkg/errors"
)

func init() {
	// compiled schemas are immutable and shared between clones
	clone.MarkAsScalar(reflect.TypeOf(schema.Schema{}))
}

// Reasoning holds the reasoning knobs of one agent.
type Reasoning struct {
	Effort  engine.ReasoningEffort `yaml:"effort,omitempty" json:"effort,omitempty"`
	Summary string                 `yaml:"summary,omitempty" json:"summary,omitempty"`
}

// Spec is the static definition of one pipeline stage.
type Spec struct {
	// Name is shown in logs and stored on generated items.
	Name string
	// Slug identifies the stage in the registry and in configuration.
	Slug string
	// Instructions is a text/template (sprig functions available) rendered
	// against the run's workflow state before every call.
	Instructions string
	Model        string
	// Description is sent along with the output schema.
	Description string
	Output      *schema.Schema
	Reasoning   Reasoning
	Store       bool
}

// Validate reports specs the invoker could not run.
func (s *Spec) Validate() error {
	if s == nil {
		return errors.New("nil agent spec")
	}
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("agent spec has no name")
	}
	if s.Output == nil {
		return errors.Errorf("agent %s has no output schema", s.Name)
	}
	if _, err := s.template(); err != nil {
		return err
	}
	return nil
}

// SlugOrDefault returns Slug, falling back to the kebab-cased Name.
func (s *Spec) SlugOrDefault() string {
	if s.Slug != "" {
		return s.Slug
	}
	return strcase.ToKebab(s.Name)
}

func (s *Spec) template() (*template.Template, error) {
	t, err := template.New(s.SlugOrDefault()).
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=zero").
		Parse(s.Instructions)
	if err != nil {
		return nil, errors.Wrapf(err, "parse instructions of agent %s", s.Name)
	}
	return t, nil
}

// Render executes the instruction template against data.
func (s *Spec) Render(data interface{}) (string, error) {
	t, err := s.template()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", errors.Wrapf(err, "render instructions of agent %s", s.Name)
	}
	return strings.TrimSpace(buf.String()), nil
}

// InferenceConfig translates the spec's model behavior into the engine config.
func (s *Spec) InferenceConfig() *engine.InferenceConfig {
	cfg := &engine.InferenceConfig{}
	if s.Reasoning.Effort != "" {
		effort := s.Reasoning.Effort
		cfg.ReasoningEffort = &effort
	}
	if s.Reasoning.Summary != "" {
		summary := s.Reasoning.Summary
		cfg.ReasoningSummary = &summary
	}
	store := s.Store
	cfg.Store = &store
	return cfg
}

func (s *Spec) Clone() *Spec {
	return clone.Clone(s).(*Spec)
}
