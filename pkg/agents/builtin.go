package agents

import (
	"github.com/go-go-golems/agentchain/pkg/inference/engine"
	"github.com/go-go-golems/agentchain/pkg/schema"
)

// Pipeline stage slugs.
const (
	SlugIntake       = "intake"
	SlugExtraction   = "extraction"
	SlugConfirmation = "confirmation"
)

const DefaultModel = "gpt-5-nano"

// currentDefaults is appended to the widget agents' instructions so later runs
// of a stage see what earlier stages already filled in.
const currentDefaults = `
{{- with .Results }}{{ if not .IsZero }}

Current widget defaults:
- name: {{ .DefaultName | default "-" }}
- email: {{ .DefaultEmail | default "-" }}
- grams: {{ .DefaultGrams | default "-" }}
- time: {{ .DefaultTime | default "-" }}
- paid: {{ .DefaultPaid }}
{{- end }}{{ end }}`

const intakeInstructions = `#Role 
You are a helpful assistant for the Innovation Center, a 3D printing maker space. Collect the data from the widget` + currentDefaults

const extractionInstructions = `The user just submitted the print job form with the order.submit action.

Extract the submitted form data and output it as clean JSON:
{
  "name": "<value from order.name field>",
  "email": "<value from order.email field>",
  "grams": "<value from order.grams field>",
  "time": "<value from order.time field>",
  "paid": <value from order.paid field>
}`

const confirmationInstructions = `You receive validated print job data as JSON from the previous agent into your widget` + currentDefaults

func IntakeSpec() *Spec {
	return &Spec{
		Name:         "Intake",
		Slug:         SlugIntake,
		Instructions: intakeInstructions,
		Model:        DefaultModel,
		Description:  "Widget defaults collected from the user",
		Output:       schema.MustFor[Defaults](),
		Reasoning:    Reasoning{Effort: engine.ReasoningEffortLow, Summary: "auto"},
		Store:        true,
	}
}

func ExtractionSpec() *Spec {
	return &Spec{
		Name:         "Extraction",
		Slug:         SlugExtraction,
		Instructions: extractionInstructions,
		Model:        DefaultModel,
		Description:  "The submitted print job order form",
		Output:       schema.MustFor[OrderForm](),
		Reasoning:    Reasoning{Effort: engine.ReasoningEffortMinimal, Summary: "auto"},
		Store:        true,
	}
}

func ConfirmationSpec() *Spec {
	return &Spec{
		Name:         "Confirmation",
		Slug:         SlugConfirmation,
		Instructions: confirmationInstructions,
		Model:        DefaultModel,
		Description:  "Validated print job data for the widget",
		Output:       schema.MustFor[Defaults](),
		Reasoning:    Reasoning{Effort: engine.ReasoningEffortLow, Summary: "auto"},
		Store:        true,
	}
}

// NewDefaultRegistry registers the three print job stages.
func NewDefaultRegistry() (*Registry, error) {
	return NewRegistry(IntakeSpec(), ExtractionSpec(), ConfirmationSpec())
}
