package agents

import (
	"sort"

	"github.com/go-go-golems/agentchain/pkg/inference/engine"
	"github.com/go-go-golems/agentchain/pkg/steps/ai/settings"
	"github.com/pkg/errors"
)

var (
	ErrUnknownAgent   = errors.New("unknown agent")
	ErrDuplicateAgent = errors.New("duplicate agent")
)

// Registry is the immutable set of agent specs shared by all runs.
// Lookups hand out copies, so callers can never change a registered spec.
type Registry struct {
	specs map[string]*Spec
}

func NewRegistry(specs ...*Spec) (*Registry, error) {
	r := &Registry{specs: map[string]*Spec{}}
	for _, s := range specs {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		slug := s.SlugOrDefault()
		if _, ok := r.specs[slug]; ok {
			return nil, errors.Wrap(ErrDuplicateAgent, slug)
		}
		cp := s.Clone()
		cp.Slug = slug
		r.specs[slug] = cp
	}
	return r, nil
}

// Get returns a copy of the spec registered under slug.
func (r *Registry) Get(slug string) (*Spec, error) {
	s, ok := r.specs[slug]
	if !ok {
		return nil, errors.Wrap(ErrUnknownAgent, slug)
	}
	return s.Clone(), nil
}

// Slugs lists the registered slugs, sorted.
func (r *Registry) Slugs() []string {
	ret := make([]string, 0, len(r.specs))
	for k := range r.specs {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}

// WithModel returns a new registry where every stage uses model. Per-stage
// overrides applied afterwards with WithOverrides still win. An empty model
// returns r unchanged.
func (r *Registry) WithModel(model string) (*Registry, error) {
	if model == "" {
		return r, nil
	}
	specs := make([]*Spec, 0, len(r.specs))
	for _, slug := range r.Slugs() {
		s := r.specs[slug].Clone()
		s.Model = model
		specs = append(specs, s)
	}
	return NewRegistry(specs...)
}

// WithOverrides returns a new registry with per-stage model and reasoning
// effort overrides applied. Slugs that are not registered are an error.
func (r *Registry) WithOverrides(ws *settings.WorkflowSettings) (*Registry, error) {
	if ws == nil {
		return r, nil
	}
	specs := make([]*Spec, 0, len(r.specs))
	for _, slug := range r.Slugs() {
		specs = append(specs, r.specs[slug].Clone())
	}
	bySlug := map[string]*Spec{}
	for _, s := range specs {
		bySlug[s.Slug] = s
	}
	for slug, model := range ws.Models {
		s, ok := bySlug[slug]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownAgent, "model override for %s", slug)
		}
		s.Model = model
	}
	for slug, effort := range ws.ReasoningEfforts {
		s, ok := bySlug[slug]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownAgent, "reasoning effort override for %s", slug)
		}
		s.Reasoning.Effort = engine.ReasoningEffort(effort)
	}
	return NewRegistry(specs...)
}
