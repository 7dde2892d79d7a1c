package srs

import "time"

// Overrides is a partial parameter set: every field is optional. Two
// layers exist in practice, one scoped to a user (typically holding
// fitted weights) and one scoped to a deck. A nil pointer or nil slice
// means "fall through to the next layer".
type Overrides struct {
	Weights            *Weights        `json:"weights,omitempty"`
	RequestRetention   *float64        `json:"request_retention,omitempty"`
	MaximumInterval    *int            `json:"maximum_interval,omitempty"`
	LearningSteps      []time.Duration `json:"learning_steps,omitempty"`
	RelearningSteps    []time.Duration `json:"relearning_steps,omitempty"`
	GraduatingInterval *int            `json:"graduating_interval,omitempty"`
	EasyInterval       *int            `json:"easy_interval,omitempty"`
	EnableFuzz         *bool           `json:"enable_fuzz,omitempty"`
	FuzzFactor         *float64        `json:"fuzz_factor,omitempty"`
	EnableShortTerm    *bool           `json:"enable_short_term,omitempty"`
}

// Resolve merges the override layers onto the base parameters, field by
// field: deck wins over user, user wins over base. The merge is pure; the
// caller loads the raw layers. The result is validated, so a resolved
// parameter set always satisfies the Parameters invariants.
func Resolve(base Parameters, user, deck *Overrides) (Parameters, error) {
	out := base
	for _, layer := range []*Overrides{user, deck} {
		if layer == nil {
			continue
		}
		applyLayer(&out, layer)
	}
	if err := out.Validate(); err != nil {
		return Parameters{}, err
	}
	return out, nil
}

func applyLayer(p *Parameters, o *Overrides) {
	if o.Weights != nil {
		p.Weights = *o.Weights
	}
	if o.RequestRetention != nil {
		p.RequestRetention = *o.RequestRetention
	}
	if o.MaximumInterval != nil {
		p.MaximumInterval = *o.MaximumInterval
	}
	if o.LearningSteps != nil {
		p.LearningSteps = append([]time.Duration(nil), o.LearningSteps...)
	}
	if o.RelearningSteps != nil {
		p.RelearningSteps = append([]time.Duration(nil), o.RelearningSteps...)
	}
	if o.GraduatingInterval != nil {
		p.GraduatingInterval = *o.GraduatingInterval
	}
	if o.EasyInterval != nil {
		p.EasyInterval = *o.EasyInterval
	}
	if o.EnableFuzz != nil {
		p.EnableFuzz = *o.EnableFuzz
	}
	if o.FuzzFactor != nil {
		p.FuzzFactor = *o.FuzzFactor
	}
	if o.EnableShortTerm != nil {
		p.EnableShortTerm = *o.EnableShortTerm
	}
}
