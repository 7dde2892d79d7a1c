package srs

import (
	"fmt"
	"time"
)

// NumWeights is the length of the FSRS-5 weight vector.
const NumWeights = 19

// Weights is the 19-element FSRS-5 model weight vector.
type Weights [NumWeights]float64

// DefaultWeights are the FSRS-5 default weight values.
var DefaultWeights = Weights{
	0.40255, 1.18385, 3.173, 15.69105, // w[0..3]  initial stability S₀(G)
	7.1949, 0.5345, 1.4604, 0.0046, // w[4..7]  difficulty params
	1.54575, 0.1192, 1.01925, // w[8..10] recall stability params
	1.9395, 0.11, 0.29605, 2.2698, // w[11..14] forget stability params
	0.2315, 2.9898, // w[15..16] hard penalty, easy bonus
	0.51655, 0.6621, // w[17..18] short-term params
}

// LowerBounds defines the minimum allowed value for each weight.
var LowerBounds = Weights{
	0.001, 0.001, 0.001, 0.001,
	1.0, 0.001, 0.001, 0.001,
	0.0, 0.0, 0.001,
	0.001, 0.001, 0.001, 0.0,
	0.0, 1.0,
	0.0, 0.0,
}

// UpperBounds defines the maximum allowed value for each weight.
var UpperBounds = Weights{
	100.0, 100.0, 100.0, 100.0,
	10.0, 4.0, 4.0, 0.75,
	4.5, 0.8, 3.5,
	5.0, 0.25, 0.9, 4.0,
	1.0, 6.0,
	2.0, 2.0,
}

// Model constants. Decay and Factor are fixed in FSRS-5: the factor is
// chosen so that retrievability is exactly 0.9 when elapsed time equals
// stability.
const (
	DefaultDecay  = -0.5
	DefaultFactor = 19.0 / 81.0
)

// ValidateWeights checks that all 19 weights are within [LowerBounds, UpperBounds].
func ValidateWeights(w Weights) error {
	for i := 0; i < NumWeights; i++ {
		if w[i] < LowerBounds[i] || w[i] > UpperBounds[i] {
			return fmt.Errorf("%w: w[%d] = %f, bounds [%f, %f]",
				ErrParameterInvariant, i, w[i], LowerBounds[i], UpperBounds[i])
		}
	}
	return nil
}

// ClampWeights constrains each weight to [LowerBounds, UpperBounds].
func ClampWeights(w Weights) Weights {
	for i := 0; i < NumWeights; i++ {
		if w[i] < LowerBounds[i] {
			w[i] = LowerBounds[i]
		}
		if w[i] > UpperBounds[i] {
			w[i] = UpperBounds[i]
		}
	}
	return w
}

// Parameters is a fully-populated scheduler configuration. Construct with
// DefaultParameters and adjust, or produce one with Resolve; Validate
// before handing it to a Scheduler.
type Parameters struct {
	Weights            Weights         `json:"weights"`
	RequestRetention   float64         `json:"request_retention"` // target recall probability, in (0,1)
	MaximumInterval    int             `json:"maximum_interval"`  // days
	LearningSteps      []time.Duration `json:"learning_steps"`
	RelearningSteps    []time.Duration `json:"relearning_steps"`
	GraduatingInterval int             `json:"graduating_interval"` // days
	EasyInterval       int             `json:"easy_interval"`       // days
	EnableFuzz         bool            `json:"enable_fuzz"`
	FuzzFactor         float64         `json:"fuzz_factor"`
	EnableShortTerm    bool            `json:"enable_short_term"`
	Decay              float64         `json:"decay"`
	Factor             float64         `json:"factor"`
}

// DefaultParameters returns the built-in parameter set: default FSRS-5
// weights, 90% request retention, [1m, 10m] learning steps and a [10m]
// relearning step.
func DefaultParameters() Parameters {
	return Parameters{
		Weights:            DefaultWeights,
		RequestRetention:   0.9,
		MaximumInterval:    36500,
		LearningSteps:      []time.Duration{time.Minute, 10 * time.Minute},
		RelearningSteps:    []time.Duration{10 * time.Minute},
		GraduatingInterval: 1,
		EasyInterval:       4,
		EnableFuzz:         true,
		FuzzFactor:         0.05,
		EnableShortTerm:    true,
		Decay:              DefaultDecay,
		Factor:             DefaultFactor,
	}
}

// Validate checks the full parameter invariants: weight bounds, retention
// in (0,1), positive intervals and step durations, and negative decay.
func (p Parameters) Validate() error {
	if err := ValidateWeights(p.Weights); err != nil {
		return err
	}
	if p.RequestRetention <= 0 || p.RequestRetention >= 1 {
		return fmt.Errorf("%w: request retention %f out of range (0, 1)",
			ErrParameterInvariant, p.RequestRetention)
	}
	if p.MaximumInterval < 1 {
		return fmt.Errorf("%w: maximum interval %d must be positive",
			ErrParameterInvariant, p.MaximumInterval)
	}
	if p.GraduatingInterval < 1 {
		return fmt.Errorf("%w: graduating interval %d must be positive",
			ErrParameterInvariant, p.GraduatingInterval)
	}
	if p.EasyInterval < 1 {
		return fmt.Errorf("%w: easy interval %d must be positive",
			ErrParameterInvariant, p.EasyInterval)
	}
	for i, d := range p.LearningSteps {
		if d <= 0 {
			return fmt.Errorf("%w: learning step %d is not positive", ErrParameterInvariant, i)
		}
	}
	for i, d := range p.RelearningSteps {
		if d <= 0 {
			return fmt.Errorf("%w: relearning step %d is not positive", ErrParameterInvariant, i)
		}
	}
	if p.FuzzFactor < 0 {
		return fmt.Errorf("%w: fuzz factor %f is negative", ErrParameterInvariant, p.FuzzFactor)
	}
	if p.Decay >= 0 {
		return fmt.Errorf("%w: decay %f must be negative", ErrParameterInvariant, p.Decay)
	}
	if p.Factor <= 0 {
		return fmt.Errorf("%w: factor %f must be positive", ErrParameterInvariant, p.Factor)
	}
	return nil
}
