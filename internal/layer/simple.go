package layer

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/GoRecurrent/internal/augmented"
	"github.com/FlavioCFOliveira/GoRecurrent/internal/param"
)

// SimpleRecurrentParams are the parameters of a simple recurrent layer.
type SimpleRecurrentParams struct {
	cfg Config

	W    *param.Array
	B    *param.Array
	WRec *param.Array
}

// NewSimpleRecurrentParams creates initialized parameters.
func NewSimpleRecurrentParams(cfg Config) (*SimpleRecurrentParams, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &SimpleRecurrentParams{
		cfg:  cfg,
		W:    cfg.inputWeights("simple.w"),
		B:    cfg.bias("simple.b"),
		WRec: cfg.recurrentWeights("simple.wrec"),
	}
	if err := cfg.initialize(p.W, p.WRec); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *SimpleRecurrentParams) Topology() Topology { return TopologySimpleRecurrent }
func (p *SimpleRecurrentParams) Config() Config     { return p.cfg }

func (p *SimpleRecurrentParams) Params() []*param.Array {
	return []*param.Array{p.W, p.B, p.WRec}
}

func (p *SimpleRecurrentParams) NewUnroller() Unroller {
	return newUnroller(func(w Window[*SimpleRecurrent]) *SimpleRecurrent {
		return NewSimpleRecurrent(p, w)
	})
}

// SimpleRecurrent computes y = f(W·x + B + WRec·yPrev), yPrev being the
// activated output of the previous state.
type SimpleRecurrent struct {
	base
	params *SimpleRecurrentParams
	window Window[*SimpleRecurrent]
	unit   *Gate
}

// NewSimpleRecurrent creates the structure of one timestep.
func NewSimpleRecurrent(p *SimpleRecurrentParams, w Window[*SimpleRecurrent]) *SimpleRecurrent {
	unit := newGate(p.cfg.OutputSize, p.cfg.Activation, p.W, p.B, p.WRec)
	return &SimpleRecurrent{
		base: base{
			input:  augmented.New(p.cfg.InputSize, nil),
			output: unit.Array,
		},
		params: p,
		window: w,
		unit:   unit,
	}
}

func (s *SimpleRecurrent) prevOutput() mat.Vector {
	if prev, ok := s.window.PrevState(); ok {
		return mustValues(prev.output)
	}
	return nil
}

// Forward computes the output.
func (s *SimpleRecurrent) Forward() error {
	x, err := s.inputValues()
	if err != nil {
		return err
	}
	return errors.WithMessage(s.unit.forward(x, s.prevOutput()), "simple recurrent")
}

// Backward computes the output pre-activation error
//
//	gz = (gy + WRecᵗ·gzNext) ⊙ f'(y)
//
// and collects the parameter errors.
func (s *SimpleRecurrent) Backward(c *param.Collector, propagateToInput bool) error {
	gy, err := s.outputErrors()
	if err != nil {
		return err
	}
	if next, ok := s.window.NextState(); ok {
		next.unit.recurrent(gy)
	}
	gz := prod(gy, s.unit.deriv())

	if err := s.unit.backward(c, gz, mustValues(s.input), s.prevOutput()); err != nil {
		return err
	}
	if propagateToInput {
		return s.assignInputErrors(s.unit)
	}
	return nil
}
