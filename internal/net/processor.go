// Package net drives the recurrent layer engine: it unrolls a model over
// sequences, runs the forward and backward passes in the order the context
// window requires and trains the model on batches of examples.
package net

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/GoRecurrent/internal/layer"
	"github.com/FlavioCFOliveira/GoRecurrent/internal/param"
)

// ErrSequence is returned for a sequence that does not fit the processor
// state: empty inputs, or output errors not matching the forwarded steps.
var ErrSequence = errors.New("net: invalid sequence")

// Processor runs one model over one sequence at a time. Forward steps run in
// increasing time order and Backward in decreasing time order. A processor
// is not safe for concurrent use; give every goroutine its own.
type Processor struct {
	model layer.Model
	seq   layer.Unroller
	coll  *param.Collector
}

// NewProcessor creates a processor over m.
func NewProcessor(m layer.Model) *Processor {
	return &Processor{
		model: m,
		seq:   m.NewUnroller(),
		coll:  param.NewCollector(),
	}
}

// Model returns the processed model.
func (p *Processor) Model() layer.Model { return p.model }

// Len returns the number of forwarded steps.
func (p *Processor) Len() int { return p.seq.Len() }

// Forward starts a new sequence and forwards every input, returning the
// outputs. The returned vectors are copies.
func (p *Processor) Forward(xs []*mat.VecDense) ([]*mat.VecDense, error) {
	if len(xs) == 0 {
		return nil, errors.Wrap(ErrSequence, "no inputs")
	}
	p.seq.Reset()
	p.coll.Clear()
	out := make([]*mat.VecDense, len(xs))
	for t, x := range xs {
		s, err := p.seq.Step(x)
		if err != nil {
			p.seq.Reset()
			return nil, err
		}
		y, err := s.Output().Values()
		if err != nil {
			p.seq.Reset()
			return nil, err
		}
		out[t] = mat.VecDenseCopyOf(y)
	}
	return out, nil
}

// Backward assigns the output errors of every step and runs the backward
// pass from the last step to the first, collecting the parameter errors
// into a fresh collector. A nil error vector means no error at that step.
// If a step fails the collected errors are dropped.
func (p *Processor) Backward(outputErrors []*mat.VecDense, propagateToInput bool) error {
	if len(outputErrors) != p.seq.Len() {
		return errors.Wrapf(ErrSequence, "%d output errors for %d steps", len(outputErrors), p.seq.Len())
	}
	p.coll.Clear()
	for t := p.seq.Len() - 1; t >= 0; t-- {
		s := p.seq.At(t)
		e := outputErrors[t]
		if e == nil {
			e = mat.NewVecDense(s.Output().Size(), nil)
		}
		if err := s.Output().AssignErrors(e); err != nil {
			p.coll.Clear()
			return errors.WithMessagef(err, "step %d", t)
		}
		if err := s.Backward(p.coll, propagateToInput); err != nil {
			p.coll.Clear()
			return errors.WithMessagef(err, "step %d", t)
		}
	}
	return nil
}

// ParamsErrors returns the parameter errors of the last Backward. The arrays
// belong to the processor until the next Forward.
func (p *Processor) ParamsErrors() []*param.Errors {
	return p.coll.Errors()
}

// InputErrors returns copies of the input errors of every step. It requires
// a Backward with propagateToInput.
func (p *Processor) InputErrors() ([]*mat.VecDense, error) {
	out := make([]*mat.VecDense, p.seq.Len())
	for t := range out {
		e, err := p.seq.At(t).InputErrors()
		if err != nil {
			return nil, errors.WithMessagef(err, "step %d", t)
		}
		out[t] = mat.VecDenseCopyOf(e)
	}
	return out, nil
}
