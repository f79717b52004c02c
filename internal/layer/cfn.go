package layer

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/GoRecurrent/internal/activations"
	"github.com/FlavioCFOliveira/GoRecurrent/internal/augmented"
	"github.com/FlavioCFOliveira/GoRecurrent/internal/param"
)

// CFNParams are the parameters of a Chaos Free Network layer.
type CFNParams struct {
	cfg Config

	InputW, InputB, InputWRec    *param.Array
	ForgetW, ForgetB, ForgetWRec *param.Array
	CandidateW                   *param.Array
}

// NewCFNParams creates initialized parameters.
func NewCFNParams(cfg Config) (*CFNParams, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &CFNParams{
		cfg:        cfg,
		InputW:     cfg.inputWeights("cfn.input.w"),
		InputB:     cfg.bias("cfn.input.b"),
		InputWRec:  cfg.recurrentWeights("cfn.input.wrec"),
		ForgetW:    cfg.inputWeights("cfn.forget.w"),
		ForgetB:    cfg.bias("cfn.forget.b"),
		ForgetWRec: cfg.recurrentWeights("cfn.forget.wrec"),
		CandidateW: cfg.inputWeights("cfn.candidate.w"),
	}
	err := cfg.initialize(p.InputW, p.InputWRec, p.ForgetW, p.ForgetWRec, p.CandidateW)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (p *CFNParams) Topology() Topology { return TopologyCFN }
func (p *CFNParams) Config() Config     { return p.cfg }

func (p *CFNParams) Params() []*param.Array {
	return []*param.Array{
		p.InputW, p.InputB, p.InputWRec,
		p.ForgetW, p.ForgetB, p.ForgetWRec,
		p.CandidateW,
	}
}

func (p *CFNParams) NewUnroller() Unroller {
	return newUnroller(func(w Window[*CFN]) *CFN {
		return NewCFN(p, w)
	})
}

// CFN computes
//
//	inG = σ(Wi·x + bi + Wir·yPrev)
//	forG = σ(Wf·x + bf + Wfr·yPrev)
//	c = f(Wc·x)
//	y = f(inG⊙c + f(zPrev)⊙forG)
//
// where zPrev is the not-activated output of the previous state and
// yPrev = f(zPrev) its activated output.
type CFN struct {
	base
	params *CFNParams
	window Window[*CFN]

	InputGate  *Gate
	ForgetGate *Gate
	Candidate  *Gate

	// activated previous output, kept for backward
	prevActivated *mat.VecDense
}

// NewCFN creates the structure of one timestep.
func NewCFN(p *CFNParams, w Window[*CFN]) *CFN {
	size := p.cfg.OutputSize
	return &CFN{
		base: base{
			input:  augmented.New(p.cfg.InputSize, nil),
			output: augmented.New(size, p.cfg.Activation),
		},
		params:     p,
		window:     w,
		InputGate:  newGate(size, activations.Sigmoid{}, p.InputW, p.InputB, p.InputWRec),
		ForgetGate: newGate(size, activations.Sigmoid{}, p.ForgetW, p.ForgetB, p.ForgetWRec),
		Candidate:  newGate(size, p.cfg.Activation, p.CandidateW, nil, nil),
	}
}

// Forward computes the output.
func (l *CFN) Forward() error {
	x, err := l.inputValues()
	if err != nil {
		return err
	}

	l.prevActivated = nil
	var yPrev mat.Vector
	if prev, ok := l.window.PrevState(); ok {
		zPrev := mustNotActivated(prev.output)
		l.prevActivated = mat.NewVecDense(zPrev.Len(), nil)
		if act := l.output.Activation(); act != nil {
			activations.Apply(act, l.prevActivated, zPrev)
		} else {
			l.prevActivated.CopyVec(zPrev)
		}
		yPrev = l.prevActivated
	}

	if err := l.InputGate.forward(x, yPrev); err != nil {
		return errors.WithMessage(err, "cfn input gate")
	}
	if err := l.ForgetGate.forward(x, yPrev); err != nil {
		return errors.WithMessage(err, "cfn forget gate")
	}
	if err := l.Candidate.forward(x, nil); err != nil {
		return errors.WithMessage(err, "cfn candidate")
	}

	z := prod(l.InputGate.values(), l.Candidate.values())
	if l.prevActivated != nil {
		z.AddVec(z, prod(l.prevActivated, l.ForgetGate.values()))
	}
	if err := l.output.AssignValues(z); err != nil {
		return err
	}
	return l.output.Activate()
}

// Backward computes, with gz the error w.r.t. the not-activated output,
//
//	gInG = gz⊙c⊙σ'(inG)
//	gForG = gz⊙yPrev⊙σ'(forG)
//	gC = gz⊙inG⊙f'(c)
//
// After Backward the output errors hold gz.
func (l *CFN) Backward(c *param.Collector, propagateToInput bool) error {
	gy, err := l.outputErrors()
	if err != nil {
		return err
	}
	if next, ok := l.window.NextState(); ok {
		next.InputGate.recurrent(gy)
		next.ForgetGate.recurrent(gy)
		gy.AddVec(gy, prod(mustErrors(next.output), next.ForgetGate.values()))
	}

	deriv, err := l.output.ActivationDeriv()
	if err != nil {
		return err
	}
	gz := prod(gy, deriv)
	if err := l.output.AssignErrors(gz); err != nil {
		return err
	}

	x := mustValues(l.input)
	var yPrev mat.Vector
	gFor := mat.NewVecDense(gz.Len(), nil)
	if l.prevActivated != nil {
		yPrev = l.prevActivated
		gFor = prod(gz, l.prevActivated, l.ForgetGate.deriv())
	}
	gIn := prod(gz, l.Candidate.values(), l.InputGate.deriv())
	gC := prod(gz, l.InputGate.values(), l.Candidate.deriv())

	if err := l.InputGate.backward(c, gIn, x, yPrev); err != nil {
		return err
	}
	if err := l.ForgetGate.backward(c, gFor, x, yPrev); err != nil {
		return err
	}
	if err := l.Candidate.backward(c, gC, x, nil); err != nil {
		return err
	}

	if propagateToInput {
		return l.assignInputErrors(l.InputGate, l.ForgetGate, l.Candidate)
	}
	return nil
}
