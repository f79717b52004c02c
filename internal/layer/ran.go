package layer

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/GoRecurrent/internal/activations"
	"github.com/FlavioCFOliveira/GoRecurrent/internal/augmented"
	"github.com/FlavioCFOliveira/GoRecurrent/internal/param"
)

// RANParams are the parameters of a Recurrent Additive Network layer.
type RANParams struct {
	cfg Config

	InputW, InputB, InputWRec    *param.Array
	ForgetW, ForgetB, ForgetWRec *param.Array
	CandidateW, CandidateB       *param.Array
}

// NewRANParams creates initialized parameters.
func NewRANParams(cfg Config) (*RANParams, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &RANParams{
		cfg:        cfg,
		InputW:     cfg.inputWeights("ran.input.w"),
		InputB:     cfg.bias("ran.input.b"),
		InputWRec:  cfg.recurrentWeights("ran.input.wrec"),
		ForgetW:    cfg.inputWeights("ran.forget.w"),
		ForgetB:    cfg.bias("ran.forget.b"),
		ForgetWRec: cfg.recurrentWeights("ran.forget.wrec"),
		CandidateW: cfg.inputWeights("ran.candidate.w"),
		CandidateB: cfg.bias("ran.candidate.b"),
	}
	err := cfg.initialize(p.InputW, p.InputWRec, p.ForgetW, p.ForgetWRec, p.CandidateW)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (p *RANParams) Topology() Topology { return TopologyRAN }
func (p *RANParams) Config() Config     { return p.cfg }

func (p *RANParams) Params() []*param.Array {
	return []*param.Array{
		p.InputW, p.InputB, p.InputWRec,
		p.ForgetW, p.ForgetB, p.ForgetWRec,
		p.CandidateW, p.CandidateB,
	}
}

func (p *RANParams) NewUnroller() Unroller {
	return newUnroller(func(w Window[*RAN]) *RAN {
		return NewRAN(p, w)
	})
}

// RAN computes
//
//	inG = σ(Wi·x + bi + Wir·yPrev)
//	forG = σ(Wf·x + bf + Wfr·yPrev)
//	c = Wc·x + bc
//	z = inG⊙c + zPrev⊙forG
//	y = f(z)
//
// where zPrev is the not-activated output of the previous state.
type RAN struct {
	base
	params *RANParams
	window Window[*RAN]

	InputGate  *Gate
	ForgetGate *Gate
	Candidate  *Gate
}

// NewRAN creates the structure of one timestep.
func NewRAN(p *RANParams, w Window[*RAN]) *RAN {
	size := p.cfg.OutputSize
	return &RAN{
		base: base{
			input:  augmented.New(p.cfg.InputSize, nil),
			output: augmented.New(size, p.cfg.Activation),
		},
		params:     p,
		window:     w,
		InputGate:  newGate(size, activations.Sigmoid{}, p.InputW, p.InputB, p.InputWRec),
		ForgetGate: newGate(size, activations.Sigmoid{}, p.ForgetW, p.ForgetB, p.ForgetWRec),
		Candidate:  newGate(size, nil, p.CandidateW, p.CandidateB, nil),
	}
}

// prev returns the previous activated and not-activated outputs.
func (l *RAN) prev() (yPrev, zPrev mat.Vector) {
	if prev, ok := l.window.PrevState(); ok {
		return mustValues(prev.output), mustNotActivated(prev.output)
	}
	return nil, nil
}

// Forward computes the output.
func (l *RAN) Forward() error {
	x, err := l.inputValues()
	if err != nil {
		return err
	}
	yPrev, zPrev := l.prev()

	if err := l.InputGate.forward(x, yPrev); err != nil {
		return errors.WithMessage(err, "ran input gate")
	}
	if err := l.ForgetGate.forward(x, yPrev); err != nil {
		return errors.WithMessage(err, "ran forget gate")
	}
	if err := l.Candidate.forward(x, nil); err != nil {
		return errors.WithMessage(err, "ran candidate")
	}

	z := prod(l.InputGate.values(), l.Candidate.values())
	if zPrev != nil {
		z.AddVec(z, prod(zPrev, l.ForgetGate.values()))
	}
	if err := l.output.AssignValues(z); err != nil {
		return err
	}
	return l.output.Activate()
}

// Backward computes
//
//	gz = gy⊙f'(z) + gzNext⊙forGNext
//	gInG = gz⊙c⊙σ'(inG)
//	gForG = gz⊙zPrev⊙σ'(forG)
//	gC = gz⊙inG
//
// where gy already includes the recurrent gate errors of the next state.
// After Backward the output errors hold gz.
func (l *RAN) Backward(c *param.Collector, propagateToInput bool) error {
	gy, err := l.outputErrors()
	if err != nil {
		return err
	}
	next, hasNext := l.window.NextState()
	if hasNext {
		next.InputGate.recurrent(gy)
		next.ForgetGate.recurrent(gy)
	}

	deriv, err := l.output.ActivationDeriv()
	if err != nil {
		return err
	}
	gz := prod(gy, deriv)
	if hasNext {
		gz.AddVec(gz, prod(mustErrors(next.output), next.ForgetGate.values()))
	}
	if err := l.output.AssignErrors(gz); err != nil {
		return err
	}

	x := mustValues(l.input)
	yPrev, zPrev := l.prev()
	gFor := mat.NewVecDense(gz.Len(), nil)
	if zPrev != nil {
		gFor = prod(gz, zPrev, l.ForgetGate.deriv())
	}
	gIn := prod(gz, l.Candidate.values(), l.InputGate.deriv())
	gC := prod(gz, l.InputGate.values())

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
