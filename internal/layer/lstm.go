package layer

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/GoRecurrent/internal/activations"
	"github.com/FlavioCFOliveira/GoRecurrent/internal/augmented"
	"github.com/FlavioCFOliveira/GoRecurrent/internal/param"
)

// LSTMParams are the parameters of a Long Short-Term Memory layer.
type LSTMParams struct {
	cfg Config

	InputW, InputB, InputWRec             *param.Array
	OutputW, OutputB, OutputWRec          *param.Array
	ForgetW, ForgetB, ForgetWRec          *param.Array
	CandidateW, CandidateB, CandidateWRec *param.Array
}

// NewLSTMParams creates initialized parameters. The forget bias starts at 1
// so that early training does not forget.
func NewLSTMParams(cfg Config) (*LSTMParams, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &LSTMParams{
		cfg:           cfg,
		InputW:        cfg.inputWeights("lstm.input.w"),
		InputB:        cfg.bias("lstm.input.b"),
		InputWRec:     cfg.recurrentWeights("lstm.input.wrec"),
		OutputW:       cfg.inputWeights("lstm.output.w"),
		OutputB:       cfg.bias("lstm.output.b"),
		OutputWRec:    cfg.recurrentWeights("lstm.output.wrec"),
		ForgetW:       cfg.inputWeights("lstm.forget.w"),
		ForgetB:       cfg.bias("lstm.forget.b"),
		ForgetWRec:    cfg.recurrentWeights("lstm.forget.wrec"),
		CandidateW:    cfg.inputWeights("lstm.candidate.w"),
		CandidateB:    cfg.bias("lstm.candidate.b"),
		CandidateWRec: cfg.recurrentWeights("lstm.candidate.wrec"),
	}
	err := cfg.initialize(
		p.InputW, p.InputWRec,
		p.OutputW, p.OutputWRec,
		p.ForgetW, p.ForgetWRec,
		p.CandidateW, p.CandidateWRec,
	)
	if err != nil {
		return nil, err
	}
	if err := p.ForgetB.Initialize(param.Constant{Value: 1}); err != nil {
		return nil, errors.WithMessage(err, "forget bias")
	}
	return p, nil
}

func (p *LSTMParams) Topology() Topology { return TopologyLSTM }
func (p *LSTMParams) Config() Config     { return p.cfg }

func (p *LSTMParams) Params() []*param.Array {
	return []*param.Array{
		p.InputW, p.InputB, p.InputWRec,
		p.OutputW, p.OutputB, p.OutputWRec,
		p.ForgetW, p.ForgetB, p.ForgetWRec,
		p.CandidateW, p.CandidateB, p.CandidateWRec,
	}
}

func (p *LSTMParams) NewUnroller() Unroller {
	return newUnroller(func(w Window[*LSTM]) *LSTM {
		return NewLSTM(p, w)
	})
}

// LSTM computes
//
//	inG = σ(Wi·x + bi + Wir·yPrev)
//	outG = σ(Wo·x + bo + Wor·yPrev)
//	forG = σ(Wf·x + bf + Wfr·yPrev)
//	cand = f(Wc·x + bc + Wcr·yPrev)
//	cell = inG⊙cand + forG⊙cellPrev
//	y = outG⊙f(cell)
//
// where cellPrev is the not-activated cell of the previous state.
type LSTM struct {
	base
	params *LSTMParams
	window Window[*LSTM]

	InputGate  *Gate
	OutputGate *Gate
	ForgetGate *Gate
	Candidate  *Gate
	// Cell values are the not-activated cell, its activated values f(cell).
	Cell *augmented.Array
}

// NewLSTM creates the structure of one timestep.
func NewLSTM(p *LSTMParams, w Window[*LSTM]) *LSTM {
	size := p.cfg.OutputSize
	return &LSTM{
		base: base{
			input:  augmented.New(p.cfg.InputSize, nil),
			output: augmented.New(size, nil),
		},
		params:     p,
		window:     w,
		InputGate:  newGate(size, activations.Sigmoid{}, p.InputW, p.InputB, p.InputWRec),
		OutputGate: newGate(size, activations.Sigmoid{}, p.OutputW, p.OutputB, p.OutputWRec),
		ForgetGate: newGate(size, activations.Sigmoid{}, p.ForgetW, p.ForgetB, p.ForgetWRec),
		Candidate:  newGate(size, p.cfg.Activation, p.CandidateW, p.CandidateB, p.CandidateWRec),
		Cell:       augmented.New(size, p.cfg.Activation),
	}
}

func (l *LSTM) gates() []*Gate {
	return []*Gate{l.InputGate, l.OutputGate, l.ForgetGate, l.Candidate}
}

func (l *LSTM) prev() (yPrev, cellPrev mat.Vector) {
	if prev, ok := l.window.PrevState(); ok {
		return mustValues(prev.output), mustNotActivated(prev.Cell)
	}
	return nil, nil
}

// Forward computes the cell and the output.
func (l *LSTM) Forward() error {
	x, err := l.inputValues()
	if err != nil {
		return err
	}
	yPrev, cellPrev := l.prev()

	for _, g := range l.gates() {
		if err := g.forward(x, yPrev); err != nil {
			return errors.WithMessage(err, "lstm")
		}
	}

	cell := prod(l.InputGate.values(), l.Candidate.values())
	if cellPrev != nil {
		cell.AddVec(cell, prod(l.ForgetGate.values(), cellPrev))
	}
	if err := l.Cell.AssignValues(cell); err != nil {
		return err
	}
	if err := l.Cell.Activate(); err != nil {
		return err
	}
	return l.output.AssignValues(prod(l.OutputGate.values(), mustValues(l.Cell)))
}

// Backward computes
//
//	gCell = gy⊙outG⊙f'(cell) + gCellNext⊙forGNext
//	gOutG = gy⊙f(cell)⊙σ'(outG)
//	gInG = gCell⊙cand⊙σ'(inG)
//	gForG = gCell⊙cellPrev⊙σ'(forG)
//	gCand = gCell⊙inG⊙f'(cand)
//
// where gy already includes the recurrent gate errors of the next state.
func (l *LSTM) Backward(c *param.Collector, propagateToInput bool) error {
	gy, err := l.outputErrors()
	if err != nil {
		return err
	}
	next, hasNext := l.window.NextState()
	if hasNext {
		for _, g := range next.gates() {
			g.recurrent(gy)
		}
	}
	if err := l.output.AssignErrors(gy); err != nil {
		return err
	}

	cellDeriv, err := l.Cell.ActivationDeriv()
	if err != nil {
		return err
	}
	gCell := prod(gy, l.OutputGate.values(), cellDeriv)
	if hasNext {
		gCell.AddVec(gCell, prod(mustErrors(next.Cell), next.ForgetGate.values()))
	}
	if err := l.Cell.AssignErrors(gCell); err != nil {
		return err
	}

	x := mustValues(l.input)
	yPrev, cellPrev := l.prev()
	gFor := mat.NewVecDense(gCell.Len(), nil)
	if cellPrev != nil {
		gFor = prod(gCell, cellPrev, l.ForgetGate.deriv())
	}
	gOut := prod(gy, mustValues(l.Cell), l.OutputGate.deriv())
	gIn := prod(gCell, l.Candidate.values(), l.InputGate.deriv())
	gCand := prod(gCell, l.InputGate.values(), l.Candidate.deriv())

	for _, u := range []struct {
		g  *Gate
		gz *mat.VecDense
	}{
		{l.InputGate, gIn},
		{l.OutputGate, gOut},
		{l.ForgetGate, gFor},
		{l.Candidate, gCand},
	} {
		if err := u.g.backward(c, u.gz, x, yPrev); err != nil {
			return err
		}
	}

	if propagateToInput {
		return l.assignInputErrors(l.gates()...)
	}
	return nil
}
