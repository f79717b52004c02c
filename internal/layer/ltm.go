package layer

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/GoRecurrent/internal/activations"
	"github.com/FlavioCFOliveira/GoRecurrent/internal/augmented"
	"github.com/FlavioCFOliveira/GoRecurrent/internal/param"
)

// LTMParams are the parameters of a Long-Term Memory layer. The input and
// the output must have the same size since the previous output is summed to
// the input.
type LTMParams struct {
	cfg Config

	W1, B1 *param.Array
	W2, B2 *param.Array
	W3, B3 *param.Array
	WCell  *param.Array
}

// NewLTMParams creates initialized parameters.
func NewLTMParams(cfg Config) (*LTMParams, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.InputSize != cfg.OutputSize {
		return nil, errors.Wrapf(ErrConfig, "ltm input size %d != output size %d", cfg.InputSize, cfg.OutputSize)
	}
	p := &LTMParams{
		cfg:   cfg,
		W1:    cfg.inputWeights("ltm.l1.w"),
		B1:    cfg.bias("ltm.l1.b"),
		W2:    cfg.inputWeights("ltm.l2.w"),
		B2:    cfg.bias("ltm.l2.b"),
		W3:    cfg.inputWeights("ltm.l3.w"),
		B3:    cfg.bias("ltm.l3.b"),
		WCell: cfg.recurrentWeights("ltm.cell.w"),
	}
	if err := cfg.initialize(p.W1, p.W2, p.W3, p.WCell); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *LTMParams) Topology() Topology { return TopologyLTM }
func (p *LTMParams) Config() Config     { return p.cfg }

func (p *LTMParams) Params() []*param.Array {
	return []*param.Array{p.W1, p.B1, p.W2, p.B2, p.W3, p.B3, p.WCell}
}

func (p *LTMParams) NewUnroller() Unroller {
	return newUnroller(func(w Window[*LTM]) *LTM {
		return NewLTM(p, w)
	})
}

// LTM computes
//
//	xs = x + yPrev
//	l1 = σ(W1·xs + b1), l2 = σ(W2·xs + b2), l3 = σ(W3·xs + b3)
//	c = l1⊙l2 + cPrev
//	cell = σ(Wcell·c)
//	y = cell⊙l3
type LTM struct {
	base
	params *LTMParams
	window Window[*LTM]

	// InputSum holds xs.
	InputSum *augmented.Array
	L1       *Gate
	L2       *Gate
	L3       *Gate
	// C is the unbounded memory, Cell its squashed projection.
	C    *augmented.Array
	Cell *Gate
}

// NewLTM creates the structure of one timestep.
func NewLTM(p *LTMParams, w Window[*LTM]) *LTM {
	size := p.cfg.OutputSize
	return &LTM{
		base: base{
			input:  augmented.New(p.cfg.InputSize, nil),
			output: augmented.New(size, nil),
		},
		params:   p,
		window:   w,
		InputSum: augmented.New(size, nil),
		L1:       newGate(size, activations.Sigmoid{}, p.W1, p.B1, nil),
		L2:       newGate(size, activations.Sigmoid{}, p.W2, p.B2, nil),
		L3:       newGate(size, activations.Sigmoid{}, p.W3, p.B3, nil),
		C:        augmented.New(size, nil),
		Cell:     newGate(size, activations.Sigmoid{}, p.WCell, nil, nil),
	}
}

// Forward computes the output.
func (l *LTM) Forward() error {
	x, err := l.inputValues()
	if err != nil {
		return err
	}
	xs := mat.VecDenseCopyOf(x)
	prev, hasPrev := l.window.PrevState()
	if hasPrev {
		xs.AddVec(xs, mustValues(prev.output))
	}
	if err := l.InputSum.AssignValues(xs); err != nil {
		return err
	}

	for _, g := range []*Gate{l.L1, l.L2, l.L3} {
		if err := g.forward(xs, nil); err != nil {
			return errors.WithMessage(err, "ltm")
		}
	}

	c := prod(l.L1.values(), l.L2.values())
	if hasPrev {
		c.AddVec(c, mustValues(prev.C))
	}
	if err := l.C.AssignValues(c); err != nil {
		return err
	}
	if err := l.Cell.forward(c, nil); err != nil {
		return errors.WithMessage(err, "ltm cell")
	}
	return l.output.AssignValues(prod(l.Cell.values(), l.L3.values()))
}

// Backward computes
//
//	gy = gy + gxsNext
//	gL3 = gy⊙cell⊙σ'(l3)
//	gCell = gy⊙l3⊙σ'(cell)
//	gc = Wcellᵗ·gCell + gcNext
//	gL1 = gc⊙l2⊙σ'(l1), gL2 = gc⊙l1⊙σ'(l2)
//	gxs = Σ Wkᵗ·gLk
//
// gxs is both the input error and the error sent to the previous output.
func (l *LTM) Backward(c *param.Collector, propagateToInput bool) error {
	gy, err := l.outputErrors()
	if err != nil {
		return err
	}
	next, hasNext := l.window.NextState()
	if hasNext {
		gy.AddVec(gy, mustErrors(next.InputSum))
	}
	if err := l.output.AssignErrors(gy); err != nil {
		return err
	}

	gL3 := prod(gy, l.Cell.values(), l.L3.deriv())
	gCell := prod(gy, l.L3.values(), l.Cell.deriv())
	cv := mustValues(l.C)
	if err := l.Cell.backward(c, gCell, cv, nil); err != nil {
		return err
	}

	gc := mat.NewVecDense(gy.Len(), nil)
	l.Cell.propagate(gc)
	if hasNext {
		gc.AddVec(gc, mustErrors(next.C))
	}
	if err := l.C.AssignErrors(gc); err != nil {
		return err
	}

	gL1 := prod(gc, l.L2.values(), l.L1.deriv())
	gL2 := prod(gc, l.L1.values(), l.L2.deriv())

	xs := mustValues(l.InputSum)
	for _, u := range []struct {
		g  *Gate
		gz *mat.VecDense
	}{
		{l.L1, gL1},
		{l.L2, gL2},
		{l.L3, gL3},
	} {
		if err := u.g.backward(c, u.gz, xs, nil); err != nil {
			return err
		}
	}

	gxs := mat.NewVecDense(xs.Len(), nil)
	for _, g := range []*Gate{l.L1, l.L2, l.L3} {
		g.propagate(gxs)
	}
	if err := l.InputSum.AssignErrors(gxs); err != nil {
		return err
	}
	if propagateToInput {
		return l.input.AssignErrors(gxs)
	}
	return nil
}
