package layer

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/GoRecurrent/internal/activations"
	"github.com/FlavioCFOliveira/GoRecurrent/internal/augmented"
	"github.com/FlavioCFOliveira/GoRecurrent/internal/ndarray"
	"github.com/FlavioCFOliveira/GoRecurrent/internal/param"
)

// Gate is a gate or cell unit: a state array computed as
//
//	f(W·x + B + WRec·yPrev)
//
// B and WRec are optional. The gate references its parameters, it does not
// own them. After backward the errors of the gate hold the error w.r.t. its
// pre-activation.
type Gate struct {
	*augmented.Array

	W    *param.Array
	B    *param.Array
	WRec *param.Array
}

func newGate(size int, act activations.Activation, w, b, wRec *param.Array) *Gate {
	return &Gate{
		Array: augmented.New(size, act),
		W:     w,
		B:     b,
		WRec:  wRec,
	}
}

// forward computes the gate values. yPrev may be nil.
func (g *Gate) forward(x, yPrev mat.Vector) error {
	z := mat.NewVecDense(g.Size(), nil)
	z.MulVec(g.W.Values(), x)
	if g.B != nil {
		z.AddVec(z, g.B.Values().ColView(0))
	}
	if g.WRec != nil && yPrev != nil {
		rec := mat.NewVecDense(g.Size(), nil)
		rec.MulVec(g.WRec.Values(), yPrev)
		z.AddVec(z, rec)
	}
	if err := g.AssignValues(z); err != nil {
		return errors.WithMessage(err, "gate forward")
	}
	return g.Activate()
}

// deriv returns the derivative of the gate activation at its current values.
func (g *Gate) deriv() *mat.VecDense {
	d, err := g.ActivationDeriv()
	if err != nil {
		panic(err)
	}
	return d
}

// values returns the current values. Callers only use it after forward.
func (g *Gate) values() *mat.VecDense {
	v, err := g.Values()
	if err != nil {
		panic(err)
	}
	return v
}

// errs returns the gate errors. Callers only use it after backward.
func (g *Gate) errs() *mat.VecDense {
	e, err := g.Errors()
	if err != nil {
		panic(err)
	}
	return e
}

// backward stores gz as the pre-activation error of the gate and collects
// the parameter errors gW = gz·xᵗ, gB = gz and gWRec = gz·yPrevᵗ. yPrev may
// be nil.
func (g *Gate) backward(c *param.Collector, gz, x, yPrev mat.Vector) error {
	if err := g.AssignErrors(gz); err != nil {
		return errors.WithMessage(err, "gate backward")
	}
	ndarray.AddOuter(c.Collect(g.W).Values, gz, x)
	if g.B != nil {
		ndarray.AddVec(c.Collect(g.B).Values, gz)
	}
	if g.WRec != nil && yPrev != nil {
		ndarray.AddOuter(c.Collect(g.WRec).Values, gz, yPrev)
	}
	return nil
}

// propagate adds Wᵗ·e into dst, e being the gate errors.
func (g *Gate) propagate(dst *mat.VecDense) {
	addMulT(dst, g.W.Values(), g.errs())
}

// recurrent adds WRecᵗ·e into dst, e being the gate errors.
func (g *Gate) recurrent(dst *mat.VecDense) {
	addMulT(dst, g.WRec.Values(), g.errs())
}

// addMulT adds mᵗ·v into dst.
func addMulT(dst *mat.VecDense, m mat.Matrix, v mat.Vector) {
	tmp := mat.NewVecDense(dst.Len(), nil)
	tmp.MulVec(m.T(), v)
	dst.AddVec(dst, tmp)
}

// prod returns the elementwise product of vs.
func prod(vs ...mat.Vector) *mat.VecDense {
	out := mat.VecDenseCopyOf(vs[0])
	for _, v := range vs[1:] {
		out.MulElemVec(out, v)
	}
	return out
}

// mustValues returns the values of a state array already forwarded.
func mustValues(a *augmented.Array) *mat.VecDense {
	v, err := a.Values()
	if err != nil {
		panic(err)
	}
	return v
}

// mustNotActivated returns the pre-activation values of a forwarded array.
func mustNotActivated(a *augmented.Array) *mat.VecDense {
	v, err := a.NotActivated()
	if err != nil {
		panic(err)
	}
	return v
}

// mustErrors returns the errors of a state array already backwarded.
func mustErrors(a *augmented.Array) *mat.VecDense {
	e, err := a.Errors()
	if err != nil {
		panic(err)
	}
	return e
}
