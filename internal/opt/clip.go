package opt

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/GoRecurrent/internal/ndarray"
	"github.com/FlavioCFOliveira/GoRecurrent/internal/param"
)

// Clipper limits parameter errors in place before the update. Clip returns
// the global L2 norm measured before clipping.
type Clipper interface {
	Clip(errs []*param.Errors) float64
}

// GlobalNorm returns the L2 norm of all errors taken as one vector.
func GlobalNorm(errs []*param.Errors) float64 {
	norms := make([]float64, len(errs))
	for i, e := range errs {
		norms[i] = math.Sqrt(ndarray.SumSquares(e.Values))
	}
	return floats.Norm(norms, 2)
}

// ClipNorm rescales all errors when their global norm exceeds Max:
// if ||g|| > Max, g = g·Max/||g||.
type ClipNorm struct {
	Max float64
}

func (c ClipNorm) Clip(errs []*param.Errors) float64 {
	norm := GlobalNorm(errs)
	if norm > c.Max && norm > 0 {
		f := c.Max / norm
		for _, e := range errs {
			ndarray.Scale(e.Values, f)
		}
	}
	return norm
}

// ClipValue bounds every error to [-Max, Max].
type ClipValue struct {
	Max float64
}

func (c ClipValue) Clip(errs []*param.Errors) float64 {
	norm := GlobalNorm(errs)
	for _, e := range errs {
		switch m := e.Values.(type) {
		case *ndarray.SparseMatrix:
			m.Do(func(i, j int, v float64) {
				m.Set(i, j, clamp(v, c.Max))
			})
		case *mat.Dense:
			m.Apply(func(_, _ int, v float64) float64 {
				return clamp(v, c.Max)
			}, m)
		}
	}
	return norm
}

func clamp(v, max float64) float64 {
	return math.Max(-max, math.Min(max, v))
}
