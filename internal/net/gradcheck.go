package net

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/GoRecurrent/internal/layer"
)

// GradCheckResult is the largest absolute difference between the collected
// errors of one parameter and their central finite differences.
type GradCheckResult struct {
	Param   string
	MaxDiff float64
}

// GradCheck runs xs through m with the loss Σt ⟨rs[t], yt⟩, whose output
// errors are rs, and compares every collected parameter error with a
// central finite difference of step h. The parameters are restored.
func GradCheck(m layer.Model, xs, rs []*mat.VecDense, h float64) ([]GradCheckResult, error) {
	p := NewProcessor(m)
	if _, err := p.Forward(xs); err != nil {
		return nil, err
	}
	if err := p.Backward(rs, false); err != nil {
		return nil, err
	}
	collected := make(map[string]mat.Matrix)
	for _, e := range p.ParamsErrors() {
		collected[e.Param.Name()] = e.Values
	}

	probe := NewProcessor(m)
	var probeErr error
	lossAt := func() float64 {
		ys, err := probe.Forward(xs)
		if err != nil {
			probeErr = err
			return 0
		}
		var l float64
		for t, y := range ys {
			if rs[t] != nil {
				l += mat.Dot(rs[t], y)
			}
		}
		return l
	}
	settings := &fd.Settings{Formula: fd.Central, Step: h}

	results := make([]GradCheckResult, 0, len(m.Params()))
	for _, prm := range m.Params() {
		w := prm.Values()
		rows, cols := w.Dims()
		got, ok := collected[prm.Name()]
		if !ok {
			got = mat.NewDense(rows, cols, nil)
		}
		var maxDiff float64
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				orig := w.At(i, j)
				want := fd.Derivative(func(v float64) float64 {
					w.Set(i, j, v)
					return lossAt()
				}, orig, settings)
				w.Set(i, j, orig)
				maxDiff = math.Max(maxDiff, math.Abs(want-got.At(i, j)))
			}
		}
		if probeErr != nil {
			return nil, errors.WithMessagef(probeErr, "%s", prm.Name())
		}
		results = append(results, GradCheckResult{Param: prm.Name(), MaxDiff: maxDiff})
	}
	return results, nil
}
