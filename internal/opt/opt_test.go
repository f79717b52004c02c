// Package opt provides unit tests for update rules and the optimizer.
package opt

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/GoRecurrent/internal/ndarray"
	"github.com/FlavioCFOliveira/GoRecurrent/internal/param"
)

func newParam(rows, cols int, data ...float64) *param.Array {
	p := param.New("w", rows, cols)
	if data != nil {
		p.Values().Copy(mat.NewDense(rows, cols, data))
	}
	return p
}

// TestSGDStep tests SGD step computation.
func TestSGDStep(t *testing.T) {
	sgd := NewSGD(0.1, 0)
	p := newParam(1, 3, 1, 2, 3)

	if err := sgd.Update(p, mat.NewDense(1, 3, []float64{0.1, 0.2, 0.3})); err != nil {
		t.Fatal(err)
	}

	// Expected: params - lr * gradients
	expected := []float64{0.99, 1.98, 2.97}
	for i, want := range expected {
		if got := p.Values().At(0, i); math.Abs(got-want) > 1e-10 {
			t.Errorf("w[%d] = %v, want %v", i, got, want)
		}
	}
}

// TestSGDMomentum tests that the velocity carries over between updates.
func TestSGDMomentum(t *testing.T) {
	sgd := NewSGD(0.1, 0.9)
	p := newParam(1, 1, 0)
	g := mat.NewDense(1, 1, []float64{1})

	require.NoError(t, sgd.Update(p, g))
	// v = 1, w = -0.1
	require.NoError(t, sgd.Update(p, g))
	// v = 0.9 + 1 = 1.9, w = -0.1 - 0.19
	if got := p.Values().At(0, 0); math.Abs(got-(-0.29)) > 1e-12 {
		t.Errorf("w = %v, want -0.29", got)
	}
}

// TestSGDNegativeGradients tests negative gradient behavior.
func TestSGDNegativeGradients(t *testing.T) {
	sgd := NewSGD(0.1, 0)
	p := newParam(1, 1, 0)

	require.NoError(t, sgd.Update(p, mat.NewDense(1, 1, []float64{-0.5})))

	// Negative gradient should increase parameter (move in positive direction)
	if got := p.Values().At(0, 0); math.Abs(got-0.05) > 1e-10 {
		t.Errorf("w = %v, want 0.05", got)
	}
}

// TestSparseUpdateTouchesActiveOnly tests that sparse errors leave inactive
// positions and their state untouched.
func TestSparseUpdateTouchesActiveOnly(t *testing.T) {
	for name, rule := range map[string]UpdateRule{
		"sgd":     NewSGD(0.1, 0.5),
		"adagrad": NewAdaGrad(0.1),
		"adam":    NewAdam(0.1),
	} {
		t.Run(name, func(t *testing.T) {
			p := param.New("w", 2, 2, param.WithSparseErrors())
			p.Values().Copy(mat.NewDense(2, 2, []float64{1, 1, 1, 1}))
			g := ndarray.NewSparse(2, 2)
			g.Set(1, 0, 2)

			if h, ok := rule.(BatchHook); ok {
				h.NewBatch()
			}
			require.NoError(t, rule.Update(p, g))

			w := p.Values()
			assert.Equal(t, 1.0, w.At(0, 0))
			assert.Equal(t, 1.0, w.At(0, 1))
			assert.Equal(t, 1.0, w.At(1, 1))
			assert.Less(t, w.At(1, 0), 1.0)
		})
	}
}

// TestRuleRejectsSparseOnDense tests the sparsity contract of update rules.
func TestRuleRejectsSparseOnDense(t *testing.T) {
	p := newParam(2, 2)
	err := NewSGD(0.1, 0).Update(p, ndarray.NewSparse(2, 2))
	assert.True(t, errors.Is(err, param.ErrSparsity))

	err = NewAdam(0.1).Update(p, mat.NewDense(3, 2, nil))
	assert.True(t, errors.Is(err, param.ErrShape))
}

// TestAdaGradStep tests the AdaGrad scaling of two steps.
func TestAdaGradStep(t *testing.T) {
	a := &AdaGrad{LR: 1}
	p := newParam(1, 1, 0)
	g := mat.NewDense(1, 1, []float64{3})

	require.NoError(t, a.Update(p, g))
	// w = -3/3
	require.NoError(t, a.Update(p, g))
	// w = -1 - 3/sqrt(18)
	want := -1 - 3/math.Sqrt(18)
	if got := p.Values().At(0, 0); math.Abs(got-want) > 1e-12 {
		t.Errorf("w = %v, want %v", got, want)
	}
}

// TestAdamNewAdam tests Adam creation with defaults.
func TestAdamNewAdam(t *testing.T) {
	adam := NewAdam(0.001)

	if adam.LR != 0.001 {
		t.Errorf("LR = %v, want 0.001", adam.LR)
	}
	if adam.Beta1 != 0.9 {
		t.Errorf("Beta1 = %v, want 0.9", adam.Beta1)
	}
	if adam.Beta2 != 0.999 {
		t.Errorf("Beta2 = %v, want 0.999", adam.Beta2)
	}
	if adam.Epsilon != 1e-8 {
		t.Errorf("Epsilon = %v, want 1e-8", adam.Epsilon)
	}
}

// TestAdamFirstStep tests that the bias-corrected first step moves every
// weight by about the learning rate, whatever the error magnitude.
func TestAdamFirstStep(t *testing.T) {
	adam := NewAdam(0.01)
	p := newParam(1, 2, 0, 0)

	adam.NewBatch()
	require.NoError(t, adam.Update(p, mat.NewDense(1, 2, []float64{1000, -0.001})))

	if got := p.Values().At(0, 0); math.Abs(got+0.01) > 1e-6 {
		t.Errorf("w[0] = %v, want -0.01", got)
	}
	if got := p.Values().At(0, 1); math.Abs(got-0.01) > 1e-4 {
		t.Errorf("w[1] = %v, want 0.01", got)
	}
	assert.Equal(t, 1, adam.Timestep())
}

// TestNewRule tests rule lookup by name.
func TestNewRule(t *testing.T) {
	for _, name := range []string{"sgd", "adagrad", "adam"} {
		r, err := NewRule(name, 0.1, 0)
		require.NoError(t, err, name)
		lr, ok := r.(LearningRater)
		require.True(t, ok, name)
		assert.Equal(t, 0.1, lr.LearningRate())
	}
	_, err := NewRule("rmsprop", 0.1, 0)
	assert.True(t, errors.Is(err, ErrUnknownRule), "got %v", err)
}

// TestClipNorm tests global norm clipping over dense and sparse errors.
func TestClipNorm(t *testing.T) {
	p := newParam(1, 2)
	q := param.New("v", 1, 2, param.WithSparseErrors())
	sp := ndarray.NewSparse(1, 2)
	sp.Set(0, 1, 4)
	errs := []*param.Errors{
		{Param: p, Values: mat.NewDense(1, 2, []float64{3, 0})},
		{Param: q, Values: sp},
	}

	norm := ClipNorm{Max: 1}.Clip(errs)
	assert.InDelta(t, 5, norm, 1e-12)
	assert.InDelta(t, 1, GlobalNorm(errs), 1e-12)
	assert.InDelta(t, 0.6, errs[0].Values.At(0, 0), 1e-12)
	assert.InDelta(t, 0.8, sp.At(0, 1), 1e-12)

	norm = ClipNorm{Max: 10}.Clip(errs)
	assert.InDelta(t, 1, norm, 1e-12)
	assert.InDelta(t, 0.6, errs[0].Values.At(0, 0), 1e-12)
}

// TestClipValue tests element clipping.
func TestClipValue(t *testing.T) {
	p := newParam(1, 3)
	errs := []*param.Errors{{Param: p, Values: mat.NewDense(1, 3, []float64{-5, 0.5, 7})}}
	ClipValue{Max: 1}.Clip(errs)
	assert.Equal(t, []float64{-1, 0.5, 1}, errs[0].Values.(*mat.Dense).RawMatrix().Data)
}

// TestOptimizerUpdate tests average, update and clear.
func TestOptimizerUpdate(t *testing.T) {
	p := newParam(1, 1, 1)
	o := New(NewSGD(0.5, 0))

	require.NoError(t, o.Accumulate([]*param.Errors{{Param: p, Values: mat.NewDense(1, 1, []float64{1})}}, false))
	require.NoError(t, o.Accumulate([]*param.Errors{{Param: p, Values: mat.NewDense(1, 1, []float64{3})}}, false))
	require.NoError(t, o.Update())

	// mean error 2
	assert.InDelta(t, 0, p.Values().At(0, 0), 1e-12)
	assert.True(t, o.Accumulator().IsEmpty())

	// nothing accumulated: no-op
	require.NoError(t, o.Update())
	assert.InDelta(t, 0, p.Values().At(0, 0), 1e-12)
}

// TestOptimizerClipDoesNotMutateCaller tests that clipping a single example
// stored by reference leaves the caller's errors untouched.
func TestOptimizerClipDoesNotMutateCaller(t *testing.T) {
	p := newParam(1, 1, 0)
	g := mat.NewDense(1, 1, []float64{10})
	o := New(NewSGD(1, 0), WithClipper(ClipNorm{Max: 1}))

	require.NoError(t, o.Accumulate([]*param.Errors{{Param: p, Values: g}}, false))
	require.NoError(t, o.Update())

	assert.Equal(t, 10.0, g.At(0, 0))
	assert.InDelta(t, -1, p.Values().At(0, 0), 1e-12)
}

type hookRule struct {
	*SGD
	epochs, batches, examples int
}

func (h *hookRule) NewEpoch()   { h.epochs++ }
func (h *hookRule) NewBatch()   { h.batches++ }
func (h *hookRule) NewExample() { h.examples++ }

// TestOptimizerHooks tests that hooks reach the rule only when it implements them.
func TestOptimizerHooks(t *testing.T) {
	r := &hookRule{SGD: NewSGD(0.1, 0)}
	o := New(r)
	o.NewEpoch()
	o.NewBatch()
	o.NewBatch()
	o.NewExample()
	assert.Equal(t, 1, r.epochs)
	assert.Equal(t, 2, r.batches)
	assert.Equal(t, 1, r.examples)

	// SGD has no hooks: must not panic.
	plain := New(NewSGD(0.1, 0))
	plain.NewEpoch()
	plain.NewBatch()
	plain.NewExample()
}

// TestOptimizerMetrics tests the recorded metrics and the debug log.
func TestOptimizerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	sgd := NewSGD(0.1, 0)
	o := New(sgd,
		WithMetrics(m),
		WithClipper(ClipNorm{Max: 1}),
		WithScheduler(NewExponentialLR(sgd, 0.5)),
		WithLogger(logger),
	)
	p := newParam(1, 1, 0)
	for i := 0; i < 3; i++ {
		require.NoError(t, o.Accumulate([]*param.Errors{{Param: p, Values: mat.NewDense(1, 1, []float64{4})}}, true))
	}
	require.NoError(t, o.Update())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpdatesTotal))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ExamplesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ClippedTotal))
	assert.Equal(t, 0.1, testutil.ToFloat64(m.LearningRate))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "parameters updated", hook.LastEntry().Message)

	o.NewEpoch()
	o.NewEpoch()
	assert.InDelta(t, 0.05, testutil.ToFloat64(m.LearningRate), 1e-12)
}
