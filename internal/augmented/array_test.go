package augmented

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/GoRecurrent/internal/activations"
)

func TestErrorsBeforeValuesFail(t *testing.T) {
	a := New(3, nil)

	_, err := a.Errors()
	assert.True(t, errors.Is(err, ErrUninitialized))

	err = a.AssignErrors(mat.NewVecDense(3, nil))
	assert.True(t, errors.Is(err, ErrUninitialized))

	err = a.AddErrors(mat.NewVecDense(3, nil))
	assert.True(t, errors.Is(err, ErrUninitialized))

	_, err = a.Values()
	assert.True(t, errors.Is(err, ErrUninitialized))

	assert.True(t, errors.Is(a.Activate(), ErrUninitialized))
}

func TestAssignValuesAllocatesAndZeroesErrors(t *testing.T) {
	a := New(2, nil)
	require.NoError(t, a.AssignValues(mat.NewVecDense(2, []float64{1, 2})))
	assert.True(t, a.HasValues())

	e, err := a.Errors()
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, e.RawVector().Data)

	require.NoError(t, a.AssignErrors(mat.NewVecDense(2, []float64{0.5, -1})))
	require.NoError(t, a.AddErrors(mat.NewVecDense(2, []float64{0.5, 1})))
	e, _ = a.Errors()
	assert.Equal(t, []float64{1, 0}, e.RawVector().Data)

	// A new forward pass invalidates the old errors.
	require.NoError(t, a.AssignValues(mat.NewVecDense(2, []float64{3, 4})))
	e, _ = a.Errors()
	assert.Equal(t, []float64{0, 0}, e.RawVector().Data)
}

func TestSizeMismatch(t *testing.T) {
	a := New(2, nil)
	assert.True(t, errors.Is(a.AssignValues(mat.NewVecDense(3, nil)), ErrSize))

	require.NoError(t, a.AssignValues(mat.NewVecDense(2, nil)))
	assert.True(t, errors.Is(a.AssignErrors(mat.NewVecDense(1, nil)), ErrSize))
}

func TestActivateKeepsNotActivated(t *testing.T) {
	a := New(2, activations.Tanh{})
	require.NoError(t, a.AssignValues(mat.NewVecDense(2, []float64{0.5, -1})))
	require.NoError(t, a.Activate())

	v, _ := a.Values()
	na, _ := a.NotActivated()
	assert.InDelta(t, math.Tanh(0.5), v.AtVec(0), 1e-12)
	assert.InDelta(t, math.Tanh(-1), v.AtVec(1), 1e-12)
	assert.Equal(t, []float64{0.5, -1}, na.RawVector().Data)

	d, err := a.ActivationDeriv()
	require.NoError(t, err)
	assert.InDelta(t, 1-math.Tanh(0.5)*math.Tanh(0.5), d.AtVec(0), 1e-12)

	// Assigning again drops the stale snapshot.
	require.NoError(t, a.AssignValues(mat.NewVecDense(2, []float64{2, 2})))
	na, _ = a.NotActivated()
	assert.Equal(t, []float64{2, 2}, na.RawVector().Data)
}

func TestNoActivationDerivIsOnes(t *testing.T) {
	a := New(3, nil)
	require.NoError(t, a.AssignValues(mat.NewVecDense(3, []float64{1, 2, 3})))
	require.NoError(t, a.Activate())

	d, err := a.ActivationDeriv()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1}, d.RawVector().Data)
}

func TestResetAndClone(t *testing.T) {
	a := New(2, activations.Sigmoid{})
	require.NoError(t, a.AssignValues(mat.NewVecDense(2, []float64{1, 2})))
	require.NoError(t, a.Activate())
	require.NoError(t, a.AssignErrors(mat.NewVecDense(2, []float64{1, 1})))

	c := a.Clone()
	a.Reset()
	assert.False(t, a.HasValues())
	assert.True(t, c.HasValues())

	e, err := c.Errors()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1}, e.RawVector().Data)
}
