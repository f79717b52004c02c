package ndarray

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSparseSetAddAt(t *testing.T) {
	s := NewSparse(2, 3)
	s.Set(0, 1, 2.5)
	s.Add(0, 1, 0.5)
	s.Add(1, 2, -1)

	assert.Equal(t, 3.0, s.At(0, 1))
	assert.Equal(t, -1.0, s.At(1, 2))
	assert.Equal(t, 0.0, s.At(1, 0))
	assert.Equal(t, 2, s.NonZeros())
	assert.Equal(t, []int{1, 5}, s.Indices())
}

func TestSparseTranspose(t *testing.T) {
	s := NewSparse(2, 3)
	s.Set(1, 2, 7)
	tr := s.T()
	r, c := tr.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, 7.0, tr.At(2, 1))
}

func TestSparseOutOfRangePanics(t *testing.T) {
	s := NewSparse(2, 2)
	assert.Panics(t, func() { s.At(2, 0) })
	assert.Panics(t, func() { s.Set(0, -1, 1) })
}

func TestAddToSparseSparseMergesIndices(t *testing.T) {
	a := NewSparse(2, 2)
	a.Set(0, 0, 1)
	b := NewSparse(2, 2)
	b.Set(1, 1, 2)
	b.Set(0, 0, 3)

	out := AddTo(a, b)
	require.Equal(t, Sparse, KindOf(out))
	assert.Equal(t, 4.0, out.At(0, 0))
	assert.Equal(t, 2.0, out.At(1, 1))
	assert.Equal(t, 2, out.(*SparseMatrix).NonZeros())
}

func TestAddToSparseDensePromotes(t *testing.T) {
	s := NewSparse(2, 2)
	s.Set(0, 1, 5)
	d := mat.NewDense(2, 2, []float64{1, 0, 0, 1})

	out := AddTo(s, d)
	require.Equal(t, Dense, KindOf(out))
	assert.True(t, mat.Equal(out, mat.NewDense(2, 2, []float64{1, 5, 0, 1})))
	// d must not be modified by the promotion
	assert.Equal(t, 0.0, d.At(0, 1))
}

func TestAddToDenseSparse(t *testing.T) {
	d := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	s := NewSparse(2, 2)
	s.Set(1, 0, 10)

	out := AddTo(d, s)
	assert.Same(t, d, out)
	assert.Equal(t, 13.0, d.At(1, 0))
}

func TestAddToShapeMismatchPanics(t *testing.T) {
	assert.Panics(t, func() {
		AddTo(mat.NewDense(2, 2, nil), mat.NewDense(2, 3, nil))
	})
}

func TestAddOuter(t *testing.T) {
	a := mat.NewVecDense(2, []float64{1, 2})
	b := mat.NewVecDense(3, []float64{0, 3, 0})

	d := mat.NewDense(2, 3, nil)
	AddOuter(d, a, b)
	AddOuter(d, a, b)
	assert.True(t, mat.Equal(d, mat.NewDense(2, 3, []float64{0, 6, 0, 0, 12, 0})))

	s := NewSparse(2, 3)
	AddOuter(s, a, b)
	assert.Equal(t, 2, s.NonZeros())
	assert.Equal(t, 6.0, s.At(1, 1))
	assert.True(t, EqualApprox(s, mat.NewDense(2, 3, []float64{0, 3, 0, 0, 6, 0}), 1e-12))
}

func TestAddVec(t *testing.T) {
	d := mat.NewDense(3, 1, nil)
	AddVec(d, mat.NewVecDense(3, []float64{1, 0, 2}))
	assert.Equal(t, 2.0, d.At(2, 0))

	s := NewSparse(3, 1)
	AddVec(s, mat.NewVecDense(3, []float64{1, 0, 2}))
	assert.Equal(t, 2, s.NonZeros())
}

func TestCloneScaleNonZeros(t *testing.T) {
	s := NewSparse(2, 2)
	s.Set(0, 0, 2)
	c := Clone(s)
	Scale(c, 3)
	assert.Equal(t, 2.0, s.At(0, 0))
	assert.Equal(t, 6.0, c.At(0, 0))

	d := mat.NewDense(2, 2, []float64{1, 0, 0, -1})
	assert.Equal(t, 2, NonZeros(d))
	assert.Equal(t, 2.0, SumSquares(d))
	assert.Equal(t, 36.0, SumSquares(c))
}

func TestEqualApprox(t *testing.T) {
	s := NewSparse(1, 2)
	s.Set(0, 1, 1)
	assert.True(t, EqualApprox(s, mat.NewDense(1, 2, []float64{0, 1 + 1e-9}), 1e-6))
	assert.False(t, EqualApprox(s, mat.NewDense(1, 2, []float64{0, 2}), 1e-6))
	assert.False(t, EqualApprox(s, mat.NewDense(2, 1, nil), 1e-6))
}
