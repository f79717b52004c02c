package param

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/GoRecurrent/internal/ndarray"
)

func denseErrors(p *Array, data ...float64) *Errors {
	r, c := p.Dims()
	return &Errors{Param: p, Values: mat.NewDense(r, c, data)}
}

func TestNewIdentity(t *testing.T) {
	a := New("w", 2, 3)
	b := New("w", 2, 3)
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, ndarray.Dense, a.ErrorsKind())

	s := New("w", 2, 3, WithSparseErrors())
	assert.Equal(t, ndarray.Sparse, s.ErrorsKind())
	assert.False(t, s.SparseValues())
}

func TestInitialize(t *testing.T) {
	p := New("w", 4, 5)
	require.NoError(t, p.Initialize(NewGlorotUniform(1)))
	assert.NotZero(t, ndarray.NonZeros(p.Values()))

	q := New("w", 4, 5)
	require.NoError(t, q.Initialize(NewGlorotUniform(1)))
	assert.True(t, mat.Equal(p.Values(), q.Values()), "same seed must give same values")

	require.NoError(t, p.Initialize(Constant{Value: 0.5}))
	assert.Equal(t, 0.5, p.Values().At(3, 4))
}

func TestSparseValuesRejectRandomInit(t *testing.T) {
	p := New("w", 2, 2, WithSparseValues())
	err := p.Initialize(NewGlorotUniform(1))
	assert.True(t, errors.Is(err, ErrSparseInit))
	assert.NoError(t, p.Initialize(Zeros{}))
}

func TestCollectorLazyBuffers(t *testing.T) {
	c := NewCollector()
	dense := New("b", 3, 1)
	sparse := New("w", 3, 4, WithSparseErrors())

	e1 := c.Collect(dense)
	assert.Equal(t, ndarray.Dense, ndarray.KindOf(e1.Values))
	assert.Same(t, e1, c.Collect(dense))

	e2 := c.Collect(sparse)
	assert.Equal(t, ndarray.Sparse, ndarray.KindOf(e2.Values))
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []*Errors{e1, e2}, c.Errors())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.NotSame(t, e1, c.Collect(dense))
}

func TestCollectorSetChecksSparsity(t *testing.T) {
	c := NewCollector()
	sparse := New("w", 2, 2, WithSparseErrors())
	err := c.Set(&Errors{Param: sparse, Values: mat.NewDense(2, 2, nil)})
	assert.True(t, errors.Is(err, ErrSparsity))

	dense := New("w", 2, 2)
	err = c.Set(&Errors{Param: dense, Values: mat.NewDense(3, 2, nil)})
	assert.True(t, errors.Is(err, ErrShape))

	require.NoError(t, c.Set(denseErrors(dense, 1, 2, 3, 4)))
	assert.Equal(t, 4.0, c.Collect(dense).Values.At(1, 1))
}

func TestAccumulatorStates(t *testing.T) {
	acc := NewAccumulator()
	assert.True(t, acc.IsEmpty())

	p := New("w", 1, 2)
	require.NoError(t, acc.Accumulate([]*Errors{denseErrors(p, 1, 2)}, true))
	assert.False(t, acc.IsEmpty())
	assert.Equal(t, 1, acc.Count())

	acc.Clear()
	assert.True(t, acc.IsEmpty())
	assert.Equal(t, 0, acc.Count())
	assert.Empty(t, acc.Errors())
}

func TestAccumulationLinearity(t *testing.T) {
	p := New("w", 2, 2)
	q := New("b", 2, 1)

	once := NewAccumulator()
	require.NoError(t, once.Accumulate([]*Errors{
		denseErrors(p, 0.1, -0.2, 0.3, 0.4),
		denseErrors(q, 1, -1),
	}, true))

	for _, n := range []int{1, 2, 5} {
		acc := NewAccumulator()
		for i := 0; i < n; i++ {
			require.NoError(t, acc.Accumulate([]*Errors{
				denseErrors(p, 0.1, -0.2, 0.3, 0.4),
				denseErrors(q, 1, -1),
			}, true))
		}
		acc.Average()

		for _, want := range once.Errors() {
			got, ok := acc.Get(want.Param)
			require.True(t, ok)
			assert.True(t, ndarray.EqualApprox(got.Values, want.Values, 1e-12), "n=%d param=%s", n, want.Param)
		}
	}
}

func TestAverageNoopForSingleExample(t *testing.T) {
	p := New("w", 1, 1)
	acc := NewAccumulator()
	require.NoError(t, acc.Accumulate([]*Errors{denseErrors(p, 4)}, true))
	acc.Average()
	e, _ := acc.Get(p)
	assert.Equal(t, 4.0, e.Values.At(0, 0))
}

func TestReferenceVsCopyEquivalence(t *testing.T) {
	p := New("w", 2, 2)
	data := []float64{1, 2, 3, 4}

	byRef := NewAccumulator()
	orig := denseErrors(p, append([]float64(nil), data...)...)
	require.NoError(t, byRef.Accumulate([]*Errors{orig}, false))

	byCopy := NewAccumulator()
	require.NoError(t, byCopy.Accumulate([]*Errors{denseErrors(p, append([]float64(nil), data...)...)}, true))

	r, _ := byRef.Get(p)
	c, _ := byCopy.Get(p)
	assert.True(t, mat.Equal(r.Values, c.Values))
	assert.Same(t, orig.Values, r.Values, "first accumulation by reference must not copy")
}

func TestReferencePromotedOnSecondAccumulation(t *testing.T) {
	p := New("w", 1, 2)
	first := denseErrors(p, 1, 2)

	acc := NewAccumulator()
	require.NoError(t, acc.Accumulate([]*Errors{first}, false))
	require.NoError(t, acc.Accumulate([]*Errors{denseErrors(p, 10, 20)}, false))

	assert.Equal(t, []float64{1, 2}, first.Values.(*mat.Dense).RawMatrix().Data, "caller's array must not be mutated")
	e, _ := acc.Get(p)
	assert.True(t, mat.Equal(e.Values, mat.NewDense(1, 2, []float64{11, 22})))

	acc.Average()
	assert.Equal(t, []float64{1, 2}, first.Values.(*mat.Dense).RawMatrix().Data)
}

func TestAverageDoesNotMutateReferenceOnlyEntries(t *testing.T) {
	p := New("w", 1, 1)
	q := New("v", 1, 1)
	onlyFirst := denseErrors(q, 8)

	acc := NewAccumulator()
	require.NoError(t, acc.Accumulate([]*Errors{denseErrors(p, 1), onlyFirst}, false))
	require.NoError(t, acc.Accumulate([]*Errors{denseErrors(p, 3)}, false))
	acc.Average()

	assert.Equal(t, 8.0, onlyFirst.Values.At(0, 0))
	e, _ := acc.Get(q)
	assert.Equal(t, 4.0, e.Values.At(0, 0))
	e, _ = acc.Get(p)
	assert.Equal(t, 2.0, e.Values.At(0, 0))
}

func TestSparseDenseMerge(t *testing.T) {
	p := New("w", 2, 3, WithSparseErrors())

	sparse := ndarray.NewSparse(2, 3)
	sparse.Set(0, 0, 1.5)
	sparse.Set(1, 2, -2)

	dense := mat.NewDense(2, 3, []float64{
		0, 4, 0,
		3, 0, 0,
	})

	acc := NewAccumulator()
	require.NoError(t, acc.Accumulate([]*Errors{{Param: p, Values: sparse}}, false))
	require.NoError(t, acc.Accumulate([]*Errors{{Param: p, Values: dense}}, false))

	e, ok := acc.Get(p)
	require.True(t, ok)
	want := mat.NewDense(2, 3, []float64{
		1.5, 4, 0,
		3, 0, -2,
	})
	assert.True(t, ndarray.EqualApprox(e.Values, want, 1e-12))
	assert.Equal(t, 4, ndarray.NonZeros(e.Values))
	assert.Equal(t, 2, sparse.NonZeros(), "caller's sparse array must not change")
}

func TestSparseSparseMergeStaysSparse(t *testing.T) {
	p := New("w", 2, 2, WithSparseErrors())
	a := ndarray.NewSparse(2, 2)
	a.Set(0, 0, 1)
	b := ndarray.NewSparse(2, 2)
	b.Set(1, 1, 1)
	b.Set(0, 0, 1)

	acc := NewAccumulator()
	require.NoError(t, acc.Accumulate([]*Errors{{Param: p, Values: a}}, true))
	require.NoError(t, acc.Accumulate([]*Errors{{Param: p, Values: b}}, true))

	e, _ := acc.Get(p)
	require.Equal(t, ndarray.Sparse, ndarray.KindOf(e.Values))
	assert.Equal(t, 2, e.Values.(*ndarray.SparseMatrix).NonZeros())
	assert.Equal(t, 2.0, e.Values.At(0, 0))
}

func TestAccumulateRejectsMismatch(t *testing.T) {
	dense := New("w", 2, 2)
	acc := NewAccumulator()

	err := acc.Accumulate([]*Errors{{Param: dense, Values: ndarray.NewSparse(2, 2)}}, true)
	assert.True(t, errors.Is(err, ErrSparsity))

	err = acc.Accumulate([]*Errors{{Param: dense, Values: mat.NewDense(1, 2, nil)}}, true)
	assert.True(t, errors.Is(err, ErrShape))

	assert.True(t, acc.IsEmpty(), "failed accumulations must not change state")
}

func TestMerge(t *testing.T) {
	p := New("w", 1, 1)
	a := NewAccumulator()
	b := NewAccumulator()
	require.NoError(t, a.Accumulate([]*Errors{denseErrors(p, 1)}, false))
	require.NoError(t, b.Accumulate([]*Errors{denseErrors(p, 2)}, false))
	require.NoError(t, b.Accumulate([]*Errors{denseErrors(p, 3)}, false))

	a.Merge(b)
	assert.Equal(t, 3, a.Count())
	a.Average()
	e, _ := a.Get(p)
	assert.InDelta(t, 2.0, e.Values.At(0, 0), 1e-12)

	eb, _ := b.Get(p)
	assert.Equal(t, 5.0, eb.Values.At(0, 0))
}

func TestOwnDetachesReferences(t *testing.T) {
	p := New("w", 1, 2)
	orig := denseErrors(p, 1, 2)

	acc := NewAccumulator()
	require.NoError(t, acc.Accumulate([]*Errors{orig}, false))
	acc.Own()

	e, _ := acc.Get(p)
	assert.NotSame(t, orig.Values, e.Values)
	ndarray.Scale(e.Values, 10)
	assert.Equal(t, []float64{1, 2}, orig.Values.(*mat.Dense).RawMatrix().Data)
}
