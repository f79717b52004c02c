// Package ndarray provides the numeric glue between the recurrent engine and
// gonum: a sparse matrix that satisfies mat.Matrix and mixed dense/sparse
// kernels used when collecting and accumulating parameter errors.
package ndarray

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Kind tells how the non-zero values of an array are stored.
type Kind int

const (
	// Dense arrays store every position.
	Dense Kind = iota
	// Sparse arrays store only the active indices.
	Sparse
)

func (k Kind) String() string {
	switch k {
	case Dense:
		return "dense"
	case Sparse:
		return "sparse"
	}
	return "unknown"
}

// SparseMatrix is a rows x cols matrix that stores only the positions that
// have been written. Values are keyed by their row-major linear index.
type SparseMatrix struct {
	rows, cols int
	values     map[int]float64
}

var _ mat.Matrix = (*SparseMatrix)(nil)

// NewSparse creates an empty sparse matrix.
func NewSparse(rows, cols int) *SparseMatrix {
	if rows <= 0 || cols <= 0 {
		panic(mat.ErrZeroLength)
	}
	return &SparseMatrix{
		rows:   rows,
		cols:   cols,
		values: make(map[int]float64),
	}
}

// Dims returns the matrix dimensions.
func (s *SparseMatrix) Dims() (r, c int) {
	return s.rows, s.cols
}

// At returns the value at (i, j), zero for inactive positions.
func (s *SparseMatrix) At(i, j int) float64 {
	s.check(i, j)
	return s.values[i*s.cols+j]
}

// T returns the implicit transpose.
func (s *SparseMatrix) T() mat.Matrix {
	return mat.Transpose{Matrix: s}
}

// Set stores v at (i, j), activating the position.
func (s *SparseMatrix) Set(i, j int, v float64) {
	s.check(i, j)
	s.values[i*s.cols+j] = v
}

// Add adds v to the value at (i, j), activating the position.
func (s *SparseMatrix) Add(i, j int, v float64) {
	s.check(i, j)
	s.values[i*s.cols+j] += v
}

// NonZeros returns the number of active positions.
func (s *SparseMatrix) NonZeros() int {
	return len(s.values)
}

// Indices returns the active linear indices in increasing order.
func (s *SparseMatrix) Indices() []int {
	idx := make([]int, 0, len(s.values))
	for k := range s.values {
		idx = append(idx, k)
	}
	sort.Ints(idx)
	return idx
}

// Do calls fn for every active position in increasing index order.
func (s *SparseMatrix) Do(fn func(i, j int, v float64)) {
	for _, k := range s.Indices() {
		fn(k/s.cols, k%s.cols, s.values[k])
	}
}

// AddSparse merges the active positions of o into s, summing the shared ones.
func (s *SparseMatrix) AddSparse(o *SparseMatrix) {
	s.sameShape(o)
	for k, v := range o.values {
		s.values[k] += v
	}
}

// Scale multiplies every active value by f.
func (s *SparseMatrix) Scale(f float64) {
	for k := range s.values {
		s.values[k] *= f
	}
}

// Clone returns a deep copy.
func (s *SparseMatrix) Clone() *SparseMatrix {
	c := NewSparse(s.rows, s.cols)
	for k, v := range s.values {
		c.values[k] = v
	}
	return c
}

// ToDense returns a dense copy.
func (s *SparseMatrix) ToDense() *mat.Dense {
	d := mat.NewDense(s.rows, s.cols, nil)
	raw := d.RawMatrix()
	for k, v := range s.values {
		raw.Data[(k/s.cols)*raw.Stride+k%s.cols] = v
	}
	return d
}

// Zero drops every active position.
func (s *SparseMatrix) Zero() {
	for k := range s.values {
		delete(s.values, k)
	}
}

func (s *SparseMatrix) check(i, j int) {
	if i < 0 || i >= s.rows {
		panic(mat.ErrRowAccess)
	}
	if j < 0 || j >= s.cols {
		panic(mat.ErrColAccess)
	}
}

func (s *SparseMatrix) sameShape(o mat.Matrix) {
	r, c := o.Dims()
	if r != s.rows || c != s.cols {
		panic(mat.ErrShape)
	}
}
