package ndarray

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// KindOf reports how m stores its values.
func KindOf(m mat.Matrix) Kind {
	if _, ok := m.(*SparseMatrix); ok {
		return Sparse
	}
	return Dense
}

// Zeros returns an all-zero matrix of the requested kind.
func Zeros(kind Kind, rows, cols int) mat.Matrix {
	if kind == Sparse {
		return NewSparse(rows, cols)
	}
	return mat.NewDense(rows, cols, nil)
}

// Clone returns a deep copy of m preserving its kind.
func Clone(m mat.Matrix) mat.Matrix {
	if s, ok := m.(*SparseMatrix); ok {
		return s.Clone()
	}
	return mat.DenseCopyOf(m)
}

// Scale multiplies m by f in place. Only *mat.Dense and *SparseMatrix are
// supported.
func Scale(m mat.Matrix, f float64) {
	switch t := m.(type) {
	case *SparseMatrix:
		t.Scale(f)
	case *mat.Dense:
		t.Scale(f, t)
	default:
		panic("ndarray: Scale on unsupported matrix type")
	}
}

// NonZeros counts the positions of m holding a value different from zero.
func NonZeros(m mat.Matrix) int {
	n := 0
	Each(m, func(_, _ int, v float64) {
		if v != 0 {
			n++
		}
	})
	return n
}

// Each calls fn for every stored position of m: all positions for dense
// matrices, the active ones for sparse matrices.
func Each(m mat.Matrix, fn func(i, j int, v float64)) {
	if s, ok := m.(*SparseMatrix); ok {
		s.Do(fn)
		return
	}
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			fn(i, j, m.At(i, j))
		}
	}
}

// SumSquares returns the sum of the squared values of m.
func SumSquares(m mat.Matrix) float64 {
	var sum float64
	Each(m, func(_, _ int, v float64) {
		sum += v * v
	})
	return sum
}

// AddTo adds src into dst and returns the result. Sparse plus sparse merges
// the index sets and stays sparse. If either operand is dense the result is
// dense; a sparse dst is promoted to a new dense matrix in that case, so the
// caller must use the returned value.
func AddTo(dst, src mat.Matrix) mat.Matrix {
	dr, dc := dst.Dims()
	sr, sc := src.Dims()
	if dr != sr || dc != sc {
		panic(mat.ErrShape)
	}

	switch d := dst.(type) {
	case *mat.Dense:
		if s, ok := src.(*SparseMatrix); ok {
			raw := d.RawMatrix()
			s.Do(func(i, j int, v float64) {
				raw.Data[i*raw.Stride+j] += v
			})
			return d
		}
		d.Add(d, src)
		return d
	case *SparseMatrix:
		if s, ok := src.(*SparseMatrix); ok {
			d.AddSparse(s)
			return d
		}
		out := mat.DenseCopyOf(src)
		raw := out.RawMatrix()
		d.Do(func(i, j int, v float64) {
			raw.Data[i*raw.Stride+j] += v
		})
		return out
	}
	panic("ndarray: AddTo on unsupported matrix type")
}

// AddOuter adds the outer product a·bᵗ into dst. A sparse dst only receives
// the columns where b is non-zero.
func AddOuter(dst mat.Matrix, a, b mat.Vector) {
	r, c := dst.Dims()
	if a.Len() != r || b.Len() != c {
		panic(mat.ErrShape)
	}

	switch d := dst.(type) {
	case *mat.Dense:
		raw := d.RawMatrix()
		for i := 0; i < r; i++ {
			ai := a.AtVec(i)
			if ai == 0 {
				continue
			}
			row := raw.Data[i*raw.Stride : i*raw.Stride+c]
			for j := range row {
				row[j] += ai * b.AtVec(j)
			}
		}
	case *SparseMatrix:
		for j := 0; j < c; j++ {
			bj := b.AtVec(j)
			if bj == 0 {
				continue
			}
			for i := 0; i < r; i++ {
				d.Add(i, j, a.AtVec(i)*bj)
			}
		}
	default:
		panic("ndarray: AddOuter on unsupported matrix type")
	}
}

// AddVec adds the column vector v into the single-column matrix dst.
func AddVec(dst mat.Matrix, v mat.Vector) {
	r, c := dst.Dims()
	if c != 1 || r != v.Len() {
		panic(mat.ErrShape)
	}
	switch d := dst.(type) {
	case *mat.Dense:
		raw := d.RawMatrix()
		for i := 0; i < r; i++ {
			raw.Data[i*raw.Stride] += v.AtVec(i)
		}
	case *SparseMatrix:
		for i := 0; i < r; i++ {
			if vi := v.AtVec(i); vi != 0 {
				d.Add(i, 0, vi)
			}
		}
	default:
		panic("ndarray: AddVec on unsupported matrix type")
	}
}

// EqualApprox reports whether a and b have the same shape and every
// position differs by at most tol, regardless of storage kind.
func EqualApprox(a, b mat.Matrix, tol float64) bool {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		return false
	}
	for i := 0; i < ar; i++ {
		for j := 0; j < ac; j++ {
			if math.Abs(a.At(i, j)-b.At(i, j)) > tol {
				return false
			}
		}
	}
	return true
}
