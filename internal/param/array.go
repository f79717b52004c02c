// Package param holds the trainable arrays of a layer and the machinery that
// turns per-example gradients into one batch-level update: the Collector
// filled during a single backward pass and the Accumulator that sums and
// averages Collector outputs across the examples of a batch.
package param

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/GoRecurrent/internal/ndarray"
)

var (
	// ErrShape is returned when an errors array does not match its parameter.
	ErrShape = errors.New("param: shape mismatch")
	// ErrSparsity is returned when an errors array has a sparsity the
	// parameter does not accept.
	ErrSparsity = errors.New("param: sparsity mismatch")
	// ErrSparseInit is returned when a randomizing initializer is applied to
	// sparse values.
	ErrSparseInit = errors.New("param: sparse values cannot be randomized")
)

// Array is one trainable parameter: a weight matrix, a bias or a recurrent
// weight matrix. Biases are rows x 1 matrices.
//
// An Array is shared by reference by every timestep of every sequence. Only
// the optimizer mutates its values.
type Array struct {
	id     uuid.UUID
	name   string
	values *mat.Dense

	errorsKind   ndarray.Kind
	sparseValues bool
}

// Option configures a new Array.
type Option func(*Array)

// WithSparseErrors declares that the errors of the array are sparse, as for
// the input weights of a layer fed with sparse input.
func WithSparseErrors() Option {
	return func(a *Array) { a.errorsKind = ndarray.Sparse }
}

// WithSparseValues declares sparse values. Sparse values imply sparse errors
// and can only be initialized with a non-randomizing initializer.
func WithSparseValues() Option {
	return func(a *Array) {
		a.sparseValues = true
		a.errorsKind = ndarray.Sparse
	}
}

// New returns a zero-valued rows x cols parameter.
func New(name string, rows, cols int, opts ...Option) *Array {
	a := &Array{
		id:     uuid.New(),
		name:   name,
		values: mat.NewDense(rows, cols, nil),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// ID returns the unique identity of the parameter.
func (a *Array) ID() uuid.UUID { return a.id }

// Name returns the descriptive name given at construction.
func (a *Array) Name() string { return a.name }

// Values returns the parameter values. Callers other than update rules must
// treat them as read-only.
func (a *Array) Values() *mat.Dense { return a.values }

// Dims returns the parameter shape.
func (a *Array) Dims() (rows, cols int) { return a.values.Dims() }

// ErrorsKind returns the declared sparsity of the parameter errors.
func (a *Array) ErrorsKind() ndarray.Kind { return a.errorsKind }

// SparseValues reports whether the values were declared sparse.
func (a *Array) SparseValues() bool { return a.sparseValues }

// Initialize fills the values with init.
func (a *Array) Initialize(init Initializer) error {
	if a.sparseValues && init.Randomizes() {
		return errors.Wrapf(ErrSparseInit, "%s", a)
	}
	init.Init(a.values)
	return nil
}

// ZeroErrors returns a zero errors array with the declared sparsity.
func (a *Array) ZeroErrors() mat.Matrix {
	r, c := a.values.Dims()
	return ndarray.Zeros(a.errorsKind, r, c)
}

// CheckErrors verifies that m can be used as errors of the parameter.
// Dense errors are always accepted by sparse parameters; sparse errors on a
// dense parameter are a contract violation.
func (a *Array) CheckErrors(m mat.Matrix) error {
	r, c := a.values.Dims()
	mr, mc := m.Dims()
	if r != mr || c != mc {
		return errors.Wrapf(ErrShape, "%s: errors are %dx%d", a, mr, mc)
	}
	if ndarray.KindOf(m) == ndarray.Sparse && a.errorsKind == ndarray.Dense {
		return errors.Wrapf(ErrSparsity, "%s: sparse errors on dense parameter", a)
	}
	return nil
}

func (a *Array) String() string {
	r, c := a.values.Dims()
	return fmt.Sprintf("%s[%dx%d %s]", a.name, r, c, a.errorsKind)
}

// Errors pairs a parameter with an errors array of the same shape.
type Errors struct {
	Param  *Array
	Values mat.Matrix
}
