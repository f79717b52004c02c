// Package augmented provides the state array of a layer: the values of one
// array-valued quantity (input, gate, cell, output) together with the errors
// collected on it during the backward pass and the optional activation that
// produced it.
package augmented

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/GoRecurrent/internal/activations"
)

var (
	// ErrUninitialized is returned when values or errors are used before the
	// first AssignValues.
	ErrUninitialized = errors.New("augmented: values not assigned")
	// ErrSize is returned when an assigned vector does not match the array size.
	ErrSize = errors.New("augmented: size mismatch")
)

// Array holds the values of a quantity and the errors w.r.t. those values.
//
// Values and errors are allocated lazily. The errors buffer always has the
// same size as the values and is reset to zero every time new values are
// assigned, since they then belong to a fresh forward pass.
type Array struct {
	size int
	act  activations.Activation

	values       *mat.VecDense
	notActivated *mat.VecDense
	errors       *mat.VecDense
}

// New returns an empty array of the given size. act may be nil.
func New(size int, act activations.Activation) *Array {
	if size <= 0 {
		panic(mat.ErrZeroLength)
	}
	return &Array{size: size, act: act}
}

// Size returns the length of the array.
func (a *Array) Size() int { return a.size }

// Activation returns the activation function, nil if none.
func (a *Array) Activation() activations.Activation { return a.act }

// HasValues reports whether values have been assigned at least once.
func (a *Array) HasValues() bool { return a.values != nil }

// Values returns the current values.
func (a *Array) Values() (*mat.VecDense, error) {
	if a.values == nil {
		return nil, ErrUninitialized
	}
	return a.values, nil
}

// NotActivated returns the values before the last Activate call. Arrays
// without activation, or not yet activated, return the current values.
func (a *Array) NotActivated() (*mat.VecDense, error) {
	if a.values == nil {
		return nil, ErrUninitialized
	}
	if a.notActivated != nil {
		return a.notActivated, nil
	}
	return a.values, nil
}

// AssignValues copies v into the array, allocating it on first use. The
// errors are reset and any previous pre-activation snapshot is dropped.
func (a *Array) AssignValues(v mat.Vector) error {
	if v.Len() != a.size {
		return errors.Wrapf(ErrSize, "assign values: got %d, want %d", v.Len(), a.size)
	}
	if a.values == nil {
		a.values = mat.NewVecDense(a.size, nil)
	}
	a.values.CopyVec(v)
	a.notActivated = nil
	a.resetErrors()
	return nil
}

// Activate applies the activation function to the values, keeping a copy of
// the pre-activation values. It is a no-op for arrays without activation.
func (a *Array) Activate() error {
	if a.values == nil {
		return ErrUninitialized
	}
	if a.act == nil {
		return nil
	}
	if a.notActivated == nil {
		a.notActivated = mat.NewVecDense(a.size, nil)
	}
	a.notActivated.CopyVec(a.values)
	activations.Apply(a.act, a.values, a.notActivated)
	return nil
}

// ActivationDeriv returns the derivative of the activation evaluated at the
// current values. Arrays without activation return a vector of ones.
func (a *Array) ActivationDeriv() (*mat.VecDense, error) {
	if a.values == nil {
		return nil, ErrUninitialized
	}
	d := mat.NewVecDense(a.size, nil)
	if a.act == nil {
		for i := 0; i < a.size; i++ {
			d.SetVec(i, 1)
		}
		return d, nil
	}
	notActivated, _ := a.NotActivated()
	activations.Deriv(a.act, d, a.values, notActivated)
	return d, nil
}

// Errors returns the errors buffer, a zero vector if nothing was assigned
// since the last values.
func (a *Array) Errors() (*mat.VecDense, error) {
	if a.values == nil {
		return nil, errors.WithMessage(ErrUninitialized, "errors")
	}
	if a.errors == nil {
		a.errors = mat.NewVecDense(a.size, nil)
	}
	return a.errors, nil
}

// AssignErrors copies e into the errors buffer.
func (a *Array) AssignErrors(e mat.Vector) error {
	buf, err := a.Errors()
	if err != nil {
		return err
	}
	if e.Len() != a.size {
		return errors.Wrapf(ErrSize, "assign errors: got %d, want %d", e.Len(), a.size)
	}
	buf.CopyVec(e)
	return nil
}

// AddErrors adds e to the errors buffer.
func (a *Array) AddErrors(e mat.Vector) error {
	buf, err := a.Errors()
	if err != nil {
		return err
	}
	if e.Len() != a.size {
		return errors.Wrapf(ErrSize, "add errors: got %d, want %d", e.Len(), a.size)
	}
	buf.AddVec(buf, e)
	return nil
}

// Reset forgets values and errors, returning the array to its initial state.
func (a *Array) Reset() {
	a.values = nil
	a.notActivated = nil
	a.errors = nil
}

// Clone returns a deep copy.
func (a *Array) Clone() *Array {
	c := &Array{size: a.size, act: a.act}
	if a.values != nil {
		c.values = mat.VecDenseCopyOf(a.values)
	}
	if a.notActivated != nil {
		c.notActivated = mat.VecDenseCopyOf(a.notActivated)
	}
	if a.errors != nil {
		c.errors = mat.VecDenseCopyOf(a.errors)
	}
	return c
}

func (a *Array) resetErrors() {
	if a.errors != nil {
		a.errors.Zero()
	}
}
