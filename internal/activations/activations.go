// Package activations provides activation functions for recurrent layers.
package activations

import (
	"math"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrUnknown is returned by ByName for an unregistered activation name.
var ErrUnknown = errors.New("activations: unknown activation")

// Activation is an activation function with derivative.
type Activation interface {
	// Activate computes f(x)
	Activate(x float64) float64

	// Derivative computes f'(x) from the pre-activation value.
	Derivative(x float64) float64
}

// FromOutput is implemented by activations whose derivative can be computed
// from the already activated value y = f(x), avoiding a second evaluation.
type FromOutput interface {
	DerivativeFromOutput(y float64) float64
}

// ReLU activation function.
type ReLU struct{}

// Activate computes max(0, x)
func (r ReLU) Activate(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

// Derivative returns 1 if x > 0, else 0
func (r ReLU) Derivative(x float64) float64 {
	if x > 0 {
		return 1
	}
	return 0
}

// DerivativeFromOutput returns 1 if y > 0, else 0
func (r ReLU) DerivativeFromOutput(y float64) float64 {
	return r.Derivative(y)
}

// Sigmoid activation function.
type Sigmoid struct{}

// sigmoid computes the sigmoid function
func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Activate computes sigmoid(x)
func (s Sigmoid) Activate(x float64) float64 {
	return sigmoid(x)
}

// Derivative computes sigmoid(x) * (1 - sigmoid(x))
func (s Sigmoid) Derivative(x float64) float64 {
	sigma := sigmoid(x)
	return sigma * (1 - sigma)
}

// DerivativeFromOutput computes y * (1 - y)
func (s Sigmoid) DerivativeFromOutput(y float64) float64 {
	return y * (1 - y)
}

// LeakyReLU activation function to prevent dying neurons.
type LeakyReLU struct {
	Alpha float64 // Slope for x <= 0, must be positive
}

// NewLeakyReLU creates a LeakyReLU with the given alpha value.
func NewLeakyReLU(alpha float64) *LeakyReLU {
	return &LeakyReLU{Alpha: alpha}
}

// Activate computes x if x > 0, else alpha*x
func (l *LeakyReLU) Activate(x float64) float64 {
	if x > 0 {
		return x
	}
	return l.Alpha * x
}

// Derivative returns 1 if x > 0, else alpha
func (l *LeakyReLU) Derivative(x float64) float64 {
	if x > 0 {
		return 1
	}
	return l.Alpha
}

// DerivativeFromOutput works because a positive alpha preserves the sign.
func (l *LeakyReLU) DerivativeFromOutput(y float64) float64 {
	return l.Derivative(y)
}

// ELU activation function.
type ELU struct {
	Alpha float64
}

// NewELU creates an ELU with the given alpha value.
func NewELU(alpha float64) *ELU {
	return &ELU{Alpha: alpha}
}

// Activate computes x if x > 0, else alpha*(exp(x)-1)
func (e *ELU) Activate(x float64) float64 {
	if x > 0 {
		return x
	}
	return e.Alpha * (math.Exp(x) - 1)
}

// Derivative returns 1 if x > 0, else alpha*exp(x)
func (e *ELU) Derivative(x float64) float64 {
	if x > 0 {
		return 1
	}
	return e.Alpha * math.Exp(x)
}

// DerivativeFromOutput returns 1 if y > 0, else y + alpha
func (e *ELU) DerivativeFromOutput(y float64) float64 {
	if y > 0 {
		return 1
	}
	return y + e.Alpha
}

// Tanh activation function.
type Tanh struct{}

// Activate computes tanh(x)
func (t Tanh) Activate(x float64) float64 {
	return math.Tanh(x)
}

// Derivative computes 1 - tanh(x)^2
func (t Tanh) Derivative(x float64) float64 {
	tanhX := math.Tanh(x)
	return 1 - tanhX*tanhX
}

// DerivativeFromOutput computes 1 - y^2
func (t Tanh) DerivativeFromOutput(y float64) float64 {
	return 1 - y*y
}

// Softsign activation function.
type Softsign struct{}

// Activate computes x / (1 + |x|)
func (s Softsign) Activate(x float64) float64 {
	return x / (1 + math.Abs(x))
}

// Derivative computes 1 / (1 + |x|)^2
func (s Softsign) Derivative(x float64) float64 {
	d := 1 + math.Abs(x)
	return 1 / (d * d)
}

// DerivativeFromOutput computes (1 - |y|)^2
func (s Softsign) DerivativeFromOutput(y float64) float64 {
	d := 1 - math.Abs(y)
	return d * d
}

// Linear is the identity activation.
type Linear struct{}

// Activate returns x
func (l Linear) Activate(x float64) float64 { return x }

// Derivative returns 1
func (l Linear) Derivative(x float64) float64 { return 1 }

// DerivativeFromOutput returns 1
func (l Linear) DerivativeFromOutput(y float64) float64 { return 1 }

// Apply stores act(src) into dst. dst and src may be the same vector.
func Apply(act Activation, dst, src *mat.VecDense) {
	if dst.Len() != src.Len() {
		panic(mat.ErrShape)
	}
	for i := 0; i < src.Len(); i++ {
		dst.SetVec(i, act.Activate(src.AtVec(i)))
	}
}

// Deriv stores the derivative of act into dst. When act implements
// FromOutput the derivative is taken from the activated values, otherwise
// from the pre-activation ones.
func Deriv(act Activation, dst, activated, notActivated *mat.VecDense) {
	if opt, ok := act.(FromOutput); ok {
		for i := 0; i < activated.Len(); i++ {
			dst.SetVec(i, opt.DerivativeFromOutput(activated.AtVec(i)))
		}
		return
	}
	for i := 0; i < notActivated.Len(); i++ {
		dst.SetVec(i, act.Derivative(notActivated.AtVec(i)))
	}
}

// ByName returns the activation registered under name (case insensitive).
// The empty string and "none" return a nil Activation.
func ByName(name string) (Activation, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return nil, nil
	case "sigmoid":
		return Sigmoid{}, nil
	case "tanh":
		return Tanh{}, nil
	case "relu":
		return ReLU{}, nil
	case "leakyrelu", "leaky_relu":
		return NewLeakyReLU(0.01), nil
	case "elu":
		return NewELU(1.0), nil
	case "softsign":
		return Softsign{}, nil
	case "linear", "identity":
		return Linear{}, nil
	}
	return nil, errors.Wrapf(ErrUnknown, "%q", name)
}
