// Package loss provides the loss functions that turn the outputs of a
// sequence into output errors.
package loss

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrUnknown is returned by ByName for an unknown loss.
var ErrUnknown = errors.New("loss: unknown loss")

// Loss is a loss function with derivative.
type Loss interface {
	// Forward computes the loss between predicted and true values.
	Forward(yPred, yTrue mat.Vector) float64

	// Backward computes the gradient of the loss w.r.t. prediction.
	Backward(yPred, yTrue mat.Vector) *mat.VecDense
}

func checkLen(name string, yPred, yTrue mat.Vector) int {
	n := yPred.Len()
	if n != yTrue.Len() {
		panic(name + ": prediction and target must have same length")
	}
	return n
}

// MSE (Mean Squared Error) loss.
type MSE struct{}

// Forward computes mean squared error: (1/n) * sum((y_pred - y_true)^2)
func (m MSE) Forward(yPred, yTrue mat.Vector) float64 {
	n := checkLen("MSE", yPred, yTrue)
	var sum float64
	for i := 0; i < n; i++ {
		diff := yPred.AtVec(i) - yTrue.AtVec(i)
		sum += diff * diff
	}
	return sum / float64(n)
}

// Backward computes gradient: dL/dy_pred = (2/n) * (y_pred - y_true)
func (m MSE) Backward(yPred, yTrue mat.Vector) *mat.VecDense {
	n := checkLen("MSE", yPred, yTrue)
	grad := mat.NewVecDense(n, nil)
	grad.SubVec(yPred, yTrue)
	grad.ScaleVec(2/float64(n), grad)
	return grad
}

// Huber loss for robust regression.
type Huber struct {
	Delta float64 // Threshold for quadratic/linear transition
}

// NewHuber creates a Huber loss with the given delta.
func NewHuber(delta float64) *Huber {
	return &Huber{Delta: delta}
}

// Forward computes Huber loss.
func (h Huber) Forward(yPred, yTrue mat.Vector) float64 {
	n := checkLen("Huber", yPred, yTrue)
	var sum float64
	for i := 0; i < n; i++ {
		diff := math.Abs(yPred.AtVec(i) - yTrue.AtVec(i))
		if diff <= h.Delta {
			sum += 0.5 * diff * diff
		} else {
			sum += h.Delta * (diff - 0.5*h.Delta)
		}
	}
	return sum / float64(n)
}

// Backward computes gradient for Huber loss.
func (h Huber) Backward(yPred, yTrue mat.Vector) *mat.VecDense {
	n := checkLen("Huber", yPred, yTrue)
	grad := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		diff := yPred.AtVec(i) - yTrue.AtVec(i)
		if math.Abs(diff) > h.Delta {
			diff = h.Delta * math.Copysign(1, diff)
		}
		grad.SetVec(i, diff/float64(n))
	}
	return grad
}

// L1 (Mean Absolute Error) loss.
type L1 struct{}

// Forward computes mean absolute error: (1/n) * sum(|y_pred - y_true|)
func (l L1) Forward(yPred, yTrue mat.Vector) float64 {
	n := checkLen("L1", yPred, yTrue)
	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(yPred.AtVec(i) - yTrue.AtVec(i))
	}
	return sum / float64(n)
}

// Backward computes gradient: sign(y_pred - y_true) / n, zero where equal.
func (l L1) Backward(yPred, yTrue mat.Vector) *mat.VecDense {
	n := checkLen("L1", yPred, yTrue)
	grad := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		diff := yPred.AtVec(i) - yTrue.AtVec(i)
		switch {
		case diff > 0:
			grad.SetVec(i, 1/float64(n))
		case diff < 0:
			grad.SetVec(i, -1/float64(n))
		}
	}
	return grad
}

// ByName returns the loss named name: "mse", "huber" (delta 1) or "l1".
func ByName(name string) (Loss, error) {
	switch name {
	case "mse", "":
		return MSE{}, nil
	case "huber":
		return NewHuber(1), nil
	case "l1":
		return L1{}, nil
	}
	return nil, errors.Wrapf(ErrUnknown, "%q", name)
}
