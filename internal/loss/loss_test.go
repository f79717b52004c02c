// Package loss provides unit tests for loss functions.
package loss

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

func vec(v ...float64) *mat.VecDense { return mat.NewVecDense(len(v), v) }

// TestMSEForward tests MSE forward pass.
func TestMSEForward(t *testing.T) {
	mse := MSE{}

	tests := []struct {
		name     string
		yPred    *mat.VecDense
		yTrue    *mat.VecDense
		expected float64
	}{
		{"Perfect prediction", vec(1, 2, 3), vec(1, 2, 3), 0},
		{"Single error", vec(1, 2), vec(1.5, 2), 0.125},    // (0.5^2 + 0) / 2 = 0.125
		{"Multiple errors", vec(1, 2, 3), vec(0, 1, 2), 1}, // (1+1+1)/3 = 1
		{"Large errors", vec(10), vec(0), 100},             // 10^2 = 100
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := mse.Forward(tt.yPred, tt.yTrue)
			if math.Abs(result-tt.expected) > 1e-12 {
				t.Errorf("MSE.Forward() = %v, want %v", result, tt.expected)
			}
		})
	}
}

// TestMSEForwardLengthMismatch tests error handling.
func TestMSEForwardLengthMismatch(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("MSE.Forward() should panic on length mismatch")
		}
	}()
	MSE{}.Forward(vec(1, 2), vec(1))
}

// TestHuberForward tests both branches of the Huber loss.
func TestHuberForward(t *testing.T) {
	h := NewHuber(1)
	// 0.5*0.5^2 = 0.125 and 1*(3-0.5) = 2.5
	got := h.Forward(vec(0.5, 3), vec(0, 0))
	if want := (0.125 + 2.5) / 2; math.Abs(got-want) > 1e-12 {
		t.Errorf("Huber.Forward() = %v, want %v", got, want)
	}
}

// TestL1Backward tests the sign gradient and its zero at equality.
func TestL1Backward(t *testing.T) {
	g := L1{}.Backward(vec(2, -1, 0), vec(0, 0, 0))
	want := []float64{1.0 / 3, -1.0 / 3, 0}
	for i, w := range want {
		if math.Abs(g.AtVec(i)-w) > 1e-12 {
			t.Errorf("grad[%d] = %v, want %v", i, g.AtVec(i), w)
		}
	}
}

// TestBackwardMatchesFiniteDifferences tests every gradient against central
// differences, away from the non-differentiable points.
func TestBackwardMatchesFiniteDifferences(t *testing.T) {
	yTrue := vec(0.3, -0.2, 1.5)
	for _, l := range []Loss{MSE{}, NewHuber(0.5), L1{}} {
		yPred := vec(0.1, 0.7, -0.4)
		grad := l.Backward(yPred, yTrue)
		for i := 0; i < yPred.Len(); i++ {
			orig := yPred.AtVec(i)
			want := fd.Derivative(func(v float64) float64 {
				yPred.SetVec(i, v)
				return l.Forward(yPred, yTrue)
			}, orig, &fd.Settings{Formula: fd.Central, Step: 1e-6})
			yPred.SetVec(i, orig)
			if math.Abs(grad.AtVec(i)-want) > 1e-6 {
				t.Errorf("%T grad[%d] = %v, want %v", l, i, grad.AtVec(i), want)
			}
		}
	}
}

// TestByName tests loss lookup.
func TestByName(t *testing.T) {
	for _, name := range []string{"mse", "huber", "l1"} {
		if _, err := ByName(name); err != nil {
			t.Errorf("ByName(%q) error = %v", name, err)
		}
	}
	if _, err := ByName("hinge"); !errors.Is(err, ErrUnknown) {
		t.Errorf("ByName(hinge) error = %v, want ErrUnknown", err)
	}
}
