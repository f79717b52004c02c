// Package opt provides the update rules and the optimizer that turns the
// accumulated parameter errors of a batch into parameter updates.
package opt

import (
	"math"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/GoRecurrent/internal/ndarray"
	"github.com/FlavioCFOliveira/GoRecurrent/internal/param"
)

// ErrUnsupported is returned by update rules for errors stored in a matrix
// type they cannot iterate.
var ErrUnsupported = errors.New("opt: unsupported errors type")

// ErrUnknownRule is returned by NewRule for a name it does not know.
var ErrUnknownRule = errors.New("opt: unknown update rule")

// UpdateRule updates a parameter in place from its errors. Sparse errors
// only touch their active positions.
type UpdateRule interface {
	Update(p *param.Array, g mat.Matrix) error
}

// EpochHook is implemented by rules that need to know when an epoch starts.
type EpochHook interface {
	NewEpoch()
}

// BatchHook is implemented by rules that need to know when a batch starts.
type BatchHook interface {
	NewBatch()
}

// ExampleHook is implemented by rules that need to know when an example starts.
type ExampleHook interface {
	NewExample()
}

// LearningRater is a rule whose learning rate can be scheduled.
type LearningRater interface {
	LearningRate() float64
	SetLearningRate(lr float64)
}

// SGD (Stochastic Gradient Descent) with optional momentum:
//
//	v = Momentum·v + g
//	w = w - LR·v
type SGD struct {
	LR       float64
	Momentum float64

	velocity map[uuid.UUID]*mat.Dense
}

// NewSGD creates an SGD rule.
func NewSGD(lr, momentum float64) *SGD {
	return &SGD{LR: lr, Momentum: momentum}
}

func (s *SGD) LearningRate() float64       { return s.LR }
func (s *SGD) SetLearningRate(lr float64) { s.LR = lr }

// Update applies one step.
func (s *SGD) Update(p *param.Array, g mat.Matrix) error {
	if err := check(p, g); err != nil {
		return err
	}
	w := p.Values()
	if s.Momentum == 0 {
		ndarray.Each(g, func(i, j int, v float64) {
			w.Set(i, j, w.At(i, j)-s.LR*v)
		})
		return nil
	}
	vel := state(&s.velocity, p)
	ndarray.Each(g, func(i, j int, v float64) {
		m := s.Momentum*vel.At(i, j) + v
		vel.Set(i, j, m)
		w.Set(i, j, w.At(i, j)-s.LR*m)
	})
	return nil
}

// AdaGrad scales the learning rate of every weight by the inverse square
// root of its summed squared errors.
type AdaGrad struct {
	LR      float64
	Epsilon float64

	sumSq map[uuid.UUID]*mat.Dense
}

// NewAdaGrad creates an AdaGrad rule with Epsilon 1e-8.
func NewAdaGrad(lr float64) *AdaGrad {
	return &AdaGrad{LR: lr, Epsilon: 1e-8}
}

func (a *AdaGrad) LearningRate() float64       { return a.LR }
func (a *AdaGrad) SetLearningRate(lr float64) { a.LR = lr }

// Update applies one step.
func (a *AdaGrad) Update(p *param.Array, g mat.Matrix) error {
	if err := check(p, g); err != nil {
		return err
	}
	w := p.Values()
	acc := state(&a.sumSq, p)
	ndarray.Each(g, func(i, j int, v float64) {
		s := acc.At(i, j) + v*v
		acc.Set(i, j, s)
		w.Set(i, j, w.At(i, j)-a.LR*v/(math.Sqrt(s)+a.Epsilon))
	})
	return nil
}

// Adam optimizer. The timestep advances on every NewBatch, so Adam expects
// one Update per parameter per batch.
type Adam struct {
	LR      float64
	Beta1   float64 // Exponential decay rate for first moment
	Beta2   float64 // Exponential decay rate for second moment
	Epsilon float64 // Small constant for numerical stability

	t int
	m map[uuid.UUID]*mat.Dense
	v map[uuid.UUID]*mat.Dense
}

// NewAdam creates a new Adam optimizer with default values.
func NewAdam(lr float64) *Adam {
	return &Adam{
		LR:      lr,
		Beta1:   0.9,
		Beta2:   0.999,
		Epsilon: 1e-8,
	}
}

func (a *Adam) LearningRate() float64       { return a.LR }
func (a *Adam) SetLearningRate(lr float64) { a.LR = lr }

// NewBatch advances the timestep.
func (a *Adam) NewBatch() { a.t++ }

// Timestep returns the number of batches seen.
func (a *Adam) Timestep() int { return a.t }

// Update applies one bias-corrected step.
func (a *Adam) Update(p *param.Array, g mat.Matrix) error {
	if err := check(p, g); err != nil {
		return err
	}
	t := a.t
	if t < 1 {
		t = 1
	}
	lr := a.LR * math.Sqrt(1-math.Pow(a.Beta2, float64(t))) / (1 - math.Pow(a.Beta1, float64(t)))

	w := p.Values()
	m := state(&a.m, p)
	v := state(&a.v, p)
	ndarray.Each(g, func(i, j int, gv float64) {
		mi := a.Beta1*m.At(i, j) + (1-a.Beta1)*gv
		vi := a.Beta2*v.At(i, j) + (1-a.Beta2)*gv*gv
		m.Set(i, j, mi)
		v.Set(i, j, vi)
		w.Set(i, j, w.At(i, j)-lr*mi/(math.Sqrt(vi)+a.Epsilon))
	})
	return nil
}

// check validates g against p.
func check(p *param.Array, g mat.Matrix) error {
	switch g.(type) {
	case *mat.Dense, *ndarray.SparseMatrix:
	default:
		return errors.Wrapf(ErrUnsupported, "%T for %s", g, p.Name())
	}
	return p.CheckErrors(g)
}

// state returns the per-parameter buffer of p in *states, creating it.
func state(states *map[uuid.UUID]*mat.Dense, p *param.Array) *mat.Dense {
	if *states == nil {
		*states = make(map[uuid.UUID]*mat.Dense)
	}
	s, ok := (*states)[p.ID()]
	if !ok {
		r, c := p.Dims()
		s = mat.NewDense(r, c, nil)
		(*states)[p.ID()] = s
	}
	return s
}

// NewRule returns the rule named name ("sgd", "adagrad" or "adam").
// Momentum only applies to sgd.
func NewRule(name string, lr, momentum float64) (UpdateRule, error) {
	switch name {
	case "sgd":
		return NewSGD(lr, momentum), nil
	case "adagrad":
		return NewAdaGrad(lr), nil
	case "adam":
		return NewAdam(lr), nil
	}
	return nil, errors.Wrapf(ErrUnknownRule, "%q", name)
}
