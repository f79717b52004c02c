package layer

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Unroller unrolls a model over the timesteps of one sequence. Each Step
// creates the structure of the next timestep, sharing the model parameters,
// and forwards it.
type Unroller interface {
	// Step assigns x to a new timestep and forwards it. On failure the
	// timestep is discarded.
	Step(x mat.Vector) (Recurrent, error)
	// At returns the structure of timestep t.
	At(t int) Recurrent
	Len() int
	// Reset drops every timestep, starting a new sequence.
	Reset()
}

type unroller[S Recurrent] struct {
	seq   Sequence[S]
	build func(Window[S]) S
}

func newUnroller[S Recurrent](build func(Window[S]) S) *unroller[S] {
	return &unroller[S]{build: build}
}

func (u *unroller[S]) Step(x mat.Vector) (Recurrent, error) {
	t := u.seq.Len()
	s := u.seq.Append(u.build)
	if err := s.Input().AssignValues(x); err != nil {
		u.seq.truncate(t)
		return nil, errors.WithMessagef(err, "step %d", t)
	}
	if err := s.Forward(); err != nil {
		u.seq.truncate(t)
		return nil, errors.WithMessagef(err, "step %d", t)
	}
	return s, nil
}

func (u *unroller[S]) At(t int) Recurrent { return u.seq.At(t) }
func (u *unroller[S]) Len() int           { return u.seq.Len() }
func (u *unroller[S]) Reset()             { u.seq.Reset() }
