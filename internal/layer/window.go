package layer

// Window gives a layer instance read access to its siblings at the previous
// and next timestep. The boolean is false at the sequence boundaries.
//
// The orchestrator must call Forward in increasing time order, so that
// PrevState is always an instance already forwarded, and Backward in
// decreasing time order, so that NextState is always an instance whose
// errors are final. Nothing checks this: calling Backward out of order
// silently reads stale or zero recurrent errors.
type Window[S any] interface {
	PrevState() (S, bool)
	NextState() (S, bool)
}

// Sequence is the arena owning the layer instances of one unrolled sequence,
// indexed by timestep. Instances never reference each other directly; they
// reach their neighbours through an index-based Window.
type Sequence[S any] struct {
	states []S
}

// Append builds the instance for the next timestep, giving it a window over
// this sequence, and stores it.
func (s *Sequence[S]) Append(build func(Window[S]) S) S {
	w := &seqWindow[S]{seq: s, index: len(s.states)}
	st := build(w)
	s.states = append(s.states, st)
	return st
}

// At returns the instance at timestep t.
func (s *Sequence[S]) At(t int) S { return s.states[t] }

// Len returns the number of timesteps.
func (s *Sequence[S]) Len() int { return len(s.states) }

// Last returns the most recent instance.
func (s *Sequence[S]) Last() (S, bool) {
	if len(s.states) == 0 {
		var zero S
		return zero, false
	}
	return s.states[len(s.states)-1], true
}

// Reset drops every instance.
func (s *Sequence[S]) Reset() {
	var zero S
	for i := range s.states {
		s.states[i] = zero
	}
	s.states = s.states[:0]
}

// truncate drops the instances from timestep n onwards.
func (s *Sequence[S]) truncate(n int) {
	var zero S
	for i := n; i < len(s.states); i++ {
		s.states[i] = zero
	}
	s.states = s.states[:n]
}

type seqWindow[S any] struct {
	seq   *Sequence[S]
	index int
}

func (w *seqWindow[S]) PrevState() (S, bool) {
	return w.at(w.index - 1)
}

func (w *seqWindow[S]) NextState() (S, bool) {
	return w.at(w.index + 1)
}

func (w *seqWindow[S]) at(i int) (S, bool) {
	if i < 0 || i >= len(w.seq.states) {
		var zero S
		return zero, false
	}
	return w.seq.states[i], true
}

// NoWindow is the window of an isolated instance with no siblings.
type NoWindow[S any] struct{}

// PrevState always returns false.
func (NoWindow[S]) PrevState() (S, bool) {
	var zero S
	return zero, false
}

// NextState always returns false.
func (NoWindow[S]) NextState() (S, bool) {
	var zero S
	return zero, false
}
