package param

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/GoRecurrent/internal/ndarray"
)

type accEntry struct {
	param  *Array
	values mat.Matrix
	// owned is false while values is the caller's array stored by reference.
	owned bool
}

// Accumulator sums the parameter errors of many examples and averages them.
//
// It is EMPTY until the first Accumulate and ACCUMULATING afterwards; Clear
// returns it to EMPTY. The accumulator is not safe for concurrent use: merge
// per-worker accumulators with Merge from a single goroutine.
type Accumulator struct {
	entries map[uuid.UUID]*accEntry
	order   []uuid.UUID
	count   int
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{entries: make(map[uuid.UUID]*accEntry)}
}

// Accumulate adds the errors of one example. When the accumulator has no
// entry for a parameter the errors are stored by reference if copy is false,
// or deep-copied otherwise. Storing by reference avoids a copy for batches of
// one example; the entry is promoted to an owned copy before it is ever
// mutated, so the caller's arrays are never written.
//
// Every item is validated before anything is stored.
func (a *Accumulator) Accumulate(errs []*Errors, copy bool) error {
	for _, e := range errs {
		if e == nil || e.Param == nil {
			return errors.New("param: nil errors")
		}
		if err := e.Param.CheckErrors(e.Values); err != nil {
			return errors.WithMessage(err, "accumulate")
		}
	}

	for _, e := range errs {
		a.add(e.Param, e.Values, copy)
	}
	a.count++
	return nil
}

func (a *Accumulator) add(p *Array, values mat.Matrix, copy bool) {
	entry, ok := a.entries[p.ID()]
	if !ok {
		stored := values
		if copy {
			stored = ndarray.Clone(values)
		}
		a.entries[p.ID()] = &accEntry{param: p, values: stored, owned: copy}
		a.order = append(a.order, p.ID())
		return
	}
	entry.own()
	entry.values = ndarray.AddTo(entry.values, values)
}

func (e *accEntry) own() {
	if !e.owned {
		e.values = ndarray.Clone(e.values)
		e.owned = true
	}
}

// Average divides the stored sums by the number of accumulated examples. It
// is a no-op for one example or less. After averaging the content counts as
// a single example.
func (a *Accumulator) Average() {
	if a.count <= 1 {
		return
	}
	f := 1 / float64(a.count)
	for _, id := range a.order {
		entry := a.entries[id]
		entry.own()
		ndarray.Scale(entry.values, f)
	}
	a.count = 1
}

// Own replaces every entry stored by reference with an owned copy, so that
// the arrays returned by Errors can be modified in place.
func (a *Accumulator) Own() {
	for _, id := range a.order {
		a.entries[id].own()
	}
}

// Merge adds the content of o, as if every example accumulated into o had
// been accumulated here. o is left untouched.
func (a *Accumulator) Merge(o *Accumulator) {
	for _, id := range o.order {
		entry := o.entries[id]
		a.add(entry.param, entry.values, true)
	}
	a.count += o.count
}

// Errors returns the accumulated errors in first-accumulation order.
func (a *Accumulator) Errors() []*Errors {
	out := make([]*Errors, 0, len(a.order))
	for _, id := range a.order {
		entry := a.entries[id]
		out = append(out, &Errors{Param: entry.param, Values: entry.values})
	}
	return out
}

// Get returns the accumulated errors of p.
func (a *Accumulator) Get(p *Array) (*Errors, bool) {
	entry, ok := a.entries[p.ID()]
	if !ok {
		return nil, false
	}
	return &Errors{Param: entry.param, Values: entry.values}, true
}

// Count returns the number of Accumulate calls since the last Clear.
func (a *Accumulator) Count() int { return a.count }

// IsEmpty reports whether nothing has been accumulated.
func (a *Accumulator) IsEmpty() bool { return a.count == 0 }

// Clear returns the accumulator to the empty state.
func (a *Accumulator) Clear() {
	a.entries = make(map[uuid.UUID]*accEntry)
	a.order = nil
	a.count = 0
}
