package param

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/FlavioCFOliveira/GoRecurrent/internal/ndarray"
)

// Collector maps parameters to the errors collected on them during one
// backward pass. It is private to one sequence and must be cleared before the
// next pass. A pass that fails midway leaves the collector inconsistent; the
// caller must Clear it rather than use its content.
type Collector struct {
	byID  map[uuid.UUID]*Errors
	order []*Errors
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{byID: make(map[uuid.UUID]*Errors)}
}

// Collect returns the errors of p, creating a zero buffer with the declared
// sparsity of p on first access.
func (c *Collector) Collect(p *Array) *Errors {
	if e, ok := c.byID[p.ID()]; ok {
		return e
	}
	e := &Errors{Param: p, Values: p.ZeroErrors()}
	c.byID[p.ID()] = e
	c.order = append(c.order, e)
	return e
}

// Set replaces the errors of e.Param with e.Values.
func (c *Collector) Set(e *Errors) error {
	if e == nil || e.Param == nil {
		return errors.New("param: nil errors")
	}
	if e.Param.ErrorsKind() != ndarray.KindOf(e.Values) {
		return errors.Wrapf(ErrSparsity, "collector set %s", e.Param)
	}
	if err := e.Param.CheckErrors(e.Values); err != nil {
		return err
	}
	if old, ok := c.byID[e.Param.ID()]; ok {
		old.Values = e.Values
		return nil
	}
	stored := &Errors{Param: e.Param, Values: e.Values}
	c.byID[e.Param.ID()] = stored
	c.order = append(c.order, stored)
	return nil
}

// Errors returns the collected errors in first-touch order.
func (c *Collector) Errors() []*Errors {
	out := make([]*Errors, len(c.order))
	copy(out, c.order)
	return out
}

// Len returns the number of parameters touched.
func (c *Collector) Len() int { return len(c.order) }

// Clear forgets every collected buffer.
func (c *Collector) Clear() {
	c.byID = make(map[uuid.UUID]*Errors)
	c.order = nil
}
