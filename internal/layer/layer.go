// Package layer provides the gated recurrent layer engine: the per-timestep
// structures of the CFN, LSTM, RAN, LTM and simple recurrent topologies, the
// context window that links siblings of one sequence and the gate units they
// are built from.
package layer

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/GoRecurrent/internal/augmented"
	"github.com/FlavioCFOliveira/GoRecurrent/internal/param"
)

// Recurrent is one timestep of a recurrent layer.
type Recurrent interface {
	// Input is the input array; its values must be assigned before Forward.
	Input() *augmented.Array
	// Output is the output array; its errors must be assigned before Backward.
	Output() *augmented.Array

	// InputErrors returns the input errors assigned by the last Backward
	// called with propagateToInput.
	InputErrors() (*mat.VecDense, error)

	// Forward computes the output from the input and the previous state.
	Forward() error

	// Backward adds the recurrent errors coming from the next state to the
	// output errors, computes the errors of every gate and collects the
	// parameter errors into c. When propagateToInput is true the input errors
	// are assigned too.
	Backward(c *param.Collector, propagateToInput bool) error
}

// Model is a set of parameters shared by every timestep of a topology.
type Model interface {
	Topology() Topology
	Config() Config
	// Params returns every trainable array in a stable order.
	Params() []*param.Array
	// NewUnroller returns an empty unrolled sequence over the model.
	NewUnroller() Unroller
}

// NewModel creates and initializes the parameters of a topology.
func NewModel(t Topology, cfg Config) (Model, error) {
	switch t {
	case TopologyCFN:
		return NewCFNParams(cfg)
	case TopologyLSTM:
		return NewLSTMParams(cfg)
	case TopologyRAN:
		return NewRANParams(cfg)
	case TopologyLTM:
		return NewLTMParams(cfg)
	case TopologySimpleRecurrent:
		return NewSimpleRecurrentParams(cfg)
	}
	return nil, errors.Wrapf(ErrConfig, "unknown topology %q", t)
}

// Initialize fills every parameter of m with init, biases included. Sparse
// valued weights reject randomizing initializers.
func Initialize(m Model, init param.Initializer) error {
	for _, p := range m.Params() {
		if err := p.Initialize(init); err != nil {
			return errors.WithMessagef(err, "%s", p.Name())
		}
	}
	return nil
}

// base holds what every structure shares.
type base struct {
	input  *augmented.Array
	output *augmented.Array
}

func (b *base) Input() *augmented.Array  { return b.input }
func (b *base) Output() *augmented.Array { return b.output }

func (b *base) InputErrors() (*mat.VecDense, error) {
	return b.input.Errors()
}

// inputValues returns the input, failing if it was never assigned.
func (b *base) inputValues() (*mat.VecDense, error) {
	x, err := b.input.Values()
	if err != nil {
		return nil, errors.WithMessage(err, "forward input")
	}
	return x, nil
}

// outputErrors returns a copy of the output errors, failing if the output was
// never forwarded.
func (b *base) outputErrors() (*mat.VecDense, error) {
	gy, err := b.output.Errors()
	if err != nil {
		return nil, errors.WithMessage(err, "backward output")
	}
	return mat.VecDenseCopyOf(gy), nil
}

// assignInputErrors stores the sum of Wᵗ·e over gates as input errors.
func (b *base) assignInputErrors(gates ...*Gate) error {
	e := mat.NewVecDense(b.input.Size(), nil)
	for _, g := range gates {
		g.propagate(e)
	}
	return b.input.AssignErrors(e)
}
