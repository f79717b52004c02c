package layer

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/FlavioCFOliveira/GoRecurrent/internal/activations"
	"github.com/FlavioCFOliveira/GoRecurrent/internal/param"
)

// ErrConfig is returned for an invalid layer configuration.
var ErrConfig = errors.New("layer: invalid configuration")

// Topology names a recurrent cell type.
type Topology string

const (
	TopologyCFN             Topology = "cfn"
	TopologyLSTM            Topology = "lstm"
	TopologyRAN             Topology = "ran"
	TopologyLTM             Topology = "ltm"
	TopologySimpleRecurrent Topology = "simple"
)

// Topologies lists every supported topology.
var Topologies = []Topology{
	TopologyCFN,
	TopologyLSTM,
	TopologyRAN,
	TopologyLTM,
	TopologySimpleRecurrent,
}

// ParseTopology returns the topology named s.
func ParseTopology(s string) (Topology, error) {
	t := Topology(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Topologies {
		if t == known {
			return t, nil
		}
	}
	return "", errors.Wrapf(ErrConfig, "unknown topology %q", s)
}

// Config describes one recurrent layer.
type Config struct {
	InputSize  int
	OutputSize int

	// Activation of the output, cell and candidate arrays. Gates are always
	// sigmoid. Nil means no activation.
	Activation activations.Activation

	// SparseInput declares that the input is sparse: the input weights
	// collect sparse errors.
	SparseInput bool
	// SparseWeights declares sparse input weights. They are zero-initialized
	// and cannot be used with a randomizing Initializer.
	SparseWeights bool

	// Initializer of the weight matrices. Nil selects Glorot uniform seeded
	// with Seed, or zeros for sparse weights.
	Initializer param.Initializer
	Seed        int64
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.InputSize <= 0 {
		return errors.Wrapf(ErrConfig, "input size %d", c.InputSize)
	}
	if c.OutputSize <= 0 {
		return errors.Wrapf(ErrConfig, "output size %d", c.OutputSize)
	}
	if c.SparseWeights && c.Initializer != nil && c.Initializer.Randomizes() {
		return errors.Wrap(ErrConfig, "sparse weights cannot use a randomizing initializer")
	}
	return nil
}

func (c Config) initializer() param.Initializer {
	if c.Initializer != nil {
		return c.Initializer
	}
	return param.NewGlorotUniform(c.Seed)
}

// inputWeights creates the weights applied to the layer input.
func (c Config) inputWeights(name string) *param.Array {
	var opts []param.Option
	if c.SparseWeights {
		opts = append(opts, param.WithSparseValues())
	} else if c.SparseInput {
		opts = append(opts, param.WithSparseErrors())
	}
	return param.New(name, c.OutputSize, c.InputSize, opts...)
}

func (c Config) recurrentWeights(name string) *param.Array {
	return param.New(name, c.OutputSize, c.OutputSize)
}

func (c Config) bias(name string) *param.Array {
	return param.New(name, c.OutputSize, 1)
}

// initialize fills weights with the configured initializer. Sparse weights
// are left to zero; biases are left untouched.
func (c Config) initialize(weights ...*param.Array) error {
	init := c.initializer()
	for _, w := range weights {
		if w.SparseValues() && c.Initializer == nil {
			continue
		}
		if err := w.Initialize(init); err != nil {
			return errors.WithMessage(err, "initialize")
		}
	}
	return nil
}
