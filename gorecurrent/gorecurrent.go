// Package gorecurrent re-exports the common constructors of the recurrent
// layer engine.
package gorecurrent

import (
	"github.com/FlavioCFOliveira/GoRecurrent/internal/activations"
	"github.com/FlavioCFOliveira/GoRecurrent/internal/layer"
	"github.com/FlavioCFOliveira/GoRecurrent/internal/loss"
	"github.com/FlavioCFOliveira/GoRecurrent/internal/net"
	"github.com/FlavioCFOliveira/GoRecurrent/internal/opt"
)

// Re-export common types and functions for easier access
type (
	Model         = layer.Model
	Config        = layer.Config
	Topology      = layer.Topology
	Activation    = activations.Activation
	Example       = net.Example
	Trainer       = net.Trainer
	Processor     = net.Processor
	Optimizer     = opt.Optimizer
	UpdateRule    = opt.UpdateRule
	LearningRater = opt.LearningRater
	Loss          = loss.Loss
)

// Topologies
const (
	CFN             = layer.TopologyCFN
	LSTM            = layer.TopologyLSTM
	RAN             = layer.TopologyRAN
	LTM             = layer.TopologyLTM
	SimpleRecurrent = layer.TopologySimpleRecurrent
)

// NewModel creates a model of the given topology.
func NewModel(t Topology, cfg Config) (Model, error) {
	return layer.NewModel(t, cfg)
}

// NewProcessor creates a processor that unrolls m over one sequence.
func NewProcessor(m Model) *Processor {
	return net.NewProcessor(m)
}

// Activations
var (
	ReLU     = activations.ReLU{}
	Sigmoid  = activations.Sigmoid{}
	Tanh     = activations.Tanh{}
	Softsign = activations.Softsign{}
	Linear   = activations.Linear{}
)

func LeakyReLU(alpha float64) Activation {
	return activations.NewLeakyReLU(alpha)
}

func ELU(alpha float64) Activation {
	return activations.NewELU(alpha)
}

// Update rules
func SGD(lr, momentum float64) UpdateRule {
	return opt.NewSGD(lr, momentum)
}

func AdaGrad(lr float64) UpdateRule {
	return opt.NewAdaGrad(lr)
}

func Adam(lr float64) UpdateRule {
	return opt.NewAdam(lr)
}

// NewOptimizer creates an optimizer around rule.
func NewOptimizer(rule UpdateRule, opts ...opt.Option) *Optimizer {
	return opt.New(rule, opts...)
}

func ReduceLROnPlateau(rule opt.LearningRater, factor float64, patience int, threshold, minLR float64) *opt.ReduceLROnPlateau {
	return opt.NewReduceLROnPlateau(rule, factor, patience, threshold, minLR)
}

// NewTrainer creates a trainer of m.
func NewTrainer(m Model, o *Optimizer, l Loss, opts ...net.TrainerOption) *Trainer {
	return net.NewTrainer(m, o, l, opts...)
}

// Callbacks
type Callback = net.Callback

func Logger(interval int) net.Logger {
	return net.Logger{Interval: interval}
}

func ModelCheckpoint(filename string) Callback {
	return net.NewModelCheckpoint(filename)
}

func EarlyStopping(patience int, minDelta float64) *net.EarlyStopping {
	return net.NewEarlyStopping(patience, minDelta)
}

func CSVLogger(filename string, append bool) Callback {
	return net.NewCSVLogger(filename, append)
}

// Losses
var (
	MSE = loss.MSE{}
	L1  = loss.L1{}
)

func Huber(delta float64) Loss {
	return loss.NewHuber(delta)
}

// Model Persistence
func Save(filename string, m Model) error {
	return net.SaveFile(filename, m)
}

func Load(filename string, m Model) error {
	return net.LoadFile(filename, m)
}
