package gorecurrent

import (
	"math/rand"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/FlavioCFOliveira/GoRecurrent/internal/activations"
	"github.com/FlavioCFOliveira/GoRecurrent/internal/config"
	"github.com/FlavioCFOliveira/GoRecurrent/internal/layer"
	"github.com/FlavioCFOliveira/GoRecurrent/internal/loss"
	"github.com/FlavioCFOliveira/GoRecurrent/internal/net"
	"github.com/FlavioCFOliveira/GoRecurrent/internal/opt"
)

// Run is a training run assembled from a configuration.
type Run struct {
	Config    *config.Config
	Model     Model
	Optimizer *Optimizer
	Trainer   *Trainer
}

// NewRun builds the model, the optimizer and the trainer described by cfg.
// A nil reg disables metrics; extra callbacks run after the configured ones.
func NewRun(cfg *config.Config, log logrus.FieldLogger, reg prometheus.Registerer, extra ...Callback) (*Run, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m, err := newModel(cfg.Model)
	if err != nil {
		return nil, err
	}
	rule, err := newRule(cfg.Optimizer)
	if err != nil {
		return nil, err
	}

	opts := []opt.Option{opt.WithLogger(log)}
	switch {
	case cfg.Optimizer.ClipNorm > 0:
		opts = append(opts, opt.WithClipper(opt.ClipNorm{Max: cfg.Optimizer.ClipNorm}))
	case cfg.Optimizer.ClipValue > 0:
		opts = append(opts, opt.WithClipper(opt.ClipValue{Max: cfg.Optimizer.ClipValue}))
	}
	if s := newScheduler(cfg.Optimizer.Scheduler, rule.(opt.LearningRater)); s != nil {
		opts = append(opts, opt.WithScheduler(s))
	}
	if reg != nil {
		opts = append(opts, opt.WithMetrics(opt.NewMetrics(reg)))
	}
	o := opt.New(rule, opts...)

	l, err := loss.ByName(cfg.Model.Loss)
	if err != nil {
		return nil, err
	}

	callbacks := []Callback{net.Logger{Interval: 1}}
	if cfg.Log.CSV != "" {
		callbacks = append(callbacks, net.NewCSVLogger(cfg.Log.CSV, false))
	}
	if cfg.Training.Checkpoint != "" {
		callbacks = append(callbacks, net.NewModelCheckpoint(cfg.Training.Checkpoint))
	}
	if cfg.Training.Patience > 0 {
		callbacks = append(callbacks, net.NewEarlyStopping(cfg.Training.Patience, 1e-6))
	}
	callbacks = append(callbacks, extra...)

	t := net.NewTrainer(m, o, l,
		net.WithWorkers(cfg.Training.Workers),
		net.WithBatchSize(cfg.Training.BatchSize),
		net.WithShuffle(cfg.Training.Seed),
		net.WithCallbacks(callbacks...),
		net.WithLogger(log),
	)
	return &Run{Config: cfg, Model: m, Optimizer: o, Trainer: t}, nil
}

// DelayTask generates the synthetic delay task described by the training
// section of the configuration.
func (r *Run) DelayTask() []Example {
	tc := r.Config.Training
	rng := rand.New(rand.NewSource(tc.Seed))
	return net.DelayTask(rng, tc.Examples, tc.SequenceLength, r.Config.Model.InputSize, tc.Delay)
}

func newModel(c config.ModelConfig) (Model, error) {
	top, err := layer.ParseTopology(c.Type)
	if err != nil {
		return nil, err
	}
	act, err := activations.ByName(c.Activation)
	if err != nil {
		return nil, err
	}
	return layer.NewModel(top, layer.Config{
		InputSize:   c.InputSize,
		OutputSize:  c.OutputSize,
		Activation:  act,
		SparseInput: c.SparseInput,
		Seed:        c.Seed,
	})
}

func newRule(c config.OptimizerConfig) (UpdateRule, error) {
	rule, err := opt.NewRule(c.Method, c.LearningRate, c.Momentum)
	if err != nil {
		return nil, errors.WithMessage(err, "optimizer")
	}
	switch r := rule.(type) {
	case *opt.AdaGrad:
		r.Epsilon = c.Epsilon
	case *opt.Adam:
		r.Beta1, r.Beta2, r.Epsilon = c.Beta1, c.Beta2, c.Epsilon
	}
	return rule, nil
}

func newScheduler(c config.SchedulerConfig, rule opt.LearningRater) opt.Scheduler {
	switch c.Type {
	case "step":
		return opt.NewStepLR(rule, c.StepSize, c.Gamma)
	case "exponential":
		return opt.NewExponentialLR(rule, c.Gamma)
	case "plateau":
		return opt.NewReduceLROnPlateau(rule, c.Gamma, c.Patience, 1e-4, c.MinLR)
	}
	return nil
}
