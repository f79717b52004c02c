package opt

import (
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/FlavioCFOliveira/GoRecurrent/internal/param"
)

// Optimizer accumulates the parameter errors of the examples of a batch and
// applies an update rule to them. It is not safe for concurrent use.
type Optimizer struct {
	rule      UpdateRule
	acc       *param.Accumulator
	clipper   Clipper
	scheduler Scheduler
	metrics   *Metrics
	log       logrus.FieldLogger

	epoch int
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithClipper clips the averaged errors before every update.
func WithClipper(c Clipper) Option {
	return func(o *Optimizer) { o.clipper = c }
}

// WithScheduler steps s on every epoch.
func WithScheduler(s Scheduler) Option {
	return func(o *Optimizer) { o.scheduler = s }
}

// WithMetrics records every update into m.
func WithMetrics(m *Metrics) Option {
	return func(o *Optimizer) { o.metrics = m }
}

// WithLogger sets the logger. A nil logger discards everything, which is
// also the default.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *Optimizer) {
		if l == nil {
			l = discardLogger()
		}
		o.log = l
	}
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// New creates an optimizer around rule.
func New(rule UpdateRule, opts ...Option) *Optimizer {
	o := &Optimizer{
		rule: rule,
		acc:  param.NewAccumulator(),
		log:  discardLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics != nil {
		if lr, ok := rule.(LearningRater); ok {
			o.metrics.LearningRate.Set(lr.LearningRate())
		}
	}
	return o
}

// Rule returns the update rule.
func (o *Optimizer) Rule() UpdateRule { return o.rule }

// Accumulator returns the accumulator fed by Accumulate.
func (o *Optimizer) Accumulator() *param.Accumulator { return o.acc }

// Accumulate adds the errors of one example. See param.Accumulator.
func (o *Optimizer) Accumulate(errs []*param.Errors, copy bool) error {
	return o.acc.Accumulate(errs, copy)
}

// Update averages the accumulated errors, clips them, applies the rule to
// every parameter and clears the accumulator. The accumulator is cleared
// even when the rule fails, in which case some parameters may already have
// been updated.
func (o *Optimizer) Update() error {
	if o.acc.IsEmpty() {
		return nil
	}
	defer o.acc.Clear()

	examples := o.acc.Count()
	o.acc.Average()
	errs := o.acc.Errors()

	var norm float64
	clipped := false
	if o.clipper != nil {
		o.acc.Own()
		norm = o.clipper.Clip(errs)
		clipped = norm != GlobalNorm(errs)
	} else if o.metrics != nil {
		norm = GlobalNorm(errs)
	}

	for _, e := range errs {
		if err := o.rule.Update(e.Param, e.Values); err != nil {
			return errors.WithMessagef(err, "update %s", e.Param.Name())
		}
	}

	if o.metrics != nil {
		o.metrics.UpdatesTotal.Inc()
		o.metrics.ExamplesTotal.Add(float64(examples))
		o.metrics.ErrorsNorm.Observe(norm)
		if clipped {
			o.metrics.ClippedTotal.Inc()
		}
	}
	if clipped {
		o.log.WithField("norm", norm).Warn("errors clipped")
	}
	o.log.WithFields(logrus.Fields{
		"params":   len(errs),
		"examples": examples,
		"norm":     norm,
		"clipped":  clipped,
	}).Debug("parameters updated")
	return nil
}

// NewEpoch forwards to the rule if it is an EpochHook and steps the
// scheduler from the second epoch on.
func (o *Optimizer) NewEpoch() {
	o.epoch++
	if h, ok := o.rule.(EpochHook); ok {
		h.NewEpoch()
	}
	if o.scheduler != nil && o.epoch > 1 {
		o.scheduler.Step()
		o.recordLearningRate()
	}
}

// NewBatch forwards to the rule if it is a BatchHook.
func (o *Optimizer) NewBatch() {
	if h, ok := o.rule.(BatchHook); ok {
		h.NewBatch()
	}
}

// NewExample forwards to the rule if it is an ExampleHook.
func (o *Optimizer) NewExample() {
	if h, ok := o.rule.(ExampleHook); ok {
		h.NewExample()
	}
}

// EndEpoch reports the mean loss of the epoch to the scheduler.
func (o *Optimizer) EndEpoch(loss float64) {
	if o.scheduler == nil {
		return
	}
	o.scheduler.StepWithLoss(loss)
	o.recordLearningRate()
}

func (o *Optimizer) recordLearningRate() {
	lr := o.scheduler.LearningRate()
	if o.metrics != nil {
		o.metrics.LearningRate.Set(lr)
	}
	o.log.WithField("lr", lr).Debug("learning rate")
}
