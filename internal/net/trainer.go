package net

import (
	"context"
	"io"
	"math/rand"
	"runtime"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/GoRecurrent/internal/layer"
	"github.com/FlavioCFOliveira/GoRecurrent/internal/loss"
	"github.com/FlavioCFOliveira/GoRecurrent/internal/opt"
)

// Example is one training sequence. Targets has one entry per input; a nil
// target means the step has no loss.
type Example struct {
	Inputs  []*mat.VecDense
	Targets []*mat.VecDense
}

// Trainer trains a model on batches of examples. The examples of a batch run
// concurrently, each on its own processor, and their parameter errors are
// merged into the optimizer in example order from a single goroutine.
type Trainer struct {
	model layer.Model
	opt   *opt.Optimizer
	loss  loss.Loss

	workers   int
	batchSize int
	rng       *rand.Rand
	callbacks []Callback
	log       logrus.FieldLogger

	// procs[i] serves the i-th example of a batch.
	procs []*Processor
}

// TrainerOption configures a Trainer.
type TrainerOption func(*Trainer)

// WithWorkers bounds the number of examples processed at once. Values below
// one select runtime.NumCPU.
func WithWorkers(n int) TrainerOption {
	return func(t *Trainer) {
		if n < 1 {
			n = runtime.NumCPU()
		}
		t.workers = n
	}
}

// WithBatchSize sets the number of examples per update.
func WithBatchSize(n int) TrainerOption {
	return func(t *Trainer) {
		if n < 1 {
			n = 1
		}
		t.batchSize = n
	}
}

// WithShuffle shuffles the examples at the start of every epoch.
func WithShuffle(seed int64) TrainerOption {
	return func(t *Trainer) { t.rng = rand.New(rand.NewSource(seed)) }
}

// WithCallbacks adds training callbacks.
func WithCallbacks(cbs ...Callback) TrainerOption {
	return func(t *Trainer) { t.callbacks = append(t.callbacks, cbs...) }
}

// WithLogger sets the logger. A nil logger discards everything, which is
// also the default.
func WithLogger(l logrus.FieldLogger) TrainerOption {
	return func(t *Trainer) {
		if l == nil {
			l = discardLogger()
		}
		t.log = l
	}
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// NewTrainer creates a trainer of model. A nil loss selects MSE.
func NewTrainer(model layer.Model, optimizer *opt.Optimizer, l loss.Loss, opts ...TrainerOption) *Trainer {
	if l == nil {
		l = loss.MSE{}
	}
	t := &Trainer{
		model:     model,
		opt:       optimizer,
		loss:      l,
		workers:   runtime.NumCPU(),
		batchSize: 16,
		log:       discardLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Trainer) Model() layer.Model         { return t.model }
func (t *Trainer) Optimizer() *opt.Optimizer  { return t.opt }
func (t *Trainer) Logger() logrus.FieldLogger { return t.log }

func (t *Trainer) processors(n int) []*Processor {
	for len(t.procs) < n {
		t.procs = append(t.procs, NewProcessor(t.model))
	}
	return t.procs[:n]
}

// runExample forwards and backwards one example on p and returns its mean
// loss over the steps that have a target.
func (t *Trainer) runExample(p *Processor, ex Example, backward bool) (float64, error) {
	if len(ex.Targets) != len(ex.Inputs) {
		return 0, errors.Wrapf(ErrSequence, "%d targets for %d inputs", len(ex.Targets), len(ex.Inputs))
	}
	ys, err := p.Forward(ex.Inputs)
	if err != nil {
		return 0, err
	}
	var total float64
	var n int
	grads := make([]*mat.VecDense, len(ys))
	for i, y := range ys {
		target := ex.Targets[i]
		if target == nil {
			continue
		}
		if target.Len() != y.Len() {
			return 0, errors.Wrapf(ErrSequence, "step %d: target size %d, output size %d", i, target.Len(), y.Len())
		}
		total += t.loss.Forward(y, target)
		grads[i] = t.loss.Backward(y, target)
		n++
	}
	if backward {
		if err := p.Backward(grads, false); err != nil {
			return 0, err
		}
	}
	if n == 0 {
		return 0, nil
	}
	return total / float64(n), nil
}

// run processes batch concurrently and returns the per-example losses.
func (t *Trainer) run(ctx context.Context, batch []Example, backward bool) ([]float64, error) {
	procs := t.processors(len(batch))
	losses := make([]float64, len(batch))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(t.workers)
	for i := range batch {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			l, err := t.runExample(procs[i], batch[i], backward)
			if err != nil {
				return errors.WithMessagef(err, "example %d", i)
			}
			losses[i] = l
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return losses, nil
}

// TrainBatch runs one batch and updates the model. It returns the mean
// example loss. If any example fails, or ctx is cancelled, the whole batch
// is discarded and the model is left untouched.
func (t *Trainer) TrainBatch(ctx context.Context, batch []Example) (float64, error) {
	if len(batch) == 0 {
		return 0, nil
	}
	losses, err := t.run(ctx, batch, true)
	if err != nil {
		return 0, err
	}

	// The processors keep their errors until the next Forward, so the
	// accumulator can take them by reference.
	t.opt.NewBatch()
	for i, p := range t.procs[:len(batch)] {
		t.opt.NewExample()
		if err := t.opt.Accumulate(p.ParamsErrors(), false); err != nil {
			t.opt.Accumulator().Clear()
			return 0, errors.WithMessagef(err, "example %d", i)
		}
	}
	if err := t.opt.Update(); err != nil {
		return 0, err
	}
	mean := floats.Sum(losses) / float64(len(losses))
	t.log.WithFields(logrus.Fields{
		"examples": len(batch),
		"loss":     mean,
	}).Debug("batch")
	return mean, nil
}

// Evaluate returns the mean example loss of data without updating the model.
func (t *Trainer) Evaluate(ctx context.Context, data []Example) (float64, error) {
	if len(data) == 0 {
		return 0, nil
	}
	var total float64
	for start := 0; start < len(data); start += t.batchSize {
		end := min(start+t.batchSize, len(data))
		losses, err := t.run(ctx, data[start:end], false)
		if err != nil {
			return 0, err
		}
		total += floats.Sum(losses)
	}
	return total / float64(len(data)), nil
}

// Fit trains the model for the given number of epochs and returns the mean
// loss of the last epoch. A callback implementing Stopper ends training
// early.
func (t *Trainer) Fit(ctx context.Context, data []Example, epochs int) (float64, error) {
	if len(data) == 0 {
		return 0, errors.Wrap(ErrSequence, "no examples")
	}
	for _, cb := range t.callbacks {
		cb.OnTrainBegin(t)
	}
	defer func() {
		for _, cb := range t.callbacks {
			cb.OnTrainEnd(t)
		}
	}()

	order := make([]int, len(data))
	for i := range order {
		order[i] = i
	}
	batch := make([]Example, 0, t.batchSize)

	var epochLoss float64
	for epoch := 1; epoch <= epochs; epoch++ {
		t.opt.NewEpoch()
		for _, cb := range t.callbacks {
			cb.OnEpochBegin(epoch, t)
		}
		if t.rng != nil {
			t.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		}

		var total float64
		for b, start := 0, 0; start < len(order); b, start = b+1, start+t.batchSize {
			batch = batch[:0]
			for _, i := range order[start:min(start+t.batchSize, len(order))] {
				batch = append(batch, data[i])
			}
			for _, cb := range t.callbacks {
				cb.OnBatchBegin(b, t)
			}
			l, err := t.TrainBatch(ctx, batch)
			if err != nil {
				return epochLoss, errors.WithMessagef(err, "epoch %d batch %d", epoch, b)
			}
			total += l * float64(len(batch))
			for _, cb := range t.callbacks {
				cb.OnBatchEnd(b, l, t)
			}
		}
		epochLoss = total / float64(len(data))
		t.opt.EndEpoch(epochLoss)

		t.log.WithFields(logrus.Fields{
			"epoch": epoch,
			"loss":  epochLoss,
		}).Debug("epoch done")
		for _, cb := range t.callbacks {
			cb.OnEpochEnd(epoch, epochLoss, t)
		}
		if t.stopped() {
			break
		}
	}
	return epochLoss, nil
}

func (t *Trainer) stopped() bool {
	for _, cb := range t.callbacks {
		if s, ok := cb.(Stopper); ok && s.ShouldStop() {
			return true
		}
	}
	return false
}

// Predict forwards one sequence and returns its outputs.
func (t *Trainer) Predict(xs []*mat.VecDense) ([]*mat.VecDense, error) {
	return NewProcessor(t.model).Forward(xs)
}
