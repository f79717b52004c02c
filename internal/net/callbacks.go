package net

import (
	"math"

	"github.com/sirupsen/logrus"
)

// Callback defines the interface for training callbacks.
type Callback interface {
	OnTrainBegin(t *Trainer)
	OnTrainEnd(t *Trainer)
	OnEpochBegin(epoch int, t *Trainer)
	OnEpochEnd(epoch int, loss float64, t *Trainer)
	OnBatchBegin(batch int, t *Trainer)
	OnBatchEnd(batch int, loss float64, t *Trainer)
}

// Stopper is a callback that can end training early.
type Stopper interface {
	ShouldStop() bool
}

// BaseCallback provides default empty implementations for Callback.
type BaseCallback struct{}

func (c BaseCallback) OnTrainBegin(t *Trainer)                        {}
func (c BaseCallback) OnTrainEnd(t *Trainer)                          {}
func (c BaseCallback) OnEpochBegin(epoch int, t *Trainer)             {}
func (c BaseCallback) OnEpochEnd(epoch int, loss float64, t *Trainer) {}
func (c BaseCallback) OnBatchBegin(batch int, t *Trainer)             {}
func (c BaseCallback) OnBatchEnd(batch int, loss float64, t *Trainer) {}

// EarlyStopping stops training when the loss has stopped improving.
type EarlyStopping struct {
	BaseCallback
	Patience  int
	Threshold float64

	bestLoss     float64
	numBadEpochs int
	Stopped      bool
}

func NewEarlyStopping(patience int, threshold float64) *EarlyStopping {
	return &EarlyStopping{
		Patience:  patience,
		Threshold: threshold,
		bestLoss:  math.MaxFloat64,
	}
}

func (c *EarlyStopping) OnEpochEnd(epoch int, loss float64, t *Trainer) {
	if loss < c.bestLoss-c.Threshold {
		c.bestLoss = loss
		c.numBadEpochs = 0
	} else {
		c.numBadEpochs++
	}

	if c.numBadEpochs >= c.Patience {
		t.Logger().WithFields(logrus.Fields{
			"epoch":    epoch,
			"loss":     loss,
			"patience": c.Patience,
		}).Info("early stopping")
		c.Stopped = true
	}
}

func (c *EarlyStopping) ShouldStop() bool { return c.Stopped }

// ModelCheckpoint saves the model parameters after every epoch that improves
// the loss.
type ModelCheckpoint struct {
	BaseCallback
	Filename string

	bestLoss float64
}

func NewModelCheckpoint(filename string) *ModelCheckpoint {
	return &ModelCheckpoint{
		Filename: filename,
		bestLoss: math.MaxFloat64,
	}
}

func (c *ModelCheckpoint) OnEpochEnd(epoch int, loss float64, t *Trainer) {
	if loss >= c.bestLoss {
		return
	}
	c.bestLoss = loss
	log := t.Logger().WithFields(logrus.Fields{"file": c.Filename, "loss": loss})
	if err := SaveFile(c.Filename, t.Model()); err != nil {
		log.WithError(err).Error("checkpoint not saved")
		return
	}
	log.Debug("checkpoint saved")
}

// Logger logs training progress every Interval epochs.
type Logger struct {
	BaseCallback
	Interval int
}

func (c Logger) OnEpochEnd(epoch int, loss float64, t *Trainer) {
	if c.Interval > 0 && epoch%c.Interval == 0 {
		t.Logger().WithFields(logrus.Fields{
			"epoch": epoch,
			"loss":  loss,
		}).Info("epoch")
	}
}
