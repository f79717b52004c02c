package opt

import "math"

// Scheduler changes the learning rate of a rule between epochs.
type Scheduler interface {
	// Step is called at the start of every epoch after the first.
	Step()
	// StepWithLoss is called at the end of every epoch with its mean loss.
	StepWithLoss(loss float64)
	LearningRate() float64
}

// BaseScheduler provides default implementations for Scheduler.
type BaseScheduler struct{}

func (s BaseScheduler) Step()                     {}
func (s BaseScheduler) StepWithLoss(loss float64) {}

// StepLR decays the learning rate by gamma every stepSize epochs.
type StepLR struct {
	BaseScheduler
	rule      LearningRater
	stepSize  int
	gamma     float64
	lastEpoch int
}

func NewStepLR(rule LearningRater, stepSize int, gamma float64) *StepLR {
	if stepSize < 1 {
		stepSize = 1
	}
	return &StepLR{
		rule:     rule,
		stepSize: stepSize,
		gamma:    gamma,
	}
}

func (s *StepLR) Step() {
	s.lastEpoch++
	if s.lastEpoch%s.stepSize == 0 {
		s.rule.SetLearningRate(s.rule.LearningRate() * s.gamma)
	}
}

func (s *StepLR) LearningRate() float64 { return s.rule.LearningRate() }

// ExponentialLR decays the learning rate by gamma every epoch.
type ExponentialLR struct {
	BaseScheduler
	rule  LearningRater
	gamma float64
}

func NewExponentialLR(rule LearningRater, gamma float64) *ExponentialLR {
	return &ExponentialLR{
		rule:  rule,
		gamma: gamma,
	}
}

func (s *ExponentialLR) Step() {
	s.rule.SetLearningRate(s.rule.LearningRate() * s.gamma)
}

func (s *ExponentialLR) LearningRate() float64 { return s.rule.LearningRate() }

// ReduceLROnPlateau reduces the learning rate when the loss has stopped improving.
type ReduceLROnPlateau struct {
	BaseScheduler
	rule      LearningRater
	factor    float64
	patience  int
	threshold float64
	cooldown  int
	minLR     float64

	bestLoss        float64
	numBadEpochs    int
	cooldownCounter int
}

func NewReduceLROnPlateau(rule LearningRater, factor float64, patience int, threshold, minLR float64) *ReduceLROnPlateau {
	return &ReduceLROnPlateau{
		rule:      rule,
		factor:    factor,
		patience:  patience,
		threshold: threshold,
		minLR:     minLR,
		bestLoss:  math.MaxFloat64,
	}
}

// WithCooldown sets the number of epochs to wait after a reduction.
func (s *ReduceLROnPlateau) WithCooldown(epochs int) *ReduceLROnPlateau {
	s.cooldown = epochs
	return s
}

func (s *ReduceLROnPlateau) StepWithLoss(currentLoss float64) {
	if s.cooldownCounter > 0 {
		s.cooldownCounter--
		return
	}

	if currentLoss < s.bestLoss-s.threshold {
		s.bestLoss = currentLoss
		s.numBadEpochs = 0
	} else {
		s.numBadEpochs++
	}

	if s.numBadEpochs >= s.patience {
		newLR := s.rule.LearningRate() * s.factor
		if newLR < s.minLR {
			newLR = s.minLR
		}
		s.rule.SetLearningRate(newLR)
		s.numBadEpochs = 0
		s.cooldownCounter = s.cooldown
	}
}

func (s *ReduceLROnPlateau) LearningRate() float64 { return s.rule.LearningRate() }
