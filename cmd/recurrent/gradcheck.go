package main

import (
	"math/rand"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/FlavioCFOliveira/GoRecurrent/internal/activations"
	"github.com/FlavioCFOliveira/GoRecurrent/internal/layer"
	"github.com/FlavioCFOliveira/GoRecurrent/internal/net"
	"github.com/FlavioCFOliveira/GoRecurrent/internal/param"
)

var errGradCheck = errors.New("gradient check failed")

func runGradCheck(cmd *cobra.Command, args []string) error {
	log := logrus.New()
	log.SetOutput(cmd.OutOrStdout())

	top, err := layer.ParseTopology(topology)
	if err != nil {
		return err
	}
	act, err := activations.ByName(activation)
	if err != nil {
		return err
	}
	m, err := layer.NewModel(top, layer.Config{
		InputSize:  inputSize,
		OutputSize: outputSize,
		Activation: act,
		Seed:       seed,
	})
	if err != nil {
		return err
	}
	// Random biases too, so that every path carries a gradient.
	if err := layer.Initialize(m, param.NewGlorotUniform(seed)); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(seed))
	xs := net.RandomSequences(rng, 1, steps, inputSize)[0].Inputs
	rs := net.RandomSequences(rng, 1, steps, outputSize)[0].Inputs

	results, err := net.GradCheck(m, xs, rs, 1e-6)
	if err != nil {
		return err
	}
	failed := 0
	for _, r := range results {
		entry := log.WithFields(logrus.Fields{
			"param":    r.Param,
			"max_diff": r.MaxDiff,
		})
		if r.MaxDiff > tolerance {
			failed++
			entry.Warn("mismatch")
			continue
		}
		entry.Info("ok")
	}
	if failed > 0 {
		return errors.Wrapf(errGradCheck, "%d of %d parameters above %g", failed, len(results), tolerance)
	}
	return nil
}
