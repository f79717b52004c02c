package main

import (
	"os"
	"os/signal"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/FlavioCFOliveira/GoRecurrent/gorecurrent"
	"github.com/FlavioCFOliveira/GoRecurrent/internal/config"
	"github.com/FlavioCFOliveira/GoRecurrent/internal/net"
)

func runTrain(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := cfg.Log.NewLogger()
	if err != nil {
		return err
	}
	log.SetOutput(cmd.ErrOrStderr())

	reg := prometheus.NewRegistry()
	run, err := gorecurrent.NewRun(cfg, log, reg)
	if err != nil {
		return err
	}

	var data []net.Example
	if dataPath != "" {
		data, err = net.LoadSequencesCSV(dataPath, cfg.Model.InputSize, dataHeader)
		if err != nil {
			return err
		}
	} else {
		data = run.DelayTask()
	}
	train, test := net.Split(data, splitRatio)
	if len(train) == 0 {
		return errors.Errorf("no training examples out of %d", len(data))
	}

	log.WithFields(logrus.Fields{
		"topology":  cfg.Model.Type,
		"input":     cfg.Model.InputSize,
		"output":    cfg.Model.OutputSize,
		"optimizer": cfg.Optimizer.Method,
		"train":     len(train),
		"test":      len(test),
	}).Info("training")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	start := time.Now()
	trainLoss, err := run.Trainer.Fit(ctx, train, cfg.Training.Epochs)
	if err != nil {
		return err
	}
	fields := logrus.Fields{
		"loss":    trainLoss,
		"elapsed": time.Since(start).Round(time.Millisecond),
	}
	if len(test) > 0 {
		testLoss, err := run.Trainer.Evaluate(ctx, test)
		if err != nil {
			return err
		}
		fields["test_loss"] = testLoss
	}
	log.WithFields(fields).Info("training done")

	if metricsFile != "" {
		if err := prometheus.WriteToTextfile(metricsFile, reg); err != nil {
			return errors.Wrap(err, "write metrics")
		}
	}
	return nil
}
