package main

import (
	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:           "recurrent",
		Short:         "Train gated recurrent models",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	trainCmd = &cobra.Command{
		Use:   "train",
		Short: "Train a model on a CSV file or on the synthetic delay task",
		Long: `Trains the model described by the configuration file. Without --data the
examples come from the delayed recall task set up in the training section.`,
		Args: cobra.NoArgs,
		RunE: runTrain,
	}
	configPath  string
	dataPath    string
	dataHeader  bool
	splitRatio  float64
	metricsFile string

	gradcheckCmd = &cobra.Command{
		Use:   "gradcheck",
		Short: "Compare the collected parameter errors with finite differences",
		Args:  cobra.NoArgs,
		RunE:  runGradCheck,
	}
	topology   string
	activation string
	inputSize  int
	outputSize int
	steps      int
	seed       int64
	tolerance  float64
)

func init() {
	rootCmd.AddCommand(trainCmd, gradcheckCmd)

	trainCmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML configuration file; defaults are used when empty")
	trainCmd.Flags().StringVarP(&dataPath, "data", "d", "", "CSV file of sequences: id, inputs, targets")
	trainCmd.Flags().BoolVar(&dataHeader, "header", false, "The CSV file has a header row")
	trainCmd.Flags().Float64Var(&splitRatio, "split", 0.9, "Fraction of the examples used for training")
	trainCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write the optimizer metrics to this file when done")

	gradcheckCmd.Flags().StringVarP(&topology, "topology", "t", "lstm", "Topology: cfn, lstm, ran, ltm or simple")
	gradcheckCmd.Flags().StringVar(&activation, "activation", "tanh", "Activation of the output and cell arrays")
	gradcheckCmd.Flags().IntVar(&inputSize, "input", 3, "Input size")
	gradcheckCmd.Flags().IntVar(&outputSize, "output", 4, "Output size")
	gradcheckCmd.Flags().IntVar(&steps, "steps", 5, "Sequence length")
	gradcheckCmd.Flags().Int64Var(&seed, "seed", 1, "Random seed")
	gradcheckCmd.Flags().Float64Var(&tolerance, "tol", 1e-5, "Largest accepted difference")
}
