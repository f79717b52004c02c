// Package config loads the YAML configuration of a training run.
package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned for a configuration that fails validation.
var ErrInvalid = errors.New("config: invalid configuration")

var validate = validator.New()

// Config is a training run.
type Config struct {
	Model     ModelConfig     `yaml:"model"`
	Optimizer OptimizerConfig `yaml:"optimizer"`
	Training  TrainingConfig  `yaml:"training"`
	Log       LogConfig       `yaml:"log"`
}

// ModelConfig describes the recurrent layer and its loss.
type ModelConfig struct {
	Type        string `yaml:"type" validate:"required,oneof=cfn lstm ran ltm simple"`
	InputSize   int    `yaml:"input_size" validate:"gt=0"`
	OutputSize  int    `yaml:"output_size" validate:"gt=0"`
	Activation  string `yaml:"activation" validate:"oneof=tanh sigmoid relu leakyrelu elu linear softsign"`
	SparseInput bool   `yaml:"sparse_input"`
	Seed        int64  `yaml:"seed"`
	Loss        string `yaml:"loss" validate:"oneof=mse huber l1"`
}

// OptimizerConfig describes the update rule and what surrounds it. A zero
// clip value disables that kind of clipping.
type OptimizerConfig struct {
	Method       string          `yaml:"method" validate:"oneof=sgd adagrad adam"`
	LearningRate float64         `yaml:"learning_rate" validate:"gt=0"`
	Momentum     float64         `yaml:"momentum" validate:"gte=0,lt=1"`
	Beta1        float64         `yaml:"beta1" validate:"gte=0,lt=1"`
	Beta2        float64         `yaml:"beta2" validate:"gte=0,lt=1"`
	Epsilon      float64         `yaml:"epsilon" validate:"gt=0"`
	ClipNorm     float64         `yaml:"clip_norm" validate:"gte=0"`
	ClipValue    float64         `yaml:"clip_value" validate:"gte=0"`
	Scheduler    SchedulerConfig `yaml:"scheduler"`
}

// SchedulerConfig describes the learning rate schedule. An empty type means
// a constant learning rate.
type SchedulerConfig struct {
	Type     string  `yaml:"type" validate:"omitempty,oneof=step exponential plateau"`
	StepSize int     `yaml:"step_size" validate:"gte=0"`
	Gamma    float64 `yaml:"gamma" validate:"gt=0,lte=1"`
	Patience int     `yaml:"patience" validate:"gte=0"`
	MinLR    float64 `yaml:"min_lr" validate:"gte=0"`
}

// TrainingConfig describes the training loop and the synthetic delay task
// used when no data file is given.
type TrainingConfig struct {
	Epochs         int    `yaml:"epochs" validate:"gt=0"`
	BatchSize      int    `yaml:"batch_size" validate:"gt=0"`
	Workers        int    `yaml:"workers" validate:"gte=0"`
	SequenceLength int    `yaml:"sequence_length" validate:"gt=0"`
	Delay          int    `yaml:"delay" validate:"gte=0,ltfield=SequenceLength"`
	Examples       int    `yaml:"examples" validate:"gt=0"`
	Seed           int64  `yaml:"seed"`
	Patience       int    `yaml:"patience" validate:"gte=0"`
	Checkpoint     string `yaml:"checkpoint"`
}

// LogConfig describes logging.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
	CSV    string `yaml:"csv"`
}

// Default returns the default configuration: an LSTM with 4 inputs and
// outputs trained with Adam on the delay task.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Type:       "lstm",
			InputSize:  4,
			OutputSize: 4,
			Activation: "tanh",
			Seed:       1,
			Loss:       "mse",
		},
		Optimizer: OptimizerConfig{
			Method:       "adam",
			LearningRate: 0.01,
			Beta1:        0.9,
			Beta2:        0.999,
			Epsilon:      1e-8,
			ClipNorm:     5,
			Scheduler: SchedulerConfig{
				StepSize: 10,
				Gamma:    0.5,
				Patience: 5,
			},
		},
		Training: TrainingConfig{
			Epochs:         20,
			BatchSize:      16,
			SequenceLength: 10,
			Delay:          1,
			Examples:       256,
			Seed:           1,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(ErrInvalid, err.Error())
	}
	if c.Model.Type == "ltm" && c.Model.InputSize != c.Model.OutputSize {
		return errors.Wrapf(ErrInvalid, "ltm needs input_size == output_size, got %d and %d",
			c.Model.InputSize, c.Model.OutputSize)
	}
	if c.Optimizer.Scheduler.Type == "step" && c.Optimizer.Scheduler.StepSize == 0 {
		return errors.Wrap(ErrInvalid, "step scheduler needs step_size > 0")
	}
	return nil
}

// Parse decodes data over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse the config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads the configuration at path. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read the config file")
	}
	cfg, err := Parse(data)
	return cfg, errors.WithMessage(err, path)
}

// Save writes c to path as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal the config")
	}
	return errors.Wrap(os.WriteFile(path, data, 0644), "failed to write the config file")
}

// NewLogger returns a logger configured by c.
func (c LogConfig) NewLogger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return nil, errors.Wrap(ErrInvalid, err.Error())
	}
	l := logrus.New()
	l.SetLevel(level)
	if c.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	return l, nil
}
