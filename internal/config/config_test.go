package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaultIsValid verifies the defaults pass validation.
func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

// TestLoadOverridesDefaults verifies that a partial document keeps the
// defaults for what it does not set.
func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	doc := `
model:
  type: ran
  input_size: 3
  output_size: 5
optimizer:
  method: sgd
  learning_rate: 0.1
  momentum: 0.9
  scheduler:
    type: plateau
training:
  epochs: 3
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ran", cfg.Model.Type)
	assert.Equal(t, 3, cfg.Model.InputSize)
	assert.Equal(t, 5, cfg.Model.OutputSize)
	assert.Equal(t, "tanh", cfg.Model.Activation)
	assert.Equal(t, "sgd", cfg.Optimizer.Method)
	assert.Equal(t, 0.9, cfg.Optimizer.Momentum)
	assert.Equal(t, "plateau", cfg.Optimizer.Scheduler.Type)
	assert.Equal(t, 3, cfg.Training.Epochs)
	assert.Equal(t, 16, cfg.Training.BatchSize)

	l, err := cfg.Log.NewLogger()
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
}

// TestLoadEmptyPath verifies the defaults are returned without a file.
func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

// TestSaveLoad verifies a saved configuration loads back unchanged.
func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	cfg := Default()
	cfg.Model.Type = "cfn"
	cfg.Training.Checkpoint = "model.gob"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

// TestValidate verifies invalid documents are rejected.
func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown topology", "model: {type: gru}"},
		{"zero input size", "model: {input_size: 0}"},
		{"unknown activation", "model: {activation: swish}"},
		{"ltm sizes", "model: {type: ltm, input_size: 2, output_size: 3}"},
		{"unknown method", "optimizer: {method: rmsprop}"},
		{"negative learning rate", "optimizer: {learning_rate: -1}"},
		{"momentum of one", "optimizer: {momentum: 1}"},
		{"step without size", "optimizer: {scheduler: {type: step, step_size: 0}}"},
		{"delay too long", "training: {sequence_length: 3, delay: 3}"},
		{"unknown level", "log: {level: loud}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid), "got %v", err)
		})
	}
}

// TestParseSyntaxError verifies malformed YAML is reported.
func TestParseSyntaxError(t *testing.T) {
	_, err := Parse([]byte("model: ["))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalid))
}
