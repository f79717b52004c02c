package net

import (
	"encoding/gob"
	"io"
	"os"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/GoRecurrent/internal/layer"
)

// ErrCheckpoint is returned when a checkpoint does not match the model it is
// loaded into.
var ErrCheckpoint = errors.New("net: checkpoint mismatch")

// checkpointHeader identifies the model a checkpoint was written from.
type checkpointHeader struct {
	Topology   string
	InputSize  int
	OutputSize int
	NumParams  int
}

// checkpointParam holds the values of one parameter array.
type checkpointParam struct {
	Name string
	Rows int
	Cols int
	Data []float64
}

// Save writes the parameter values of m to w using gob encoding. The
// optimizer state is not saved.
func Save(w io.Writer, m layer.Model) error {
	enc := gob.NewEncoder(w)
	params := m.Params()
	cfg := m.Config()
	h := checkpointHeader{
		Topology:   string(m.Topology()),
		InputSize:  cfg.InputSize,
		OutputSize: cfg.OutputSize,
		NumParams:  len(params),
	}
	if err := enc.Encode(h); err != nil {
		return errors.Wrap(err, "encode header")
	}
	for _, p := range params {
		r, c := p.Dims()
		cp := checkpointParam{
			Name: p.Name(),
			Rows: r,
			Cols: c,
			Data: append([]float64(nil), p.Values().RawMatrix().Data...),
		}
		if err := enc.Encode(cp); err != nil {
			return errors.Wrapf(err, "encode %s", p.Name())
		}
	}
	return nil
}

// Load reads a checkpoint written by Save into the parameters of m. The
// topology, the sizes and every parameter name and shape must match.
func Load(r io.Reader, m layer.Model) error {
	dec := gob.NewDecoder(r)
	var h checkpointHeader
	if err := dec.Decode(&h); err != nil {
		return errors.Wrap(err, "decode header")
	}
	params := m.Params()
	cfg := m.Config()
	switch {
	case h.Topology != string(m.Topology()):
		return errors.Wrapf(ErrCheckpoint, "topology %q, model is %q", h.Topology, m.Topology())
	case h.InputSize != cfg.InputSize || h.OutputSize != cfg.OutputSize:
		return errors.Wrapf(ErrCheckpoint, "sizes %dx%d, model is %dx%d",
			h.InputSize, h.OutputSize, cfg.InputSize, cfg.OutputSize)
	case h.NumParams != len(params):
		return errors.Wrapf(ErrCheckpoint, "%d params, model has %d", h.NumParams, len(params))
	}

	// Decode everything before touching the model.
	values := make([]*mat.Dense, len(params))
	for i, p := range params {
		var cp checkpointParam
		if err := dec.Decode(&cp); err != nil {
			return errors.Wrapf(err, "decode %s", p.Name())
		}
		r, c := p.Dims()
		if cp.Name != p.Name() || cp.Rows != r || cp.Cols != c || len(cp.Data) != r*c {
			return errors.Wrapf(ErrCheckpoint, "param %d is %s %dx%d, model has %s %dx%d",
				i, cp.Name, cp.Rows, cp.Cols, p.Name(), r, c)
		}
		values[i] = mat.NewDense(r, c, cp.Data)
	}
	for i, p := range params {
		p.Values().Copy(values[i])
	}
	return nil
}

// SaveFile saves the parameters of m to filename.
func SaveFile(filename string, m layer.Model) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "create checkpoint")
	}
	if err := Save(file, m); err != nil {
		file.Close()
		return err
	}
	return errors.Wrap(file.Close(), "close checkpoint")
}

// LoadFile loads the parameters of m from filename.
func LoadFile(filename string, m layer.Model) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrap(err, "open checkpoint")
	}
	defer file.Close()
	return Load(file, m)
}
