package param

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Initializer fills parameter values.
type Initializer interface {
	Init(m *mat.Dense)
	// Randomizes reports whether Init draws random values.
	Randomizes() bool
}

// Zeros sets every value to zero.
type Zeros struct{}

// Init zeroes m.
func (Zeros) Init(m *mat.Dense) { m.Zero() }

// Randomizes returns false.
func (Zeros) Randomizes() bool { return false }

// Constant sets every value to Value.
type Constant struct {
	Value float64
}

// Init fills m with the constant.
func (c Constant) Init(m *mat.Dense) {
	r, cols := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < cols; j++ {
			m.Set(i, j, c.Value)
		}
	}
}

// Randomizes returns false.
func (Constant) Randomizes() bool { return false }

// GlorotUniform draws values from U(-limit, limit) with
// limit = Gain * sqrt(6 / (fanIn + fanOut)).
type GlorotUniform struct {
	Gain float64
	Rand *rand.Rand
}

// NewGlorotUniform returns a Glorot initializer with a deterministic seed.
func NewGlorotUniform(seed int64) *GlorotUniform {
	return &GlorotUniform{Gain: 1, Rand: rand.New(rand.NewSource(seed))}
}

// Init fills m with uniform random values.
func (g *GlorotUniform) Init(m *mat.Dense) {
	rows, cols := m.Dims()
	gain := g.Gain
	if gain == 0 {
		gain = 1
	}
	limit := gain * math.Sqrt(6.0/float64(rows+cols))
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			m.Set(i, j, g.float()*2*limit-limit)
		}
	}
}

// Randomizes returns true.
func (g *GlorotUniform) Randomizes() bool { return true }

func (g *GlorotUniform) float() float64 {
	if g.Rand == nil {
		return rand.Float64()
	}
	return g.Rand.Float64()
}
