package net

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// DelayTask generates n examples of the delayed recall task: inputs are
// random values in [-1, 1] and the target at step t is the input at step
// t-delay. The first delay steps have no target.
func DelayTask(rng *rand.Rand, n, length, size, delay int) []Example {
	data := RandomSequences(rng, n, length, size)
	for i := range data {
		ex := &data[i]
		ex.Targets = make([]*mat.VecDense, length)
		for t := delay; t < length; t++ {
			ex.Targets[t] = mat.VecDenseCopyOf(ex.Inputs[t-delay])
		}
	}
	return data
}

// RandomSequences generates n examples of length random input vectors in
// [-1, 1] with no targets.
func RandomSequences(rng *rand.Rand, n, length, size int) []Example {
	data := make([]Example, n)
	for i := range data {
		inputs := make([]*mat.VecDense, length)
		for t := range inputs {
			v := make([]float64, size)
			for j := range v {
				v[j] = rng.Float64()*2 - 1
			}
			inputs[t] = mat.NewVecDense(size, v)
		}
		data[i] = Example{
			Inputs:  inputs,
			Targets: make([]*mat.VecDense, length),
		}
	}
	return data
}
