// Package dataset provides representative datasets for quantization
// calibration: restartable, finite, lazy sequences of input batches.
package dataset

import (
	"iter"
	"math/rand"

	"github.com/kawakami-masaki0/mct-model-optimization/pkg/quant"
)

// Batch is one calibration step: one tensor per model input.
type Batch = []quant.Tensor

// Generator yields calibration batches. Ranging over it again restarts
// the sequence from the beginning.
type Generator = iter.Seq[Batch]

// Random builds a generator of normally-distributed batches, one
// tensor per input shape, for the given number of calibration
// iterations. Each restart replays the same seed, so passes are
// reproducible.
func Random(shapes [][]int, iterations int, seed int64) Generator {
	return func(yield func(Batch) bool) {
		rng := rand.New(rand.NewSource(seed))
		for i := 0; i < iterations; i++ {
			batch := make(Batch, 0, len(shapes))
			for _, shape := range shapes {
				t := quant.Tensor{Shape: append([]int(nil), shape...)}
				t.Data = make([]float32, t.Elems())
				for j := range t.Data {
					t.Data[j] = float32(rng.NormFloat64())
				}
				batch = append(batch, t)
			}
			if !yield(batch) {
				return
			}
		}
	}
}

// FromSlices wraps pre-built batches as a restartable generator.
func FromSlices(batches []Batch) Generator {
	return func(yield func(Batch) bool) {
		for _, b := range batches {
			if !yield(b) {
				return
			}
		}
	}
}
