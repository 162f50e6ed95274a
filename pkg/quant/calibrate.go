package quant

import (
	"errors"
	"iter"
)

// ErrEmptyDataset is returned when the representative dataset yields
// no values to calibrate from.
var ErrEmptyDataset = errors.New("quant: representative dataset produced no values")

// Observer tracks the value range of everything it sees.
type Observer struct {
	min  float32
	max  float32
	seen bool
}

// Observe folds a slice of values into the tracked range.
func (o *Observer) Observe(values []float32) {
	for _, v := range values {
		if !o.seen {
			o.min, o.max, o.seen = v, v, true
			continue
		}
		if v < o.min {
			o.min = v
		}
		if v > o.max {
			o.max = v
		}
	}
}

// Range returns the observed min and max. Valid only after at least
// one value was observed.
func (o *Observer) Range() (min, max float32) {
	return o.min, o.max
}

// Seen reports whether any value was observed.
func (o *Observer) Seen() bool { return o.seen }

// Calibrate streams a representative dataset once and returns the
// observed input range. The sequence must be finite; it is consumed
// lazily and can be re-ranged by the caller for further passes.
func Calibrate(repr iter.Seq[[]Tensor]) (min, max float32, err error) {
	var obs Observer
	for batch := range repr {
		for _, t := range batch {
			obs.Observe(t.Data)
		}
	}
	if !obs.Seen() {
		return 0, 0, ErrEmptyDataset
	}
	min, max = obs.Range()
	return min, max, nil
}
