package quant

import "math"

// qrange returns the signed integer range for an n-bit code.
func qrange(nbits int) (lo, hi int32) {
	hi = int32(1)<<(nbits-1) - 1
	lo = -hi - 1
	return lo, hi
}

// symmetricScale derives a zero-centred scale from the largest
// magnitude in the range.
func symmetricScale(min, max float32, nbits int) float32 {
	amax := float32(math.Max(math.Abs(float64(min)), math.Abs(float64(max))))
	if amax == 0 {
		return 1
	}
	_, hi := qrange(nbits)
	return amax / float32(hi)
}

// powerOfTwoScale rounds the symmetric scale up to the next power of
// two, matching targets that implement rescaling as bit shifts.
func powerOfTwoScale(min, max float32, nbits int) float32 {
	s := symmetricScale(min, max, nbits)
	if s <= 0 {
		return 1
	}
	return float32(math.Pow(2, math.Ceil(math.Log2(float64(s)))))
}

// affineParams derives a scale and zero point covering [min, max].
// The zero point is clamped into the integer range so zero is always
// exactly representable.
func affineParams(min, max float32, nbits int) (scale float32, zero int32) {
	if min > 0 {
		min = 0
	}
	if max < 0 {
		max = 0
	}
	lo, hi := qrange(nbits)
	span := max - min
	if span == 0 {
		return 1, 0
	}
	scale = span / float32(hi-lo)
	zero = lo - int32(math.Round(float64(min/scale)))
	if zero < lo {
		zero = lo
	}
	if zero > hi {
		zero = hi
	}
	return scale, zero
}

// quantizeValue maps one float to its integer code.
func quantizeValue(v, scale float32, zero int32, nbits int) int32 {
	lo, hi := qrange(nbits)
	q := int32(math.Round(float64(v/scale))) + zero
	if q < lo {
		q = lo
	}
	if q > hi {
		q = hi
	}
	return q
}

// dequantizeValue reconstructs the float a code represents.
func dequantizeValue(q int32, scale float32, zero int32) float32 {
	return float32(q-zero) * scale
}
