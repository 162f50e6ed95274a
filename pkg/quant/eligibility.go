package quant

import "strings"

// minQuantElems is the smallest weight worth quantizing; tiny tensors
// cost more in reconstruction metadata than they save.
const minQuantElems = 256

// ShouldQuantizeWeight reports whether a weight attribute is eligible
// for quantization. Normalization parameters, embeddings, biases, and
// non-2D or tiny tensors keep their float representation.
func ShouldQuantizeWeight(attr string, t Tensor) bool {
	name := strings.ToLower(attr)
	if strings.Contains(name, "norm") || strings.Contains(name, "embed") {
		return false
	}
	if strings.HasSuffix(name, "bias") {
		return false
	}
	if len(t.Shape) != 2 {
		return false
	}
	if t.Elems() < minQuantElems {
		return false
	}
	return true
}
