// Package quant implements post-training quantization of float models
// driven by a target platform capability descriptor.
package quant

import (
	"fmt"

	"github.com/kawakami-masaki0/mct-model-optimization/pkg/tpc"
)

// Tensor is a dense float32 tensor in row-major layout.
type Tensor struct {
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

// Elems returns the element count implied by the shape.
func (t Tensor) Elems() int {
	if len(t.Shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// Validate checks that the data length matches the shape.
func (t Tensor) Validate() error {
	if len(t.Data) != t.Elems() {
		return fmt.Errorf("quant: tensor has %d values for shape %v", len(t.Data), t.Shape)
	}
	return nil
}

// Op is one operator of a float model.
type Op struct {
	Name    string            `json:"name"`
	Type    string            `json:"type"`
	Weights map[string]Tensor `json:"weights,omitempty"`
}

// Model is the float model representation the quantizer consumes.
type Model struct {
	Name string `json:"name"`
	Ops  []Op   `json:"ops"`
}

// Validate checks op identities and every weight tensor of the model.
func (m *Model) Validate() error {
	for _, op := range m.Ops {
		if op.Name == "" || op.Type == "" {
			return fmt.Errorf("quant: op with empty name or type")
		}
		for attr, w := range op.Weights {
			if err := w.Validate(); err != nil {
				return fmt.Errorf("quant: op %q weight %q: %w", op.Name, attr, err)
			}
		}
	}
	return nil
}

// QuantTensor is one quantized weight: packed integer data plus the
// parameters needed to reconstruct floats.
type QuantTensor struct {
	Shape      []int     `json:"shape"`
	NBits      int       `json:"n_bits"`
	PerChannel bool      `json:"per_channel"`
	Scales     []float32 `json:"scales"`
	ZeroPoints []int32   `json:"zero_points"`
	Data       []byte    `json:"-"`
}

// ActivationParams carries the calibrated activation quantization of
// one op.
type ActivationParams struct {
	NBits     int     `json:"n_bits"`
	Scale     float32 `json:"scale"`
	ZeroPoint int32   `json:"zero_point"`
}

// QuantizedOp mirrors Op after quantization. Weights the eligibility
// predicate skipped stay in Kept as float tensors.
type QuantizedOp struct {
	Name       string                 `json:"name"`
	Type       string                 `json:"type"`
	Weights    map[string]QuantTensor `json:"weights,omitempty"`
	Kept       map[string]Tensor      `json:"kept,omitempty"`
	Activation *ActivationParams      `json:"activation,omitempty"`
}

// QuantizedModel is the quantizer output, carrying the descriptor that
// produced it.
type QuantizedModel struct {
	Name         string                    `json:"name"`
	Capabilities *tpc.CapabilityDescriptor `json:"capabilities"`
	Ops          []QuantizedOp             `json:"ops"`
}
