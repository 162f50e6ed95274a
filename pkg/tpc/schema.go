package tpc

// SchemaVersion is the revision of the descriptor schema itself,
// independent of any per-device version.
const SchemaVersion = "1.0"

// QuantizationMethod selects how quantization parameters are derived
// from an observed value range.
type QuantizationMethod string

const (
	// PowerOfTwo constrains scales to powers of two (hardware shifts).
	PowerOfTwo QuantizationMethod = "power_of_two"
	// Symmetric centers the quantization grid on zero.
	Symmetric QuantizationMethod = "symmetric"
	// Uniform is affine quantization with a free zero point.
	Uniform QuantizationMethod = "uniform"
)

// AttributeConfig describes how a single weight attribute of an
// operator (eg its kernel) is quantized.
type AttributeConfig struct {
	NBits      int                `json:"n_bits"`
	Method     QuantizationMethod `json:"method"`
	PerChannel bool               `json:"per_channel"`
	Enabled    bool               `json:"enabled"`
}

// OpConfig is the full quantization configuration for one operator
// class: its activation quantization plus per-attribute weight configs.
type OpConfig struct {
	ActivationNBits    int                        `json:"activation_n_bits"`
	ActivationMethod   QuantizationMethod         `json:"activation_method"`
	QuantizeActivation bool                       `json:"quantize_activation"`
	Weights            map[string]AttributeConfig `json:"weights,omitempty"`
}

// OperatorSet groups operator types that share one OpConfig.
type OperatorSet struct {
	Name      string   `json:"name"`
	Operators []string `json:"operators"`
	Config    OpConfig `json:"config"`
}

// CapabilityDescriptor is a fully-resolved, immutable description of
// the quantization rules for one (device, version) target. Callers
// must treat it as read-only; factories build a fresh value per call
// and the registry keeps no reference to what it hands out.
type CapabilityDescriptor struct {
	Schema       string        `json:"schema_version"`
	Device       DeviceType    `json:"device_type"`
	Version      string        `json:"tpc_version"`
	Default      OpConfig      `json:"default_config"`
	OperatorSets []OperatorSet `json:"operator_sets,omitempty"`

	// Fusing lists operator-type patterns the target executes as a
	// single fused kernel; intermediate activations inside a pattern
	// are not quantized.
	Fusing [][]string `json:"fusing_patterns,omitempty"`
}

// OpConfigFor returns the config of the operator set covering opType,
// or the default config when no set claims it.
func (d *CapabilityDescriptor) OpConfigFor(opType string) OpConfig {
	for _, set := range d.OperatorSets {
		for _, op := range set.Operators {
			if op == opType {
				return set.Config
			}
		}
	}
	return d.Default
}

// SupportsOp reports whether opType is claimed by any operator set.
func (d *CapabilityDescriptor) SupportsOp(opType string) bool {
	for _, set := range d.OperatorSets {
		for _, op := range set.Operators {
			if op == opType {
				return true
			}
		}
	}
	return false
}
