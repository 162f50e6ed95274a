// Package qnnpack defines the capability descriptors for the QNNPACK
// reference CPU quantization backend.
package qnnpack

import "github.com/kawakami-masaki0/mct-model-optimization/pkg/tpc"

// Available reports whether the QNNPACK backend can serve resolved
// descriptors in this process. Overridable in tests; the default build
// ships the backend, so it is available.
var Available = func() bool { return true }

// Device returns the qnnpack registry declaration. The availability
// probe makes resolution fail with tpc.ErrBackendUnavailable when the
// backing runtime is absent, rather than aliasing to another backend.
func Device() tpc.Device {
	return tpc.Device{
		Type: tpc.DeviceQNNPack,
		Versions: map[string]tpc.Factory{
			"1.0": V1_0,
		},
		Latest: "1.0",
		Probe:  func() bool { return Available() },
	}
}

// V1_0 builds the version 1.0 descriptor: 8-bit affine per-tensor
// weights and activations, matching the backend's uint8 kernels.
func V1_0() *tpc.CapabilityDescriptor {
	weight := tpc.AttributeConfig{
		NBits:      8,
		Method:     tpc.Uniform,
		PerChannel: false,
		Enabled:    true,
	}
	return &tpc.CapabilityDescriptor{
		Schema:  tpc.SchemaVersion,
		Device:  tpc.DeviceQNNPack,
		Version: "1.0",
		Default: tpc.OpConfig{
			ActivationNBits:    8,
			ActivationMethod:   tpc.Uniform,
			QuantizeActivation: true,
		},
		OperatorSets: []tpc.OperatorSet{
			{
				Name:      "linear",
				Operators: []string{"conv2d", "depthwise_conv2d", "dense", "matmul"},
				Config: tpc.OpConfig{
					ActivationNBits:    8,
					ActivationMethod:   tpc.Uniform,
					QuantizeActivation: true,
					Weights: map[string]tpc.AttributeConfig{
						"kernel": weight,
					},
				},
			},
		},
		Fusing: [][]string{
			{"conv2d", "relu"},
			{"dense", "relu"},
		},
	}
}
