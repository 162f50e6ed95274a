// Package imx500 defines the capability descriptors for the IMX500
// intelligent vision sensor target.
package imx500

import "github.com/kawakami-masaki0/mct-model-optimization/pkg/tpc"

// Device returns the imx500 registry declaration with all shipped
// versions. Version 1.1 extends 1.0 with a 16-bit activation set for
// elementwise arithmetic.
func Device() tpc.Device {
	return tpc.Device{
		Type: tpc.DeviceIMX500,
		Versions: map[string]tpc.Factory{
			"1.0": V1_0,
			"1.1": V1_1,
		},
		Latest: "1.1",
	}
}

// V1_0 builds the version 1.0 descriptor: 8-bit symmetric per-channel
// weights, power-of-two activation thresholds.
func V1_0() *tpc.CapabilityDescriptor {
	return &tpc.CapabilityDescriptor{
		Schema:  tpc.SchemaVersion,
		Device:  tpc.DeviceIMX500,
		Version: "1.0",
		Default: tpc.OpConfig{
			ActivationNBits:    8,
			ActivationMethod:   tpc.PowerOfTwo,
			QuantizeActivation: true,
		},
		OperatorSets: []tpc.OperatorSet{
			convSet(8),
			denseSet(8),
			noQuantSet(),
		},
		Fusing: [][]string{
			{"conv2d", "relu"},
			{"conv2d", "add", "relu"},
			{"dense", "relu"},
		},
	}
}

// V1_1 builds the version 1.1 descriptor.
func V1_1() *tpc.CapabilityDescriptor {
	d := V1_0()
	d.Version = "1.1"
	d.OperatorSets = append(d.OperatorSets, tpc.OperatorSet{
		Name:      "arithmetic16",
		Operators: []string{"add", "sub", "mul"},
		Config: tpc.OpConfig{
			ActivationNBits:    16,
			ActivationMethod:   tpc.PowerOfTwo,
			QuantizeActivation: true,
		},
	})
	return d
}

func convSet(bits int) tpc.OperatorSet {
	return tpc.OperatorSet{
		Name:      "conv",
		Operators: []string{"conv2d", "depthwise_conv2d", "conv2d_transpose"},
		Config: tpc.OpConfig{
			ActivationNBits:    bits,
			ActivationMethod:   tpc.PowerOfTwo,
			QuantizeActivation: true,
			Weights: map[string]tpc.AttributeConfig{
				"kernel": {
					NBits:      bits,
					Method:     tpc.Symmetric,
					PerChannel: true,
					Enabled:    true,
				},
			},
		},
	}
}

func denseSet(bits int) tpc.OperatorSet {
	return tpc.OperatorSet{
		Name:      "dense",
		Operators: []string{"dense", "matmul"},
		Config: tpc.OpConfig{
			ActivationNBits:    bits,
			ActivationMethod:   tpc.PowerOfTwo,
			QuantizeActivation: true,
			Weights: map[string]tpc.AttributeConfig{
				"kernel": {
					NBits:      bits,
					Method:     tpc.Symmetric,
					PerChannel: false,
					Enabled:    true,
				},
			},
		},
	}
}

// noQuantSet covers shape and layout ops the sensor runs as-is.
func noQuantSet() tpc.OperatorSet {
	return tpc.OperatorSet{
		Name:      "no_quantization",
		Operators: []string{"reshape", "transpose", "flatten", "identity", "dropout"},
		Config: tpc.OpConfig{
			ActivationNBits:    8,
			ActivationMethod:   tpc.PowerOfTwo,
			QuantizeActivation: false,
		},
	}
}
