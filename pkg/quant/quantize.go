package quant

import (
	"encoding/binary"
	"fmt"
	"iter"

	"github.com/kawakami-masaki0/mct-model-optimization/pkg/tpc"
)

// PostTrainingQuantize quantizes a float model according to the given
// capability descriptor, calibrating activation parameters from the
// representative dataset. The input model is not modified.
func PostTrainingQuantize(model *Model, caps *tpc.CapabilityDescriptor, repr iter.Seq[[]Tensor]) (*QuantizedModel, error) {
	if model == nil {
		return nil, fmt.Errorf("quant: nil model")
	}
	if caps == nil {
		return nil, fmt.Errorf("quant: nil capability descriptor")
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}

	actMin, actMax, err := Calibrate(repr)
	if err != nil {
		return nil, err
	}

	out := &QuantizedModel{
		Name:         model.Name,
		Capabilities: caps,
		Ops:          make([]QuantizedOp, 0, len(model.Ops)),
	}
	for _, op := range model.Ops {
		cfg := caps.OpConfigFor(op.Type)
		qop := QuantizedOp{Name: op.Name, Type: op.Type}

		if cfg.QuantizeActivation {
			scale, zero, err := activationParams(cfg, actMin, actMax)
			if err != nil {
				return nil, fmt.Errorf("quant: op %q: %w", op.Name, err)
			}
			qop.Activation = &ActivationParams{
				NBits:     cfg.ActivationNBits,
				Scale:     scale,
				ZeroPoint: zero,
			}
		}

		for attr, w := range op.Weights {
			wcfg, ok := cfg.Weights[attr]
			if !ok || !wcfg.Enabled || !ShouldQuantizeWeight(attr, w) {
				if qop.Kept == nil {
					qop.Kept = make(map[string]Tensor)
				}
				qop.Kept[attr] = w
				continue
			}
			qt, err := quantizeTensor(w, wcfg)
			if err != nil {
				return nil, fmt.Errorf("quant: op %q weight %q: %w", op.Name, attr, err)
			}
			if qop.Weights == nil {
				qop.Weights = make(map[string]QuantTensor)
			}
			qop.Weights[attr] = qt
		}
		out.Ops = append(out.Ops, qop)
	}
	return out, nil
}

func activationParams(cfg tpc.OpConfig, min, max float32) (float32, int32, error) {
	switch cfg.ActivationMethod {
	case tpc.PowerOfTwo:
		return powerOfTwoScale(min, max, cfg.ActivationNBits), 0, nil
	case tpc.Symmetric:
		return symmetricScale(min, max, cfg.ActivationNBits), 0, nil
	case tpc.Uniform:
		scale, zero := affineParams(min, max, cfg.ActivationNBits)
		return scale, zero, nil
	default:
		return 0, 0, fmt.Errorf("unsupported activation method %q", cfg.ActivationMethod)
	}
}

// quantizeTensor quantizes one weight tensor. Per-channel treats the
// first dimension as the channel axis.
func quantizeTensor(t Tensor, cfg tpc.AttributeConfig) (QuantTensor, error) {
	if cfg.NBits < 2 || cfg.NBits > 16 {
		return QuantTensor{}, fmt.Errorf("unsupported weight bit width %d", cfg.NBits)
	}

	channels := 1
	if cfg.PerChannel {
		channels = t.Shape[0]
	}
	perChannel := t.Elems() / channels

	qt := QuantTensor{
		Shape:      append([]int(nil), t.Shape...),
		NBits:      cfg.NBits,
		PerChannel: cfg.PerChannel,
		Scales:     make([]float32, channels),
		ZeroPoints: make([]int32, channels),
		Data:       make([]byte, t.Elems()*bytesPerCode(cfg.NBits)),
	}

	for c := 0; c < channels; c++ {
		chunk := t.Data[c*perChannel : (c+1)*perChannel]
		var obs Observer
		obs.Observe(chunk)
		min, max := obs.Range()

		var scale float32
		var zero int32
		switch cfg.Method {
		case tpc.PowerOfTwo:
			scale = powerOfTwoScale(min, max, cfg.NBits)
		case tpc.Symmetric:
			scale = symmetricScale(min, max, cfg.NBits)
		case tpc.Uniform:
			scale, zero = affineParams(min, max, cfg.NBits)
		default:
			return QuantTensor{}, fmt.Errorf("unsupported weight method %q", cfg.Method)
		}
		qt.Scales[c] = scale
		qt.ZeroPoints[c] = zero

		for i, v := range chunk {
			code := quantizeValue(v, scale, zero, cfg.NBits)
			putCode(qt.Data, c*perChannel+i, code, cfg.NBits)
		}
	}
	return qt, nil
}

// Dequantize reconstructs the float tensor a QuantTensor encodes.
func Dequantize(qt QuantTensor) Tensor {
	elems := Tensor{Shape: qt.Shape}.Elems()
	t := Tensor{
		Shape: append([]int(nil), qt.Shape...),
		Data:  make([]float32, elems),
	}

	channels := len(qt.Scales)
	perChannel := elems / channels
	for c := 0; c < channels; c++ {
		for i := 0; i < perChannel; i++ {
			code := getCode(qt.Data, c*perChannel+i, qt.NBits)
			t.Data[c*perChannel+i] = dequantizeValue(code, qt.Scales[c], qt.ZeroPoints[c])
		}
	}
	return t
}

// bytesPerCode returns the storage width of an n-bit code. Narrow
// codes are stored one per byte; wide codes use little-endian int16.
func bytesPerCode(nbits int) int {
	if nbits <= 8 {
		return 1
	}
	return 2
}

func putCode(data []byte, idx int, code int32, nbits int) {
	if nbits <= 8 {
		data[idx] = byte(int8(code))
		return
	}
	binary.LittleEndian.PutUint16(data[idx*2:], uint16(int16(code)))
}

func getCode(data []byte, idx int, nbits int) int32 {
	if nbits <= 8 {
		return int32(int8(data[idx]))
	}
	return int32(int16(binary.LittleEndian.Uint16(data[idx*2:])))
}
