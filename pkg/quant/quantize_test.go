package quant

import (
	"errors"
	"iter"
	"math"
	"math/rand"
	"testing"

	"github.com/kawakami-masaki0/mct-model-optimization/pkg/tpc"
)

func randTensor(rng *rand.Rand, shape ...int) Tensor {
	t := Tensor{Shape: shape}
	t.Data = make([]float32, t.Elems())
	for i := range t.Data {
		t.Data[i] = float32(rng.NormFloat64())
	}
	return t
}

func singleBatch(batch []Tensor) iter.Seq[[]Tensor] {
	return func(yield func([]Tensor) bool) {
		yield(batch)
	}
}

func testModel(rng *rand.Rand) *Model {
	return &Model{
		Name: "test-net",
		Ops: []Op{
			{
				Name: "fc1",
				Type: "dense",
				Weights: map[string]Tensor{
					"kernel": randTensor(rng, 32, 64),
					"bias":   randTensor(rng, 64),
				},
			},
			{Name: "act1", Type: "relu"},
			{Name: "shape", Type: "reshape"},
		},
	}
}

func imxCaps(t *testing.T) *tpc.CapabilityDescriptor {
	t.Helper()
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
			{
				Name:      "dense",
				Operators: []string{"dense"},
				Config: tpc.OpConfig{
					ActivationNBits:    8,
					ActivationMethod:   tpc.PowerOfTwo,
					QuantizeActivation: true,
					Weights: map[string]tpc.AttributeConfig{
						"kernel": {NBits: 8, Method: tpc.Symmetric, PerChannel: true, Enabled: true},
						"bias":   {NBits: 8, Method: tpc.Symmetric, Enabled: false},
					},
				},
			},
			{
				Name:      "no_quantization",
				Operators: []string{"reshape"},
				Config:    tpc.OpConfig{ActivationNBits: 8, ActivationMethod: tpc.PowerOfTwo},
			},
		},
	}
}

func TestPostTrainingQuantize(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(1))
	model := testModel(rng)
	repr := singleBatch([]Tensor{randTensor(rng, 1, 32)})

	qm, err := PostTrainingQuantize(model, imxCaps(t), repr)
	if err != nil {
		t.Fatalf("PostTrainingQuantize: %v", err)
	}
	if qm.Name != model.Name {
		t.Fatalf("name: got %q, want %q", qm.Name, model.Name)
	}
	if qm.Capabilities == nil || qm.Capabilities.Device != tpc.DeviceIMX500 {
		t.Fatal("quantized model must carry its capability descriptor")
	}
	if len(qm.Ops) != len(model.Ops) {
		t.Fatalf("op count: got %d, want %d", len(qm.Ops), len(model.Ops))
	}

	fc := qm.Ops[0]
	kernel, ok := fc.Weights["kernel"]
	if !ok {
		t.Fatal("fc1 kernel should be quantized")
	}
	if !kernel.PerChannel || kernel.NBits != 8 {
		t.Fatalf("kernel params: per_channel=%v n_bits=%d", kernel.PerChannel, kernel.NBits)
	}
	if len(kernel.Scales) != 32 {
		t.Fatalf("per-channel scales: got %d, want 32", len(kernel.Scales))
	}
	if _, kept := fc.Kept["bias"]; !kept {
		t.Fatal("fc1 bias should be kept in float")
	}
	if fc.Activation == nil || fc.Activation.NBits != 8 {
		t.Fatal("fc1 activation should be quantized at 8 bits")
	}

	// Power-of-two activation scale must be an exact power of two.
	exp := math.Log2(float64(fc.Activation.Scale))
	if exp != math.Trunc(exp) {
		t.Fatalf("activation scale %v is not a power of two", fc.Activation.Scale)
	}

	if reshape := qm.Ops[2]; reshape.Activation != nil {
		t.Fatal("reshape activation must stay unquantized")
	}
}

func TestQuantizeRoundTripError(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(2))
	orig := randTensor(rng, 16, 32)
	cfg := tpc.AttributeConfig{NBits: 8, Method: tpc.Symmetric, PerChannel: true, Enabled: true}

	qt, err := quantizeTensor(orig, cfg)
	if err != nil {
		t.Fatalf("quantizeTensor: %v", err)
	}
	back := Dequantize(qt)
	if len(back.Data) != len(orig.Data) {
		t.Fatalf("dequantized length: got %d, want %d", len(back.Data), len(orig.Data))
	}

	var worst float64
	for i := range orig.Data {
		diff := math.Abs(float64(orig.Data[i] - back.Data[i]))
		if diff > worst {
			worst = diff
		}
	}
	// 8-bit symmetric error is bounded by half a step per channel.
	var maxStep float64
	for _, s := range qt.Scales {
		if float64(s) > maxStep {
			maxStep = float64(s)
		}
	}
	if worst > maxStep {
		t.Fatalf("round-trip error %v exceeds one step %v", worst, maxStep)
	}
}

func TestQuantize16Bit(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(3))
	orig := randTensor(rng, 16, 32)
	cfg := tpc.AttributeConfig{NBits: 16, Method: tpc.Uniform, Enabled: true}

	qt, err := quantizeTensor(orig, cfg)
	if err != nil {
		t.Fatalf("quantizeTensor: %v", err)
	}
	if got, want := len(qt.Data), orig.Elems()*2; got != want {
		t.Fatalf("16-bit payload: got %d bytes, want %d", got, want)
	}
	back := Dequantize(qt)
	for i := range orig.Data {
		if diff := math.Abs(float64(orig.Data[i] - back.Data[i])); diff > float64(qt.Scales[0]) {
			t.Fatalf("value %d: error %v exceeds one step %v", i, diff, qt.Scales[0])
		}
	}
}

func TestQuantizeEmptyDataset(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(4))
	empty := func(yield func([]Tensor) bool) {}
	_, err := PostTrainingQuantize(testModel(rng), imxCaps(t), empty)
	if !errors.Is(err, ErrEmptyDataset) {
		t.Fatalf("got %v, want ErrEmptyDataset", err)
	}
}

func TestQuantizeInvalidModel(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(5))
	bad := &Model{Name: "bad", Ops: []Op{{
		Name:    "fc",
		Type:    "dense",
		Weights: map[string]Tensor{"kernel": {Shape: []int{4, 4}, Data: []float32{1}}},
	}}}
	_, err := PostTrainingQuantize(bad, imxCaps(t), singleBatch([]Tensor{randTensor(rng, 1, 4)}))
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestShouldQuantizeWeight(t *testing.T) {
	t.Parallel()

	big := Tensor{Shape: []int{32, 32}, Data: make([]float32, 1024)}
	tests := []struct {
		attr string
		t    Tensor
		want bool
	}{
		{"kernel", big, true},
		{"layernorm_weight", big, false},
		{"embedding", big, false},
		{"bias", Tensor{Shape: []int{64}, Data: make([]float32, 64)}, false},
		{"kernel", Tensor{Shape: []int{2, 2, 2}, Data: make([]float32, 8)}, false},
		{"kernel", Tensor{Shape: []int{4, 4}, Data: make([]float32, 16)}, false},
	}
	for _, tt := range tests {
		if got := ShouldQuantizeWeight(tt.attr, tt.t); got != tt.want {
			t.Fatalf("ShouldQuantizeWeight(%q, %v): got %v, want %v", tt.attr, tt.t.Shape, got, tt.want)
		}
	}
}

func TestCalibrateRestartable(t *testing.T) {
	t.Parallel()

	batch := []Tensor{{Shape: []int{4}, Data: []float32{-2, -1, 1, 3}}}
	repr := singleBatch(batch)

	for pass := 0; pass < 2; pass++ {
		min, max, err := Calibrate(repr)
		if err != nil {
			t.Fatalf("pass %d: %v", pass, err)
		}
		if min != -2 || max != 3 {
			t.Fatalf("pass %d: range got (%v, %v), want (-2, 3)", pass, min, max)
		}
	}
}
