package deploy

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/kawakami-masaki0/mct-model-optimization/internal/converter"
	"github.com/kawakami-masaki0/mct-model-optimization/internal/dataset"
	"github.com/kawakami-masaki0/mct-model-optimization/pkg/qmf"
	"github.com/kawakami-masaki0/mct-model-optimization/pkg/quant"
	"github.com/kawakami-masaki0/mct-model-optimization/pkg/tpc"
	"github.com/kawakami-masaki0/mct-model-optimization/pkg/tpc/models"
)

func floatModel(t *testing.T) *quant.Model {
	t.Helper()
	rng := rand.New(rand.NewSource(9))
	kernel := quant.Tensor{Shape: []int{8, 64}}
	kernel.Data = make([]float32, kernel.Elems())
	for i := range kernel.Data {
		kernel.Data[i] = float32(rng.NormFloat64())
	}
	return &quant.Model{
		Name: "net",
		Ops: []quant.Op{
			{Name: "fc", Type: "dense", Weights: map[string]quant.Tensor{"kernel": kernel}},
			{Name: "act", Type: "relu"},
		},
	}
}

func fakeConverter(t *testing.T, dir string) *converter.Runner {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs require a POSIX shell")
	}
	script := `#!/bin/sh
if [ "$1" = "--version" ] || [ "$1" = "-version" ]; then exit 0; fi
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "-o" ]; then out="$2"; shift; fi
  shift
done
touch "$out/qmodel.pbtxt"
`
	bin := filepath.Join(dir, "fakeconv")
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return &converter.Runner{Bin: bin, JavaBin: bin}
}

func TestRunEndToEnd(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	saveDir := filepath.Join(dir, "out")
	res, err := Run(context.Background(), floatModel(t), dataset.Random([][]int{{1, 8}}, 2, 1), Options{
		Registry:      models.Registry(),
		Device:        tpc.DeviceIMX500,
		Version:       "1.0",
		SaveDir:       saveDir,
		Overwrite:     true,
		KeepArtifacts: true,
		Converter:     fakeConverter(t, dir),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.RunID == "" {
		t.Fatal("missing run id")
	}
	if res.Capabilities.Device != tpc.DeviceIMX500 || res.Capabilities.Version != "1.0" {
		t.Fatalf("capabilities: %s/%s", res.Capabilities.Device, res.Capabilities.Version)
	}
	if _, err := os.Stat(res.ArtifactPath); err != nil {
		t.Fatalf("artifact missing: %v", err)
	}

	qm, err := qmf.Read(res.ModelPath)
	if err != nil {
		t.Fatalf("read exported model: %v", err)
	}
	if qm.Capabilities.Version != "1.0" {
		t.Fatalf("exported capabilities version: %q", qm.Capabilities.Version)
	}
}

func TestRunCleansSaveFolder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	saveDir := filepath.Join(dir, "out")
	_, err := Run(context.Background(), floatModel(t), dataset.Random([][]int{{1, 8}}, 1, 1), Options{
		Registry:  models.Registry(),
		Device:    tpc.DeviceIMX500,
		Version:   "1.0",
		SaveDir:   saveDir,
		Overwrite: true,
		Converter: fakeConverter(t, dir),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(saveDir); !os.IsNotExist(err) {
		t.Fatalf("save folder should be removed, stat err: %v", err)
	}
}

func TestRunSkipConvert(t *testing.T) {
	t.Parallel()

	saveDir := filepath.Join(t.TempDir(), "out")
	res, err := Run(context.Background(), floatModel(t), dataset.Random([][]int{{1, 8}}, 1, 1), Options{
		Registry:    models.Registry(),
		Device:      tpc.DeviceIMX500,
		Version:     "1.0",
		SaveDir:     saveDir,
		SkipConvert: true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ArtifactPath != "" {
		t.Fatalf("no artifact expected, got %q", res.ArtifactPath)
	}
	if _, err := os.Stat(res.ModelPath); err != nil {
		t.Fatalf("exported model missing: %v", err)
	}
}

func TestRunUnknownTarget(t *testing.T) {
	t.Parallel()

	opts := Options{
		Registry:    models.Registry(),
		Device:      "deviceB",
		Version:     "1.0",
		SaveDir:     filepath.Join(t.TempDir(), "out"),
		SkipConvert: true,
	}
	_, err := Run(context.Background(), floatModel(t), dataset.Random([][]int{{1, 8}}, 1, 1), opts)
	if !errors.Is(err, tpc.ErrUnknownDeviceType) {
		t.Fatalf("got %v, want ErrUnknownDeviceType", err)
	}

	opts.Device = tpc.DeviceIMX500
	opts.Version = "42.0"
	_, err = Run(context.Background(), floatModel(t), dataset.Random([][]int{{1, 8}}, 1, 1), opts)
	if !errors.Is(err, tpc.ErrUnknownVersion) {
		t.Fatalf("got %v, want ErrUnknownVersion", err)
	}
}

func TestRunBrokenEnvironment(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := Run(context.Background(), floatModel(t), dataset.Random([][]int{{1, 8}}, 1, 1), Options{
		Registry: models.Registry(),
		Device:   tpc.DeviceIMX500,
		Version:  "1.0",
		SaveDir:  filepath.Join(dir, "out"),
		Converter: &converter.Runner{
			Bin:     filepath.Join(dir, "missing-converter"),
			JavaBin: filepath.Join(dir, "missing-java"),
		},
	})
	if !errors.Is(err, converter.ErrEnvironmentUnavailable) {
		t.Fatalf("got %v, want ErrEnvironmentUnavailable", err)
	}
}
