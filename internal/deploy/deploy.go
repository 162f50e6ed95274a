// Package deploy runs the end-to-end deployment pipeline: resolve
// target capabilities, quantize, export, and hand off to the external
// converter.
package deploy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/kawakami-masaki0/mct-model-optimization/internal/converter"
	"github.com/kawakami-masaki0/mct-model-optimization/internal/dataset"
	"github.com/kawakami-masaki0/mct-model-optimization/internal/logger"
	"github.com/kawakami-masaki0/mct-model-optimization/pkg/qmf"
	"github.com/kawakami-masaki0/mct-model-optimization/pkg/quant"
	"github.com/kawakami-masaki0/mct-model-optimization/pkg/tpc"
)

// ModelFileName is the exported container name inside the save folder.
const ModelFileName = "qmodel.qmf"

// Options configures one pipeline run.
type Options struct {
	Registry *tpc.Registry
	Device   tpc.DeviceType
	Version  string

	// SaveDir receives the exported container and converter output.
	// Created if missing.
	SaveDir string

	// Overwrite passes the converter's overwrite-output flag.
	Overwrite bool

	// KeepArtifacts leaves the save folder in place after the run.
	KeepArtifacts bool

	// SkipConvert stops after export, for hosts without the converter.
	SkipConvert bool

	Converter *converter.Runner
	Log       logger.Logger
}

// Result reports a completed run.
type Result struct {
	RunID        string
	Capabilities *tpc.CapabilityDescriptor
	ModelPath    string
	ArtifactPath string
}

// Run executes the pipeline. Any stage error aborts the run and
// propagates unchanged; there is no partial success.
func Run(ctx context.Context, model *quant.Model, repr dataset.Generator, opts Options) (*Result, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("deploy: nil registry")
	}
	log := opts.Log
	if log == nil {
		log = logger.FromContext(ctx)
	}
	runner := opts.Converter
	if runner == nil {
		runner = &converter.Runner{Log: log}
	}

	runID := uuid.NewString()
	log = log.With("run_id", runID, "device", string(opts.Device), "tpc_version", opts.Version)

	caps, err := opts.Registry.Resolve(opts.Device, opts.Version)
	if err != nil {
		return nil, err
	}
	log.Info("resolved target platform capabilities", "schema", caps.Schema)

	qm, err := quant.PostTrainingQuantize(model, caps, repr)
	if err != nil {
		return nil, err
	}
	log.Info("quantized model", "ops", len(qm.Ops))

	if err := os.MkdirAll(opts.SaveDir, 0o755); err != nil {
		return nil, err
	}
	modelPath := filepath.Join(opts.SaveDir, ModelFileName)
	if err := qmf.Write(modelPath, qm); err != nil {
		return nil, err
	}
	log.Info("exported model", "path", modelPath)

	res := &Result{RunID: runID, Capabilities: caps, ModelPath: modelPath}
	if opts.SkipConvert {
		return res, nil
	}

	if err := runner.CheckEnvironment(ctx); err != nil {
		return nil, err
	}
	artifact, err := runner.Convert(ctx, modelPath, opts.SaveDir, opts.Overwrite)
	if err != nil {
		return nil, err
	}
	log.Info("converter finished", "artifact", artifact)
	res.ArtifactPath = artifact

	if !opts.KeepArtifacts {
		if err := os.RemoveAll(opts.SaveDir); err != nil {
			return nil, err
		}
		log.Debug("removed save folder", "path", opts.SaveDir)
	}
	return res, nil
}
