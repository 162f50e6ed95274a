package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/kawakami-masaki0/mct-model-optimization/internal/converter"
	"github.com/kawakami-masaki0/mct-model-optimization/internal/dataset"
	"github.com/kawakami-masaki0/mct-model-optimization/internal/deploy"
	"github.com/kawakami-masaki0/mct-model-optimization/internal/logger"
	"github.com/kawakami-masaki0/mct-model-optimization/pkg/quant"
	"github.com/kawakami-masaki0/mct-model-optimization/pkg/tpc"
	"github.com/kawakami-masaki0/mct-model-optimization/pkg/tpc/models"
)

func deployCmd() *cli.Command {
	var (
		modelPath     string
		saveDir       string
		inputShapes   string
		calibIters    int64
		seed          int64
		overwrite     bool
		keepArtifacts bool
		skipConvert   bool
	)

	return &cli.Command{
		Name:  "deploy",
		Usage: "Quantize a float model, export it, and run the device converter",
		Flags: append(append(append([]cli.Flag{
			&cli.StringFlag{
				Name:        "model",
				Aliases:     []string{"m"},
				Usage:       "path to float model JSON",
				Required:    true,
				Destination: &modelPath,
			},
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "save folder for exported model and converter output",
				Value:       "./deploy-out",
				Destination: &saveDir,
			},
			&cli.StringFlag{
				Name:        "input-shapes",
				Usage:       "comma-separated input shapes, eg 1x3x224x224,1x10",
				Value:       "1x3x224x224",
				Destination: &inputShapes,
			},
			&cli.Int64Flag{
				Name:        "calibration-iters",
				Usage:       "representative dataset iterations",
				Value:       1,
				Destination: &calibIters,
			},
			&cli.Int64Flag{
				Name:        "seed",
				Usage:       "representative dataset seed",
				Value:       0,
				Destination: &seed,
			},
			&cli.BoolFlag{
				Name:        "overwrite",
				Usage:       "pass the converter's overwrite-output flag",
				Value:       true,
				Destination: &overwrite,
			},
			&cli.BoolFlag{
				Name:        "keep",
				Usage:       "keep the save folder after the run",
				Destination: &keepArtifacts,
			},
			&cli.BoolFlag{
				Name:        "skip-convert",
				Usage:       "stop after export (no converter required)",
				Destination: &skipConvert,
			},
		}, commonTargetFlags()...), commonConverterFlags()...), commonLogFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := LoadConfig()
			applyTargetConfig(cmd, cfg)
			if cfg.SaveDir != "" && !cmd.IsSet("out") {
				saveDir = cfg.SaveDir
			}
			if cfg.CalibrationIters != nil && !cmd.IsSet("calibration-iters") {
				calibIters = *cfg.CalibrationIters
			}
			if cfg.Seed != nil && !cmd.IsSet("seed") {
				seed = *cfg.Seed
			}

			log := logger.Setup(os.Stderr, logLevel, logFormat)
			ctx = logger.WithContext(ctx, log)

			if tpcVersion == "" {
				v, err := models.Registry().LatestVersion(tpc.DeviceType(deviceType))
				if err != nil {
					return err
				}
				tpcVersion = v
			}

			model, err := quant.LoadModel(modelPath)
			if err != nil {
				return err
			}
			shapes, err := parseShapes(inputShapes)
			if err != nil {
				return err
			}

			res, err := deploy.Run(ctx, model, dataset.Random(shapes, int(calibIters), seed), deploy.Options{
				Registry:      models.Registry(),
				Device:        tpc.DeviceType(deviceType),
				Version:       tpcVersion,
				SaveDir:       saveDir,
				Overwrite:     overwrite,
				KeepArtifacts: keepArtifacts,
				SkipConvert:   skipConvert,
				Converter:     &converter.Runner{Bin: converterBin, JavaBin: javaBin, Log: log},
				Log:           log,
			})
			if err != nil {
				return err
			}

			fmt.Printf("run:      %s\n", res.RunID)
			fmt.Printf("exported: %s\n", res.ModelPath)
			if res.ArtifactPath != "" {
				fmt.Printf("artifact: %s\n", res.ArtifactPath)
			}
			return nil
		},
	}
}

// parseShapes parses "1x3x224x224,1x10" into input shapes.
func parseShapes(s string) ([][]int, error) {
	var shapes [][]int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var shape []int
		for _, dim := range strings.Split(part, "x") {
			n, err := strconv.Atoi(dim)
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("invalid input shape %q", part)
			}
			shape = append(shape, n)
		}
		shapes = append(shapes, shape)
	}
	if len(shapes) == 0 {
		return nil, fmt.Errorf("no input shapes given")
	}
	return shapes, nil
}
