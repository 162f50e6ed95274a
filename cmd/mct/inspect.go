package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/kawakami-masaki0/mct-model-optimization/pkg/qmf"
)

func inspectCmd() *cli.Command {
	var (
		modelPath    string
		showSections bool
		showTensors  bool
	)

	return &cli.Command{
		Name:  "inspect",
		Usage: "Inspect the contents of a .qmf model container",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "model",
				Aliases:     []string{"m"},
				Usage:       "path to .qmf file",
				Required:    true,
				Destination: &modelPath,
			},
			&cli.BoolFlag{Name: "sections", Usage: "show section directory", Destination: &showSections},
			&cli.BoolFlag{Name: "tensors", Usage: "list quantized tensors", Destination: &showTensors},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			f, err := qmf.Open(modelPath)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			fmt.Printf("format:   QMF v%d.%d\n", f.Header.Major, f.Header.Minor)
			fmt.Printf("size:     %d bytes\n", f.Header.FileSize)
			fmt.Printf("sections: %d\n", f.Header.SectionCount)

			if showSections {
				for _, s := range f.Sections {
					fmt.Printf("  section 0x%04x v%d offset=%d size=%d\n",
						uint32(s.Type), s.Version, s.Offset, s.Size)
				}
			}

			qm, err := qmf.Read(modelPath)
			if err != nil {
				return err
			}
			fmt.Printf("model:    %s\n", qm.Name)
			fmt.Printf("target:   %s %s\n", qm.Capabilities.Device, qm.Capabilities.Version)
			fmt.Printf("ops:      %d\n", len(qm.Ops))

			if showTensors {
				for _, op := range qm.Ops {
					for attr, qt := range op.Weights {
						fmt.Printf("  %s/%s shape=%v n_bits=%d per_channel=%v payload=%dB\n",
							op.Name, attr, qt.Shape, qt.NBits, qt.PerChannel, len(qt.Data))
					}
				}
			}
			return nil
		},
	}
}
