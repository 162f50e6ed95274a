package main

import (
	"context"
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/kawakami-masaki0/mct-model-optimization/pkg/tpc"
	"github.com/kawakami-masaki0/mct-model-optimization/pkg/tpc/models"
)

func tpcCmd() *cli.Command {
	return &cli.Command{
		Name:  "tpc",
		Usage: "Inspect target platform capabilities",
		Commands: []*cli.Command{
			tpcListCmd(),
			tpcShowCmd(),
			tpcExportCmd(),
		},
	}
}

func tpcListCmd() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List registered device types and versions",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			reg := models.Registry()
			for _, device := range reg.Devices() {
				versions, err := reg.Versions(device)
				if err != nil {
					return err
				}
				latest, err := reg.LatestVersion(device)
				if err != nil {
					return err
				}
				for _, v := range versions {
					marker := ""
					if v == latest {
						marker = " (latest)"
					}
					fmt.Printf("%s %s%s\n", device, v, marker)
				}
			}
			return nil
		},
	}
}

func tpcShowCmd() *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Show a resolved capability descriptor",
		Flags: commonTargetFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyTargetConfig(cmd, LoadConfig())
			caps, err := resolveTarget()
			if err != nil {
				return err
			}
			fmt.Printf("device:   %s\n", caps.Device)
			fmt.Printf("version:  %s\n", caps.Version)
			fmt.Printf("schema:   %s\n", caps.Schema)
			fmt.Printf("default:  %d-bit %s activations\n", caps.Default.ActivationNBits, caps.Default.ActivationMethod)
			for _, set := range caps.OperatorSets {
				fmt.Printf("set %-16s ops=%v\n", set.Name, set.Operators)
			}
			for _, pattern := range caps.Fusing {
				fmt.Printf("fusing: %v\n", pattern)
			}
			return nil
		},
	}
}

func tpcExportCmd() *cli.Command {
	var outPath string

	return &cli.Command{
		Name:  "export",
		Usage: "Export a resolved capability descriptor as JSON",
		Flags: append(commonTargetFlags(),
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "output file (default stdout)",
				Destination: &outPath,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyTargetConfig(cmd, LoadConfig())
			caps, err := resolveTarget()
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(caps, "", "  ")
			if err != nil {
				return err
			}
			if outPath == "" {
				fmt.Println(string(data))
				return nil
			}
			return os.WriteFile(outPath, append(data, '\n'), 0o644)
		},
	}
}

// resolveTarget resolves the device/version flags against the shipped
// registry, defaulting to the device's latest version when no version
// was requested.
func resolveTarget() (*tpc.CapabilityDescriptor, error) {
	reg := models.Registry()
	device := tpc.DeviceType(deviceType)
	if tpcVersion == "" {
		return reg.Latest(device)
	}
	return reg.Resolve(device, tpcVersion)
}
