package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/kawakami-masaki0/mct-model-optimization/internal/converter"
	"github.com/kawakami-masaki0/mct-model-optimization/internal/logger"
)

func checkEnvCmd() *cli.Command {
	return &cli.Command{
		Name:  "check-env",
		Usage: "Verify the conversion environment (converter binary and JVM)",
		Flags: append(commonConverterFlags(), commonLogFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := LoadConfig()
			applyTargetConfig(cmd, cfg)
			log := logger.Setup(os.Stderr, logLevel, logFormat)

			r := &converter.Runner{
				Bin:     converterBin,
				JavaBin: javaBin,
				Log:     log,
			}
			if err := r.CheckEnvironment(ctx); err != nil {
				return err
			}
			fmt.Println("environment ok")
			return nil
		},
	}
}
