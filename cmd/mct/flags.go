package main

import "github.com/urfave/cli/v3"

var (
	deviceType   string
	tpcVersion   string
	converterBin string
	javaBin      string
	logLevel     string
	logFormat    string
)

func commonTargetFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "device",
			Aliases:     []string{"d"},
			Usage:       "target device type (imx500, qnnpack)",
			Value:       "imx500",
			Destination: &deviceType,
		},
		&cli.StringFlag{
			Name:        "tpc-version",
			Aliases:     []string{"tpc"},
			Usage:       "target platform capabilities version",
			Sources:     cli.EnvVars("TPC_VERSION"),
			Destination: &tpcVersion,
		},
	}
}

func commonConverterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "converter",
			Usage:       "converter binary",
			Destination: &converterBin,
		},
		&cli.StringFlag{
			Name:        "java",
			Usage:       "JVM binary probed during preflight",
			Destination: &javaBin,
		},
	}
}

func commonLogFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (text, json, pretty)",
			Value:       "pretty",
			Destination: &logFormat,
		},
	}
}
