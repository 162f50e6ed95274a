package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the mct configuration file (~/.config/mct/config.yaml).
type Config struct {
	DeviceType string `yaml:"device_type"`
	TPCVersion string `yaml:"tpc_version"`

	SaveDir      string `yaml:"save_dir"`
	ConverterBin string `yaml:"converter_bin"`
	JavaBin      string `yaml:"java_bin"`

	// Calibration defaults
	CalibrationIters *int64 `yaml:"calibration_iters"`
	Seed             *int64 `yaml:"seed"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string `yaml:"server_address"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "mct", "config.yaml")
}

// LoadConfig reads the config file. Returns a zero Config if the file
// doesn't exist or can't be parsed.
func LoadConfig() Config {
	path := configPath()
	if path == "" {
		return Config{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}

// applyTargetConfig applies config file defaults where the
// corresponding CLI flag was not explicitly set.
func applyTargetConfig(c *cli.Command, cfg Config) {
	if cfg.DeviceType != "" && !c.IsSet("device") {
		deviceType = cfg.DeviceType
	}
	if cfg.TPCVersion != "" && !c.IsSet("tpc-version") {
		tpcVersion = cfg.TPCVersion
	}
	if cfg.ConverterBin != "" && !c.IsSet("converter") {
		converterBin = cfg.ConverterBin
	}
	if cfg.JavaBin != "" && !c.IsSet("java") {
		javaBin = cfg.JavaBin
	}
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyServeConfig applies config file defaults for the serve command.
func applyServeConfig(c *cli.Command, cfg Config, addr *string) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
}
