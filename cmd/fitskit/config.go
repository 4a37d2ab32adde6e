package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	envConfig    = "FITSKIT_CONFIG"
	envReportDir = "FITSKIT_REPORT_DIR"
	envOutDir    = "FITSKIT_OUT_DIR"
)

// Config represents the fitskit configuration file (~/.config/fitskit/config.yaml).
// Pointer fields distinguish "not set" from zero values.
type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string `yaml:"server_address"`
	MaxBodyBytes  *int64 `yaml:"max_body_bytes"`

	// Storage
	ReportDir string `yaml:"report_dir"`

	// Checksum is the default for commands that write files.
	Checksum *bool `yaml:"checksum"`
}

func configPath() string {
	if p := os.Getenv(envConfig); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "fitskit", "config.yaml")
}

func applyLoggingConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyOutputConfig applies config defaults to the report store flags.
func applyOutputConfig(c *cli.Command, cfg Config) {
	if cfg.ReportDir != "" && !c.IsSet("report-dir") {
		reportDir = cfg.ReportDir
	}
}

func applyServeConfig(c *cli.Command, cfg Config, addr *string, maxBody *int64) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
	if cfg.MaxBodyBytes != nil && !c.IsSet("max-body") {
		*maxBody = *cfg.MaxBodyBytes
	}
	applyOutputConfig(c, cfg)
}

func applyChecksumConfig(c *cli.Command, cfg Config, checksum *bool) {
	if cfg.Checksum != nil && !c.IsSet("checksum") {
		*checksum = *cfg.Checksum
	}
}

// LoadConfig reads the config file. Returns a zero Config if the file doesn't
// exist or cannot be parsed.
func LoadConfig(path string) Config {
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
