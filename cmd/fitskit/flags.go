package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/fitskit/internal/logger"
)

var (
	configFile string
	logLevel   string
	logFormat  string
	debug      bool
	jsonOutput bool
	reportDir  string
	storeFlag  bool

	// cfg is loaded by the root Before hook.
	cfg Config
)

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml (default: $" + envConfig + " or the user config dir)",
			Destination: &configFile,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "write reports as JSON",
			Destination: &jsonOutput,
		},
		&cli.BoolFlag{
			Name:        "store",
			Usage:       "save reports in the report store",
			Destination: &storeFlag,
		},
		&cli.StringFlag{
			Name:        "report-dir",
			Usage:       "report store directory (pebble)",
			Sources:     cli.EnvVars(envReportDir),
			Destination: &reportDir,
		},
	}
}

// setupLogging loads the config file and installs the logger into the
// command context.
func setupLogging(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := configFile
	if path == "" {
		path = configPath()
	}
	cfg = LoadConfig(path)
	applyLoggingConfig(cmd, cfg)

	level := logLevel
	if debug {
		level = "debug"
	}
	log, err := logger.NewFormat(os.Stderr, logFormat, logger.ParseLevel(level))
	if err != nil {
		return ctx, cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}
	log.Debug("configuration loaded", "path", path)
	return logger.WithContext(ctx, log), nil
}
