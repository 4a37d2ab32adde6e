package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/fitskit/internal/inspect"
	"github.com/samcharles93/fitskit/internal/logger"
	"github.com/samcharles93/fitskit/internal/reportstore"
	"github.com/samcharles93/fitskit/pkg/fits"
)

func inspectCmd() *cli.Command {
	var (
		verify     bool
		headerUnit string
	)

	return &cli.Command{
		Name:      "inspect",
		Usage:     "Summarise the units of one or more FITS files",
		ArgsUsage: "FILE...",
		Flags: append(outputFlags(),
			&cli.BoolFlag{Name: "verify", Usage: "check CHECKSUM/DATASUM keywords", Destination: &verify},
			&cli.StringFlag{Name: "header", Usage: "print the header cards of one unit (index, EXTNAME or PRIMARY)", Destination: &headerUnit},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			applyOutputConfig(c, cfg)
			paths, err := resolveInputs(c.Args().Slice())
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			if c.IsSet("header") {
				for _, p := range paths {
					if err := printHeader(os.Stdout, p, headerUnit); err != nil {
						return cli.Exit(fmt.Sprintf("error: %v", err), 1)
					}
				}
				return nil
			}

			store, err := openStore(storeFlag)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if store != nil {
				defer func() { _ = store.Close() }()
			}

			for i, p := range paths {
				if i > 0 && !jsonOutput {
					fmt.Println()
				}
				if err := inspectFile(ctx, os.Stdout, p, verify, jsonOutput, store); err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
			}
			return nil
		},
	}
}

// openStore opens the report store when enabled. A store is only useful from
// the CLI when it persists, so a report directory is required.
func openStore(enabled bool) (reportstore.Store, error) {
	if !enabled {
		return nil, nil
	}
	if reportDir == "" {
		return nil, errors.New("--store requires --report-dir or $" + envReportDir)
	}
	return reportstore.Open(reportDir)
}

// inspectFile summarises path and writes the report to w. The report is saved
// when store is non-nil.
func inspectFile(ctx context.Context, w io.Writer, path string, verify, asJSON bool, store reportstore.Store) error {
	log := logger.FromContext(ctx)

	f, err := fits.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	r := inspect.Summarize(f, path, verify)
	log.Debug("inspected file", "path", path, "units", len(r.Units), "issues", len(r.Issues))
	if store != nil {
		id, err := store.Put(ctx, &r)
		if err != nil {
			return fmt.Errorf("save report: %w", err)
		}
		log.Info("report saved", "id", id, "path", path)
	}

	if asJSON {
		return inspect.WriteJSON(w, r)
	}
	return inspect.WriteText(w, r)
}

func printHeader(w io.Writer, path, unit string) error {
	f, err := fits.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	u, err := selectUnit(f, unit)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return inspect.WriteHeader(w, u)
}
