package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/fitskit/internal/inspect"
	"github.com/samcharles93/fitskit/internal/logger"
	"github.com/samcharles93/fitskit/internal/reportstore"
	"github.com/samcharles93/fitskit/pkg/fits"
)

func verifyCmd() *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "Check structure and CHECKSUM/DATASUM of FITS files",
		ArgsUsage: "PATH...",
		Flags:     outputFlags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			applyOutputConfig(c, cfg)
			paths, err := resolveInputs(c.Args().Slice())
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			store, err := openStore(storeFlag)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if store != nil {
				defer func() { _ = store.Close() }()
			}

			failed, err := verifyFiles(ctx, os.Stdout, paths, jsonOutput, store)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if failed > 0 {
				return cli.Exit(fmt.Sprintf("%d of %d file(s) failed verification", failed, len(paths)), 1)
			}
			return nil
		},
	}
}

// verifyResult is one line of verify output. Report is nil when the file
// could not be decoded at all.
type verifyResult struct {
	Path   string          `json:"path"`
	OK     bool            `json:"ok"`
	Error  string          `json:"error,omitempty"`
	Report *inspect.Report `json:"report,omitempty"`
}

// verifyFiles verifies every path and returns how many failed. The returned
// error is reserved for output and store failures.
func verifyFiles(ctx context.Context, w io.Writer, paths []string, asJSON bool, store reportstore.Store) (int, error) {
	log := logger.FromContext(ctx)

	results := make([]verifyResult, 0, len(paths))
	failed := 0
	for _, p := range paths {
		res := verifyPath(p)
		if !res.OK {
			failed++
		}
		if res.Report != nil && store != nil {
			id, err := store.Put(ctx, res.Report)
			if err != nil {
				return failed, fmt.Errorf("save report: %w", err)
			}
			log.Debug("report saved", "id", id, "path", p)
		}
		if !asJSON {
			if err := writeVerifyLine(w, res); err != nil {
				return failed, err
			}
		}
		results = append(results, res)
	}
	log.Info("verification finished", "files", len(paths), "failed", failed)

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return failed, enc.Encode(results)
	}
	return failed, nil
}

func verifyPath(path string) verifyResult {
	f, err := fits.Open(path)
	if err != nil {
		return verifyResult{Path: path, Error: err.Error()}
	}
	defer func() { _ = f.Close() }()

	r := inspect.Summarize(f, path, true)
	return verifyResult{Path: path, OK: r.Valid(), Report: &r}
}

func writeVerifyLine(w io.Writer, res verifyResult) error {
	if res.OK {
		_, err := fmt.Fprintf(w, "OK   %s\n", res.Path)
		return err
	}
	if res.Report == nil {
		_, err := fmt.Fprintf(w, "FAIL %s: %s\n", res.Path, res.Error)
		return err
	}
	if _, err := fmt.Fprintf(w, "FAIL %s (%d issue(s))\n", res.Path, len(res.Report.Issues)); err != nil {
		return err
	}
	for _, is := range res.Report.Issues {
		if _, err := fmt.Fprintf(w, "     unit %d: %s: %s\n", is.Unit, is.Kind, is.Message); err != nil {
			return err
		}
	}
	return nil
}
