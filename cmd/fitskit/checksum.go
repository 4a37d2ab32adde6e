package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/fitskit/internal/logger"
	"github.com/samcharles93/fitskit/pkg/fits"
)

func checksumCmd() *cli.Command {
	return &cli.Command{
		Name:  "checksum",
		Usage: "Compute, encode and stamp FITS checksums",
		Commands: []*cli.Command{
			stampCmd(),
			{
				Name:      "encode",
				Usage:     "Encode a 32-bit sum as CHECKSUM text",
				ArgsUsage: "SUM",
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.Args().Len() != 1 {
						return cli.Exit("error: encode takes exactly one SUM", 1)
					}
					if err := encodeChecksum(os.Stdout, c.Args().First()); err != nil {
						return cli.Exit(fmt.Sprintf("error: %v", err), 1)
					}
					return nil
				},
			},
			{
				Name:      "decode",
				Usage:     "Decode 16-character CHECKSUM text into its sum",
				ArgsUsage: "TEXT",
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.Args().Len() != 1 {
						return cli.Exit("error: decode takes exactly one TEXT", 1)
					}
					if err := decodeChecksum(os.Stdout, c.Args().First()); err != nil {
						return cli.Exit(fmt.Sprintf("error: %v", err), 1)
					}
					return nil
				},
			},
			{
				Name:      "sum",
				Usage:     "Print the ones'-complement sum of a file, zero-padded to whole blocks",
				ArgsUsage: "FILE",
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.Args().Len() != 1 {
						return cli.Exit("error: sum takes exactly one FILE", 1)
					}
					if err := sumFile(os.Stdout, c.Args().First()); err != nil {
						return cli.Exit(fmt.Sprintf("error: %v", err), 1)
					}
					return nil
				},
			},
		},
	}
}

func stampCmd() *cli.Command {
	var outPath string

	return &cli.Command{
		Name:      "stamp",
		Usage:     "Rewrite a file with CHECKSUM and DATASUM in every unit",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "output path (default: $" + envOutDir + "/<name> or in place)",
				Destination: &outPath,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() != 1 {
				return cli.Exit("error: stamp takes exactly one FILE", 1)
			}
			if err := stampFile(ctx, c.Args().First(), outPath); err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			return nil
		},
	}
}

// stampFile re-encodes in with checksums. Files that decoded with issues are
// refused so damaged bytes are never sealed with a valid checksum.
func stampFile(ctx context.Context, in, outFlag string) error {
	log := logger.FromContext(ctx)

	out, inPlace, err := resolveOut(in, outFlag)
	if err != nil {
		return err
	}
	f, err := fits.Open(in)
	if err != nil {
		return fmt.Errorf("open %s: %w", in, err)
	}
	defer func() { _ = f.Close() }()

	if len(f.Issues) > 0 {
		return fmt.Errorf("%s has %d decode issue(s), first: %v", in, len(f.Issues), f.Issues[0])
	}
	if err := fits.WriteFile(out, f.Units, true); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	log.Info("stamped checksums", "input", in, "output", out, "in_place", inPlace, "units", len(f.Units))
	return nil
}

func encodeChecksum(w io.Writer, arg string) error {
	sum, err := strconv.ParseUint(strings.TrimSpace(arg), 10, 32)
	if err != nil {
		return fmt.Errorf("invalid sum %q: %w", arg, err)
	}
	_, err = fmt.Fprintln(w, fits.EncodeChecksum(uint32(sum)))
	return err
}

func decodeChecksum(w io.Writer, text string) error {
	sum, err := fits.DecodeChecksum(text)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, sum)
	return err
}

func sumFile(w io.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	sum := fits.Accumulate(fits.Pad(data, 0), 0)
	_, err = fmt.Fprintf(w, "sum:   %d\ntext:  %s\nbytes: %d\n", sum, fits.EncodeChecksum(sum), len(data))
	return err
}
