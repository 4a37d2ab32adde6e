package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/fitskit/internal/fitsstore"
	"github.com/samcharles93/fitskit/pkg/fits"
)

func dumpCmd() *cli.Command {
	var (
		unit   string
		column string
		limit  int
	)

	return &cli.Command{
		Name:      "dump",
		Usage:     "Print physical values of an image or a table column",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "unit", Usage: "unit to read (index, EXTNAME or PRIMARY)", Destination: &unit},
			&cli.StringFlag{Name: "column", Usage: "table column to read", Destination: &column},
			&cli.IntFlag{Name: "limit", Usage: "limit rows or pixels (0 = no limit)", Value: 100, Destination: &limit},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() != 1 {
				return cli.Exit("error: dump takes exactly one FILE", 1)
			}
			if err := dumpFile(os.Stdout, c.Args().First(), unit, column, limit); err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			return nil
		},
	}
}

// selectUnit resolves a unit selector against an open file.
func selectUnit(f *fits.File, name string) (*fits.Unit, error) {
	u, _, err := fitsstore.FromFile(f).Unit(name)
	return u, err
}

func dumpFile(w io.Writer, path, unit, column string, limit int) error {
	f, err := fitsstore.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	bw := bufio.NewWriter(w)
	if column != "" {
		err = dumpColumn(bw, f, unit, column, limit)
	} else {
		err = dumpImage(bw, f, unit, limit)
	}
	if err != nil {
		return err
	}
	return bw.Flush()
}

func dumpColumn(w io.Writer, f *fitsstore.File, unit, column string, limit int) error {
	if unit == "" {
		unit = "1"
	}
	rows, info, err := f.ReadColumnFloat64(unit, column)
	if err != nil {
		return err
	}
	label := info.Name
	if info.Unit != "" {
		label += " [" + info.Unit + "]"
	}
	_, _ = fmt.Fprintf(w, "# %s %s rows=%d\n", label, info.Form, info.Rows)
	for i, row := range rows {
		if limit > 0 && i >= limit {
			_, _ = fmt.Fprintf(w, "# ... %d more rows\n", len(rows)-limit)
			break
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\n", i, formatFloats(row))
	}
	return nil
}

func dumpImage(w io.Writer, f *fitsstore.File, unit string, limit int) error {
	vals, axes, err := f.ReadImageFloat64(unit)
	if err != nil {
		if errors.Is(err, fitsstore.ErrUnitNotFound) && unit == "" {
			return fmt.Errorf("%w (use --unit and --column for tables)", err)
		}
		return err
	}
	dims := make([]string, len(axes))
	for i, n := range axes {
		dims[i] = strconv.Itoa(n)
	}
	_, _ = fmt.Fprintf(w, "# image axes=[%s] pixels=%d\n", strings.Join(dims, " "), len(vals))
	for i, v := range vals {
		if limit > 0 && i >= limit {
			_, _ = fmt.Fprintf(w, "# ... %d more pixels\n", len(vals)-limit)
			break
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\n", i, strconv.FormatFloat(v, 'g', -1, 64))
	}
	return nil
}

func formatFloats(vals []float64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, " ")
}
