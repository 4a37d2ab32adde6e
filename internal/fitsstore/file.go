package fitsstore

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/samcharles93/fitskit/pkg/fits"
)

var (
	ErrUnitNotFound   = errors.New("fitsstore: unit not found")
	ErrColumnNotFound = errors.New("fitsstore: column not found")
	ErrNotNumeric     = errors.New("fitsstore: column is not numeric")
)

// File is a read-only view of a decoded FITS file with name-based lookups
// and physical-value conversion.
type File struct {
	file *fits.File
}

// ColumnInfo describes one table column.
type ColumnInfo struct {
	Name  string
	Unit  string
	Form  fits.TForm
	Rows  int
	Scale float64
	Zero  float64
}

func Open(path string) (*File, error) {
	ff, err := fits.Open(path)
	if err != nil {
		return nil, err
	}
	return &File{file: ff}, nil
}

// FromFile wraps an already decoded file. Close releases it.
func FromFile(ff *fits.File) *File {
	return &File{file: ff}
}

func (f *File) Close() error {
	if f == nil || f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}

// FITS returns the underlying decoded file.
func (f *File) FITS() *fits.File {
	if f == nil {
		return nil
	}
	return f.file
}

// Unit resolves name to a unit. An empty name, or "PRIMARY", selects the
// primary unit; a decimal name selects by index; anything else matches EXTNAME.
func (f *File) Unit(name string) (*fits.Unit, int, error) {
	if f == nil || f.file == nil {
		return nil, -1, ErrUnitNotFound
	}
	units := f.file.Units
	if name == "" || name == "PRIMARY" {
		if len(units) == 0 {
			return nil, -1, ErrUnitNotFound
		}
		return units[0], 0, nil
	}
	if i, err := strconv.Atoi(name); err == nil {
		if i < 0 || i >= len(units) {
			return nil, -1, fmt.Errorf("%w: index %d", ErrUnitNotFound, i)
		}
		return units[i], i, nil
	}
	u, i := f.file.Unit(name)
	if u == nil {
		return nil, -1, fmt.Errorf("%w: %q", ErrUnitNotFound, name)
	}
	return u, i, nil
}

// Table returns the decoded binary table of the named unit.
func (f *File) Table(name string) (*fits.Table, *fits.Unit, error) {
	u, _, err := f.Unit(name)
	if err != nil {
		return nil, nil, err
	}
	if u.Kind != fits.KindBinTable || u.Table == nil {
		return nil, nil, fmt.Errorf("%w: %q is not a binary table", ErrUnitNotFound, name)
	}
	return u.Table, u, nil
}

// Column returns metadata for a column in the named table.
func (f *File) Column(table, column string) (ColumnInfo, error) {
	t, u, err := f.Table(table)
	if err != nil {
		return ColumnInfo{}, err
	}
	c, n := t.ColumnByName(column)
	if c == nil {
		return ColumnInfo{}, fmt.Errorf("%w: %s.%s", ErrColumnNotFound, table, column)
	}
	info := ColumnInfo{
		Name:  c.Name,
		Unit:  c.Unit,
		Form:  c.Form,
		Rows:  t.NumRows(),
		Scale: 1,
	}
	key := strconv.Itoa(n)
	if v, ok := u.Header.Float("TSCAL" + key); ok {
		info.Scale = v
	}
	if v, ok := u.Header.Float("TZERO" + key); ok {
		info.Zero = v
	}
	return info, nil
}

// ReadColumnFloat64 returns every row of a numeric column as physical values
// (stored * TSCALn + TZEROn). Variable-length columns yield one slice per row
// with that row's length.
func (f *File) ReadColumnFloat64(table, column string) ([][]float64, ColumnInfo, error) {
	info, err := f.Column(table, column)
	if err != nil {
		return nil, ColumnInfo{}, err
	}
	t, _, _ := f.Table(table)
	c, _ := t.ColumnByName(column)

	out := make([][]float64, c.Len())
	for r, v := range c.Values() {
		vals, ok := toFloat64(v)
		if !ok {
			return nil, ColumnInfo{}, fmt.Errorf("%w: %s.%s (%s)", ErrNotNumeric, table, column, info.Form)
		}
		for i := range vals {
			vals[i] = vals[i]*info.Scale + info.Zero
		}
		out[r] = vals
	}
	return out, info, nil
}

// ReadImageFloat64 returns the pixels of an image unit as physical values
// (stored * BSCALE + BZERO) along with the axis lengths.
func (f *File) ReadImageFloat64(name string) ([]float64, []int, error) {
	u, _, err := f.Unit(name)
	if err != nil {
		return nil, nil, err
	}
	if u.Kind != fits.KindPrimary && u.Kind != fits.KindImage {
		return nil, nil, fmt.Errorf("%w: %q is not an image", ErrUnitNotFound, name)
	}
	pix, err := u.Pixels()
	if err != nil {
		return nil, nil, fmt.Errorf("image %q: %w", name, err)
	}
	vals, ok := toFloat64(pix)
	if !ok {
		return nil, nil, fmt.Errorf("%w: image %q", ErrNotNumeric, name)
	}
	scale := 1.0
	if v, ok := u.Header.Float("BSCALE"); ok {
		scale = v
	}
	zero, _ := u.Header.Float("BZERO")
	for i := range vals {
		vals[i] = vals[i]*scale + zero
	}
	return vals, u.Axes, nil
}

func toFloat64(v fits.FieldValue) ([]float64, bool) {
	switch v := v.(type) {
	case fits.Bytes:
		return convert(v), true
	case fits.Int16s:
		return convert(v), true
	case fits.Int32s:
		return convert(v), true
	case fits.Int64s:
		return convert(v), true
	case fits.Float32s:
		return convert(v), true
	case fits.Float64s:
		return convert(v), true
	default:
		return nil, false
	}
}

func convert[T uint8 | int16 | int32 | int64 | float32 | float64](in []T) []float64 {
	out := make([]float64, len(in))
	for i, x := range in {
		out[i] = float64(x)
	}
	return out
}
