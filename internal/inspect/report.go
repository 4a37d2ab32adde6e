// Package inspect builds serialisable summaries of decoded FITS files.
package inspect

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/samcharles93/fitskit/pkg/fits"
)

// Report describes a file and, when verified, every issue found in it.
type Report struct {
	ID        string         `json:"id,omitempty"`
	Path      string         `json:"path"`
	Name      string         `json:"name"`
	Size      int64          `json:"size"`
	Units     []UnitSummary  `json:"units"`
	Issues    []IssueSummary `json:"issues"`
	Verified  bool           `json:"verified"`
	CreatedAt time.Time      `json:"created_at"`
}

// Valid reports whether the report carries no issues.
func (r Report) Valid() bool {
	return len(r.Issues) == 0
}

type UnitSummary struct {
	Index       int             `json:"index"`
	Kind        string          `json:"kind"`
	Name        string          `json:"name,omitempty"`
	BitPix      int             `json:"bitpix"`
	Axes        []int           `json:"axes,omitempty"`
	Cards       int             `json:"cards"`
	HeaderBytes int             `json:"header_bytes"`
	DataBytes   int             `json:"data_bytes"`
	Rows        int             `json:"rows,omitempty"`
	RowLength   int             `json:"row_length,omitempty"`
	HeapBytes   int             `json:"heap_bytes,omitempty"`
	Columns     []ColumnSummary `json:"columns,omitempty"`
	Checksum    string          `json:"checksum,omitempty"`
	Datasum     string          `json:"datasum,omitempty"`
}

type ColumnSummary struct {
	Index    int    `json:"index"`
	Name     string `json:"name,omitempty"`
	Form     string `json:"form"`
	Unit     string `json:"unit,omitempty"`
	Display  string `json:"display,omitempty"`
	Width    int    `json:"width"`
	Variable bool   `json:"variable,omitempty"`
}

type IssueSummary struct {
	Unit    int    `json:"unit"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Summarize describes f. With verify set the checksum keywords are checked
// as well; otherwise only decode issues are reported.
func Summarize(f *fits.File, path string, verify bool) Report {
	r := Report{
		Path:      path,
		Name:      filepath.Base(path),
		Size:      int64(f.Size()),
		Units:     make([]UnitSummary, 0, len(f.Units)),
		Verified:  verify,
		CreatedAt: time.Now().UTC(),
	}
	for i, u := range f.Units {
		r.Units = append(r.Units, summarizeUnit(i, u))
	}

	issues := f.Issues
	if verify {
		issues = f.Verify()
	}
	r.Issues = make([]IssueSummary, 0, len(issues))
	for _, is := range issues {
		r.Issues = append(r.Issues, IssueSummary{
			Unit:    is.Unit,
			Kind:    is.Kind.String(),
			Message: is.Err.Error(),
		})
	}
	return r
}

func summarizeUnit(index int, u *fits.Unit) UnitSummary {
	s := UnitSummary{
		Index:       index,
		Kind:        u.Kind.String(),
		Name:        u.Name(),
		BitPix:      u.BitPix,
		Axes:        u.Axes,
		Cards:       u.Header.Len(),
		HeaderBytes: fits.PaddedSize((u.Header.Len() + 1) * fits.CardSize),
	}
	if n, err := fits.DataSize(u.Header); err == nil {
		s.DataBytes = n
	}
	s.Checksum, _ = u.Header.String(fits.KeywordChecksum)
	s.Datasum, _ = u.Header.String(fits.KeywordDatasum)

	if u.Table == nil {
		return s
	}
	s.Rows = u.Table.NumRows()
	s.RowLength = u.Table.RowLength()
	if pc, ok := u.Header.Int("PCOUNT"); ok {
		s.HeapBytes = int(pc)
	}
	for n, c := range u.Table.Columns() {
		s.Columns = append(s.Columns, ColumnSummary{
			Index:    n + 1,
			Name:     c.Name,
			Form:     c.Form.String(),
			Unit:     c.Unit,
			Display:  c.Display,
			Width:    c.Form.ByteLength(),
			Variable: c.Form.IsVariable(),
		})
	}
	return s
}

// IssueCounts tallies issues by kind name.
func (r Report) IssueCounts() map[string]int {
	out := make(map[string]int, len(r.Issues))
	for _, is := range r.Issues {
		out[is.Kind]++
	}
	return out
}

// ErrInvalid is returned by Check for a report with issues.
var ErrInvalid = errors.New("inspect: file has issues")

// Check returns ErrInvalid wrapped with the issue count when r is not valid.
func (r Report) Check() error {
	if r.Valid() {
		return nil
	}
	return fmt.Errorf("%w: %d issue(s)", ErrInvalid, len(r.Issues))
}
