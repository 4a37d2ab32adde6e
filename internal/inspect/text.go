package inspect

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"

	"github.com/samcharles93/fitskit/pkg/fits"
)

// printer writes formatted lines and keeps the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) section(title string) {
	line := strings.Repeat("-", len(title)+8)
	p.printf("\n%s\n--- %s ---\n%s\n", line, title, line)
}

func (p *printer) row(label, value string) {
	if value == "" {
		return
	}
	p.printf("%-24s %s\n", label+":", value)
}

func (p *printer) rowInt(label string, v int) {
	if v == 0 {
		return
	}
	p.row(label, fmt.Sprintf("%d", v))
}

// WriteText renders r for a terminal.
func WriteText(w io.Writer, r Report) error {
	p := &printer{w: w}
	p.printf("FITS Inspect: %s\n", r.Path)
	p.printf("File: %s (%s, %d units)\n", r.Name, FormatBytes(uint64(r.Size)), len(r.Units))

	for _, u := range r.Units {
		title := fmt.Sprintf("Unit %d: %s", u.Index, u.Kind)
		if u.Name != "" {
			title += " " + u.Name
		}
		p.section(title)
		p.row("BITPIX", fmt.Sprintf("%d", u.BitPix))
		p.row("Axes", formatAxes(u.Axes))
		p.rowInt("Cards", u.Cards)
		p.row("Header", FormatBytes(uint64(u.HeaderBytes)))
		p.row("Data", FormatBytes(uint64(u.DataBytes)))
		p.rowInt("Rows", u.Rows)
		p.rowInt("Row length", u.RowLength)
		p.rowInt("Heap bytes", u.HeapBytes)
		p.row("CHECKSUM", u.Checksum)
		p.row("DATASUM", u.Datasum)
		if len(u.Columns) > 0 {
			p.printf("\n  %3s  %-16s %-12s %6s  %s\n", "#", "NAME", "FORM", "WIDTH", "UNIT")
			for _, c := range u.Columns {
				p.printf("  %3d  %-16s %-12s %6d  %s\n", c.Index, c.Name, c.Form, c.Width, c.Unit)
			}
		}
	}

	if r.Verified || len(r.Issues) > 0 {
		p.section("Issues")
		if len(r.Issues) == 0 {
			p.printf("none\n")
		}
		for _, is := range r.Issues {
			p.printf("unit %d  %-18s %s\n", is.Unit, is.Kind, is.Message)
		}
	}
	return p.err
}

// WriteJSON writes r as indented JSON.
func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteHeader prints the cards of u as they appear in the file, one per line
// with trailing blanks trimmed.
func WriteHeader(w io.Writer, u *fits.Unit) error {
	p := &printer{w: w}
	for _, c := range u.Header.Cards() {
		b, err := fits.EncodeCard(c)
		if err != nil {
			return fmt.Errorf("card %s: %w", c.Keyword, err)
		}
		p.printf("%s\n", strings.TrimRight(string(b), " "))
	}
	p.printf("END\n")
	return p.err
}

func formatAxes(axes []int) string {
	if len(axes) == 0 {
		return ""
	}
	parts := make([]string, len(axes))
	for i, v := range axes {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// FormatBytes renders a byte count with a binary unit suffix.
func FormatBytes(b uint64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
		tb = 1024 * gb
	)
	switch {
	case b >= tb:
		return fmt.Sprintf("%.2f TiB", float64(b)/float64(tb))
	case b >= gb:
		return fmt.Sprintf("%.2f GiB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.2f MiB", float64(b)/float64(mb))
	case b >= kb:
		return fmt.Sprintf("%.2f KiB", float64(b)/float64(kb))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
