package fits

import (
	"fmt"
	"strconv"
)

// Column is one field of a binary table. Columns are numbered from 1 in
// table order, which is also their order within a row.
type Column struct {
	Name    string // TTYPEn
	Unit    string // TUNITn
	Display string // TDISPn
	Form    TForm

	values []FieldValue
}

// NewColumn returns an empty column.
func NewColumn(name string, form TForm) *Column {
	return &Column{Name: name, Form: form}
}

// Len returns the number of stored values.
func (c *Column) Len() int {
	return len(c.values)
}

// Value returns the value at row (0 based), or nil when out of range.
func (c *Column) Value(row int) FieldValue {
	if row < 0 || row >= len(c.values) {
		return nil
	}
	return c.values[row]
}

// Values returns the stored values. The slice must not be modified.
func (c *Column) Values() []FieldValue {
	return c.values
}

// Table is a binary table: a set of columns sharing a row count. The table
// owns its columns; the heap is rebuilt from the column values whenever the
// table is encoded.
type Table struct {
	cols []*Column
	rows int
}

// NewTable returns an empty table over cols. Columns that already hold values
// must all hold the same number of them, and every value must match its form.
func NewTable(cols ...*Column) (*Table, error) {
	t := &Table{cols: cols}
	for i, c := range cols {
		if c == nil {
			return nil, fmt.Errorf("fits: column %d is nil", i+1)
		}
		if !c.Form.Valid() {
			return nil, fmt.Errorf("%w: column %d form %s", ErrUnknownTypeCode, i+1, c.Form)
		}
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, fmt.Errorf("%w: column %d has %d values, want %d", ErrSizeMismatch, i+1, c.Len(), t.rows)
		}
		for _, v := range c.values {
			if err := checkFits(i+1, c.Form, v); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}

// NumRows returns the row count.
func (t *Table) NumRows() int {
	return t.rows
}

// NumCols returns the column count.
func (t *Table) NumCols() int {
	return len(t.cols)
}

// Columns returns the columns in order. The slice must not be modified.
func (t *Table) Columns() []*Column {
	return t.cols
}

// Column returns column n (1 based), or nil when out of range.
func (t *Table) Column(n int) *Column {
	if n < 1 || n > len(t.cols) {
		return nil
	}
	return t.cols[n-1]
}

// ColumnByName returns the first column named name and its 1-based number.
func (t *Table) ColumnByName(name string) (*Column, int) {
	for i, c := range t.cols {
		if c.Name == name {
			return c, i + 1
		}
	}
	return nil, 0
}

// RowLength returns the byte width of one row.
func (t *Table) RowLength() int {
	n := 0
	for _, c := range t.cols {
		n += c.Form.ByteLength()
	}
	return n
}

// AppendRow adds one row. Either every value is accepted or the table is
// left unchanged.
func (t *Table) AppendRow(values ...FieldValue) error {
	if len(values) != len(t.cols) {
		return fmt.Errorf("%w: row has %d fields, table has %d columns", ErrSizeMismatch, len(values), len(t.cols))
	}
	for i, v := range values {
		if err := checkFits(i+1, t.cols[i].Form, v); err != nil {
			return err
		}
	}
	for i, v := range values {
		t.cols[i].values = append(t.cols[i].values, v)
	}
	t.rows++
	return nil
}

// Row returns a view of row i (0 based). The view reads and writes the
// columns directly.
func (t *Table) Row(i int) Row {
	return Row{t: t, i: i}
}

// Row is a view across all columns at one row index.
type Row struct {
	t *Table
	i int
}

// Index returns the 0-based row index.
func (r Row) Index() int {
	return r.i
}

// Valid reports whether the row exists.
func (r Row) Valid() bool {
	return r.t != nil && r.i >= 0 && r.i < r.t.rows
}

// Get returns field n (1 based), or nil when out of range.
func (r Row) Get(n int) FieldValue {
	if !r.Valid() {
		return nil
	}
	c := r.t.Column(n)
	if c == nil {
		return nil
	}
	return c.Value(r.i)
}

// Set replaces field n (1 based). A value whose variant does not match the
// column's form is rejected with a *TypeMismatchError and nothing changes.
func (r Row) Set(n int, v FieldValue) error {
	if !r.Valid() {
		return fmt.Errorf("fits: row %d out of range", r.i)
	}
	c := r.t.Column(n)
	if c == nil {
		return fmt.Errorf("fits: column %d out of range", n)
	}
	if err := checkFits(n, c.Form, v); err != nil {
		return err
	}
	c.values[r.i] = v
	return nil
}

func checkFits(n int, form TForm, v FieldValue) error {
	if !Matches(form, v) {
		return &TypeMismatchError{Column: n, Form: form, Got: codeOf(v)}
	}
	if !form.IsVariable() && v.Len() > form.Repeat {
		return &SizeError{
			What:     "column " + strconv.Itoa(n) + " (" + form.String() + ")",
			Declared: int64(form.Repeat),
			Actual:   int64(v.Len()),
		}
	}
	return nil
}

// encode lays out all rows followed by a freshly built heap. Heap payloads
// are appended in row-major, column order. It returns the forms that were
// written, with each "(max)" suffix raised to cover the longest array.
func (t *Table) encode() ([]byte, *Heap, []TForm, error) {
	forms := make([]TForm, len(t.cols))
	for i, c := range t.cols {
		forms[i] = c.Form
		if c.Form.IsVariable() && c.Form.HasMax {
			for _, v := range c.values {
				forms[i].Max = max(forms[i].Max, v.Len())
			}
		}
	}

	rowLen := t.RowLength()
	rows := make([]byte, rowLen*t.rows)
	heap := NewHeap()
	for r := 0; r < t.rows; r++ {
		off := r * rowLen
		for i, c := range t.cols {
			width := c.Form.ByteLength()
			if err := heap.writeFieldInto(rows[off:off+width], c.values[r], c.Form); err != nil {
				return nil, nil, nil, fmt.Errorf("row %d column %d: %w", r+1, i+1, err)
			}
			off += width
		}
	}
	return rows, heap, forms, nil
}

// tableLayout is the structural description of a binary table read from its
// header.
type tableLayout struct {
	rowLen    int
	rows      int
	pcount    int
	heapStart int
	cols      []*Column
}

func readTableLayout(h *Header) (tableLayout, []error) {
	var l tableLayout
	var errs []error

	naxis1, ok1 := checkedInt(h.intOr("NAXIS1", -1))
	naxis2, ok2 := checkedInt(h.intOr("NAXIS2", -1))
	pcount, ok3 := checkedInt(h.intOr("PCOUNT", 0))
	tfields, ok4 := checkedInt(h.intOr("TFIELDS", -1))
	if !ok1 || !ok2 || !ok3 || !ok4 || tfields > 999 {
		return l, append(errs, fmt.Errorf("%w: invalid NAXIS1/NAXIS2/PCOUNT/TFIELDS", ErrSizeMismatch))
	}
	if naxis2 > 0 && int64(naxis1) > (maxDataSize-int64(pcount))/int64(naxis2) {
		return l, append(errs, fmt.Errorf("%w: NAXIS1 * NAXIS2 + PCOUNT too large", ErrSizeMismatch))
	}
	l.rowLen, l.rows, l.pcount = naxis1, naxis2, pcount
	l.heapStart = naxis1 * naxis2
	if theap, ok := h.Int("THEAP"); ok {
		if v, ok := checkedInt(theap); ok {
			l.heapStart = v
		}
	}

	width := 0
	for n := 1; n <= tfields; n++ {
		key := strconv.Itoa(n)
		text, _ := h.String("TFORM" + key)
		form, ok := ParseTForm(text)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: TFORM%s = %q", ErrUnknownTypeCode, key, text))
			continue
		}
		c := NewColumn("", form)
		c.Name, _ = h.String("TTYPE" + key)
		c.Unit, _ = h.String("TUNIT" + key)
		c.Display, _ = h.String("TDISP" + key)
		l.cols = append(l.cols, c)
		width += form.ByteLength()
	}
	if len(errs) == 0 && width != naxis1 {
		errs = append(errs, &SizeError{What: "table row", Declared: int64(naxis1), Actual: int64(width)})
	}
	return l, errs
}

// maxZeroWidthRows caps the rows materialised for a table whose rows occupy
// no bytes, since the payload does not bound them.
const maxZeroWidthRows = 1 << 16

// decodeTable materialises a binary table from its header and payload.
// Rows missing from a truncated payload are dropped and descriptors that
// point outside the heap decode as empty values; both are reported in the
// returned errors. A nil table means the layout itself could not be read.
func decodeTable(h *Header, data []byte) (*Table, []error) {
	l, errs := readTableLayout(h)
	if len(errs) > 0 {
		return nil, errs
	}

	rows := l.rows
	if l.rowLen > 0 && len(data) < l.rowLen*l.rows {
		rows = len(data) / l.rowLen
		errs = append(errs, &SizeError{What: "table rows", Declared: int64(l.rowLen * l.rows), Actual: int64(len(data))})
	}
	if l.rowLen == 0 && len(l.cols) > 0 && rows > maxZeroWidthRows {
		errs = append(errs, &SizeError{What: "zero-width table rows", Declared: int64(rows), Actual: maxZeroWidthRows})
		rows = maxZeroWidthRows
	}

	heapEnd := min(len(data), l.rowLen*l.rows+l.pcount)
	var heap *Heap
	if l.heapStart <= heapEnd {
		heap = NewHeapFrom(data[l.heapStart:heapEnd])
	} else {
		heap = NewHeap()
	}

	for _, c := range l.cols {
		c.values = make([]FieldValue, 0, rows)
	}
	for r := 0; r < rows; r++ {
		off := r * l.rowLen
		for i, c := range l.cols {
			width := c.Form.ByteLength()
			v, err := heap.ReadField(data[off:off+width], c.Form)
			if err != nil {
				errs = append(errs, fmt.Errorf("row %d column %d: %w", r+1, i+1, err))
			}
			c.values = append(c.values, cloneField(v))
			off += width
		}
	}
	return &Table{cols: l.cols, rows: rows}, errs
}

// cloneField detaches values that may alias the decoded buffer.
func cloneField(v FieldValue) FieldValue {
	switch v := v.(type) {
	case Bytes:
		return append(Bytes(nil), v...)
	case Chars:
		return append(Chars(nil), v...)
	default:
		return v
	}
}
