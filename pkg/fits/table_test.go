package fits

import (
	"errors"
	"reflect"
	"testing"
)

func newEventTable(t *testing.T) *Table {
	t.Helper()

	tbl, err := NewTable(
		NewColumn("TIME", NewTForm(1, CodeFloat64)),
		NewColumn("FLAGS", NewTForm(3, CodeLogical)),
		NewColumn("NAME", NewTForm(8, CodeChar)),
		NewColumn("SPEC", VarTForm(CodeVarArray32, CodeFloat32, 0)),
		NewColumn("IDS", VarTForm(CodeVarArray64, CodeInt32, -1)),
	)
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	tbl.Column(1).Unit = "s"

	rows := [][]FieldValue{
		{Float64s{0.5}, Logicals{LogicalTrue, LogicalFalse, LogicalNull}, Chars("alpha"), Float32s{1, 2, 3}, Int32s{10}},
		{Float64s{1.5}, Logicals{LogicalFalse, LogicalFalse, LogicalTrue}, Chars("beta"), Float32s{}, Int32s{20, 30}},
	}
	for i, r := range rows {
		if err := tbl.AppendRow(r...); err != nil {
			t.Fatalf("append row %d: %v", i, err)
		}
	}
	return tbl
}

func TestTableAppendRowTypeMismatch(t *testing.T) {
	t.Parallel()

	tbl := newEventTable(t)
	err := tbl.AppendRow(Float64s{2}, Logicals{}, Chars("x"), Int16s{1}, Int32s{})
	var tm *TypeMismatchError
	if !errors.As(err, &tm) {
		t.Fatalf("expected TypeMismatchError, got %v", err)
	}
	if tm.Column != 4 {
		t.Fatalf("mismatch reported for column %d, want 4", tm.Column)
	}
	if tbl.NumRows() != 2 {
		t.Fatalf("rejected row changed the table: %d rows", tbl.NumRows())
	}
	for _, c := range tbl.Columns() {
		if c.Len() != 2 {
			t.Fatalf("column %s has %d values", c.Name, c.Len())
		}
	}

	if err := tbl.AppendRow(Float64s{1}); !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("short row: %v", err)
	}
	if err := tbl.AppendRow(Float64s{1, 2}, Logicals{}, Chars(""), Float32s{}, Int32s{}); !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("oversized fixed value: %v", err)
	}
}

func TestRowGetSet(t *testing.T) {
	t.Parallel()

	tbl := newEventTable(t)
	row := tbl.Row(1)
	if !row.Valid() || row.Index() != 1 {
		t.Fatalf("row view invalid")
	}
	if got := row.Get(5); !reflect.DeepEqual(got, Int32s{20, 30}) {
		t.Fatalf("row 1 IDS = %v", got)
	}
	if err := row.Set(1, Float64s{9}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := tbl.Column(1).Value(1); !reflect.DeepEqual(got, Float64s{9}) {
		t.Fatalf("set not visible through column: %v", got)
	}
	if err := row.Set(1, Int64s{9}); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected type mismatch, got %v", err)
	}
	if tbl.Row(5).Valid() || tbl.Row(5).Get(1) != nil {
		t.Fatalf("out of range row should be invalid")
	}
	if c, n := tbl.ColumnByName("SPEC"); c == nil || n != 4 {
		t.Fatalf("ColumnByName = %v, %d", c, n)
	}
}

func TestTableEncodeHeapLayout(t *testing.T) {
	t.Parallel()

	tbl := newEventTable(t)
	rows, heap, forms, err := tbl.encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if tbl.RowLength() != 8+3+8+8+16 {
		t.Fatalf("row length = %d", tbl.RowLength())
	}
	if len(rows) != 2*tbl.RowLength() {
		t.Fatalf("rows = %d bytes", len(rows))
	}
	if heap.Len() != 12+4+0+8 {
		t.Fatalf("heap = %d bytes", heap.Len())
	}
	if forms[3].String() != "1PE(3)" {
		t.Fatalf("SPEC form = %s, want 1PE(3)", forms[3])
	}

	// Row 2 IDS is the last heap payload, after 12+4+0 bytes.
	off := tbl.RowLength() + 8 + 3 + 8 + 8
	d, _ := DecodeDescriptor(rows[off:], CodeVarArray64)
	if d != (VarDescriptor{Count: 2, Offset: 16}) {
		t.Fatalf("row 2 IDS descriptor = %+v", d)
	}
}

func TestBinTableRoundTrip(t *testing.T) {
	t.Parallel()

	tbl := newEventTable(t)
	ext := NewBinTable(tbl)
	ext.Header.Set("EXTNAME", StringValue("EVENTS"), "")
	ext.Header.Set("TFORM9", StringValue("stale"), "")

	b, err := Encode([]*Unit{NewPrimary(8, nil, nil), ext}, true)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(b)%BlockSize != 0 {
		t.Fatalf("file is %d bytes", len(b))
	}

	f, err := Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if issues := f.Verify(); len(issues) != 0 {
		t.Fatalf("issues: %v", issues)
	}
	if len(f.Units) != 2 {
		t.Fatalf("units = %d", len(f.Units))
	}
	if ext, _ := f.Primary().Header.Bool("EXTEND"); !ext {
		t.Fatalf("primary lacks EXTEND")
	}

	u, idx := f.Unit("EVENTS")
	if u == nil || idx != 1 || u.Kind != KindBinTable {
		t.Fatalf("EVENTS unit = %v at %d", u, idx)
	}
	if u.Header.Has("TFORM9") {
		t.Fatalf("stale structural keyword survived")
	}
	if pc, _ := u.Header.Int("PCOUNT"); pc != 24 {
		t.Fatalf("PCOUNT = %d, want 24", pc)
	}

	got := u.Table
	if got.NumRows() != 2 || got.NumCols() != 5 {
		t.Fatalf("decoded %dx%d table", got.NumRows(), got.NumCols())
	}
	if got.Column(1).Unit != "s" || got.Column(4).Form.String() != "1PE(3)" {
		t.Fatalf("column metadata lost: %+v %+v", got.Column(1), got.Column(4).Form)
	}
	for c := 1; c <= 5; c++ {
		for r := 0; r < 2; r++ {
			want := tbl.Row(r).Get(c)
			have := got.Row(r).Get(c)
			if ch, ok := want.(Chars); ok {
				if have.(Chars).String() != ch.String() {
					t.Fatalf("row %d column %d: %q want %q", r, c, have, want)
				}
				continue
			}
			if !reflect.DeepEqual(have, want) {
				t.Fatalf("row %d column %d: %#v want %#v", r, c, have, want)
			}
		}
	}
}

func TestDecodeTableBadDescriptor(t *testing.T) {
	t.Parallel()

	tbl, err := NewTable(NewColumn("V", VarTForm(CodeVarArray32, CodeInt16, -1)))
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	if err := tbl.AppendRow(Int16s{1, 2}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := tbl.AppendRow(Int16s{3}); err != nil {
		t.Fatalf("append: %v", err)
	}
	b, err := Encode([]*Unit{NewPrimary(8, nil, nil), NewBinTable(tbl)}, false)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	// Point the second descriptor past the 6-byte heap.
	dataStart := 2 * BlockSize
	if err := EncodeDescriptor(b[dataStart+8:], VarDescriptor{Count: 4, Offset: 2}, CodeVarArray32); err != nil {
		t.Fatalf("patch: %v", err)
	}

	f, err := Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(f.Issues) != 1 || f.Issues[0].Kind != IssueHeapBounds || f.Issues[0].Unit != 1 {
		t.Fatalf("issues = %v", f.Issues)
	}
	got := f.Units[1].Table
	if !reflect.DeepEqual(got.Row(0).Get(1), Int16s{1, 2}) {
		t.Fatalf("row 0 = %v", got.Row(0).Get(1))
	}
	if v := got.Row(1).Get(1); v == nil || v.Len() != 0 {
		t.Fatalf("row 1 should be empty, got %v", v)
	}
}

func TestDecodeTableUnknownTypeCode(t *testing.T) {
	t.Parallel()

	h := NewHeader(
		NewCard("XTENSION", StringValue("BINTABLE"), ""),
		NewCard("NAXIS1", IntValue(4), ""),
		NewCard("NAXIS2", IntValue(1), ""),
		NewCard("TFIELDS", IntValue(1), ""),
		NewCard("TFORM1", StringValue("4Z"), ""),
	)
	tbl, errs := decodeTable(h, make([]byte, 4))
	if tbl != nil {
		t.Fatalf("table decoded despite bad TFORM")
	}
	if len(errs) != 1 || !errors.Is(errs[0], ErrUnknownTypeCode) {
		t.Fatalf("errors = %v", errs)
	}
}

func TestDecodeTableTHEAP(t *testing.T) {
	t.Parallel()

	// One row holding a P descriptor, a 4-byte gap, then the heap.
	data := make([]byte, 8+4+2)
	if err := EncodeDescriptor(data, VarDescriptor{Count: 2, Offset: 0}, CodeVarArray32); err != nil {
		t.Fatalf("descriptor: %v", err)
	}
	data[12], data[13] = 'o', 'k'
	h := NewHeader(
		NewCard("NAXIS1", IntValue(8), ""),
		NewCard("NAXIS2", IntValue(1), ""),
		NewCard("PCOUNT", IntValue(6), ""),
		NewCard("THEAP", IntValue(12), ""),
		NewCard("TFIELDS", IntValue(1), ""),
		NewCard("TFORM1", StringValue("1PA"), ""),
	)
	tbl, errs := decodeTable(h, data)
	if len(errs) != 0 {
		t.Fatalf("errors: %v", errs)
	}
	if s := tbl.Row(0).Get(1).(Chars).String(); s != "ok" {
		t.Fatalf("value = %q", s)
	}
}

func TestDecodeOversizedRepeat(t *testing.T) {
	t.Parallel()

	primary, err := NewHeader(
		NewCard("SIMPLE", BoolValue(true), ""),
		NewCard("BITPIX", IntValue(8), ""),
		NewCard("NAXIS", IntValue(0), ""),
		NewCard("EXTEND", BoolValue(true), ""),
	).Encode()
	if err != nil {
		t.Fatalf("primary: %v", err)
	}
	// 2^61 doubles wrap to a zero byte length in int arithmetic.
	ext, err := NewHeader(
		NewCard("XTENSION", StringValue("BINTABLE"), ""),
		NewCard("BITPIX", IntValue(8), ""),
		NewCard("NAXIS", IntValue(2), ""),
		NewCard("NAXIS1", IntValue(0), ""),
		NewCard("NAXIS2", IntValue(1), ""),
		NewCard("PCOUNT", IntValue(0), ""),
		NewCard("GCOUNT", IntValue(1), ""),
		NewCard("TFIELDS", IntValue(1), ""),
		NewCard("TFORM1", StringValue("2305843009213693952D"), ""),
	).Encode()
	if err != nil {
		t.Fatalf("extension: %v", err)
	}

	f, err := Decode(append(primary, ext...))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(f.Units) != 2 {
		t.Fatalf("units = %d, want 2", len(f.Units))
	}
	found := false
	for _, is := range f.Issues {
		if errors.Is(is.Err, ErrUnknownTypeCode) {
			found = true
		}
	}
	if !found {
		t.Fatalf("issues = %v, want an unknown type code", f.Issues)
	}
}

func TestDecodeTableRejectsOverflowingLayout(t *testing.T) {
	t.Parallel()

	h := NewHeader(
		NewCard("NAXIS1", IntValue(maxDataSize), ""),
		NewCard("NAXIS2", IntValue(2), ""),
		NewCard("TFIELDS", IntValue(1), ""),
		NewCard("TFORM1", StringValue("1B"), ""),
	)
	tbl, errs := decodeTable(h, nil)
	if tbl != nil {
		t.Fatalf("table decoded despite overflowing NAXIS1 * NAXIS2")
	}
	if len(errs) != 1 || !errors.Is(errs[0], ErrSizeMismatch) {
		t.Fatalf("errors = %v", errs)
	}
}

func TestDecodeTableZeroWidthRows(t *testing.T) {
	t.Parallel()

	h := NewHeader(
		NewCard("NAXIS1", IntValue(0), ""),
		NewCard("NAXIS2", IntValue(1<<40), ""),
		NewCard("TFIELDS", IntValue(1), ""),
		NewCard("TFORM1", StringValue("0J"), ""),
	)
	tbl, errs := decodeTable(h, nil)
	if tbl == nil {
		t.Fatalf("zero-width table not decoded: %v", errs)
	}
	if tbl.NumRows() != maxZeroWidthRows {
		t.Fatalf("rows = %d, want %d", tbl.NumRows(), maxZeroWidthRows)
	}
	var se *SizeError
	if len(errs) != 1 || !errors.As(errs[0], &se) {
		t.Fatalf("errors = %v", errs)
	}
}

func TestNewTableRejectsInvalidForms(t *testing.T) {
	t.Parallel()

	for _, form := range []TForm{
		NewTForm(2, CodeVarArray32),
		{Repeat: 2, Code: CodeVarArray64, Elem: CodeFloat32},
		NewTForm(-1, CodeInt16),
		NewTForm(1<<61, CodeFloat64),
	} {
		if _, err := NewTable(NewColumn("X", form)); !errors.Is(err, ErrUnknownTypeCode) {
			t.Fatalf("NewTable(%+v) error = %v", form, err)
		}
	}
}
