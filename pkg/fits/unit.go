package fits

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Unit is one header-and-data unit.
//
// For primary and image units the structural keywords come from BitPix and
// Axes, and Data holds the big-endian pixels. For binary tables they come
// from Table. Units of any other kind are written with their header as given
// and Data as the payload.
type Unit struct {
	Header *Header
	Kind   UnitKind
	BitPix int
	Axes   []int
	Data   []byte
	Table  *Table

	// raw is the unit exactly as read, header and padded payload.
	raw       []byte
	headerLen int
}

// NewPrimary returns a primary unit holding an image. An empty primary is
// NewPrimary(8, nil, nil).
func NewPrimary(bitpix int, axes []int, data []byte) *Unit {
	return &Unit{Header: NewHeader(), Kind: KindPrimary, BitPix: bitpix, Axes: axes, Data: data}
}

// NewImage returns an IMAGE extension.
func NewImage(bitpix int, axes []int, data []byte) *Unit {
	return &Unit{Header: NewHeader(), Kind: KindImage, BitPix: bitpix, Axes: axes, Data: data}
}

// NewBinTable returns a BINTABLE extension for t.
func NewBinTable(t *Table) *Unit {
	return &Unit{Header: NewHeader(), Kind: KindBinTable, BitPix: 8, Table: t}
}

// Name returns EXTNAME, if set.
func (u *Unit) Name() string {
	if u.Header == nil {
		return ""
	}
	s, _ := u.Header.String("EXTNAME")
	return strings.TrimSpace(s)
}

// Raw returns the unit bytes as read from the file, or nil for units built in
// memory.
func (u *Unit) Raw() []byte {
	return u.raw
}

// ImageForm returns the field form that decodes count pixels of bitpix.
func ImageForm(bitpix, count int) (TForm, error) {
	var code TypeCode
	switch bitpix {
	case 8:
		code = CodeByte
	case 16:
		code = CodeInt16
	case 32:
		code = CodeInt32
	case 64:
		code = CodeInt64
	case -32:
		code = CodeFloat32
	case -64:
		code = CodeFloat64
	default:
		return TForm{}, fmt.Errorf("%w: BITPIX %d", ErrUnknownTypeCode, bitpix)
	}
	return NewTForm(count, code), nil
}

// PixelCount returns the product of the axis lengths, or 0 with no axes.
func (u *Unit) PixelCount() int {
	if len(u.Axes) == 0 {
		return 0
	}
	n := 1
	for _, a := range u.Axes {
		n *= a
	}
	return n
}

// Pixels decodes the image payload. Raw values are returned as stored;
// BSCALE and BZERO are not applied.
func (u *Unit) Pixels() (FieldValue, error) {
	form, err := ImageForm(u.BitPix, u.PixelCount())
	if err != nil {
		return nil, err
	}
	v, complete := DecodeField(u.Data, form)
	if !complete {
		return v, &SizeError{What: "image", Declared: int64(form.ByteLength()), Actual: int64(len(u.Data))}
	}
	return v, nil
}

// DataSize returns the payload size declared by h, before padding:
// |BITPIX| * GCOUNT * (PCOUNT + NAXIS1 * ... * NAXISn) / 8. With GROUPS = T
// and NAXIS1 = 0 the first axis is left out of the product.
func DataSize(h *Header) (int, error) {
	bitpix := h.intOr("BITPIX", 0)
	switch bitpix {
	case 8, 16, 32, 64, -32, -64:
	default:
		return 0, fmt.Errorf("%w: BITPIX %d", ErrUnknownTypeCode, bitpix)
	}
	naxis := h.intOr("NAXIS", -1)
	if naxis < 0 || naxis > 999 {
		return 0, fmt.Errorf("%w: NAXIS %d", ErrSizeMismatch, naxis)
	}
	if naxis == 0 {
		return 0, nil
	}

	first := 1
	if groups, _ := h.Bool("GROUPS"); groups && h.intOr("NAXIS1", -1) == 0 {
		first = 2
	}
	product := int64(1)
	for i := first; i <= int(naxis); i++ {
		n := h.intOr("NAXIS"+strconv.Itoa(i), -1)
		if n < 0 {
			return 0, fmt.Errorf("%w: NAXIS%d missing or negative", ErrSizeMismatch, i)
		}
		if n != 0 && product > math.MaxInt64/n {
			return 0, fmt.Errorf("%w: axes overflow", ErrSizeMismatch)
		}
		product *= n
	}

	pcount := h.intOr("PCOUNT", 0)
	gcount := h.intOr("GCOUNT", 1)
	if pcount < 0 || gcount < 0 {
		return 0, fmt.Errorf("%w: PCOUNT %d GCOUNT %d", ErrSizeMismatch, pcount, gcount)
	}
	bytesPer := int64(abs(int(bitpix)) / 8)
	elems := pcount + product
	if elems < product || (gcount != 0 && elems > math.MaxInt64/gcount/bytesPer) {
		return 0, fmt.Errorf("%w: data size overflow", ErrSizeMismatch)
	}
	size, ok := checkedInt(bytesPer * gcount * elems)
	if !ok {
		return 0, fmt.Errorf("%w: data size too large", ErrSizeMismatch)
	}
	return size, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// EncodeOptions control unit serialisation.
type EncodeOptions struct {
	// Checksum stamps DATASUM and CHECKSUM so the unit sums to all ones.
	Checksum bool
	// Extend adds EXTEND = T to a primary header.
	Extend bool
}

// EncodeUnit serialises u as padded header bytes followed by the padded
// payload. u.Header is not modified: structural keywords are regenerated on
// a copy and every other card is kept in order.
func EncodeUnit(u *Unit, opts EncodeOptions) ([]byte, error) {
	if u == nil {
		return nil, fmt.Errorf("fits: nil unit")
	}
	src := u.Header
	if src == nil {
		src = NewHeader()
	}

	var (
		h       *Header
		payload []byte
		err     error
	)
	switch u.Kind {
	case KindPrimary, KindImage:
		h, payload, err = imageHeader(u, src, opts)
	case KindBinTable:
		h, payload, err = tableHeader(u, src)
	case KindOther:
		h, payload, err = verbatimHeader(u, src)
	default:
		return nil, fmt.Errorf("fits: unknown unit kind %d", u.Kind)
	}
	if err != nil {
		return nil, err
	}

	data := make([]byte, len(payload), PaddedSize(len(payload)))
	copy(data, payload)
	data = Pad(data, 0)

	if opts.Checksum {
		if err := stampChecksum(h, data); err != nil {
			return nil, err
		}
	} else {
		h.Delete(KeywordChecksum)
		h.Delete(KeywordDatasum)
	}

	hb, err := h.Encode()
	if err != nil {
		return nil, err
	}
	return append(hb, data...), nil
}

func imageHeader(u *Unit, src *Header, opts EncodeOptions) (*Header, []byte, error) {
	if _, err := ImageForm(u.BitPix, 0); err != nil {
		return nil, nil, err
	}
	want := abs(u.BitPix) / 8 * u.PixelCount()
	for i, a := range u.Axes {
		if a < 0 {
			return nil, nil, fmt.Errorf("%w: NAXIS%d = %d", ErrSizeMismatch, i+1, a)
		}
	}
	if want != len(u.Data) {
		return nil, nil, &SizeError{What: "image", Declared: int64(want), Actual: int64(len(u.Data))}
	}

	h := NewHeader()
	if u.Kind == KindPrimary {
		h.Set("SIMPLE", BoolValue(true), "conforms to FITS standard")
	} else {
		h.Set("XTENSION", StringValue("IMAGE"), "image extension")
	}
	h.Set("BITPIX", IntValue(u.BitPix), "bits per data value")
	h.Set("NAXIS", IntValue(len(u.Axes)), "number of data axes")
	for i, a := range u.Axes {
		h.Set("NAXIS"+strconv.Itoa(i+1), IntValue(a), "")
	}
	if u.Kind == KindPrimary {
		if opts.Extend {
			h.Set("EXTEND", BoolValue(true), "extensions may be present")
		}
	} else {
		h.Set("PCOUNT", IntValue(0), "")
		h.Set("GCOUNT", IntValue(1), "")
	}
	copyUserCards(h, src)
	return h, u.Data, nil
}

func tableHeader(u *Unit, src *Header) (*Header, []byte, error) {
	t := u.Table
	if t == nil {
		return nil, nil, fmt.Errorf("fits: binary table unit has no table")
	}
	rows, heap, forms, err := t.encode()
	if err != nil {
		return nil, nil, err
	}

	h := NewHeader()
	h.Set("XTENSION", StringValue("BINTABLE"), "binary table extension")
	h.Set("BITPIX", IntValue(8), "")
	h.Set("NAXIS", IntValue(2), "")
	h.Set("NAXIS1", IntValue(t.RowLength()), "bytes per row")
	h.Set("NAXIS2", IntValue(t.NumRows()), "number of rows")
	h.Set("PCOUNT", IntValue(heap.Len()), "heap size")
	h.Set("GCOUNT", IntValue(1), "")
	h.Set("TFIELDS", IntValue(t.NumCols()), "number of columns")
	for i, c := range t.Columns() {
		n := strconv.Itoa(i + 1)
		if c.Name != "" {
			h.Set("TTYPE"+n, StringValue(c.Name), "")
		}
		h.Set("TFORM"+n, StringValue(forms[i].String()), "")
		if c.Unit != "" {
			h.Set("TUNIT"+n, StringValue(c.Unit), "")
		}
		if c.Display != "" {
			h.Set("TDISP"+n, StringValue(c.Display), "")
		}
	}
	copyUserCards(h, src)
	return h, append(rows, heap.Bytes()...), nil
}

func verbatimHeader(u *Unit, src *Header) (*Header, []byte, error) {
	size, err := DataSize(src)
	if err != nil {
		return nil, nil, err
	}
	if size != len(u.Data) {
		return nil, nil, &SizeError{What: "unit data", Declared: int64(size), Actual: int64(len(u.Data))}
	}
	return src.Clone(), u.Data, nil
}

// copyUserCards appends every non-structural card of src to h.
func copyUserCards(h, src *Header) {
	for _, c := range src.Cards() {
		if isStructural(c.Keyword) {
			continue
		}
		h.Add(c)
	}
}

var structuralKeywords = map[string]bool{
	"SIMPLE": true, "XTENSION": true, "BITPIX": true, "NAXIS": true,
	"EXTEND": true, "PCOUNT": true, "GCOUNT": true, "GROUPS": true,
	"TFIELDS": true, "THEAP": true, "END": true,
	KeywordChecksum: true, KeywordDatasum: true,
}

var indexedKeywords = []string{"NAXIS", "TFORM", "TTYPE", "TUNIT", "TDISP"}

func isStructural(k string) bool {
	if structuralKeywords[k] {
		return true
	}
	for _, p := range indexedKeywords {
		if rest, ok := strings.CutPrefix(k, p); ok && rest != "" && isDigits(rest) {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// stampChecksum sets DATASUM from the padded payload and then CHECKSUM so
// that the encoded header plus payload sums to ChecksumValid.
func stampChecksum(h *Header, data []byte) error {
	dsum := Accumulate(data, 0)
	h.Set(KeywordDatasum, StringValue(FormatDatasum(dsum)), "data unit checksum")
	h.Set(KeywordChecksum, StringValue(zeroChecksum), "HDU checksum")

	hb, err := h.Encode()
	if err != nil {
		return err
	}
	total := AddSums(Accumulate(hb, 0), dsum)
	h.Set(KeywordChecksum, StringValue(EncodeChecksum(total)), "")
	return nil
}
