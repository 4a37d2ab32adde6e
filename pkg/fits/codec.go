package fits

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DecodeElements decodes count elements of code from big-endian bytes.
//
// If b is shorter than the payload, the whole elements that are present are
// decoded and complete is false. Bytes beyond the payload are ignored.
func DecodeElements(b []byte, code TypeCode, count int) (v FieldValue, complete bool) {
	if count < 0 {
		count = 0
	}
	// n never exceeds the whole elements present in b.
	avail := 0
	if code == CodeBit {
		avail = len(b) * 8
	} else if w := ElementWidth(code); w > 0 {
		avail = len(b) / w
	}
	n := min(count, avail)
	complete = n == count
	b = b[:PayloadLength(code, n)]

	switch code {
	case CodeLogical:
		out := make(Logicals, n)
		for i := range out {
			switch b[i] {
			case 'T':
				out[i] = LogicalTrue
			case 'F':
				out[i] = LogicalFalse
			default:
				out[i] = LogicalNull
			}
		}
		return out, complete
	case CodeBit:
		out := make(Bits, n)
		for i := range out {
			out[i] = b[i/8]&(0x80>>(i%8)) != 0
		}
		return out, complete
	case CodeByte:
		out := make(Bytes, n)
		copy(out, b)
		return out, complete
	case CodeInt16:
		out := make(Int16s, n)
		for i := range out {
			out[i] = int16(binary.BigEndian.Uint16(b[i*2:]))
		}
		return out, complete
	case CodeInt32:
		out := make(Int32s, n)
		for i := range out {
			out[i] = int32(binary.BigEndian.Uint32(b[i*4:]))
		}
		return out, complete
	case CodeInt64:
		out := make(Int64s, n)
		for i := range out {
			out[i] = int64(binary.BigEndian.Uint64(b[i*8:]))
		}
		return out, complete
	case CodeChar:
		out := make(Chars, n)
		copy(out, b)
		return out, complete
	case CodeFloat32:
		out := make(Float32s, n)
		for i := range out {
			out[i] = math.Float32frombits(binary.BigEndian.Uint32(b[i*4:]))
		}
		return out, complete
	case CodeFloat64:
		out := make(Float64s, n)
		for i := range out {
			out[i] = math.Float64frombits(binary.BigEndian.Uint64(b[i*8:]))
		}
		return out, complete
	case CodeComplex64:
		out := make(Complex64s, n)
		for i := range out {
			re := math.Float32frombits(binary.BigEndian.Uint32(b[i*8:]))
			im := math.Float32frombits(binary.BigEndian.Uint32(b[i*8+4:]))
			out[i] = complex(re, im)
		}
		return out, complete
	case CodeComplex128:
		out := make(Complex128s, n)
		for i := range out {
			re := math.Float64frombits(binary.BigEndian.Uint64(b[i*16:]))
			im := math.Float64frombits(binary.BigEndian.Uint64(b[i*16+8:]))
			out[i] = complex(re, im)
		}
		return out, complete
	default:
		return nil, false
	}
}

// EncodeElements returns the big-endian payload of v, sized from v itself.
func EncodeElements(v FieldValue) []byte {
	if v == nil {
		return nil
	}
	out := make([]byte, PayloadLength(v.Code(), v.Len()))
	putElements(out, v)
	return out
}

// putElements writes v into dst, which must hold at least
// PayloadLength(v.Code(), v.Len()) bytes.
func putElements(dst []byte, v FieldValue) {
	switch v := v.(type) {
	case Logicals:
		for i, l := range v {
			switch l {
			case LogicalTrue:
				dst[i] = 'T'
			case LogicalFalse:
				dst[i] = 'F'
			default:
				dst[i] = 0
			}
		}
	case Bits:
		for i, bit := range v {
			mask := byte(0x80 >> (i % 8))
			if bit {
				dst[i/8] |= mask
			} else {
				dst[i/8] &^= mask
			}
		}
	case Bytes:
		copy(dst, v)
	case Int16s:
		for i, x := range v {
			binary.BigEndian.PutUint16(dst[i*2:], uint16(x))
		}
	case Int32s:
		for i, x := range v {
			binary.BigEndian.PutUint32(dst[i*4:], uint32(x))
		}
	case Int64s:
		for i, x := range v {
			binary.BigEndian.PutUint64(dst[i*8:], uint64(x))
		}
	case Chars:
		copy(dst, v)
	case Float32s:
		for i, x := range v {
			binary.BigEndian.PutUint32(dst[i*4:], math.Float32bits(x))
		}
	case Float64s:
		for i, x := range v {
			binary.BigEndian.PutUint64(dst[i*8:], math.Float64bits(x))
		}
	case Complex64s:
		for i, x := range v {
			binary.BigEndian.PutUint32(dst[i*8:], math.Float32bits(real(x)))
			binary.BigEndian.PutUint32(dst[i*8+4:], math.Float32bits(imag(x)))
		}
	case Complex128s:
		for i, x := range v {
			binary.BigEndian.PutUint64(dst[i*16:], math.Float64bits(real(x)))
			binary.BigEndian.PutUint64(dst[i*16+8:], math.Float64bits(imag(x)))
		}
	}
}

// DecodeField decodes the in-row bytes of a fixed-width field.
//
// A slice shorter than t.ByteLength() yields the available prefix and
// complete=false; decoding never reads past b. Descriptor forms cannot be
// decoded without a heap (see Heap.ReadField) and return an empty value of
// the element type with complete=false.
func DecodeField(b []byte, t TForm) (v FieldValue, complete bool) {
	if t.IsVariable() {
		return NewFieldValue(t.Elem, 0), false
	}
	return DecodeElements(b, t.Code, t.Repeat)
}

// EncodeField encodes a fixed-width field into exactly t.ByteLength() bytes,
// zero-padding values shorter than the repeat count.
func EncodeField(v FieldValue, t TForm) ([]byte, error) {
	out := make([]byte, t.ByteLength())
	if err := encodeFieldInto(out, v, t); err != nil {
		return nil, err
	}
	return out, nil
}

func encodeFieldInto(dst []byte, v FieldValue, t TForm) error {
	if t.IsVariable() {
		return fmt.Errorf("%w: %s column must be written through a heap", ErrTypeMismatch, t)
	}
	if !Matches(t, v) {
		return &TypeMismatchError{Form: t, Got: codeOf(v)}
	}
	if v.Len() > t.Repeat {
		return &SizeError{
			What:     "field " + t.String(),
			Declared: int64(t.ByteLength()),
			Actual:   int64(PayloadLength(t.Code, v.Len())),
		}
	}
	clear(dst)
	putElements(dst, v)
	return nil
}

func codeOf(v FieldValue) TypeCode {
	if v == nil {
		return 0
	}
	return v.Code()
}

// VarDescriptor is the (count, offset) pair stored in the row for a P or Q
// column. Offset is measured from the start of the heap.
type VarDescriptor struct {
	Count  uint64
	Offset uint64
}

// DecodeDescriptor reads a descriptor of the given code (P: two 32-bit words,
// Q: two 64-bit words). It returns false if b is too short.
func DecodeDescriptor(b []byte, code TypeCode) (VarDescriptor, bool) {
	switch code {
	case CodeVarArray32:
		if len(b) < 8 {
			return VarDescriptor{}, false
		}
		return VarDescriptor{
			Count:  uint64(binary.BigEndian.Uint32(b[0:4])),
			Offset: uint64(binary.BigEndian.Uint32(b[4:8])),
		}, true
	case CodeVarArray64:
		if len(b) < 16 {
			return VarDescriptor{}, false
		}
		return VarDescriptor{
			Count:  binary.BigEndian.Uint64(b[0:8]),
			Offset: binary.BigEndian.Uint64(b[8:16]),
		}, true
	default:
		return VarDescriptor{}, false
	}
}

// EncodeDescriptor writes d into dst using the layout of code.
func EncodeDescriptor(dst []byte, d VarDescriptor, code TypeCode) error {
	switch code {
	case CodeVarArray32:
		if len(dst) < 8 {
			return fmt.Errorf("%w: descriptor buffer of %d bytes", ErrSizeMismatch, len(dst))
		}
		if d.Count > math.MaxUint32 || d.Offset > math.MaxUint32 {
			return fmt.Errorf("%w: descriptor (%d, %d) exceeds 32 bits", ErrHeapBounds, d.Count, d.Offset)
		}
		binary.BigEndian.PutUint32(dst[0:4], uint32(d.Count))
		binary.BigEndian.PutUint32(dst[4:8], uint32(d.Offset))
		return nil
	case CodeVarArray64:
		if len(dst) < 16 {
			return fmt.Errorf("%w: descriptor buffer of %d bytes", ErrSizeMismatch, len(dst))
		}
		binary.BigEndian.PutUint64(dst[0:8], d.Count)
		binary.BigEndian.PutUint64(dst[8:16], d.Offset)
		return nil
	default:
		return fmt.Errorf("%w: %s is not a descriptor code", ErrUnknownTypeCode, code)
	}
}
