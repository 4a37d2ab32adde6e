package fits

import (
	"fmt"
	"math"
)

// Heap is the append-only region that follows the fixed-width rows of a
// binary table. Variable-length fields store their elements here and keep a
// (count, offset) descriptor in the row.
//
// A Heap is owned by a single table and is not safe for concurrent use.
type Heap struct {
	buf []byte
}

// NewHeap returns an empty heap.
func NewHeap() *Heap {
	return &Heap{}
}

// NewHeapFrom wraps an existing heap region. The slice is not copied.
func NewHeapFrom(b []byte) *Heap {
	return &Heap{buf: b}
}

// Len returns the heap size in bytes.
func (h *Heap) Len() int {
	if h == nil {
		return 0
	}
	return len(h.buf)
}

// Bytes returns the heap contents.
func (h *Heap) Bytes() []byte {
	if h == nil {
		return nil
	}
	return h.buf
}

// Append serialises v at the end of the heap and returns its descriptor.
// The offset is the heap length before the append, so successive offsets are
// the cumulative sizes of earlier payloads.
func (h *Heap) Append(v FieldValue) (VarDescriptor, error) {
	if v == nil {
		return VarDescriptor{}, fmt.Errorf("%w: nil heap payload", ErrTypeMismatch)
	}
	desc := VarDescriptor{
		Count:  uint64(v.Len()),
		Offset: uint64(len(h.buf)),
	}
	n := PayloadLength(v.Code(), v.Len())
	start := len(h.buf)
	h.buf = append(h.buf, make([]byte, n)...)
	putElements(h.buf[start:], v)
	return desc, nil
}

// Resolve decodes the elements referenced by desc. A descriptor that points
// outside the heap returns a *HeapBoundsError.
func (h *Heap) Resolve(desc VarDescriptor, elem TypeCode) (FieldValue, error) {
	if !elem.Valid() || elem.IsVariable() {
		return nil, fmt.Errorf("%w: heap element %s", ErrUnknownTypeCode, elem)
	}
	boundsErr := &HeapBoundsError{Desc: desc, Elem: elem, HeapLen: h.Len()}

	if desc.Count > math.MaxInt32 {
		return nil, boundsErr
	}
	size := uint64(PayloadLength(elem, int(desc.Count)))
	end := desc.Offset + size
	if end < desc.Offset || end > uint64(h.Len()) {
		return nil, boundsErr
	}
	v, _ := DecodeElements(h.buf[desc.Offset:end], elem, int(desc.Count))
	return v, nil
}

// WriteField appends the payload of v and returns the in-row descriptor
// bytes for form t.
func (h *Heap) WriteField(v FieldValue, t TForm) ([]byte, error) {
	out := make([]byte, t.ByteLength())
	if err := h.writeFieldInto(out, v, t); err != nil {
		return nil, err
	}
	return out, nil
}

func (h *Heap) writeFieldInto(dst []byte, v FieldValue, t TForm) error {
	if !t.IsVariable() {
		return encodeFieldInto(dst, v, t)
	}
	if !Matches(t, v) {
		return &TypeMismatchError{Form: t, Got: codeOf(v)}
	}
	if t.Repeat == 0 {
		return nil
	}
	if t.Code == CodeVarArray32 {
		end := uint64(h.Len()) + uint64(PayloadLength(v.Code(), v.Len()))
		if end > math.MaxUint32 {
			return fmt.Errorf("%w: heap would exceed 32-bit offsets", ErrHeapBounds)
		}
	}
	desc, err := h.Append(v)
	if err != nil {
		return err
	}
	return EncodeDescriptor(dst, desc, t.Code)
}

// ReadField decodes a field from its in-row bytes, resolving descriptor
// columns through the heap.
func (h *Heap) ReadField(b []byte, t TForm) (FieldValue, error) {
	if !t.IsVariable() {
		v, complete := DecodeField(b, t)
		if !complete {
			return v, &SizeError{What: "field " + t.String(), Declared: int64(t.ByteLength()), Actual: int64(len(b))}
		}
		return v, nil
	}
	if t.Repeat == 0 {
		return NewFieldValue(t.Elem, 0), nil
	}
	desc, ok := DecodeDescriptor(b, t.Code)
	if !ok {
		return NewFieldValue(t.Elem, 0), &SizeError{What: "descriptor " + t.String(), Declared: int64(t.ByteLength()), Actual: int64(len(b))}
	}
	v, err := h.Resolve(desc, t.Elem)
	if err != nil {
		return NewFieldValue(t.Elem, 0), err
	}
	return v, nil
}
