package fits

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedCard    = errors.New("fits: malformed card")
	ErrCardOverflow     = fmt.Errorf("%w: value does not fit in card", ErrMalformedCard)
	ErrUnknownTypeCode  = errors.New("fits: unknown type code")
	ErrSizeMismatch     = errors.New("fits: size mismatch")
	ErrTypeMismatch     = errors.New("fits: type mismatch")
	ErrHeapBounds       = errors.New("fits: heap descriptor out of bounds")
	ErrChecksumMismatch = errors.New("fits: checksum mismatch")
	ErrMissingEnd       = errors.New("fits: header has no END card")
	ErrNotFITS          = errors.New("fits: not a FITS file")
)

// TypeMismatchError reports a value whose variant does not fit a column.
type TypeMismatchError struct {
	Column int
	Form   TForm
	Got    TypeCode
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("fits: column %d (%s) cannot hold %s value", e.Column, e.Form, e.Got)
}

func (e *TypeMismatchError) Unwrap() error { return ErrTypeMismatch }

// HeapBoundsError reports a variable-length descriptor pointing outside the heap.
type HeapBoundsError struct {
	Desc    VarDescriptor
	Elem    TypeCode
	HeapLen int
}

func (e *HeapBoundsError) Error() string {
	return fmt.Sprintf("fits: descriptor (%d, %d) of %s exceeds heap of %d bytes",
		e.Desc.Count, e.Desc.Offset, e.Elem, e.HeapLen)
}

func (e *HeapBoundsError) Unwrap() error { return ErrHeapBounds }

// SizeError reports a declared length that disagrees with the bytes present.
type SizeError struct {
	What     string
	Declared int64
	Actual   int64
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("fits: %s declares %d bytes, found %d", e.What, e.Declared, e.Actual)
}

func (e *SizeError) Unwrap() error { return ErrSizeMismatch }

// ChecksumError reports a unit whose recomputed sum is not all ones, or whose
// DATASUM disagrees with its data.
type ChecksumError struct {
	Keyword  string
	Expected uint32
	Actual   uint32
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("fits: %s mismatch: expected %#08x, computed %#08x", e.Keyword, e.Expected, e.Actual)
}

func (e *ChecksumError) Unwrap() error { return ErrChecksumMismatch }

// CardError reports a header card that could not be parsed. Index counts
// cards from the start of the header.
type CardError struct {
	Index int
	Raw   string
}

func (e *CardError) Error() string {
	return fmt.Sprintf("fits: malformed card %d: %q", e.Index, e.Raw)
}

func (e *CardError) Unwrap() error { return ErrMalformedCard }
