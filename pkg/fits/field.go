package fits

import "strings"

// FieldValue is the decoded content of one table field: an ordered sequence
// of elements of a single type. The set of implementations is closed; every
// switch over FieldValue in this package handles all of them.
//
// Descriptor (P/Q) columns hold the FieldValue of their element type; the
// (count, offset) pair is a storage detail of the row.
type FieldValue interface {
	// Code returns the element type code of the value.
	Code() TypeCode
	// Len returns the number of elements (bits for Bits, bytes for Chars).
	Len() int

	fieldValue()
}

// Logical is a FITS logical element. The zero value is the undefined state.
type Logical int8

const (
	LogicalNull Logical = iota
	LogicalTrue
	LogicalFalse
)

// LogicalOf converts a bool to a defined Logical.
func LogicalOf(v bool) Logical {
	if v {
		return LogicalTrue
	}
	return LogicalFalse
}

// Bool returns the truth value and whether the element was defined.
func (l Logical) Bool() (bool, bool) {
	switch l {
	case LogicalTrue:
		return true, true
	case LogicalFalse:
		return false, true
	default:
		return false, false
	}
}

func (l Logical) String() string {
	switch l {
	case LogicalTrue:
		return "T"
	case LogicalFalse:
		return "F"
	default:
		return "?"
	}
}

type (
	Logicals    []Logical
	Bits        []bool
	Bytes       []uint8
	Int16s      []int16
	Int32s      []int32
	Int64s      []int64
	Chars       []byte
	Float32s    []float32
	Float64s    []float64
	Complex64s  []complex64
	Complex128s []complex128
)

func (Logicals) Code() TypeCode    { return CodeLogical }
func (Bits) Code() TypeCode        { return CodeBit }
func (Bytes) Code() TypeCode       { return CodeByte }
func (Int16s) Code() TypeCode      { return CodeInt16 }
func (Int32s) Code() TypeCode      { return CodeInt32 }
func (Int64s) Code() TypeCode      { return CodeInt64 }
func (Chars) Code() TypeCode       { return CodeChar }
func (Float32s) Code() TypeCode    { return CodeFloat32 }
func (Float64s) Code() TypeCode    { return CodeFloat64 }
func (Complex64s) Code() TypeCode  { return CodeComplex64 }
func (Complex128s) Code() TypeCode { return CodeComplex128 }

func (v Logicals) Len() int    { return len(v) }
func (v Bits) Len() int        { return len(v) }
func (v Bytes) Len() int       { return len(v) }
func (v Int16s) Len() int      { return len(v) }
func (v Int32s) Len() int      { return len(v) }
func (v Int64s) Len() int      { return len(v) }
func (v Chars) Len() int       { return len(v) }
func (v Float32s) Len() int    { return len(v) }
func (v Float64s) Len() int    { return len(v) }
func (v Complex64s) Len() int  { return len(v) }
func (v Complex128s) Len() int { return len(v) }

func (Logicals) fieldValue()    {}
func (Bits) fieldValue()        {}
func (Bytes) fieldValue()       {}
func (Int16s) fieldValue()      {}
func (Int32s) fieldValue()      {}
func (Int64s) fieldValue()      {}
func (Chars) fieldValue()       {}
func (Float32s) fieldValue()    {}
func (Float64s) fieldValue()    {}
func (Complex64s) fieldValue()  {}
func (Complex128s) fieldValue() {}

// String returns the text of a character field with trailing blanks and NULs
// removed. The raw bytes are left untouched.
func (v Chars) String() string {
	return strings.TrimRight(string(v), " \x00")
}

// NewFieldValue returns a zeroed value of n elements of code. It returns nil
// for descriptor or unknown codes.
func NewFieldValue(code TypeCode, n int) FieldValue {
	if n < 0 {
		n = 0
	}
	switch code {
	case CodeLogical:
		return make(Logicals, n)
	case CodeBit:
		return make(Bits, n)
	case CodeByte:
		return make(Bytes, n)
	case CodeInt16:
		return make(Int16s, n)
	case CodeInt32:
		return make(Int32s, n)
	case CodeInt64:
		return make(Int64s, n)
	case CodeChar:
		return make(Chars, n)
	case CodeFloat32:
		return make(Float32s, n)
	case CodeFloat64:
		return make(Float64s, n)
	case CodeComplex64:
		return make(Complex64s, n)
	case CodeComplex128:
		return make(Complex128s, n)
	default:
		return nil
	}
}

// Matches reports whether v may be stored in a column of form t. It is the
// single compatibility check used by every write path.
func Matches(t TForm, v FieldValue) bool {
	if v == nil {
		return false
	}
	return v.Code() == t.ElementCode()
}
