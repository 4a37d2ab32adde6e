package fits

import (
	"fmt"
	"strconv"
	"strings"
)

// TypeCode is the one-letter element type of a binary table column.
type TypeCode byte

const (
	CodeLogical    TypeCode = 'L'
	CodeBit        TypeCode = 'X'
	CodeByte       TypeCode = 'B'
	CodeInt16      TypeCode = 'I'
	CodeInt32      TypeCode = 'J'
	CodeInt64      TypeCode = 'K'
	CodeChar       TypeCode = 'A'
	CodeFloat32    TypeCode = 'E'
	CodeFloat64    TypeCode = 'D'
	CodeComplex64  TypeCode = 'C'
	CodeComplex128 TypeCode = 'M'

	// CodeVarArray32 and CodeVarArray64 are array descriptors: the row holds a
	// (count, offset) pair and the elements live in the heap.
	CodeVarArray32 TypeCode = 'P'
	CodeVarArray64 TypeCode = 'Q'
)

// Valid reports whether c is a known type code.
func (c TypeCode) Valid() bool {
	switch c {
	case CodeLogical, CodeBit, CodeByte, CodeInt16, CodeInt32, CodeInt64, CodeChar,
		CodeFloat32, CodeFloat64, CodeComplex64, CodeComplex128,
		CodeVarArray32, CodeVarArray64:
		return true
	default:
		return false
	}
}

// IsVariable reports whether c is one of the heap descriptor codes.
func (c TypeCode) IsVariable() bool {
	return c == CodeVarArray32 || c == CodeVarArray64
}

func (c TypeCode) String() string {
	if c.Valid() {
		return string(rune(c))
	}
	return fmt.Sprintf("type(%d)", byte(c))
}

// ElementWidth returns the byte width of one element of c. Bits report 1
// because they are stored in whole bytes; use PayloadLength for exact sizes.
func ElementWidth(c TypeCode) int {
	switch c {
	case CodeLogical, CodeBit, CodeByte, CodeChar:
		return 1
	case CodeInt16:
		return 2
	case CodeInt32, CodeFloat32:
		return 4
	case CodeInt64, CodeFloat64, CodeComplex64, CodeVarArray32:
		return 8
	case CodeComplex128, CodeVarArray64:
		return 16
	default:
		return 0
	}
}

// PayloadLength returns the number of bytes occupied by count elements of c.
func PayloadLength(c TypeCode, count int) int {
	if count <= 0 {
		return 0
	}
	if c == CodeBit {
		return (count + 7) / 8
	}
	return count * ElementWidth(c)
}

// repeatFits reports whether repeat elements of c fit in maxDataSize bytes.
func repeatFits(c TypeCode, repeat int) bool {
	if c == CodeBit {
		return int64(repeat) <= maxDataSize*8
	}
	w := int64(ElementWidth(c))
	return w > 0 && int64(repeat) <= maxDataSize/w
}

// TForm is a parsed column type descriptor ("3D", "16X", "1PA(12)").
//
// Elem, Max and HasMax are only meaningful for the descriptor codes P and Q.
type TForm struct {
	Repeat int
	Code   TypeCode
	Elem   TypeCode
	Max    int
	HasMax bool
}

// NewTForm returns a fixed-width descriptor of repeat elements of code.
func NewTForm(repeat int, code TypeCode) TForm {
	return TForm{Repeat: repeat, Code: code}
}

// VarTForm returns a single variable-length descriptor column of elem.
// A negative maxLen omits the "(max)" suffix.
func VarTForm(code, elem TypeCode, maxLen int) TForm {
	t := TForm{Repeat: 1, Code: code, Elem: elem}
	if maxLen >= 0 {
		t.Max = maxLen
		t.HasMax = true
	}
	return t
}

// ParseTForm parses a TFORMn value. It returns false for anything outside the
// grammar `[repeat]code[elem][(max)]`, for descriptor columns with a repeat
// above 1, and for repeats whose row width would exceed maxDataSize.
func ParseTForm(text string) (TForm, bool) {
	s := strings.TrimSpace(text)
	s = strings.Trim(s, "'\"")
	s = strings.TrimSpace(s)
	if s == "" {
		return TForm{}, false
	}

	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	repeat := 1
	if i > 0 {
		n, err := strconv.Atoi(s[:i])
		if err != nil {
			return TForm{}, false
		}
		repeat = n
	}
	if i >= len(s) {
		return TForm{}, false
	}

	t := TForm{Repeat: repeat, Code: TypeCode(s[i])}
	if !t.Code.Valid() || !repeatFits(t.Code, repeat) {
		return TForm{}, false
	}
	if t.Code.IsVariable() && repeat > 1 {
		return TForm{}, false
	}
	i++

	if t.Code.IsVariable() {
		if i >= len(s) {
			return TForm{}, false
		}
		t.Elem = TypeCode(s[i])
		if !t.Elem.Valid() || t.Elem.IsVariable() {
			return TForm{}, false
		}
		i++
		if i < len(s) && s[i] == '(' {
			end := strings.IndexByte(s[i:], ')')
			if end < 0 {
				return TForm{}, false
			}
			n, err := strconv.Atoi(s[i+1 : i+end])
			if err != nil || n < 0 {
				return TForm{}, false
			}
			t.Max = n
			t.HasMax = true
			i += end + 1
		}
	}

	if strings.TrimSpace(s[i:]) != "" {
		return TForm{}, false
	}
	return t, true
}

// String formats t so that ParseTForm(t.String()) == t.
func (t TForm) String() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(t.Repeat))
	b.WriteByte(byte(t.Code))
	if t.Code.IsVariable() {
		b.WriteByte(byte(t.Elem))
		if t.HasMax {
			b.WriteByte('(')
			b.WriteString(strconv.Itoa(t.Max))
			b.WriteByte(')')
		}
	}
	return b.String()
}

// Valid reports whether t is a form ParseTForm accepts: a known code, a
// repeat that fits, and for descriptors a repeat of 0 or 1 over a fixed
// element type.
func (t TForm) Valid() bool {
	if t.Repeat < 0 || !t.Code.Valid() || !repeatFits(t.Code, t.Repeat) {
		return false
	}
	if !t.Code.IsVariable() {
		return true
	}
	return t.Repeat <= 1 && t.Elem.Valid() && !t.Elem.IsVariable() && t.Max >= 0
}

// IsVariable reports whether t stores its elements in the heap.
func (t TForm) IsVariable() bool {
	return t.Code.IsVariable()
}

// ElementCode returns the type of the decoded elements: Elem for descriptor
// columns, Code otherwise.
func (t TForm) ElementCode() TypeCode {
	if t.Code.IsVariable() {
		return t.Elem
	}
	return t.Code
}

// ByteLength returns the number of bytes t occupies in a row. For descriptor
// columns this is the (count, offset) pair, not the heap payload.
func (t TForm) ByteLength() int {
	return PayloadLength(t.Code, t.Repeat)
}
