package fits

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is the typed value of a header card. The implementations are
// StringValue, BoolValue, IntValue, FloatValue, ComplexValue, UndefinedValue
// and RawValue. A card with a nil Value is a commentary card.
type Value interface {
	// format returns the value field text and whether it is left-justified.
	format() (string, bool, error)

	cardValue()
}

type (
	// StringValue is a quoted character string. Trailing blanks are not
	// significant and are dropped on decode.
	StringValue string
	BoolValue   bool
	IntValue    int64
	FloatValue  float64

	// ComplexValue is written as "(re, im)".
	ComplexValue complex128

	// UndefinedValue is a card with a value indicator but a blank value field.
	UndefinedValue struct{}

	// RawValue holds value text that could not be classified. It is written
	// back verbatim; text containing '/' or starting with a quote is rejected.
	RawValue string
)

func (StringValue) cardValue()    {}
func (BoolValue) cardValue()      {}
func (IntValue) cardValue()       {}
func (FloatValue) cardValue()     {}
func (ComplexValue) cardValue()   {}
func (UndefinedValue) cardValue() {}
func (RawValue) cardValue()       {}

func (v StringValue) format() (string, bool, error) {
	s := string(v)
	if !isPrintable(s) {
		return "", false, fmt.Errorf("%w: non-printable string value", ErrMalformedCard)
	}
	s = strings.ReplaceAll(s, "'", "''")
	if len(s) < 8 {
		s += strings.Repeat(" ", 8-len(s))
	}
	return "'" + s + "'", true, nil
}

func (v BoolValue) format() (string, bool, error) {
	if v {
		return "T", false, nil
	}
	return "F", false, nil
}

func (v IntValue) format() (string, bool, error) {
	return strconv.FormatInt(int64(v), 10), false, nil
}

func (v FloatValue) format() (string, bool, error) {
	s, err := formatFloat(float64(v))
	return s, false, err
}

func (v ComplexValue) format() (string, bool, error) {
	re, err := formatFloat(real(complex128(v)))
	if err != nil {
		return "", false, err
	}
	im, err := formatFloat(imag(complex128(v)))
	if err != nil {
		return "", false, err
	}
	return "(" + re + ", " + im + ")", false, nil
}

func (UndefinedValue) format() (string, bool, error) {
	return "", false, nil
}

func (v RawValue) format() (string, bool, error) {
	s := strings.TrimSpace(string(v))
	if !isPrintable(s) {
		return "", false, fmt.Errorf("%w: non-printable value", ErrMalformedCard)
	}
	// A slash would start the comment and a leading quote a string when the
	// card is parsed again.
	if strings.ContainsRune(s, '/') || strings.HasPrefix(s, "'") {
		return "", false, fmt.Errorf("%w: raw value %q does not parse back", ErrMalformedCard, s)
	}
	return s, false, nil
}

func formatFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("%w: %v has no header representation", ErrMalformedCard, f)
	}
	s := strconv.FormatFloat(f, 'G', -1, 64)
	if !strings.ContainsAny(s, ".E") {
		s += ".0"
	}
	return s, nil
}

// FormatValue returns the header text of v, as it would appear in a card's
// value field without padding. Nil and undefined values format as "".
func FormatValue(v Value) string {
	if v == nil {
		return ""
	}
	s, _, err := v.format()
	if err != nil {
		return ""
	}
	return s
}

// sniffValue classifies an unquoted value token. The order is fixed:
// logical, integer, floating point, complex pair, then raw text.
func sniffValue(token string) Value {
	switch token {
	case "":
		return UndefinedValue{}
	case "T":
		return BoolValue(true)
	case "F":
		return BoolValue(false)
	}
	if i, err := strconv.ParseInt(token, 10, 64); err == nil {
		return IntValue(i)
	}
	if f, ok := parseFloat(token); ok {
		return FloatValue(f)
	}
	if c, ok := parseComplex(token); ok {
		return ComplexValue(c)
	}
	return RawValue(token)
}

// parseFloat accepts decimal floats with E or Fortran D exponents.
func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
		case c == '+', c == '-', c == '.', c == 'E', c == 'e', c == 'D', c == 'd':
		default:
			return 0, false
		}
	}
	s = strings.NewReplacer("D", "E", "d", "E").Replace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// parseComplex accepts "(re, im)" or two blank-separated numbers.
func parseComplex(s string) (complex128, bool) {
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = s[1 : len(s)-1]
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	if len(parts) != 2 {
		return 0, false
	}
	re, ok := parseFloat(parts[0])
	if !ok {
		return 0, false
	}
	im, ok := parseFloat(parts[1])
	if !ok {
		return 0, false
	}
	return complex(re, im), true
}

func isPrintable(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return false
		}
	}
	return true
}
