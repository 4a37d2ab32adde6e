package fits

import (
	"fmt"
	"strings"
)

// Card is one 80-byte header record.
//
// Cards with a nil Value are commentary: COMMENT, HISTORY, blank keywords and
// the END marker. Their Comment holds the text from column 9 onwards.
type Card struct {
	Keyword string
	Value   Value
	Comment string
}

// NewCard builds a value card.
func NewCard(keyword string, v Value, comment string) Card {
	return Card{Keyword: keyword, Value: v, Comment: comment}
}

// IsEnd reports whether c is the header terminator.
func (c Card) IsEnd() bool {
	return c.Keyword == "END" && c.Value == nil
}

// IsCommentary reports whether the keyword never carries a value.
func (c Card) IsCommentary() bool {
	return isCommentaryKeyword(c.Keyword)
}

func isCommentaryKeyword(k string) bool {
	return k == "" || k == "COMMENT" || k == "HISTORY"
}

var endCard = func() []byte {
	b, _ := EncodeCard(Card{Keyword: "END"})
	return b
}()

// ParseCard decodes one 80-byte card. It returns false when b is not exactly
// one card, contains bytes outside printable ASCII, or has an unterminated
// string value.
func ParseCard(b []byte) (Card, bool) {
	if len(b) != CardSize {
		return Card{}, false
	}
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return Card{}, false
		}
	}

	keyword := strings.TrimRight(string(b[:KeywordSize]), " ")
	if string(b[KeywordSize:KeywordSize+2]) != "= " || isCommentaryKeyword(keyword) {
		return Card{
			Keyword: keyword,
			Comment: strings.TrimRight(string(b[KeywordSize:]), " "),
		}, true
	}

	v, comment, ok := parseValueField(string(b[KeywordSize+2:]))
	if !ok {
		return Card{}, false
	}
	return Card{Keyword: keyword, Value: v, Comment: comment}, true
}

// parseValueField splits the text after "= " into a value and a comment.
// A '/' inside a quoted string does not start the comment.
func parseValueField(s string) (Value, string, bool) {
	t := strings.TrimLeft(s, " ")
	if t == "" {
		return UndefinedValue{}, "", true
	}

	if t[0] != '\'' {
		token, comment := t, ""
		if i := strings.IndexByte(t, '/'); i >= 0 {
			token, comment = t[:i], strings.TrimSpace(t[i+1:])
		}
		return sniffValue(strings.TrimSpace(token)), comment, true
	}

	var sb strings.Builder
	inString := true
	i := 1
	for ; i < len(t); i++ {
		if t[i] != '\'' {
			sb.WriteByte(t[i])
			continue
		}
		if i+1 < len(t) && t[i+1] == '\'' {
			sb.WriteByte('\'')
			i++
			continue
		}
		inString = false
		break
	}
	if inString {
		return nil, "", false
	}

	comment := ""
	rest := t[i+1:]
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		comment = strings.TrimSpace(rest[j+1:])
	}
	return StringValue(strings.TrimRight(sb.String(), " ")), comment, true
}

// EncodeCard writes c as exactly 80 bytes.
//
// Numeric and logical values are right-justified to end in column 30 and
// strings start in column 11. A value wider than its field widens it; a
// comment that does not fit is truncated; a keyword and value that cannot
// fit in one card return ErrCardOverflow.
func EncodeCard(c Card) ([]byte, error) {
	if err := validateKeyword(c.Keyword); err != nil {
		return nil, err
	}
	if !isPrintable(c.Comment) {
		return nil, fmt.Errorf("%w: non-printable comment on %s", ErrMalformedCard, c.Keyword)
	}

	var sb strings.Builder
	sb.Grow(CardSize)
	sb.WriteString(padRight(c.Keyword, KeywordSize))

	if c.Value == nil {
		sb.WriteString(c.Comment)
		return finishCard(sb.String()), nil
	}
	if isCommentaryKeyword(c.Keyword) {
		return nil, fmt.Errorf("%w: %q cannot carry a value", ErrMalformedCard, c.Keyword)
	}

	text, left, err := c.Value.format()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Keyword, err)
	}
	sb.WriteString("= ")
	if left {
		sb.WriteString(text)
	} else {
		sb.WriteString(padLeft(text, valueFieldEnd-KeywordSize-2))
	}
	if sb.Len() > CardSize {
		return nil, fmt.Errorf("%w: %s needs %d columns", ErrCardOverflow, c.Keyword, sb.Len())
	}
	if c.Comment != "" && sb.Len()+3 < CardSize {
		sb.WriteString(" / ")
		sb.WriteString(c.Comment)
	}
	return finishCard(sb.String()), nil
}

func finishCard(s string) []byte {
	if len(s) > CardSize {
		s = s[:CardSize]
	}
	out := make([]byte, CardSize)
	n := copy(out, s)
	for i := n; i < CardSize; i++ {
		out[i] = ' '
	}
	return out
}

func validateKeyword(k string) error {
	if len(k) > KeywordSize {
		return fmt.Errorf("%w: keyword %q longer than %d characters", ErrMalformedCard, k, KeywordSize)
	}
	for i := 0; i < len(k); i++ {
		c := k[i]
		if (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_' {
			continue
		}
		return fmt.Errorf("%w: invalid keyword %q", ErrMalformedCard, k)
	}
	return nil
}

func padRight(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat(" ", n-len(s))
}

func padLeft(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return strings.Repeat(" ", n-len(s)) + s
}
