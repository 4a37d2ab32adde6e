package fits

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestHeaderSetAddGet(t *testing.T) {
	t.Parallel()

	h := NewHeader()
	h.Set("OBJECT", StringValue("M31"), "target")
	h.Add(NewCard("HISTORY", nil, ""))
	h.Add(NewCard("OBJECT", StringValue("M33"), ""))
	h.Set("OBJECT", StringValue("M51"), "")

	if h.Len() != 3 {
		t.Fatalf("len = %d, want 3", h.Len())
	}
	c, ok := h.Get("OBJECT")
	if !ok || c.Value != StringValue("M51") || c.Comment != "target" {
		t.Fatalf("first OBJECT = %+v", c)
	}
	if h.Cards()[2].Value != StringValue("M33") {
		t.Fatalf("duplicate was modified: %+v", h.Cards()[2])
	}

	if !h.Delete("OBJECT") {
		t.Fatalf("delete reported missing card")
	}
	if s, _ := h.String("OBJECT"); s != "M33" {
		t.Fatalf("after delete OBJECT = %q", s)
	}
}

func TestHeaderTypedAccessors(t *testing.T) {
	t.Parallel()

	h := NewHeader(
		NewCard("NAXIS", IntValue(2), ""),
		NewCard("EXPTIME", FloatValue(12.5), ""),
		NewCard("SIMPLE", BoolValue(true), ""),
		NewCard("CPLX", ComplexValue(complex(1, 2)), ""),
	)
	if v, ok := h.Int("NAXIS"); !ok || v != 2 {
		t.Fatalf("Int = %d, %v", v, ok)
	}
	if _, ok := h.Int("EXPTIME"); ok {
		t.Fatalf("float returned as int")
	}
	if v, ok := h.Float("NAXIS"); !ok || v != 2 {
		t.Fatalf("Float of int = %v, %v", v, ok)
	}
	if v, ok := h.Bool("SIMPLE"); !ok || !v {
		t.Fatalf("Bool = %v, %v", v, ok)
	}
	if v, ok := h.Complex("CPLX"); !ok || v != complex(1, 2) {
		t.Fatalf("Complex = %v, %v", v, ok)
	}
	if _, ok := h.String("MISSING"); ok {
		t.Fatalf("missing keyword found")
	}
}

func TestHeaderEncodeDecode(t *testing.T) {
	t.Parallel()

	h := NewHeader(
		NewCard("SIMPLE", BoolValue(true), "conforms"),
		NewCard("BITPIX", IntValue(8), ""),
		NewCard("NAXIS", IntValue(0), ""),
	)
	for i := 0; i < 40; i++ {
		h.Add(Card{Keyword: "COMMENT", Comment: " line"})
	}

	b, err := h.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(b) != 2*BlockSize {
		t.Fatalf("encoded %d bytes, want %d", len(b), 2*BlockSize)
	}
	endAt := 43 * CardSize
	if !bytes.HasPrefix(b[endAt:], []byte("END     ")) {
		t.Fatalf("END card not after the last card")
	}
	if strings.TrimLeft(string(b[endAt+CardSize:]), " ") != "" {
		t.Fatalf("header padding is not blank")
	}

	got, n, cardErrs, err := DecodeHeader(b)
	if err != nil || len(cardErrs) != 0 {
		t.Fatalf("decode: %v %v", err, cardErrs)
	}
	if n != len(b) {
		t.Fatalf("consumed %d bytes, want %d", n, len(b))
	}
	if got.Len() != h.Len() {
		t.Fatalf("decoded %d cards, want %d", got.Len(), h.Len())
	}
	for i := range h.Cards() {
		if got.Cards()[i] != h.Cards()[i] {
			t.Fatalf("card %d: got %+v want %+v", i, got.Cards()[i], h.Cards()[i])
		}
	}
}

func TestDecodeHeaderMissingEnd(t *testing.T) {
	t.Parallel()

	b := bytes.Repeat([]byte(" "), BlockSize)
	copy(b, padRight("SIMPLE  =                    T", CardSize))
	_, _, _, err := DecodeHeader(b)
	if !errors.Is(err, ErrMissingEnd) {
		t.Fatalf("expected ErrMissingEnd, got %v", err)
	}
}

func TestDecodeHeaderReportsBadCards(t *testing.T) {
	t.Parallel()

	h := NewHeader(NewCard("SIMPLE", BoolValue(true), ""), NewCard("GOOD", IntValue(1), ""))
	b, err := h.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	b[CardSize+20] = 0x01

	got, _, cardErrs, err := DecodeHeader(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(cardErrs) != 1 {
		t.Fatalf("card errors = %v", cardErrs)
	}
	var ce *CardError
	if !errors.As(cardErrs[0], &ce) || ce.Index != 1 {
		t.Fatalf("card error = %v", cardErrs[0])
	}
	if got.Has("GOOD") || !got.Has("SIMPLE") {
		t.Fatalf("unexpected cards: %+v", got.Cards())
	}
}
