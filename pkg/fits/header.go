package fits

import (
	"bytes"
	"fmt"
	"math"
)

// Header is the ordered list of cards of one unit, without the END card.
//
// Keywords are not required to be unique. Lookups return the first match,
// Set rewrites the first match, and Add always appends. A Header is not safe
// for concurrent mutation.
type Header struct {
	cards []Card
}

// NewHeader returns a header holding the given cards.
func NewHeader(cards ...Card) *Header {
	h := &Header{cards: make([]Card, 0, len(cards))}
	h.cards = append(h.cards, cards...)
	return h
}

// Len returns the number of cards, excluding END.
func (h *Header) Len() int {
	return len(h.cards)
}

// Cards returns the cards in order. The slice must not be modified.
func (h *Header) Cards() []Card {
	return h.cards
}

// Clone returns an independent copy of h.
func (h *Header) Clone() *Header {
	return NewHeader(h.cards...)
}

// Index returns the position of the first card with keyword, or -1.
func (h *Header) Index(keyword string) int {
	for i := range h.cards {
		if h.cards[i].Keyword == keyword {
			return i
		}
	}
	return -1
}

// Get returns the first card with keyword.
func (h *Header) Get(keyword string) (Card, bool) {
	i := h.Index(keyword)
	if i < 0 {
		return Card{}, false
	}
	return h.cards[i], true
}

// Has reports whether any card uses keyword.
func (h *Header) Has(keyword string) bool {
	return h.Index(keyword) >= 0
}

// Set stores v under keyword. The first existing card is rewritten in place
// (its comment is kept when comment is empty); otherwise a card is appended.
// Later duplicates are left alone.
func (h *Header) Set(keyword string, v Value, comment string) {
	if i := h.Index(keyword); i >= 0 {
		h.cards[i].Value = v
		if comment != "" {
			h.cards[i].Comment = comment
		}
		return
	}
	h.cards = append(h.cards, Card{Keyword: keyword, Value: v, Comment: comment})
}

// Add appends c, even if its keyword is already present.
func (h *Header) Add(c Card) {
	h.cards = append(h.cards, c)
}

// Delete removes the first card with keyword and reports whether one existed.
func (h *Header) Delete(keyword string) bool {
	i := h.Index(keyword)
	if i < 0 {
		return false
	}
	h.cards = append(h.cards[:i], h.cards[i+1:]...)
	return true
}

// Int returns an integer-valued keyword. Other value kinds, including floats
// with integral values, are not converted.
func (h *Header) Int(keyword string) (int64, bool) {
	c, ok := h.Get(keyword)
	if !ok {
		return 0, false
	}
	v, ok := c.Value.(IntValue)
	return int64(v), ok
}

// Float returns a floating-point keyword. Integer values are widened to
// float64; magnitudes above 2^53 round to the nearest representable value.
func (h *Header) Float(keyword string) (float64, bool) {
	c, ok := h.Get(keyword)
	if !ok {
		return 0, false
	}
	switch v := c.Value.(type) {
	case FloatValue:
		return float64(v), true
	case IntValue:
		return float64(v), true
	default:
		return 0, false
	}
}

// Bool returns a logical keyword.
func (h *Header) Bool(keyword string) (bool, bool) {
	c, ok := h.Get(keyword)
	if !ok {
		return false, false
	}
	v, ok := c.Value.(BoolValue)
	return bool(v), ok
}

// String returns a quoted string keyword. Unclassified raw values are
// returned as their literal text.
func (h *Header) String(keyword string) (string, bool) {
	c, ok := h.Get(keyword)
	if !ok {
		return "", false
	}
	switch v := c.Value.(type) {
	case StringValue:
		return string(v), true
	case RawValue:
		return string(v), true
	default:
		return "", false
	}
}

// Complex returns a complex keyword. Real numeric values convert with a zero
// imaginary part.
func (h *Header) Complex(keyword string) (complex128, bool) {
	c, ok := h.Get(keyword)
	if !ok {
		return 0, false
	}
	switch v := c.Value.(type) {
	case ComplexValue:
		return complex128(v), true
	case FloatValue:
		return complex(float64(v), 0), true
	case IntValue:
		return complex(float64(v), 0), true
	default:
		return 0, false
	}
}

// intOr returns an integer keyword or def when absent or not an integer.
func (h *Header) intOr(keyword string, def int64) int64 {
	if v, ok := h.Int(keyword); ok {
		return v
	}
	return def
}

// Encode writes all cards and the END card, blank-padded to whole blocks.
func (h *Header) Encode() ([]byte, error) {
	out := make([]byte, 0, PaddedSize((len(h.cards)+1)*CardSize))
	for i := range h.cards {
		if h.cards[i].IsEnd() {
			continue
		}
		b, err := EncodeCard(h.cards[i])
		if err != nil {
			return nil, fmt.Errorf("card %d: %w", i, err)
		}
		out = append(out, b...)
	}
	out = append(out, endCard...)
	return Pad(out, ' '), nil
}

// DecodeHeader reads whole blocks from data until the END card. It returns
// the header, the number of bytes consumed, and one *CardError per card that
// could not be parsed; bad cards are skipped rather than ending the scan.
// ErrMissingEnd is returned when data runs out before END.
func DecodeHeader(data []byte) (*Header, int, []error, error) {
	h := &Header{}
	var cardErrs []error
	index := 0
	for off := 0; off+BlockSize <= len(data); off += BlockSize {
		block := data[off : off+BlockSize]
		for c := 0; c < CardsPerBlock; c++ {
			raw := block[c*CardSize : (c+1)*CardSize]
			card, ok := ParseCard(raw)
			switch {
			case !ok:
				cardErrs = append(cardErrs, &CardError{Index: index, Raw: string(bytes.TrimRight(raw, " "))})
			case card.IsEnd():
				return h, off + BlockSize, cardErrs, nil
			case card.Keyword == "" && card.Comment == "":
				// Blank filler.
			default:
				h.cards = append(h.cards, card)
			}
			index++
		}
	}
	return h, len(data) - len(data)%BlockSize, cardErrs, ErrMissingEnd
}

// maxDataSize bounds every byte count derived from a header.
const maxDataSize = math.MaxInt32 * int64(BlockSize)

// checkedInt converts a header integer to int, rejecting negative values and
// values above maxDataSize.
func checkedInt(v int64) (int, bool) {
	if v < 0 || v > maxDataSize {
		return 0, false
	}
	return int(v), true
}
