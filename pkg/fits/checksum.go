package fits

import (
	"fmt"
	"strconv"
)

// Checksum keywords.
const (
	KeywordChecksum = "CHECKSUM"
	KeywordDatasum  = "DATASUM"
)

// ChecksumValid is the sum of an intact unit whose CHECKSUM card was
// computed from its own bytes.
const ChecksumValid uint32 = 0xFFFFFFFF

const checksumOffset = 0x30

// zeroChecksum is the CHECKSUM placeholder used while summing a header.
const zeroChecksum = "0000000000000000"

// Accumulate adds data into the running ones'-complement sum. data must be a
// whole number of blocks; anything else returns 0.
func Accumulate(data []byte, sum uint32) uint32 {
	if len(data)%BlockSize != 0 {
		return 0
	}
	for off := 0; off < len(data); off += BlockSize {
		sum = accumulate(data[off:off+BlockSize], sum)
	}
	return sum
}

// accumulate sums b as big-endian 32-bit words split into two 16-bit halves,
// then folds the carries of each half into the other. len(b) must be a
// multiple of 4 and small enough that the halves cannot overflow 32 bits.
func accumulate(b []byte, sum uint32) uint32 {
	hi := sum >> 16
	lo := sum & 0xFFFF
	for i := 0; i+3 < len(b); i += 4 {
		hi += uint32(b[i])<<8 | uint32(b[i+1])
		lo += uint32(b[i+2])<<8 | uint32(b[i+3])
	}
	hiCarry := hi >> 16
	loCarry := lo >> 16
	for hiCarry != 0 || loCarry != 0 {
		hi = (hi & 0xFFFF) + loCarry
		lo = (lo & 0xFFFF) + hiCarry
		hiCarry = hi >> 16
		loCarry = lo >> 16
	}
	return hi<<16 | lo
}

// AddSums combines two partial sums with ones'-complement addition.
func AddSums(a, b uint32) uint32 {
	s := uint64(a) + uint64(b)
	for s>>32 != 0 {
		s = (s & 0xFFFFFFFF) + (s >> 32)
	}
	return uint32(s)
}

var checksumExcluded = [...]byte{
	0x3a, 0x3b, 0x3c, 0x3d, 0x3e, 0x3f, 0x40,
	0x5b, 0x5c, 0x5d, 0x5e, 0x5f, 0x60,
}

func isExcluded(c byte) bool {
	for _, x := range checksumExcluded {
		if c == x {
			return true
		}
	}
	return false
}

// EncodeChecksum returns the 16-character CHECKSUM text for sum. The value is
// complemented before encoding, so a header holding EncodeChecksum(s) adds
// ^s to its own sum. The result never contains :;<=>?@[\]^_ or backquote.
func EncodeChecksum(sum uint32) string {
	value := ^sum
	var asc [16]byte
	for i := 0; i < 4; i++ {
		b := int(value>>((3-i)*8)) & 0xFF
		quotient := b/4 + checksumOffset
		remainder := b % 4

		var ch [4]int
		for j := range ch {
			ch[j] = quotient
		}
		ch[0] += remainder

		for changed := true; changed; {
			changed = false
			for j := 0; j < 4; j += 2 {
				for isExcluded(byte(ch[j])) || isExcluded(byte(ch[j+1])) {
					ch[j]++
					ch[j+1]--
					changed = true
				}
			}
		}
		for j := 0; j < 4; j++ {
			asc[4*j+i] = byte(ch[j])
		}
	}

	// Rotate one place right so the text lines up with word boundaries when
	// it starts in column 12 of a card.
	var out [16]byte
	for i := range out {
		out[i] = asc[(i+15)%16]
	}
	return string(out[:])
}

// DecodeChecksum inverts EncodeChecksum.
func DecodeChecksum(text string) (uint32, error) {
	if len(text) != 16 {
		return 0, fmt.Errorf("%w: checksum text must be 16 characters, got %d", ErrChecksumMismatch, len(text))
	}
	var buf [16]byte
	for i := range buf {
		c := text[(i+1)%16]
		if c < checksumOffset || c > 0x7e || isExcluded(c) {
			return 0, fmt.Errorf("%w: invalid checksum character %q", ErrChecksumMismatch, c)
		}
		buf[i] = c - checksumOffset
	}
	return ^accumulate(buf[:], 0), nil
}

// FormatDatasum renders a data sum as the DATASUM string value.
func FormatDatasum(sum uint32) string {
	return strconv.FormatUint(uint64(sum), 10)
}

// ParseDatasum parses a DATASUM string value.
func ParseDatasum(s string) (uint32, bool) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}
