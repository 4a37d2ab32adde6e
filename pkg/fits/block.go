package fits

// PaddedSize returns the smallest multiple of BlockSize that holds n bytes.
func PaddedSize(n int) int {
	if n <= 0 {
		return 0
	}
	rem := n % BlockSize
	if rem == 0 {
		return n
	}
	return n + (BlockSize - rem)
}

// PadLength returns the number of fill bytes needed after n bytes.
func PadLength(n int) int {
	return PaddedSize(n) - n
}

// Pad returns b extended with fill up to the next block boundary.
// The input slice is reused when it has enough capacity.
func Pad(b []byte, fill byte) []byte {
	pad := PadLength(len(b))
	if pad == 0 {
		return b
	}
	out := b
	if cap(out)-len(out) < pad {
		out = make([]byte, len(b), len(b)+pad)
		copy(out, b)
	}
	for range pad {
		out = append(out, fill)
	}
	return out
}

// IsAligned reports whether n is a whole number of blocks.
func IsAligned(n int) bool {
	return n%BlockSize == 0
}
