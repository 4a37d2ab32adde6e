package fits

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// File is a decoded FITS file.
//
// Problems that do not stop decoding (bad cards, truncated payloads, heap
// descriptors out of range) are collected in Issues instead of being
// returned as errors. Image and opaque unit Data slices alias the file
// bytes and must not be retained after Close.
type File struct {
	Units  []*Unit
	Issues []Issue

	data    []byte
	mmapped bool
}

// Open maps a FITS file read-only and decodes it.
// If mmap is unavailable, it falls back to ReadAt-based loading.
// The returned file must be closed to release any mapping.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size64 := stat.Size()
	if size64 > int64(int(^uint(0)>>1)) {
		return nil, fmt.Errorf("%w: file too large", ErrNotFITS)
	}
	size := int(size64)
	if size < BlockSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than one block", ErrNotFITS, size)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		ff, decErr := Decode(data)
		if decErr != nil {
			_ = unix.Munmap(data)
			return nil, decErr
		}
		ff.mmapped = true
		return ff, nil
	}

	data, err = readAllAt(f, size)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// OpenReaderAt loads and decodes a FITS file from a random-access reader
// without mmap.
func OpenReaderAt(r io.ReaderAt, size int64) (*File, error) {
	if size < 0 || size > int64(int(^uint(0)>>1)) {
		return nil, fmt.Errorf("%w: invalid size %d", ErrNotFITS, size)
	}
	data, err := readAllAt(r, int(size))
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

func readAllAt(r io.ReaderAt, size int) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}
	out := make([]byte, size)
	var off int64
	for off < int64(size) {
		n, err := r.ReadAt(out[off:], off)
		off += int64(n)
		if err == nil {
			continue
		}
		if err == io.EOF && off == int64(size) {
			break
		}
		return nil, err
	}
	return out, nil
}

// Decode reads every unit in data. It fails only when data does not start
// with a readable primary header; later damage is reported in File.Issues
// and decoding stops at the first unit whose extent cannot be determined.
func Decode(data []byte) (*File, error) {
	f := &File{data: data}
	off := 0
	for off < len(data) {
		index := len(f.Units)
		if index > 0 && isZeroFill(data[off:]) {
			break
		}

		h, n, cardErrs, err := DecodeHeader(data[off:])
		if index == 0 {
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrNotFITS, err)
			}
			if first := h.Cards(); len(first) == 0 || first[0].Keyword != "SIMPLE" {
				return nil, fmt.Errorf("%w: first card is not SIMPLE", ErrNotFITS)
			}
		}
		for _, ce := range cardErrs {
			f.Issues = append(f.Issues, newIssue(index, ce))
		}
		if err != nil {
			f.Issues = append(f.Issues, newIssue(index, err))
			break
		}

		u, unitErrs, ok := decodeUnit(index, h, data[off:], n)
		for _, ue := range unitErrs {
			f.Issues = append(f.Issues, newIssue(index, ue))
		}
		if !ok {
			break
		}
		f.Units = append(f.Units, u)
		off += len(u.raw)
	}
	return f, nil
}

// decodeUnit builds the unit whose header h occupies the first headerLen
// bytes of data. ok is false when the payload size cannot be determined.
func decodeUnit(index int, h *Header, data []byte, headerLen int) (*Unit, []error, bool) {
	var errs []error
	if index > 0 && !h.Has("XTENSION") {
		return nil, append(errs, fmt.Errorf("%w: extension header without XTENSION", ErrMalformedCard)), false
	}
	size, err := DataSize(h)
	if err != nil {
		return nil, append(errs, err), false
	}

	body := data[headerLen:]
	payload := body
	if len(body) < size {
		errs = append(errs, &SizeError{What: "unit data", Declared: int64(size), Actual: int64(len(body))})
	} else {
		payload = body[:size]
	}
	end := min(len(data), headerLen+PaddedSize(size))

	u := &Unit{
		Header:    h,
		Kind:      classifyUnit(index, h),
		Data:      payload,
		raw:       data[:end],
		headerLen: headerLen,
	}
	bitpix, _ := h.Int("BITPIX")
	u.BitPix = int(bitpix)

	switch u.Kind {
	case KindPrimary, KindImage:
		naxis, _ := h.Int("NAXIS")
		for i := 1; i <= int(naxis); i++ {
			a, _ := checkedInt(h.intOr(fmt.Sprintf("NAXIS%d", i), 0))
			u.Axes = append(u.Axes, a)
		}
	case KindBinTable:
		t, terrs := decodeTable(h, payload)
		errs = append(errs, terrs...)
		u.Table = t
	}
	return u, errs, true
}

func classifyUnit(index int, h *Header) UnitKind {
	if index == 0 {
		if groups, _ := h.Bool("GROUPS"); groups {
			return KindOther
		}
		return KindPrimary
	}
	xt, _ := h.String("XTENSION")
	switch xt {
	case "IMAGE":
		return KindImage
	case "BINTABLE":
		return KindBinTable
	default:
		return KindOther
	}
}

func isZeroFill(b []byte) bool {
	return len(bytes.Trim(b, "\x00 ")) == 0
}

// Primary returns the first unit, or nil for an empty file.
func (f *File) Primary() *Unit {
	if f == nil || len(f.Units) == 0 {
		return nil
	}
	return f.Units[0]
}

// Unit returns the first extension whose EXTNAME equals name.
func (f *File) Unit(name string) (*Unit, int) {
	for i, u := range f.Units {
		if i > 0 && u.Name() == name {
			return u, i
		}
	}
	return nil, -1
}

// Size returns the number of bytes that were decoded.
func (f *File) Size() int {
	return len(f.data)
}

// Close releases file resources and any mmap backing.
func (f *File) Close() error {
	if f == nil {
		return nil
	}
	var err error
	if f.data != nil && f.mmapped {
		err = unix.Munmap(f.data)
	}
	f.data = nil
	f.Units = nil
	f.mmapped = false
	return err
}
