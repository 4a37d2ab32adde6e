package fits

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Writer streams units to an io.Writer. The first unit must be a primary.
type Writer struct {
	w       io.Writer
	opts    EncodeOptions
	units   int
	written int64
	closed  bool

	mu sync.Mutex
}

// NewWriter returns a writer that encodes every unit with opts. Extend is
// ignored for extensions.
func NewWriter(w io.Writer, opts EncodeOptions) (*Writer, error) {
	if w == nil {
		return nil, errors.New("fits: nil writer")
	}
	return &Writer{w: w, opts: opts}, nil
}

// WriteUnit encodes u and writes it.
func (w *Writer) WriteUnit(u *Unit) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errors.New("fits: writer already finalised")
	}
	if u == nil {
		return errors.New("fits: nil unit")
	}
	if w.units == 0 && !isPrimary(u) {
		return errors.New("fits: first unit must be a primary")
	}
	if w.units > 0 && isPrimary(u) {
		return errors.New("fits: primary unit after the first position")
	}

	b, err := EncodeUnit(u, w.opts)
	if err != nil {
		return fmt.Errorf("unit %d: %w", w.units, err)
	}
	if err := writeFull(w.w, b); err != nil {
		return err
	}
	w.units++
	w.written += int64(len(b))
	return nil
}

// Written returns the number of bytes written so far.
func (w *Writer) Written() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// Finalise checks that at least one unit was written and syncs the
// destination when it is a file. After Finalise, the writer must not be used
// again.
func (w *Writer) Finalise() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errors.New("fits: writer already finalised")
	}
	w.closed = true
	if w.units == 0 {
		return errors.New("fits: no units written")
	}
	if f, ok := w.w.(*os.File); ok {
		return f.Sync()
	}
	return nil
}

func isPrimary(u *Unit) bool {
	switch u.Kind {
	case KindPrimary:
		return true
	case KindOther:
		return u.Header != nil && u.Header.Has("SIMPLE")
	default:
		return false
	}
}

// Encode serialises units as a complete file. EXTEND is set on the primary
// when extensions follow.
func Encode(units []*Unit, checksum bool) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeTo(&buf, units, checksum); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeTo(dst io.Writer, units []*Unit, checksum bool) error {
	if len(units) == 0 {
		return errors.New("fits: no units")
	}
	w, err := NewWriter(dst, EncodeOptions{Checksum: checksum, Extend: len(units) > 1})
	if err != nil {
		return err
	}
	for _, u := range units {
		if err := w.WriteUnit(u); err != nil {
			return err
		}
	}
	return nil
}

// WriteFile writes units to path. The file is written under a temporary
// name in the same directory and renamed into place once synced.
func WriteFile(path string, units []*Unit, checksum bool) error {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(tmp)
	}

	if err := encodeTo(f, units, checksum); err != nil {
		cleanup()
		return err
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func writeFull(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}
