package fits

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileOpenRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "events.fits")
	tbl := newEventTable(t)
	ext := NewBinTable(tbl)
	ext.Header.Set("EXTNAME", StringValue("EVENTS"), "")
	if err := WriteFile(path, []*Unit{NewPrimary(8, nil, nil), ext}, true); err != nil {
		t.Fatalf("write file: %v", err)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temporary file left behind: %v", entries)
	}

	f, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			t.Fatalf("close: %v", cerr)
		}
	}()
	if issues := f.Verify(); len(issues) != 0 {
		t.Fatalf("issues: %v", issues)
	}
	u, _ := f.Unit("EVENTS")
	if u == nil || u.Table.NumRows() != 2 {
		t.Fatalf("EVENTS table not decoded")
	}
}

func TestOpenReaderAtMatchesDecode(t *testing.T) {
	t.Parallel()

	b, err := Encode([]*Unit{NewPrimary(16, []int{2}, []byte{0, 1, 0, 2})}, true)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	f, err := OpenReaderAt(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		t.Fatalf("open reader at: %v", err)
	}
	if f.mmapped {
		t.Fatalf("OpenReaderAt should not mmap")
	}
	if f.Size() != len(b) {
		t.Fatalf("size = %d", f.Size())
	}
	pix, err := f.Primary().Pixels()
	if err != nil {
		t.Fatalf("pixels: %v", err)
	}
	if got := pix.(Int16s); len(got) != 2 || got[1] != 2 {
		t.Fatalf("pixels = %v", got)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if f.Primary() != nil {
		t.Fatalf("units survive Close")
	}
}

func TestWriterOrdering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w, err := NewWriter(&buf, EncodeOptions{})
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	if err := w.WriteUnit(NewImage(8, nil, nil)); err == nil {
		t.Fatalf("extension accepted as first unit")
	}
	if err := w.WriteUnit(NewPrimary(8, nil, nil)); err != nil {
		t.Fatalf("write primary: %v", err)
	}
	if err := w.WriteUnit(NewPrimary(8, nil, nil)); err == nil {
		t.Fatalf("second primary accepted")
	}
	if err := w.WriteUnit(NewImage(8, []int{3}, []byte{1, 2, 3})); err != nil {
		t.Fatalf("write image: %v", err)
	}
	if err := w.Finalise(); err != nil {
		t.Fatalf("finalise: %v", err)
	}
	if err := w.WriteUnit(NewImage(8, nil, nil)); err == nil {
		t.Fatalf("write after finalise accepted")
	}
	if w.Written() != int64(buf.Len()) || buf.Len() != 3*BlockSize {
		t.Fatalf("written %d, buffer %d", w.Written(), buf.Len())
	}
}

func TestWriterFinaliseEmpty(t *testing.T) {
	t.Parallel()

	w, err := NewWriter(&bytes.Buffer{}, EncodeOptions{})
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	if err := w.Finalise(); err == nil {
		t.Fatalf("empty file finalised")
	}
}
