package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestResolveInputs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.fits", "a.FIT", "c.fts", "notes.txt"} {
		touch(t, filepath.Join(dir, name))
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.fits"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	single := filepath.Join(t.TempDir(), "single.dat")
	touch(t, single)

	got, err := resolveInputs([]string{dir, single})
	if err != nil {
		t.Fatalf("resolveInputs: %v", err)
	}
	want := []string{
		filepath.Join(dir, "a.FIT"),
		filepath.Join(dir, "b.fits"),
		filepath.Join(dir, "c.fts"),
		single,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("resolveInputs = %v, want %v", got, want)
	}

	if _, err := resolveInputs(nil); err == nil {
		t.Fatalf("expected error for no arguments")
	}
	if _, err := resolveInputs([]string{t.TempDir()}); err == nil {
		t.Fatalf("expected error for a directory without FITS files")
	}
	if _, err := resolveInputs([]string{filepath.Join(dir, "missing.fits")}); err == nil {
		t.Fatalf("expected error for a missing file")
	}
}

func TestResolveOut(t *testing.T) {
	in := filepath.Join(t.TempDir(), "image.fits")
	touch(t, in)

	t.Run("explicit output wins", func(t *testing.T) {
		outPath := filepath.Join(t.TempDir(), "nested", "copy.fits")
		got, inPlace, err := resolveOut(in, outPath)
		if err != nil {
			t.Fatalf("resolveOut: %v", err)
		}
		if got != outPath || inPlace {
			t.Fatalf("resolveOut = %q, %v", got, inPlace)
		}
		if _, err := os.Stat(filepath.Dir(got)); err != nil {
			t.Fatalf("expected output directory to exist: %v", err)
		}
	})

	t.Run("env output dir", func(t *testing.T) {
		envDir := filepath.Join(t.TempDir(), "out")
		t.Setenv(envOutDir, envDir)
		got, inPlace, err := resolveOut(in, "")
		if err != nil {
			t.Fatalf("resolveOut: %v", err)
		}
		if got != filepath.Join(envDir, "image.fits") || inPlace {
			t.Fatalf("resolveOut = %q, %v", got, inPlace)
		}
	})

	t.Run("default is in place", func(t *testing.T) {
		t.Setenv(envOutDir, "")
		got, inPlace, err := resolveOut(in, "")
		if err != nil {
			t.Fatalf("resolveOut: %v", err)
		}
		if got != in || !inPlace {
			t.Fatalf("resolveOut = %q, %v", got, inPlace)
		}
	})
}
