package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var fitsExtensions = []string{".fits", ".fit", ".fts"}

func isFITSName(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range fitsExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// resolveInputs expands the command arguments into FITS file paths.
// Directories contribute their FITS files (not recursively) in sorted order.
func resolveInputs(args []string) ([]string, error) {
	if len(args) == 0 {
		return nil, errors.New("at least one FITS file or directory is required")
	}
	var out []string
	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			continue
		}
		st, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !st.IsDir() {
			out = append(out, filepath.Clean(arg))
			continue
		}
		found, err := discoverFITSFiles(arg)
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			return nil, fmt.Errorf("no FITS files found in %s", arg)
		}
		out = append(out, found...)
	}
	if len(out) == 0 {
		return nil, errors.New("at least one FITS file or directory is required")
	}
	return out, nil
}

func discoverFITSFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() || !isFITSName(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// resolveOut picks the output path for a command that writes a copy of in.
// An explicit flag wins; otherwise $FITSKIT_OUT_DIR/<base> when the variable
// is set; otherwise in itself. The second result reports whether in would be
// replaced.
func resolveOut(in, outFlag string) (string, bool, error) {
	outFlag = strings.TrimSpace(outFlag)
	if outFlag != "" {
		outPath := filepath.Clean(outFlag)
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return "", false, err
		}
		return outPath, sameFile(in, outPath), nil
	}

	outDir := strings.TrimSpace(os.Getenv(envOutDir))
	if outDir == "" {
		return filepath.Clean(in), true, nil
	}
	outPath := filepath.Join(outDir, filepath.Base(in))
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", false, err
	}
	return outPath, sameFile(in, outPath), nil
}

func sameFile(a, b string) bool {
	sa, err := os.Stat(a)
	if err != nil {
		return false
	}
	sb, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(sa, sb)
}
