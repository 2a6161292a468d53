// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package atomicfile replaces files by writing a temp file in the target
// directory and renaming it into place, so readers never see a partial file.
package atomicfile

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Mode is the permission given to every file written here.
const Mode os.FileMode = 0o644

// Write replaces path with data. The parent directory must exist.
func Write(path string, data []byte) error {
	_, err := Copy(path, bytes.NewReader(data))
	return err
}

// Copy replaces path with the contents of r and returns the bytes written.
// On any failure the temp file is removed and path is left untouched.
func Copy(path string, r io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return 0, fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Chmod(tmpPath, Mode); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("setting mode on %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("renaming into %s: %w", path, err)
	}
	return n, nil
}
