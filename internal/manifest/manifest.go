// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package manifest reads and writes COCO-style annotation files.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdiddy/dentex-coco/internal/atomicfile"
	"github.com/pdiddy/dentex-coco/pkg/types"
)

var (
	// ErrRead reports a manifest that is missing or unreadable.
	ErrRead = errors.New("reading manifest")
	// ErrParse reports a manifest that is not valid annotation JSON.
	ErrParse = errors.New("parsing manifest")
)

// indent matches the four-space layout of the DENTEX distribution files.
const indent = "    "

// Load reads the manifest at path. No consistency checks are made here;
// see package validate.
func Load(path string) (*types.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrRead, path, err)
	}
	m, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrParse, path, err)
	}
	return m, nil
}

// Decode parses manifest JSON. Missing collections decode as empty.
func Decode(data []byte) (*types.Manifest, error) {
	var m types.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m.Images == nil {
		m.Images = []types.Image{}
	}
	if m.Annotations == nil {
		m.Annotations = []types.Annotation{}
	}
	if m.Categories == nil {
		m.Categories = []types.Category{}
	}
	return &m, nil
}

// Encode renders m as indented JSON with a trailing newline.
func Encode(m *types.Manifest) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("marshaling manifest: %w", err)
	}
	return buf.Bytes(), nil
}

// Write serializes m to path, creating the parent directory and replacing
// any existing file. The content goes to a temp file in the same directory
// first and is renamed into place.
func Write(path string, m *types.Manifest) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	return atomicfile.Write(path, data)
}
