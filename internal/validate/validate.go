// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package validate checks a loaded manifest and its image directory before
// anything is written, collecting every problem into one report.
package validate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/dentex-coco/pkg/types"
)

// IssueKind classifies a precondition failure.
type IssueKind string

const (
	DuplicateImageID  IssueKind = "duplicate-image-id"
	DuplicateFileName IssueKind = "duplicate-file-name"
	BadFileName       IssueKind = "bad-file-name"
	DanglingImageRef  IssueKind = "dangling-image-ref"
	MissingLabelField IssueKind = "missing-label-field"
	MissingImageFile  IssueKind = "missing-image-file"
)

// Issue is one precondition failure.
type Issue struct {
	Kind   IssueKind
	Detail string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Kind, i.Detail)
}

// Report collects the issues found for one variant.
type Report struct {
	Variant string
	Issues  []Issue
}

// OK reports whether no issues were found.
func (r *Report) OK() bool {
	return len(r.Issues) == 0
}

// Count returns the number of issues of kind.
func (r *Report) Count(kind IssueKind) int {
	n := 0
	for _, is := range r.Issues {
		if is.Kind == kind {
			n++
		}
	}
	return n
}

// Err returns a *ValidationError when issues were found, nil otherwise.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	return &ValidationError{Variant: r.Variant, Issues: r.Issues}
}

func (r *Report) add(kind IssueKind, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Kind: kind, Detail: fmt.Sprintf(format, args...)})
}

// maxListed caps the issues spelled out in a ValidationError message.
const maxListed = 10

// ValidationError lists every precondition failure for a variant.
type ValidationError struct {
	Variant string
	Issues  []Issue
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d validation issue(s)", e.Variant, len(e.Issues))
	for i, is := range e.Issues {
		if i == maxListed {
			fmt.Fprintf(&b, "\n  ... and %d more", len(e.Issues)-maxListed)
			break
		}
		fmt.Fprintf(&b, "\n  %s", is)
	}
	return b.String()
}

// Manifest checks identifiers, file names, image references, and label
// fields. It does not touch the filesystem.
func Manifest(m *types.Manifest, cfg types.VariantConfig) *Report {
	r := &Report{Variant: cfg.Name}

	ids := make(map[int64]bool, len(m.Images))
	names := make(map[string]int64, len(m.Images))
	for _, img := range m.Images {
		if ids[img.ID] {
			r.add(DuplicateImageID, "image id %d appears more than once", img.ID)
		}
		ids[img.ID] = true

		switch {
		case img.FileName == "":
			r.add(BadFileName, "image %d has an empty file_name", img.ID)
			continue
		case filepath.Base(img.FileName) != img.FileName || img.FileName == "." || img.FileName == "..":
			r.add(BadFileName, "image %d file_name %q is not a plain file name", img.ID, img.FileName)
			continue
		}
		if prev, ok := names[img.FileName]; ok {
			r.add(DuplicateFileName, "images %d and %d share file_name %q", prev, img.ID, img.FileName)
		} else {
			names[img.FileName] = img.ID
		}
	}

	for i, ann := range m.Annotations {
		if !ids[ann.ImageID] {
			r.add(DanglingImageRef, "annotation %d references unknown image id %d", i, ann.ImageID)
		}
		for _, mp := range cfg.Mappings {
			if _, ok := ann.Get(mp.Source); !ok {
				r.add(MissingLabelField, "annotation %d has no %q field", i, mp.Source)
			}
		}
	}

	return r
}

// Files checks that every image file exists as a regular file in
// cfg.ImageDir, appending issues to r.
func Files(r *Report, m *types.Manifest, cfg types.VariantConfig) {
	for _, img := range m.Images {
		if img.FileName == "" || filepath.Base(img.FileName) != img.FileName {
			continue
		}
		path := filepath.Join(cfg.ImageDir, img.FileName)
		info, err := os.Stat(path)
		switch {
		case err != nil:
			r.add(MissingImageFile, "image %d: %v", img.ID, err)
		case !info.Mode().IsRegular():
			r.add(MissingImageFile, "image %d: %s is not a regular file", img.ID, path)
		}
	}
}

// Run performs every check and returns the combined report.
func Run(m *types.Manifest, cfg types.VariantConfig) *Report {
	r := Manifest(m, cfg)
	Files(r, m, cfg)
	return r
}
