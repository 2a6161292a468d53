// Package main contains Mage build targets for dentex-coco developer tooling.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/pdiddy/dentex-coco/internal/variant"
	"github.com/pdiddy/dentex-coco/pkg/types"
)

// datasetRoot is the default DENTEX distribution root, relative to the repo.
const datasetRoot = "dentex_dataset"

// projectDirs lists the DENTEX distribution directories the pipeline reads.
// The dataset archives are unpacked into these by hand.
var projectDirs = []string{
	"dentex_dataset/origin/quadrant/xrays",
	"dentex_dataset/origin/quadrant_enumeration/xrays",
	"dentex_dataset/origin/quadrant_enumeration_disease/xrays",
	"dentex_dataset/coco",
}

// Init creates the dataset directory skeleton.
func Init() error {
	for _, dir := range projectDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	fmt.Println("Project directories initialized.")
	return nil
}

const (
	binDir  = "bin"
	binName = "dentex-coco"
	cmdPkg  = "./cmd/dentex-coco"
)

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	cmd := exec.Command("go", "build", "-o", out, cmdPkg)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs the unit tests for every package.
func Test() error {
	cmd := exec.Command("go", "test", "./...")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("go test: %w", err)
	}
	return nil
}

// Stats prints Go line counts and, for each variant, how many source and
// converted images are on disk under dentex_dataset.
func Stats() error {
	prodLines, testLines, err := countGoLines(".")
	if err != nil {
		return err
	}
	fmt.Printf("Lines of code (Go, production): %d\n", prodLines)
	fmt.Printf("Lines of code (Go, tests):      %d\n", testLines)

	for _, v := range variant.Builtin(datasetRoot, "") {
		src, srcBytes, err := countFiles(v.ImageDir)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d source image(s), %s\n", v.Name, src, humanize.Bytes(uint64(srcBytes)))
		for _, side := range types.Splits {
			n, size, err := countFiles(v.SplitDir(side))
			if err != nil {
				return err
			}
			fmt.Printf("  %-9s %d file(s), %s\n", side.DirName()+":", n, humanize.Bytes(uint64(size)))
		}
	}
	return nil
}

// countGoLines counts non-blank lines in production and test Go files,
// skipping hidden and underscore-prefixed directories.
func countGoLines(root string) (prod, test int, err error) {
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		n := 0
		for _, line := range strings.Split(string(data), "\n") {
			if strings.TrimSpace(line) != "" {
				n++
			}
		}
		if strings.HasSuffix(path, "_test.go") {
			test += n
		} else {
			prod += n
		}
		return nil
	})
	return prod, test, err
}

// countFiles returns the number and total size of regular files directly
// in dir. A missing directory counts as empty.
func countFiles(dir string) (int, int64, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("reading %s: %w", dir, err)
	}
	var n int
	var size int64
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return 0, 0, fmt.Errorf("stat %s: %w", filepath.Join(dir, e.Name()), err)
		}
		n++
		size += info.Size()
	}
	return n, size, nil
}
