package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

// Convert builds the CLI and converts all three DENTEX variants into
// dentex_dataset/coco with the default seed.
func Convert() error {
	mg.Deps(Build)

	cmd := exec.Command(filepath.Join(binDir, binName), "convert")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("[convert] %w", err)
	}
	return nil
}

// Catalog indexes the converted output and prints split statistics.
func Catalog() error {
	mg.Deps(Convert)

	cmd := exec.Command(filepath.Join(binDir, binName), "catalog")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("[catalog] %w", err)
	}
	return nil
}
