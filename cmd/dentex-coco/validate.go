// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/dentex-coco/internal/manifest"
	"github.com/pdiddy/dentex-coco/internal/normalize"
	"github.com/pdiddy/dentex-coco/internal/validate"
	"github.com/pdiddy/dentex-coco/pkg/types"
)

var validateCmd = &cobra.Command{
	Use:   "validate [variants...]",
	Short: "Check variant inputs without writing any output",
	Long: `Validate loads each variant's manifest and reports duplicate image ids or
file names, annotations that reference unknown images, annotations missing a
mapped label field, and image files missing from the source directory.
Every variant is checked even when an earlier one fails.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	variants, err := selectVariants(cfg, args)
	if err != nil {
		return err
	}

	failed := 0
	for _, v := range variants {
		if !validateVariant(v, os.Stdout) {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d variant(s) failed validation", failed)
	}
	return nil
}

// validateVariant prints the outcome for v and reports whether it passed.
func validateVariant(v types.VariantConfig, w io.Writer) bool {
	m, err := manifest.Load(v.ManifestPath)
	if err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", v.Name, err)
		return false
	}
	if err := normalize.CheckMappings(v.Mappings); err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", v.Name, err)
		return false
	}

	report := validate.Run(m, v)
	if err := report.Err(); err != nil {
		fmt.Fprintf(w, "failed:  %v\n", err)
		return false
	}
	fmt.Fprintf(w, "ok:      %s (%d images, %d annotations)\n", v.Name, len(m.Images), len(m.Annotations))
	return true
}
