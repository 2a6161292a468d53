// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pdiddy/dentex-coco/internal/pipeline"
	"github.com/pdiddy/dentex-coco/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert [variants...]",
	Short: "Split, copy, and normalize DENTEX variants into COCO layout",
	Long: `Convert runs the full pipeline for each named variant (quadrant,
enumeration, disease), or for all of them when none are named. Variants run
in that fixed order; the first failure stops the run and leaves the output
of variants that already finished in place.

Each variant writes <output-root>/<variant>/{train2017,val2017}/ and
annotations/{instances_train2017.json,instances_val2017.json,split.yaml}.`,
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	variants, err := selectVariants(cfg, args)
	if err != nil {
		return err
	}

	results, runErr := pipeline.RunAll(cmd.Context(), variants, cfg.RunOptions, os.Stdout)
	if len(results) > 0 {
		fmt.Fprintln(os.Stdout)
		fmt.Fprintln(os.Stdout, renderResults(results, shouldStyle(os.Stdout)))
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "convert: %d of %d variant(s) finished\n", len(results), len(variants))
		return runErr
	}
	return nil
}

func renderResults(results []pipeline.Result, styled bool) string {
	headers := []string{"Variant", "Train", "Val", "Annotations", "Copied", "Seed"}
	aligns := []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight}

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			r.Variant,
			strconv.Itoa(r.Images[types.SplitTrain]),
			strconv.Itoa(r.Images[types.SplitVal]),
			strconv.Itoa(r.Annotations[types.SplitTrain] + r.Annotations[types.SplitVal]),
			humanize.Bytes(uint64(r.Copied.TotalBytes())),
			strconv.FormatInt(r.Seed, 10),
		})
	}
	return renderTable(headers, rows, aligns, styled)
}
