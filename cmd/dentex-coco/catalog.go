// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pdiddy/dentex-coco/internal/catalog"
	"github.com/pdiddy/dentex-coco/pkg/types"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog [variants...]",
	Short: "Index converted output in SQLite and report split statistics",
	Long: `Catalog reads the instances_train2017.json and instances_val2017.json
written by convert, indexes them in <output-root>/catalog.db, and prints
per-split image and annotation counts, per-label annotation counts for the
chosen slot, and any annotations whose image is not in the same split.`,
	RunE: runCatalog,
}

func init() {
	catalogCmd.Flags().String("db", "", "catalog database path (default: <output-root>/catalog.db)")
	catalogCmd.Flags().Int("slot", 1, "label slot (1-3) to break annotation counts down by")
	catalogCmd.Flags().Bool("json", false, "output statistics as JSON")

	rootCmd.AddCommand(catalogCmd)
}

// variantStats is the catalog report for one variant.
type variantStats struct {
	Variant    string                  `json:"variant"`
	Splits     []catalog.SplitCount    `json:"splits"`
	Categories []catalog.CategoryCount `json:"categories"`
	Orphans    int                     `json:"orphans"`
}

func runCatalog(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	variants, err := selectVariants(cfg, args)
	if err != nil {
		return err
	}

	dbPath, _ := cmd.Flags().GetString("db")
	if dbPath == "" {
		dbPath = filepath.Join(cfg.OutputRoot, catalog.DBFile)
	}
	slot, _ := cmd.Flags().GetInt("slot")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	store, err := catalog.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	progress := os.Stdout
	if jsonOutput {
		progress = os.Stderr
	}

	stats := make([]variantStats, 0, len(variants))
	for _, v := range variants {
		if err := store.IngestVariant(ctx, v, progress); err != nil {
			return err
		}

		s := variantStats{Variant: v.Name}
		if s.Splits, err = store.SplitCounts(ctx, v.Name); err != nil {
			return err
		}
		if s.Categories, err = store.CategoryCounts(ctx, v.Name, slot); err != nil {
			return err
		}
		for _, side := range types.Splits {
			n, err := store.Orphans(ctx, v.Name, side)
			if err != nil {
				return err
			}
			s.Orphans += n
		}
		stats = append(stats, s)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}
	printStats(stats, slot)
	return nil
}

func printStats(stats []variantStats, slot int) {
	styled := shouldStyle(os.Stdout)
	for _, s := range stats {
		fmt.Printf("\n%s\n", s.Variant)

		splitRows := make([][]string, 0, len(s.Splits))
		for _, c := range s.Splits {
			splitRows = append(splitRows, []string{
				c.Split.DirName(), strconv.Itoa(c.Images), strconv.Itoa(c.Annotations),
			})
		}
		fmt.Println(renderTable([]string{"Split", "Images", "Annotations"}, splitRows,
			[]columnAlignment{alignLeft, alignRight, alignRight}, styled))

		catRows := make([][]string, 0, len(s.Categories))
		for _, c := range s.Categories {
			catRows = append(catRows, []string{
				strconv.FormatInt(c.CategoryID, 10), c.Name, strconv.Itoa(c.Train), strconv.Itoa(c.Val),
			})
		}
		fmt.Println(renderTable([]string{types.SlotField(slot), "Name", "Train", "Val"}, catRows,
			[]columnAlignment{alignRight, alignLeft, alignRight, alignRight}, styled))

		if s.Orphans > 0 {
			fmt.Printf("warning: %d annotation(s) reference images outside their split\n", s.Orphans)
		}
	}
}
