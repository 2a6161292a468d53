// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the dentex-coco CLI, which reshapes
// the DENTEX panoramic X-ray dataset into COCO train/val layout.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/dentex-coco/internal/split"
	"github.com/pdiddy/dentex-coco/internal/variant"
	"github.com/pdiddy/dentex-coco/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

const (
	defaultDatasetRoot = "dentex_dataset"
	defaultSeed        = 42
)

// rootCmd is the base command. With no subcommand it converts every variant.
var rootCmd = &cobra.Command{
	Use:   "dentex-coco",
	Short: "Convert the DENTEX dataset into COCO train/val layout",
	Long: `dentex-coco reads the DENTEX distribution (quadrant, quadrant_enumeration,
quadrant_enumeration_disease), splits each variant's images 80/20 into train
and val, copies the X-rays into train2017/ and val2017/, and writes
instances_train2017.json and instances_val2017.json with every annotation
normalized to category_id1, category_id2, and category_id3.

Running without a subcommand converts all three variants in order.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConvert(cmd, nil)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default: ./dentex-coco.yaml or ~/.config/dentex-coco/dentex-coco.yaml)")
	flags.String("dataset-root", defaultDatasetRoot, "DENTEX distribution root (contains origin/)")
	flags.String("output-root", "", "COCO output root (default: <dataset-root>/coco)")
	flags.Int64("seed", defaultSeed, "seed for the train/val shuffle")
	flags.Bool("random", false, "seed the shuffle from the clock; the seed is recorded in split.yaml")
	flags.Float64("train-ratio", split.DefaultRatio, "fraction of images assigned to train, in [0, 1]")
	flags.Bool("skip-validation", false,
		"skip precondition checks before copying; images sharing a file_name then overwrite each other in the split directory")

	bindConfig(viper.GetViper())
}

// flagKeys maps configuration keys to the persistent flags that set them.
var flagKeys = map[string]string{
	"dataset_root":    "dataset-root",
	"output_root":     "output-root",
	"seed":            "seed",
	"random":          "random",
	"train_ratio":     "train-ratio",
	"skip_validation": "skip-validation",
}

// bindConfig ties v to the root command's flags and to DENTEX_COCO_*
// environment variables.
func bindConfig(v *viper.Viper) {
	flags := rootCmd.PersistentFlags()
	for key, flag := range flagKeys {
		cobra.CheckErr(v.BindPFlag(key, flags.Lookup(flag)))
	}
	v.SetEnvPrefix("DENTEX_COCO")
	v.AutomaticEnv()
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("dentex-coco")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "dentex-coco"))
		}
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig assembles the run configuration from flags, environment, and
// the config file.
func loadConfig() (types.Config, error) {
	return decodeConfig(viper.GetViper())
}

// decodeConfig reads a types.Config out of v, fills in the default roots,
// and rejects a train ratio outside [0, 1].
func decodeConfig(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}
	if err := split.CheckRatio(cfg.TrainRatio); err != nil {
		return cfg, fmt.Errorf("train_ratio: %w", err)
	}
	if cfg.DatasetRoot == "" {
		cfg.DatasetRoot = defaultDatasetRoot
	}
	if cfg.OutputRoot == "" {
		cfg.OutputRoot = filepath.Join(cfg.DatasetRoot, "coco")
	}
	return cfg, nil
}

// selectVariants returns the configured variants (or the built-in three)
// filtered by names.
func selectVariants(cfg types.Config, names []string) ([]types.VariantConfig, error) {
	all := cfg.Variants
	if len(all) == 0 {
		all = variant.Builtin(cfg.DatasetRoot, cfg.OutputRoot)
	}
	return variant.Select(all, names)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
