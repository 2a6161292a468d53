// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "path/filepath"

// CategorySource selects how a variant builds its output label vocabulary.
type CategorySource string

const (
	// CategoriesFromSource copies the input manifest's categories unchanged.
	CategoriesFromSource CategorySource = "source"
	// CategoriesEnumeration synthesizes 32 tooth-number categories.
	CategoriesEnumeration CategorySource = "enumeration"
	// CategoriesDisease uses the four fixed pathology categories.
	CategoriesDisease CategorySource = "disease"
)

// FieldMapping copies one source annotation field into a label slot.
type FieldMapping struct {
	// Source is the input annotation field (e.g. "category_id_1").
	Source string `json:"source" yaml:"source" mapstructure:"source"`

	// Slot is the one-based output slot; 1 writes category_id1.
	Slot int `json:"slot" yaml:"slot" mapstructure:"slot"`

	// Remove deletes Source from the record after mapping.
	Remove bool `json:"remove" yaml:"remove" mapstructure:"remove"`
}

// VariantConfig describes one dataset variant: where its input lives,
// where its COCO output goes, and how its labels are normalized.
type VariantConfig struct {
	// Name identifies the variant (quadrant, enumeration, disease).
	Name string `json:"name" yaml:"name" mapstructure:"name"`

	// ManifestPath is the input annotation JSON file.
	ManifestPath string `json:"manifest_path" yaml:"manifest_path" mapstructure:"manifest_path"`

	// ImageDir is the directory holding the files named by image file_name.
	ImageDir string `json:"image_dir" yaml:"image_dir" mapstructure:"image_dir"`

	// OutputDir is the variant's COCO root (contains train2017/, val2017/, annotations/).
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`

	// Categories selects the output vocabulary.
	Categories CategorySource `json:"categories" yaml:"categories" mapstructure:"categories"`

	// Mappings lists source field to slot assignments; unmapped slots are null.
	Mappings []FieldMapping `json:"mappings" yaml:"mappings" mapstructure:"mappings"`
}

// SplitDir returns the image directory for one split side.
func (v VariantConfig) SplitDir(s SplitName) string {
	return filepath.Join(v.OutputDir, s.DirName())
}

// AnnotationsDir returns the directory holding the output manifests.
func (v VariantConfig) AnnotationsDir() string {
	return filepath.Join(v.OutputDir, "annotations")
}

// ManifestOut returns the output manifest path for one split side.
func (v VariantConfig) ManifestOut(s SplitName) string {
	return filepath.Join(v.AnnotationsDir(), s.ManifestName())
}

// RunOptions holds the settings shared by every variant in a run.
type RunOptions struct {
	// Seed drives the split shuffle. Ignored when Random is set.
	Seed int64 `json:"seed" yaml:"seed" mapstructure:"seed"`

	// Random seeds the shuffle from the clock; the chosen seed is recorded in split.yaml.
	Random bool `json:"random" yaml:"random" mapstructure:"random"`

	// TrainRatio is the fraction of images assigned to train (default 0.8).
	TrainRatio float64 `json:"train_ratio" yaml:"train_ratio" mapstructure:"train_ratio"`

	// SkipValidation disables the precondition checks before copying.
	SkipValidation bool `json:"skip_validation" yaml:"skip_validation" mapstructure:"skip_validation"`
}

// Config is the full tool configuration as read from flags, environment,
// and dentex-coco.yaml.
type Config struct {
	RunOptions `yaml:",inline" mapstructure:",squash"`

	// DatasetRoot is the DENTEX distribution root (contains origin/).
	DatasetRoot string `json:"dataset_root" yaml:"dataset_root" mapstructure:"dataset_root"`

	// OutputRoot is the COCO output root (default <DatasetRoot>/coco).
	OutputRoot string `json:"output_root" yaml:"output_root" mapstructure:"output_root"`

	// Variants replaces the built-in variant list when non-empty.
	Variants []VariantConfig `json:"variants,omitempty" yaml:"variants,omitempty" mapstructure:"variants"`
}
