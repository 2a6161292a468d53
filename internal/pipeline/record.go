// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/dentex-coco/internal/atomicfile"
	"github.com/pdiddy/dentex-coco/pkg/types"
)

// recordFile is written next to the output manifests.
const recordFile = "split.yaml"

// Record is the on-disk account of how a variant was split, so a run can
// be audited or reproduced with the same seed.
type Record struct {
	RunID      string      `yaml:"run_id"`
	Variant    string      `yaml:"variant"`
	Seed       int64       `yaml:"seed"`
	TrainRatio float64     `yaml:"train_ratio"`
	CreatedAt  time.Time   `yaml:"created_at"`
	Counts     RecordCount `yaml:"counts"`
	Split      types.Split `yaml:"split"`
}

// RecordCount holds the per-side image totals.
type RecordCount struct {
	Train int `yaml:"train"`
	Val   int `yaml:"val"`
}

// NewRecord builds a Record for a finished split.
func NewRecord(runID, variant string, seed int64, ratio float64, s types.Split) Record {
	return Record{
		RunID:      runID,
		Variant:    variant,
		Seed:       seed,
		TrainRatio: ratio,
		CreatedAt:  time.Now().UTC(),
		Counts:     RecordCount{Train: len(s.Train), Val: len(s.Val)},
		Split:      s,
	}
}

// RecordPath returns where the split record for cfg is written.
func RecordPath(cfg types.VariantConfig) string {
	return filepath.Join(cfg.AnnotationsDir(), recordFile)
}

// WriteRecord saves rec as YAML at path, replacing any earlier record
// through a temp file and rename.
func WriteRecord(path string, rec Record) error {
	data, err := yaml.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("marshaling split record: %w", err)
	}
	if err := atomicfile.Write(path, data); err != nil {
		return fmt.Errorf("writing split record: %w", err)
	}
	return nil
}

// ReadRecord loads a split record written by WriteRecord.
func ReadRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading split record: %w", err)
	}
	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing split record: %w", err)
	}
	return &rec, nil
}
