// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline converts one DENTEX variant into COCO layout:
// load, validate, split, normalize, copy images, and write manifests.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/pdiddy/dentex-coco/internal/manifest"
	"github.com/pdiddy/dentex-coco/internal/materialize"
	"github.com/pdiddy/dentex-coco/internal/normalize"
	"github.com/pdiddy/dentex-coco/internal/split"
	"github.com/pdiddy/dentex-coco/internal/validate"
	"github.com/pdiddy/dentex-coco/internal/variant"
	"github.com/pdiddy/dentex-coco/pkg/types"
)

// lockFile is created in the variant output directory for the duration of a run.
const lockFile = ".lock"

// ErrLocked reports another run holding the variant's output directory.
var ErrLocked = errors.New("output directory is locked by another run")

// Result summarizes one variant run.
type Result struct {
	RunID       string
	Variant     string
	Seed        int64
	Images      map[types.SplitName]int
	Annotations map[types.SplitName]int
	Copied      materialize.Result
}

// Run converts the variant described by cfg. Nothing is written until the
// manifest has loaded and validated. After that the stages run to the
// first error, which is returned; partial output is left in place.
func Run(ctx context.Context, cfg types.VariantConfig, opts types.RunOptions, w io.Writer) (Result, error) {
	result := Result{
		RunID:   uuid.NewString(),
		Variant: cfg.Name,
	}

	fmt.Fprintf(w, "%s: loading %s\n", cfg.Name, cfg.ManifestPath)
	m, err := manifest.Load(cfg.ManifestPath)
	if err != nil {
		return result, err
	}
	fmt.Fprintf(w, "  loaded:  %d image(s), %d annotation(s), %d categor(ies)\n",
		len(m.Images), len(m.Annotations), len(m.Categories))

	if err := normalize.CheckMappings(cfg.Mappings); err != nil {
		return result, fmt.Errorf("%s: %w", cfg.Name, err)
	}
	categories, err := variant.Categories(cfg.Categories, m.Categories)
	if err != nil {
		return result, fmt.Errorf("%s: %w", cfg.Name, err)
	}

	if opts.SkipValidation {
		fmt.Fprintln(w, "  validate: skipped")
	} else {
		if err := validate.Run(m, cfg).Err(); err != nil {
			return result, err
		}
		fmt.Fprintln(w, "  validate: ok")
	}

	result.Seed = resolveSeed(opts)
	// Zero is the unset value; anything else, including a negative ratio,
	// goes to Assign as given.
	ratio := opts.TrainRatio
	if ratio == 0 {
		ratio = split.DefaultRatio
	}
	s, err := split.Assign(m.ImageIDs(), ratio, split.NewRand(result.Seed))
	if err != nil {
		return result, fmt.Errorf("%s: %w", cfg.Name, err)
	}
	fmt.Fprintf(w, "  split:   %d train, %d val (seed %d)\n", len(s.Train), len(s.Val), result.Seed)

	if err := normalize.Annotations(m.Annotations, cfg.Mappings); err != nil {
		return result, fmt.Errorf("%s: normalizing: %w", cfg.Name, err)
	}

	outputs := partition(m, s.Assignment(), categories)
	result.Images = make(map[types.SplitName]int, len(outputs))
	result.Annotations = make(map[types.SplitName]int, len(outputs))
	for side, out := range outputs {
		result.Images[side] = len(out.Images)
		result.Annotations[side] = len(out.Annotations)
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return result, fmt.Errorf("creating directory %s: %w", cfg.OutputDir, err)
	}
	lock := flock.New(filepath.Join(cfg.OutputDir, lockFile))
	locked, err := lock.TryLock()
	if err != nil {
		return result, fmt.Errorf("acquiring lock on %s: %w", cfg.OutputDir, err)
	}
	if !locked {
		return result, fmt.Errorf("%s: %w", cfg.OutputDir, ErrLocked)
	}
	defer lock.Unlock()

	dirs := make(map[types.SplitName]string, len(types.Splits))
	for _, side := range types.Splits {
		dirs[side] = cfg.SplitDir(side)
	}
	for _, dir := range []string{dirs[types.SplitTrain], dirs[types.SplitVal], cfg.AnnotationsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return result, fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	result.Copied, err = materialize.Copy(ctx, m.Images, s.Assignment(), cfg.ImageDir, dirs, w)
	if err != nil {
		return result, fmt.Errorf("%s: %w", cfg.Name, err)
	}

	for _, side := range types.Splits {
		path := cfg.ManifestOut(side)
		if err := manifest.Write(path, outputs[side]); err != nil {
			return result, fmt.Errorf("%s: writing %s manifest: %w", cfg.Name, side, err)
		}
		fmt.Fprintf(w, "  wrote:   %s (%d image(s), %d annotation(s))\n",
			path, result.Images[side], result.Annotations[side])
	}

	rec := NewRecord(result.RunID, cfg.Name, result.Seed, ratio, s)
	if err := WriteRecord(RecordPath(cfg), rec); err != nil {
		return result, fmt.Errorf("%s: %w", cfg.Name, err)
	}

	return result, nil
}

// RunAll runs each variant in order and stops at the first failure. Output
// from variants that already finished is kept.
func RunAll(ctx context.Context, cfgs []types.VariantConfig, opts types.RunOptions, w io.Writer) ([]Result, error) {
	results := make([]Result, 0, len(cfgs))
	for i, cfg := range cfgs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		r, err := Run(ctx, cfg, opts, w)
		if err != nil {
			return results, err
		}
		results = append(results, r)
	}
	return results, nil
}

// partition builds the train and val manifests. Annotations follow their
// image's side; annotations whose image has no side go to val.
func partition(m *types.Manifest, assignment map[int64]types.SplitName, categories []types.Category) map[types.SplitName]*types.Manifest {
	out := map[types.SplitName]*types.Manifest{
		types.SplitTrain: types.NewManifest(categories),
		types.SplitVal:   types.NewManifest(categories),
	}
	sideOf := func(id int64) types.SplitName {
		if side, ok := assignment[id]; ok {
			return side
		}
		return types.SplitVal
	}

	for _, img := range m.Images {
		dst := out[sideOf(img.ID)]
		dst.Images = append(dst.Images, img)
	}
	for _, ann := range m.Annotations {
		dst := out[sideOf(ann.ImageID)]
		dst.Annotations = append(dst.Annotations, ann)
	}
	return out
}

func resolveSeed(opts types.RunOptions) int64 {
	if opts.Random {
		return time.Now().UnixNano()
	}
	return opts.Seed
}
