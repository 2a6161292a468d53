// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/dentex-coco/internal/manifest"
	"github.com/pdiddy/dentex-coco/internal/materialize"
	"github.com/pdiddy/dentex-coco/internal/split"
	"github.com/pdiddy/dentex-coco/internal/validate"
	"github.com/pdiddy/dentex-coco/internal/variant"
	"github.com/pdiddy/dentex-coco/pkg/types"
)

// --- test helpers ---

var defaultOpts = types.RunOptions{Seed: 42, TrainRatio: 0.8}

// writeSource creates the manifest and image files for cfg. labels builds
// the label fields for the annotation of image i.
func writeSource(t *testing.T, cfg types.VariantConfig, n int, labels func(i int) string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(cfg.ImageDir, 0o755))

	var images, anns []string
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("train_%d.png", i)
		images = append(images, fmt.Sprintf(`{"id": %d, "file_name": %q, "width": 100, "height": 50}`, i, name))
		anns = append(anns, fmt.Sprintf(`{"id": %d, "image_id": %d, "bbox": [1, 2, 3, 4], %s}`, 100+i, i, labels(i)))
		require.NoError(t, os.WriteFile(filepath.Join(cfg.ImageDir, name), []byte(fmt.Sprintf("img-%d", i)), 0o644))
	}
	doc := fmt.Sprintf(`{"images": [%s], "annotations": [%s], "categories": [{"id": 0, "name": "1", "supercategory": "1"}]}`,
		join(images), join(anns))
	require.NoError(t, os.WriteFile(cfg.ManifestPath, []byte(doc), 0o644))
}

func join(parts []string) string {
	var b bytes.Buffer
	for i, p := range parts {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p)
	}
	return b.String()
}

func builtin(t *testing.T) []types.VariantConfig {
	t.Helper()
	root := t.TempDir()
	return variant.Builtin(filepath.Join(root, "dentex_dataset"), "")
}

func loadOutput(t *testing.T, cfg types.VariantConfig, side types.SplitName) *types.Manifest {
	t.Helper()
	m, err := manifest.Load(cfg.ManifestOut(side))
	require.NoError(t, err)
	return m
}

func filesIn(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func quadrantLabels(i int) string { return fmt.Sprintf(`"category_id": %d`, i) }

func enumerationLabels(i int) string {
	return fmt.Sprintf(`"category_id_1": %d, "category_id_2": %d`, i%4, i%8)
}

func diseaseLabels(i int) string {
	return fmt.Sprintf(`"category_id_1": %d, "category_id_2": %d, "category_id_3": %d`, i%4, i%8, i%4)
}

// --- tests ---

func TestRunQuadrantScenario(t *testing.T) {
	cfg := builtin(t)[0]
	writeSource(t, cfg, 10, quadrantLabels)

	var log bytes.Buffer
	result, err := Run(context.Background(), cfg, defaultOpts, &log)
	require.NoError(t, err)

	train := loadOutput(t, cfg, types.SplitTrain)
	val := loadOutput(t, cfg, types.SplitVal)

	assert.Len(t, train.Images, 8)
	assert.Len(t, train.Annotations, 8)
	assert.Len(t, val.Images, 2)
	assert.Len(t, val.Annotations, 2)
	assert.Equal(t, 8, result.Images[types.SplitTrain])
	assert.Equal(t, 2, result.Annotations[types.SplitVal])

	for _, m := range []*types.Manifest{train, val} {
		for _, ann := range m.Annotations {
			orig, ok := ann.Get("category_id")
			require.True(t, ok, "quadrant keeps category_id")
			slot1, _ := ann.Get("category_id1")
			assert.JSONEq(t, string(orig), string(slot1))
			assert.JSONEq(t, fmt.Sprint(ann.ImageID), string(orig))
			for _, slot := range []int{2, 3} {
				raw, ok := ann.Get(types.SlotField(slot))
				require.True(t, ok, "slot %d present", slot)
				assert.Equal(t, "null", string(raw))
			}
		}
		assert.Equal(t, []types.Category{{ID: 0, Name: "1", Supercategory: "1"}}, plainCategories(m.Categories))
	}

	assert.Contains(t, log.String(), "quadrant: loading")
	assert.Contains(t, log.String(), "split:   8 train, 2 val (seed 42)")
}

func TestRunRoundTrip(t *testing.T) {
	for i, labels := range []func(int) string{quadrantLabels, enumerationLabels, diseaseLabels} {
		cfg := builtin(t)[i]
		t.Run(cfg.Name, func(t *testing.T) {
			writeSource(t, cfg, 23, labels)

			_, err := Run(context.Background(), cfg, defaultOpts, &bytes.Buffer{})
			require.NoError(t, err)

			seen := make(map[int64]types.SplitName)
			for _, side := range types.Splits {
				m := loadOutput(t, cfg, side)

				var names []string
				ids := make(map[int64]bool)
				for _, img := range m.Images {
					names = append(names, img.FileName)
					ids[img.ID] = true
					_, dup := seen[img.ID]
					assert.False(t, dup, "image %d in both splits", img.ID)
					seen[img.ID] = side
				}
				sort.Strings(names)
				assert.Equal(t, names, filesIn(t, cfg.SplitDir(side)), "files match manifest for %s", side)

				for _, ann := range m.Annotations {
					assert.True(t, ids[ann.ImageID], "annotation references image %d in same manifest", ann.ImageID)
				}
			}
			assert.Len(t, seen, 23)

			train := loadOutput(t, cfg, types.SplitTrain)
			assert.Len(t, train.Images, 18)
		})
	}
}

func TestRunEnumeration(t *testing.T) {
	cfg := builtin(t)[1]
	writeSource(t, cfg, 5, enumerationLabels)

	_, err := Run(context.Background(), cfg, defaultOpts, &bytes.Buffer{})
	require.NoError(t, err)

	for _, side := range types.Splits {
		m := loadOutput(t, cfg, side)
		assert.Equal(t, variant.EnumerationCategories(), plainCategories(m.Categories))
		for _, ann := range m.Annotations {
			_, hasOld1 := ann.Get("category_id_1")
			_, hasOld2 := ann.Get("category_id_2")
			assert.False(t, hasOld1)
			assert.False(t, hasOld2)
			slot1, _ := ann.Get("category_id1")
			slot2, _ := ann.Get("category_id2")
			slot3, _ := ann.Get("category_id3")
			assert.JSONEq(t, fmt.Sprint(ann.ImageID%4), string(slot1))
			assert.JSONEq(t, fmt.Sprint(ann.ImageID%8), string(slot2))
			assert.Equal(t, "null", string(slot3))
		}
	}
}

func TestRunDisease(t *testing.T) {
	cfg := builtin(t)[2]
	writeSource(t, cfg, 5, diseaseLabels)

	_, err := Run(context.Background(), cfg, defaultOpts, &bytes.Buffer{})
	require.NoError(t, err)

	train := loadOutput(t, cfg, types.SplitTrain)
	val := loadOutput(t, cfg, types.SplitVal)
	assert.Equal(t, variant.DiseaseCategories(), plainCategories(train.Categories))
	assert.Equal(t, train.Categories, val.Categories)

	for _, ann := range append(train.Annotations, val.Annotations...) {
		for slot := 1; slot <= types.LabelSlots; slot++ {
			raw, ok := ann.Get(types.SlotField(slot))
			require.True(t, ok)
			assert.NotEqual(t, "null", string(raw))
			_, old := ann.Get(fmt.Sprintf("category_id_%d", slot))
			assert.False(t, old)
		}
	}
}

// plainCategories drops everything but id, name and supercategory so
// loaded categories compare equal to ones built in code.
func plainCategories(cats []types.Category) []types.Category {
	out := make([]types.Category, len(cats))
	for i, c := range cats {
		out[i] = types.Category{ID: c.ID, Name: c.Name, Supercategory: c.Supercategory}
	}
	return out
}

func TestRunDeterministicSeed(t *testing.T) {
	idsFor := func(seed int64) []int64 {
		cfg := builtin(t)[0]
		writeSource(t, cfg, 30, quadrantLabels)
		opts := defaultOpts
		opts.Seed = seed
		_, err := Run(context.Background(), cfg, opts, &bytes.Buffer{})
		require.NoError(t, err)
		return loadOutput(t, cfg, types.SplitVal).ImageIDs()
	}

	assert.Equal(t, idsFor(3), idsFor(3))
}

func TestRunWritesRecord(t *testing.T) {
	cfg := builtin(t)[0]
	writeSource(t, cfg, 10, quadrantLabels)

	result, err := Run(context.Background(), cfg, types.RunOptions{Seed: 9}, &bytes.Buffer{})
	require.NoError(t, err)

	rec, err := ReadRecord(RecordPath(cfg))
	require.NoError(t, err)
	assert.Equal(t, result.RunID, rec.RunID)
	assert.Equal(t, "quadrant", rec.Variant)
	assert.Equal(t, int64(9), rec.Seed)
	assert.Equal(t, 0.8, rec.TrainRatio, "zero ratio falls back to the default")
	assert.Equal(t, RecordCount{Train: 8, Val: 2}, rec.Counts)
	assert.ElementsMatch(t, loadOutput(t, cfg, types.SplitTrain).ImageIDs(), rec.Split.Train)
}

func TestRunRandomSeedRecorded(t *testing.T) {
	cfg := builtin(t)[0]
	writeSource(t, cfg, 10, quadrantLabels)

	result, err := Run(context.Background(), cfg, types.RunOptions{Seed: 1, Random: true}, &bytes.Buffer{})
	require.NoError(t, err)

	rec, err := ReadRecord(RecordPath(cfg))
	require.NoError(t, err)
	assert.Equal(t, result.Seed, rec.Seed)
}

func TestRunValidationFailureWritesNothing(t *testing.T) {
	cfg := builtin(t)[0]
	writeSource(t, cfg, 4, quadrantLabels)
	require.NoError(t, os.Remove(filepath.Join(cfg.ImageDir, "train_2.png")))

	_, err := Run(context.Background(), cfg, defaultOpts, &bytes.Buffer{})
	var verr *validate.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 1, len(verr.Issues))

	_, statErr := os.Stat(cfg.OutputDir)
	assert.True(t, os.IsNotExist(statErr), "no output directory should be created")
}

func TestRunRejectsBadRatio(t *testing.T) {
	for _, ratio := range []float64{-0.5, 1.5} {
		t.Run(fmt.Sprint(ratio), func(t *testing.T) {
			cfg := builtin(t)[0]
			writeSource(t, cfg, 10, quadrantLabels)

			opts := defaultOpts
			opts.TrainRatio = ratio
			_, err := Run(context.Background(), cfg, opts, &bytes.Buffer{})
			require.ErrorIs(t, err, split.ErrRatio)

			_, statErr := os.Stat(cfg.OutputDir)
			assert.True(t, os.IsNotExist(statErr), "no output directory should be created")
		})
	}
}

func TestRunSkipValidationFailsAtCopy(t *testing.T) {
	cfg := builtin(t)[0]
	writeSource(t, cfg, 4, quadrantLabels)
	require.NoError(t, os.Remove(filepath.Join(cfg.ImageDir, "train_2.png")))

	opts := defaultOpts
	opts.SkipValidation = true
	_, err := Run(context.Background(), cfg, opts, &bytes.Buffer{})
	assert.ErrorIs(t, err, materialize.ErrSourceMissing)

	_, statErr := os.Stat(cfg.ManifestOut(types.SplitTrain))
	assert.True(t, os.IsNotExist(statErr), "manifests are written only after every copy")
}

func TestRunMissingManifest(t *testing.T) {
	cfg := builtin(t)[0]
	_, err := Run(context.Background(), cfg, defaultOpts, &bytes.Buffer{})
	assert.ErrorIs(t, err, manifest.ErrRead)
}

func TestRunLocked(t *testing.T) {
	cfg := builtin(t)[0]
	writeSource(t, cfg, 4, quadrantLabels)
	require.NoError(t, os.MkdirAll(cfg.OutputDir, 0o755))

	held := flock.New(filepath.Join(cfg.OutputDir, lockFile))
	ok, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	t.Cleanup(func() { held.Unlock() })

	_, err = Run(context.Background(), cfg, defaultOpts, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrLocked)
}

func TestRunAllStopsAtFirstFailure(t *testing.T) {
	cfgs := builtin(t)
	writeSource(t, cfgs[0], 5, quadrantLabels)
	// enumeration source is missing; disease exists but must not run.
	writeSource(t, cfgs[2], 5, diseaseLabels)

	var log bytes.Buffer
	results, err := RunAll(context.Background(), cfgs, defaultOpts, &log)
	require.Error(t, err)
	assert.ErrorIs(t, err, manifest.ErrRead)
	require.Len(t, results, 1)
	assert.Equal(t, "quadrant", results[0].Variant)

	_, statErr := os.Stat(cfgs[0].ManifestOut(types.SplitTrain))
	assert.NoError(t, statErr, "earlier variant output is kept")
	_, statErr = os.Stat(cfgs[2].OutputDir)
	assert.True(t, os.IsNotExist(statErr), "later variants do not run")
}

func TestRunAll(t *testing.T) {
	cfgs := builtin(t)
	writeSource(t, cfgs[0], 10, quadrantLabels)
	writeSource(t, cfgs[1], 10, enumerationLabels)
	writeSource(t, cfgs[2], 10, diseaseLabels)

	results, err := RunAll(context.Background(), cfgs, defaultOpts, &bytes.Buffer{})
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, name := range []string{"quadrant", "enumeration", "disease"} {
		assert.Equal(t, name, results[i].Variant)
		assert.Equal(t, 10, results[i].Copied.Total())
	}
}

func TestPartitionUnassignedAnnotationGoesToVal(t *testing.T) {
	m := &types.Manifest{
		Images: []types.Image{{ID: 1, FileName: "a.png"}},
		Annotations: []types.Annotation{
			{ImageID: 1},
			{ImageID: 99},
		},
	}
	out := partition(m, map[int64]types.SplitName{1: types.SplitTrain}, nil)
	assert.Len(t, out[types.SplitTrain].Annotations, 1)
	assert.Len(t, out[types.SplitVal].Annotations, 1)
	assert.Equal(t, int64(99), out[types.SplitVal].Annotations[0].ImageID)
	assert.NotNil(t, out[types.SplitVal].Categories)
}
