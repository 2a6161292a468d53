// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package materialize

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/dentex-coco/pkg/types"
)

type fixture struct {
	src  string
	dirs map[types.SplitName]string
}

func setup(t *testing.T, files map[string]string) fixture {
	t.Helper()
	root := t.TempDir()
	f := fixture{
		src: filepath.Join(root, "xrays"),
		dirs: map[types.SplitName]string{
			types.SplitTrain: filepath.Join(root, "train2017"),
			types.SplitVal:   filepath.Join(root, "val2017"),
		},
	}
	for _, dir := range []string{f.src, f.dirs[types.SplitTrain], f.dirs[types.SplitVal]} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(f.src, name), []byte(content), 0o644))
	}
	return f
}

func dirNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestCopy(t *testing.T) {
	f := setup(t, map[string]string{
		"train_0.png": "zero",
		"train_1.png": "one!",
		"train_2.png": "two",
	})
	images := []types.Image{
		{ID: 0, FileName: "train_0.png"},
		{ID: 1, FileName: "train_1.png"},
		{ID: 2, FileName: "train_2.png"},
	}
	assignment := map[int64]types.SplitName{0: types.SplitTrain, 1: types.SplitVal, 2: types.SplitTrain}

	var log bytes.Buffer
	result, err := Copy(context.Background(), images, assignment, f.src, f.dirs, &log)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Files[types.SplitTrain])
	assert.Equal(t, 1, result.Files[types.SplitVal])
	assert.Equal(t, 3, result.Total())
	assert.Equal(t, int64(11), result.TotalBytes())

	assert.Equal(t, []string{"train_0.png", "train_2.png"}, dirNames(t, f.dirs[types.SplitTrain]))
	assert.Equal(t, []string{"train_1.png"}, dirNames(t, f.dirs[types.SplitVal]))

	data, err := os.ReadFile(filepath.Join(f.dirs[types.SplitVal], "train_1.png"))
	require.NoError(t, err)
	assert.Equal(t, "one!", string(data))

	assert.Contains(t, log.String(), "train2017 2 file(s)")
	assert.Contains(t, log.String(), "val2017 1 file(s)")
}

func TestCopyMissingSourceAborts(t *testing.T) {
	f := setup(t, map[string]string{"a.png": "a", "c.png": "c"})
	images := []types.Image{
		{ID: 0, FileName: "a.png"},
		{ID: 1, FileName: "b.png"},
		{ID: 2, FileName: "c.png"},
	}
	assignment := map[int64]types.SplitName{0: types.SplitTrain, 1: types.SplitTrain, 2: types.SplitTrain}

	var log bytes.Buffer
	result, err := Copy(context.Background(), images, assignment, f.src, f.dirs, &log)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceMissing)
	assert.Equal(t, 1, result.Total(), "copies before the failure are kept")
	assert.Equal(t, []string{"a.png"}, dirNames(t, f.dirs[types.SplitTrain]))
}

func TestCopyUnassignedGoesToVal(t *testing.T) {
	f := setup(t, map[string]string{"x.png": "x"})
	_, err := Copy(context.Background(), []types.Image{{ID: 9, FileName: "x.png"}}, nil, f.src, f.dirs, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, []string{"x.png"}, dirNames(t, f.dirs[types.SplitVal]))
}

func TestCopyCanceled(t *testing.T) {
	f := setup(t, map[string]string{"a.png": "a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Copy(ctx, []types.Image{{ID: 0, FileName: "a.png"}}, nil, f.src, f.dirs, &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileOverwrites(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.png")
	dst := filepath.Join(dir, "dst.png")
	require.NoError(t, os.WriteFile(src, []byte("fresh"), 0o644))
	require.NoError(t, os.WriteFile(dst, []byte("stale content"), 0o644))

	n, err := File(src, dst)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(data))
}
