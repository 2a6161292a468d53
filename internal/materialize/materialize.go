// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package materialize copies image files into their split directories.
package materialize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/pdiddy/dentex-coco/internal/atomicfile"
	"github.com/pdiddy/dentex-coco/pkg/types"
)

// ErrSourceMissing reports an image entry whose file is not in the source directory.
var ErrSourceMissing = errors.New("source image missing")

// Result counts the files and bytes copied into each split.
type Result struct {
	Files map[types.SplitName]int
	Bytes map[types.SplitName]int64
}

// Total returns the number of files copied.
func (r Result) Total() int {
	n := 0
	for _, c := range r.Files {
		n += c
	}
	return n
}

// TotalBytes returns the number of bytes copied.
func (r Result) TotalBytes() int64 {
	var n int64
	for _, c := range r.Bytes {
		n += c
	}
	return n
}

// Copy copies every image from srcDir into dirs[split], where split is the
// image's side in assignment. Images absent from assignment go to val.
// The first failure stops the copy and is returned; files already copied
// are left in place.
func Copy(ctx context.Context, images []types.Image, assignment map[int64]types.SplitName, srcDir string, dirs map[types.SplitName]string, w io.Writer) (Result, error) {
	result := Result{
		Files: make(map[types.SplitName]int, len(dirs)),
		Bytes: make(map[types.SplitName]int64, len(dirs)),
	}

	for _, img := range images {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		side, ok := assignment[img.ID]
		if !ok {
			side = types.SplitVal
		}
		dstDir, ok := dirs[side]
		if !ok {
			return result, fmt.Errorf("no output directory for split %q", side)
		}

		src := filepath.Join(srcDir, img.FileName)
		dst := filepath.Join(dstDir, img.FileName)
		n, err := File(src, dst)
		if err != nil {
			return result, fmt.Errorf("copying image %d: %w", img.ID, err)
		}
		result.Files[side]++
		result.Bytes[side] += n
	}

	for _, side := range types.Splits {
		fmt.Fprintf(w, "  copied:  %s %d file(s), %s\n",
			side.DirName(), result.Files[side], humanize.Bytes(uint64(result.Bytes[side])))
	}
	return result, nil
}

// File copies src to dst byte for byte through a temp file in dst's
// directory, replacing dst if it exists. It returns the bytes copied.
func File(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", ErrSourceMissing, src)
		}
		return 0, fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	n, err := atomicfile.Copy(dst, in)
	if err != nil {
		return 0, fmt.Errorf("copying %s: %w", src, err)
	}
	return n, nil
}
