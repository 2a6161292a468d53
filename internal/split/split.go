// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package split partitions image identifiers into train and validation sets.
package split

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/pdiddy/dentex-coco/pkg/types"
)

// DefaultRatio is the train share used when none is configured.
const DefaultRatio = 0.8

// ErrRatio reports a train ratio outside [0, 1].
var ErrRatio = errors.New("train ratio outside [0, 1]")

// CheckRatio returns an error wrapping ErrRatio unless ratio lies in [0, 1].
func CheckRatio(ratio float64) error {
	if ratio < 0 || ratio > 1 || math.IsNaN(ratio) {
		return fmt.Errorf("%w: %v", ErrRatio, ratio)
	}
	return nil
}

// NewRand returns a generator whose sequence depends only on seed.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}

// TrainCount returns floor(ratio*n), the number of train identifiers.
func TrainCount(n int, ratio float64) int {
	return int(math.Floor(float64(n) * ratio))
}

// Assign shuffles a copy of ids and takes the first floor(ratio*len(ids))
// as train; the remainder is validation. No stratification is applied.
func Assign(ids []int64, ratio float64, rng *rand.Rand) (types.Split, error) {
	if err := CheckRatio(ratio); err != nil {
		return types.Split{}, err
	}

	shuffled := make([]int64, len(ids))
	copy(shuffled, ids)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	n := TrainCount(len(shuffled), ratio)
	return types.Split{
		Train: shuffled[:n:n],
		Val:   shuffled[n:],
	}, nil
}
