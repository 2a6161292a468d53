// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// SplitName identifies one side of the train/validation partition.
type SplitName string

const (
	SplitTrain SplitName = "train"
	SplitVal   SplitName = "val"
)

// Splits lists the partition sides in output order.
var Splits = []SplitName{SplitTrain, SplitVal}

// DirName returns the COCO directory name for the split (e.g. "train2017").
func (s SplitName) DirName() string {
	return string(s) + "2017"
}

// ManifestName returns the COCO annotation file name for the split
// (e.g. "instances_train2017.json").
func (s SplitName) ManifestName() string {
	return "instances_" + s.DirName() + ".json"
}

// Split is a bipartition of a manifest's image identifiers. Train holds
// the first floor(ratio*N) identifiers of a shuffled order; Val holds the rest.
type Split struct {
	Train []int64 `json:"train" yaml:"train"`
	Val   []int64 `json:"val" yaml:"val"`
}

// Len returns the total number of assigned identifiers.
func (s Split) Len() int {
	return len(s.Train) + len(s.Val)
}

// Assignment returns a lookup from image id to its split side.
func (s Split) Assignment() map[int64]SplitName {
	m := make(map[int64]SplitName, s.Len())
	for _, id := range s.Train {
		m[id] = SplitTrain
	}
	for _, id := range s.Val {
		m[id] = SplitVal
	}
	return m
}
