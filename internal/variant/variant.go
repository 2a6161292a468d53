// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package variant defines the three DENTEX dataset variants and their
// output label vocabularies.
package variant

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/pdiddy/dentex-coco/pkg/types"
)

const (
	Quadrant    = "quadrant"
	Enumeration = "enumeration"
	Disease     = "disease"
)

// enumerationCategories is the number of tooth positions in the enumeration vocabulary.
const enumerationCategories = 32

// diseaseNames lists the pathology labels in id order.
var diseaseNames = []string{"Impacted", "Caries", "Periapical Lesion", "Deep Caries"}

// sources maps each variant to its directory under origin/.
var sources = map[string]string{
	Quadrant:    "quadrant",
	Enumeration: "quadrant_enumeration",
	Disease:     "quadrant_enumeration_disease",
}

// Builtin returns the quadrant, enumeration, and disease configurations in
// pipeline order. Inputs are read from
// <datasetRoot>/origin/<source>/train_<source>.json and .../xrays/; outputs
// go to <outputRoot>/<variant>/.
func Builtin(datasetRoot, outputRoot string) []types.VariantConfig {
	if outputRoot == "" {
		outputRoot = filepath.Join(datasetRoot, "coco")
	}

	build := func(name string, cats types.CategorySource, mappings []types.FieldMapping) types.VariantConfig {
		src := sources[name]
		origin := filepath.Join(datasetRoot, "origin", src)
		return types.VariantConfig{
			Name:         name,
			ManifestPath: filepath.Join(origin, "train_"+src+".json"),
			ImageDir:     filepath.Join(origin, "xrays"),
			OutputDir:    filepath.Join(outputRoot, name),
			Categories:   cats,
			Mappings:     mappings,
		}
	}

	return []types.VariantConfig{
		build(Quadrant, types.CategoriesFromSource, []types.FieldMapping{
			{Source: "category_id", Slot: 1},
		}),
		build(Enumeration, types.CategoriesEnumeration, []types.FieldMapping{
			{Source: "category_id_1", Slot: 1, Remove: true},
			{Source: "category_id_2", Slot: 2, Remove: true},
		}),
		build(Disease, types.CategoriesDisease, []types.FieldMapping{
			{Source: "category_id_1", Slot: 1, Remove: true},
			{Source: "category_id_2", Slot: 2, Remove: true},
			{Source: "category_id_3", Slot: 3, Remove: true},
		}),
	}
}

// Select returns the configurations named in names, keeping the order of
// all. An empty names list selects everything.
func Select(all []types.VariantConfig, names []string) ([]types.VariantConfig, error) {
	if len(names) == 0 {
		return all, nil
	}

	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}

	var out []types.VariantConfig
	for _, v := range all {
		if want[v.Name] {
			out = append(out, v)
			delete(want, v.Name)
		}
	}
	for n := range want {
		return nil, fmt.Errorf("unknown variant %q", n)
	}
	return out, nil
}

// Categories returns the output vocabulary for source. The source
// manifest's own categories are used for CategoriesFromSource.
func Categories(source types.CategorySource, manifestCategories []types.Category) ([]types.Category, error) {
	switch source {
	case types.CategoriesFromSource, "":
		return manifestCategories, nil
	case types.CategoriesEnumeration:
		return EnumerationCategories(), nil
	case types.CategoriesDisease:
		return DiseaseCategories(), nil
	default:
		return nil, fmt.Errorf("unknown category source %q", source)
	}
}

// EnumerationCategories returns ids 0..31 named "1".."32".
func EnumerationCategories() []types.Category {
	cats := make([]types.Category, enumerationCategories)
	for i := range cats {
		name := strconv.Itoa(i + 1)
		cats[i] = types.Category{ID: i, Name: name, Supercategory: name}
	}
	return cats
}

// DiseaseCategories returns the four pathology labels with ids 0..3.
func DiseaseCategories() []types.Category {
	cats := make([]types.Category, len(diseaseNames))
	for i, name := range diseaseNames {
		cats[i] = types.Category{ID: i, Name: name, Supercategory: name}
	}
	return cats
}
