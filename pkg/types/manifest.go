// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the dentex-coco pipeline:
// the COCO-style manifest records, split assignments, and per-variant
// configuration.
package types

import (
	"encoding/json"
	"fmt"
	"slices"
)

// LabelSlots is the number of category slots every normalized annotation carries.
const LabelSlots = 3

// Null is the explicit empty value written to unused label slots.
var Null = json.RawMessage("null")

// SlotField returns the annotation field name for a one-based label slot
// (e.g. 1 -> "category_id1").
func SlotField(slot int) string {
	return fmt.Sprintf("category_id%d", slot)
}

// Manifest is an in-memory annotation file: images, annotations, and the
// category vocabulary, each kept in file order. Other top-level keys are
// dropped on load.
type Manifest struct {
	Images      []Image      `json:"images"`
	Annotations []Annotation `json:"annotations"`
	Categories  []Category   `json:"categories"`
}

// NewManifest returns an empty manifest whose collections encode as [] rather than null.
func NewManifest(categories []Category) *Manifest {
	if categories == nil {
		categories = []Category{}
	}
	return &Manifest{
		Images:      []Image{},
		Annotations: []Annotation{},
		Categories:  categories,
	}
}

// ImageIDs returns the image identifiers in manifest order.
func (m *Manifest) ImageIDs() []int64 {
	ids := make([]int64, len(m.Images))
	for i, img := range m.Images {
		ids[i] = img.ID
	}
	return ids
}

// Image is one entry of the manifest's images list. Fields other than id
// and file_name (width, height, ...) are preserved verbatim in Extra and
// written back in the order they were read.
type Image struct {
	ID       int64
	FileName string
	Extra    map[string]json.RawMessage

	order []string
}

// MarshalJSON encodes the image with its extra fields.
func (im Image) MarshalJSON() ([]byte, error) {
	known := []member{{"id", im.ID}, {"file_name", im.FileName}}
	return encodeObject(orderMembers(im.order, known, im.Extra))
}

// UnmarshalJSON decodes an image entry, requiring id and file_name.
func (im *Image) UnmarshalJSON(data []byte) error {
	fields, order, err := decodeObject(data)
	if err != nil {
		return err
	}
	if err := takeField(fields, "id", &im.ID); err != nil {
		return fmt.Errorf("image: %w", err)
	}
	if err := takeField(fields, "file_name", &im.FileName); err != nil {
		return fmt.Errorf("image %d: %w", im.ID, err)
	}
	im.Extra = fields
	im.order = order
	return nil
}

// Annotation is one labeled region. Only image_id is interpreted; every
// other field, including the category labels, is held as raw JSON so
// unknown fields pass through unchanged. Fields keep their input order;
// fields added by Set follow in the order they were added.
type Annotation struct {
	ImageID int64
	Fields  map[string]json.RawMessage

	order []string
}

// Get returns the raw value of field name.
func (a Annotation) Get(name string) (json.RawMessage, bool) {
	v, ok := a.Fields[name]
	return v, ok
}

// Set stores a raw value under name.
func (a *Annotation) Set(name string, value json.RawMessage) {
	if a.Fields == nil {
		a.Fields = make(map[string]json.RawMessage)
	}
	if _, ok := a.Fields[name]; !ok && !slices.Contains(a.order, name) {
		a.order = append(a.order, name)
	}
	a.Fields[name] = value
}

// Delete removes field name.
func (a *Annotation) Delete(name string) {
	delete(a.Fields, name)
}

// MarshalJSON encodes the annotation with image_id and all held fields.
func (a Annotation) MarshalJSON() ([]byte, error) {
	known := []member{{"image_id", a.ImageID}}
	return encodeObject(orderMembers(a.order, known, a.Fields))
}

// UnmarshalJSON decodes an annotation, requiring image_id.
func (a *Annotation) UnmarshalJSON(data []byte) error {
	fields, order, err := decodeObject(data)
	if err != nil {
		return err
	}
	if err := takeField(fields, "image_id", &a.ImageID); err != nil {
		return fmt.Errorf("annotation: %w", err)
	}
	a.Fields = fields
	a.order = order
	return nil
}

// Category is one entry of the label vocabulary. A category read without
// a supercategory is written back without one unless Supercategory is set.
type Category struct {
	ID            int
	Name          string
	Supercategory string
	Extra         map[string]json.RawMessage

	order []string
}

// MarshalJSON encodes the category with its extra fields.
func (c Category) MarshalJSON() ([]byte, error) {
	known := []member{{"id", c.ID}, {"name", c.Name}}
	if c.hasSupercategory() {
		known = append(known, member{"supercategory", c.Supercategory})
	}
	return encodeObject(orderMembers(c.order, known, c.Extra))
}

// hasSupercategory reports whether supercategory belongs in the encoding.
// Categories built in code always carry it.
func (c Category) hasSupercategory() bool {
	return c.Supercategory != "" || c.order == nil || slices.Contains(c.order, "supercategory")
}

// UnmarshalJSON decodes a category; supercategory is optional.
func (c *Category) UnmarshalJSON(data []byte) error {
	fields, order, err := decodeObject(data)
	if err != nil {
		return err
	}
	if err := takeField(fields, "id", &c.ID); err != nil {
		return fmt.Errorf("category: %w", err)
	}
	if err := takeField(fields, "name", &c.Name); err != nil {
		return fmt.Errorf("category %d: %w", c.ID, err)
	}
	if _, ok := fields["supercategory"]; ok {
		if err := takeField(fields, "supercategory", &c.Supercategory); err != nil {
			return fmt.Errorf("category %d: %w", c.ID, err)
		}
	}
	c.Extra = fields
	c.order = order
	return nil
}

// takeField decodes fields[name] into dst and removes it from fields.
func takeField(fields map[string]json.RawMessage, name string, dst any) error {
	raw, ok := fields[name]
	if !ok {
		return fmt.Errorf("missing field %q", name)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("field %q: %w", name, err)
	}
	delete(fields, name)
	return nil
}
