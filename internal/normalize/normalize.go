// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize rewrites variant-specific annotation label fields into
// the three-slot schema (category_id1, category_id2, category_id3).
package normalize

import (
	"encoding/json"
	"fmt"

	"github.com/pdiddy/dentex-coco/pkg/types"
)

// MissingFieldError reports an annotation that lacks a mapped source field.
type MissingFieldError struct {
	Index int
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("annotation %d: missing field %q", e.Index, e.Field)
}

// CheckMappings reports mapping lists that cannot produce a three-slot record.
func CheckMappings(mappings []types.FieldMapping) error {
	seen := make(map[int]string, len(mappings))
	for _, m := range mappings {
		if m.Source == "" {
			return fmt.Errorf("mapping to slot %d has no source field", m.Slot)
		}
		if m.Slot < 1 || m.Slot > types.LabelSlots {
			return fmt.Errorf("mapping %q: slot %d outside 1..%d", m.Source, m.Slot, types.LabelSlots)
		}
		if prev, ok := seen[m.Slot]; ok {
			return fmt.Errorf("slot %d mapped from both %q and %q", m.Slot, prev, m.Source)
		}
		seen[m.Slot] = m.Source
	}
	return nil
}

// Annotation applies mappings to one record in place. All source values are
// read before any field is written or removed, so a mapping may target a
// slot whose name another mapping removes.
func Annotation(ann *types.Annotation, index int, mappings []types.FieldMapping) error {
	values := make(map[int]json.RawMessage, len(mappings))
	for _, m := range mappings {
		raw, ok := ann.Get(m.Source)
		if !ok {
			return &MissingFieldError{Index: index, Field: m.Source}
		}
		values[m.Slot] = raw
	}

	for _, m := range mappings {
		if m.Remove {
			ann.Delete(m.Source)
		}
	}

	for slot := 1; slot <= types.LabelSlots; slot++ {
		if raw, ok := values[slot]; ok {
			ann.Set(types.SlotField(slot), raw)
		} else {
			ann.Set(types.SlotField(slot), types.Null)
		}
	}
	return nil
}

// Annotations applies mappings to every record in place, stopping at the
// first record with a missing source field.
func Annotations(anns []types.Annotation, mappings []types.FieldMapping) error {
	if err := CheckMappings(mappings); err != nil {
		return err
	}
	for i := range anns {
		if err := Annotation(&anns[i], i, mappings); err != nil {
			return err
		}
	}
	return nil
}
