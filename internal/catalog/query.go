// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"fmt"

	"github.com/pdiddy/dentex-coco/pkg/types"
)

// SplitCount holds image and annotation totals for one split.
type SplitCount struct {
	Split       types.SplitName `json:"split" yaml:"split"`
	Images      int             `json:"images" yaml:"images"`
	Annotations int             `json:"annotations" yaml:"annotations"`
}

// CategoryCount holds per-split annotation totals for one label value.
type CategoryCount struct {
	CategoryID int64  `json:"category_id" yaml:"category_id"`
	Name       string `json:"name" yaml:"name"`
	Train      int    `json:"train" yaml:"train"`
	Val        int    `json:"val" yaml:"val"`
}

// Variants returns the variants present in the catalog, sorted by name.
func (s *Store) Variants(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT variant FROM images ORDER BY variant`)
	if err != nil {
		return nil, fmt.Errorf("querying variants: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning variant: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// SplitCounts returns train and val totals for variant, in that order.
func (s *Store) SplitCounts(ctx context.Context, variant string) ([]SplitCount, error) {
	out := make([]SplitCount, 0, len(types.Splits))
	for _, side := range types.Splits {
		c := SplitCount{Split: side}
		if err := s.db.QueryRowContext(ctx,
			`SELECT count(*) FROM images WHERE variant = ? AND split = ?`, variant, string(side),
		).Scan(&c.Images); err != nil {
			return nil, fmt.Errorf("counting images: %w", err)
		}
		if err := s.db.QueryRowContext(ctx,
			`SELECT count(*) FROM annotations WHERE variant = ? AND split = ?`, variant, string(side),
		).Scan(&c.Annotations); err != nil {
			return nil, fmt.Errorf("counting annotations: %w", err)
		}
		out = append(out, c)
	}
	return out, nil
}

// CategoryCounts returns annotation counts per value of the given label
// slot (1..3), with the category name when the value is in the variant's
// vocabulary. Null slots are not counted.
func (s *Store) CategoryCounts(ctx context.Context, variant string, slot int) ([]CategoryCount, error) {
	if slot < 1 || slot > types.LabelSlots {
		return nil, fmt.Errorf("slot %d outside 1..%d", slot, types.LabelSlots)
	}
	col := types.SlotField(slot)

	query := fmt.Sprintf(
		`SELECT a.%[1]s, COALESCE(c.name, ''),
			SUM(CASE WHEN a.split = 'train' THEN 1 ELSE 0 END),
			SUM(CASE WHEN a.split = 'val' THEN 1 ELSE 0 END)
		FROM annotations a
		LEFT JOIN categories c ON c.variant = a.variant AND c.id = a.%[1]s
		WHERE a.variant = ? AND a.%[1]s IS NOT NULL
		GROUP BY a.%[1]s
		ORDER BY a.%[1]s`, col)

	rows, err := s.db.QueryContext(ctx, query, variant)
	if err != nil {
		return nil, fmt.Errorf("querying category counts: %w", err)
	}
	defer rows.Close()

	var out []CategoryCount
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.CategoryID, &c.Name, &c.Train, &c.Val); err != nil {
			return nil, fmt.Errorf("scanning category count: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Orphans returns the number of annotations in variant/split whose image
// is not in the same split.
func (s *Store) Orphans(ctx context.Context, variant string, side types.SplitName) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM annotations a
		 WHERE a.variant = ? AND a.split = ?
		   AND NOT EXISTS (
			SELECT 1 FROM images i
			WHERE i.variant = a.variant AND i.split = a.split AND i.id = a.image_id
		   )`, variant, string(side),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting orphans: %w", err)
	}
	return n, nil
}
