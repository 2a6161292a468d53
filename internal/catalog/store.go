// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog indexes converted COCO manifests in SQLite so split sizes,
// label distributions, and orphaned annotations can be inspected after a run.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/dentex-coco/internal/manifest"
	"github.com/pdiddy/dentex-coco/pkg/types"
)

// DBFile is the catalog file name under the output root.
const DBFile = "catalog.db"

// Store manages the catalog SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the catalog database at path and creates the
// schema if it does not exist.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating catalog directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS images (
			variant TEXT NOT NULL,
			split TEXT NOT NULL,
			id INTEGER NOT NULL,
			file_name TEXT NOT NULL,
			PRIMARY KEY (variant, split, id)
		)`,
		`CREATE TABLE IF NOT EXISTS annotations (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			variant TEXT NOT NULL,
			split TEXT NOT NULL,
			image_id INTEGER NOT NULL,
			category_id1 INTEGER,
			category_id2 INTEGER,
			category_id3 INTEGER,
			fields TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_annotations_variant_split ON annotations(variant, split)`,
		`CREATE TABLE IF NOT EXISTS categories (
			variant TEXT NOT NULL,
			id INTEGER NOT NULL,
			name TEXT NOT NULL,
			supercategory TEXT,
			PRIMARY KEY (variant, id)
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Ingest replaces the catalog rows for one variant split with the contents
// of m. The variant's categories are replaced as well.
func (s *Store) Ingest(ctx context.Context, variant string, side types.SplitName, m *types.Manifest) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM images WHERE variant = ? AND split = ?`,
		`DELETE FROM annotations WHERE variant = ? AND split = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, variant, string(side)); err != nil {
			return fmt.Errorf("clearing %s/%s: %w", variant, side, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE variant = ?`, variant); err != nil {
		return fmt.Errorf("clearing categories: %w", err)
	}

	imgStmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO images (variant, split, id, file_name) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing image insert: %w", err)
	}
	defer imgStmt.Close()
	for _, img := range m.Images {
		if _, err := imgStmt.ExecContext(ctx, variant, string(side), img.ID, img.FileName); err != nil {
			return fmt.Errorf("inserting image %d: %w", img.ID, err)
		}
	}

	annStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO annotations (variant, split, image_id, category_id1, category_id2, category_id3, fields)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing annotation insert: %w", err)
	}
	defer annStmt.Close()
	for i, ann := range m.Annotations {
		var slots [types.LabelSlots]sql.NullInt64
		for j := range slots {
			slots[j], err = slotValue(ann, j+1)
			if err != nil {
				return fmt.Errorf("annotation %d: %w", i, err)
			}
		}
		fields, err := json.Marshal(ann)
		if err != nil {
			return fmt.Errorf("encoding annotation %d: %w", i, err)
		}
		if _, err := annStmt.ExecContext(ctx, variant, string(side), ann.ImageID,
			slots[0], slots[1], slots[2], string(fields)); err != nil {
			return fmt.Errorf("inserting annotation %d: %w", i, err)
		}
	}

	catStmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO categories (variant, id, name, supercategory) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing category insert: %w", err)
	}
	defer catStmt.Close()
	for _, c := range m.Categories {
		if _, err := catStmt.ExecContext(ctx, variant, c.ID, c.Name, c.Supercategory); err != nil {
			return fmt.Errorf("inserting category %d: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

// slotValue reads a label slot as an integer; absent and null slots are NULL.
func slotValue(ann types.Annotation, slot int) (sql.NullInt64, error) {
	raw, ok := ann.Get(types.SlotField(slot))
	if !ok {
		return sql.NullInt64{}, nil
	}
	var v *int64
	if err := json.Unmarshal(raw, &v); err != nil {
		return sql.NullInt64{}, fmt.Errorf("%s: %w", types.SlotField(slot), err)
	}
	if v == nil {
		return sql.NullInt64{}, nil
	}
	return sql.NullInt64{Int64: *v, Valid: true}, nil
}

// IngestVariant loads both output manifests of cfg and ingests them.
func (s *Store) IngestVariant(ctx context.Context, cfg types.VariantConfig, w io.Writer) error {
	for _, side := range types.Splits {
		path := cfg.ManifestOut(side)
		m, err := manifest.Load(path)
		if err != nil {
			return err
		}
		if err := s.Ingest(ctx, cfg.Name, side, m); err != nil {
			return fmt.Errorf("%s %s: %w", cfg.Name, side, err)
		}
		fmt.Fprintf(w, "indexed %s/%s (%d images, %d annotations)\n",
			cfg.Name, side, len(m.Images), len(m.Annotations))
	}
	return nil
}
