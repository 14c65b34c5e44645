// Package gormstorage persists catalog exports through gorm. The SQLite and
// Postgres backends wrap it and only differ in how they open the database.
package gormstorage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/thingforge/thingforge/internal/catalog"
	"github.com/thingforge/thingforge/internal/flags"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Run is one catalog export.
type Run struct {
	ID            uint      `gorm:"primaryKey"`
	CreatedAt     time.Time `gorm:"index"`
	ClientVersion uint16
	Description   string `gorm:"size:64"`
	Source        string
	Things        int
}

func (Run) TableName() string { return "catalog_runs" }

// ThingRow is one record of a run.
type ThingRow struct {
	ID         uint   `gorm:"primaryKey"`
	RunID      uint   `gorm:"index;not null"`
	Category   string `gorm:"size:16;index:idx_thing_key"`
	ThingID    uint32 `gorm:"index:idx_thing_key"`
	Properties datatypes.JSON
	Groups     int
	Width      uint8
	Height     uint8
	Layers     uint8
	Frames     uint8
	Animated   bool
	SpriteIDs  datatypes.JSON
}

func (ThingRow) TableName() string { return "catalog_things" }

// Models lists every table the backend migrates.
var Models = []any{&Run{}, &ThingRow{}}

// Backend stores catalog runs in a gorm database.
type Backend struct {
	db        *gorm.DB
	batchSize int
}

// New wraps an open database.
func New(db *gorm.DB) *Backend {
	return &Backend{db: db, batchSize: 500}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.db
}

// Init migrates the catalog tables.
func (b *Backend) Init() error {
	if err := b.db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (b *Backend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	return sqlDB.Close()
}

// SaveCatalog writes e as a new run in one transaction and returns a
// description of where it went.
func (b *Backend) SaveCatalog(ctx context.Context, e *catalog.Export) (string, error) {
	run := Run{
		CreatedAt:     e.CreatedAt,
		ClientVersion: e.ClientVersion,
		Description:   e.Description,
		Source:        e.Source,
		Things:        len(e.Records),
	}
	rows := make([]ThingRow, 0, len(e.Records))
	for _, r := range e.Records {
		row, err := toRow(r)
		if err != nil {
			return "", err
		}
		rows = append(rows, row)
	}

	err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}
		for i := range rows {
			rows[i].RunID = run.ID
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, b.batchSize).Error; err != nil {
			return fmt.Errorf("failed to insert things: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s run %d", b.db.Dialector.Name(), run.ID), nil
}

// Runs lists stored runs, newest first.
func (b *Backend) Runs(ctx context.Context) ([]Run, error) {
	var runs []Run
	if err := b.db.WithContext(ctx).Order("id desc").Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// Records returns the records of one run in category then id order.
func (b *Backend) Records(ctx context.Context, runID uint) ([]catalog.Record, error) {
	var rows []ThingRow
	if err := b.db.WithContext(ctx).Where("run_id = ?", runID).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]catalog.Record, 0, len(rows))
	for _, row := range rows {
		r, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func toRow(r catalog.Record) (ThingRow, error) {
	props, err := json.Marshal(r.Properties)
	if err != nil {
		return ThingRow{}, fmt.Errorf("encode properties of %s %d: %w", r.Category, r.ID, err)
	}
	sprites, err := json.Marshal(r.SpriteIDs)
	if err != nil {
		return ThingRow{}, fmt.Errorf("encode sprites of %s %d: %w", r.Category, r.ID, err)
	}
	return ThingRow{
		Category:   r.Category,
		ThingID:    r.ID,
		Properties: datatypes.JSON(props),
		Groups:     r.Groups,
		Width:      r.Width,
		Height:     r.Height,
		Layers:     r.Layers,
		Frames:     r.Frames,
		Animated:   r.Animated,
		SpriteIDs:  datatypes.JSON(sprites),
	}, nil
}

func fromRow(row ThingRow) (catalog.Record, error) {
	r := catalog.Record{
		Category: row.Category,
		ID:       row.ThingID,
		Groups:   row.Groups,
		Width:    row.Width,
		Height:   row.Height,
		Layers:   row.Layers,
		Frames:   row.Frames,
		Animated: row.Animated,
	}
	r.Properties = map[string]flags.Value{}
	if len(row.Properties) > 0 {
		if err := json.Unmarshal(row.Properties, &r.Properties); err != nil {
			return r, fmt.Errorf("decode properties of %s %d: %w", row.Category, row.ThingID, err)
		}
	}
	if len(row.SpriteIDs) > 0 {
		if err := json.Unmarshal(row.SpriteIDs, &r.SpriteIDs); err != nil {
			return r, fmt.Errorf("decode sprites of %s %d: %w", row.Category, row.ThingID, err)
		}
	}
	return r, nil
}
