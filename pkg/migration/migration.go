// Package migration tracks and applies schema migrations in batches.
//
// Migrations self-register from database/migrations with a timestamp-prefixed
// name so lexicographic order is execution order:
//
//	func init() {
//	    migration.Register("20250801000000_create_users_table", &CreateUsersTable{})
//	}
//
// The CLI drives the runner: `bazario migrate`, `bazario migrate:rollback`,
// `bazario migrate:status`.
package migration

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/adityaraj/bazario/pkg/logger"
)

// Migration is one reversible schema change.
type Migration interface {
	Up(db *gorm.DB) error
	Down(db *gorm.DB) error
}

// record tracks an applied migration in the migrations table. Batch groups
// the migrations applied by one `migrate` invocation so rollback can undo
// exactly that group.
type record struct {
	ID    uint      `gorm:"primaryKey;autoIncrement"`
	Name  string    `gorm:"uniqueIndex;size:255;not null"`
	Batch int       `gorm:"not null"`
	RunAt time.Time `gorm:"autoCreateTime"`
}

func (record) TableName() string { return "migrations" }

type registration struct {
	name string
	m    Migration
}

var registry []registration

// Register adds a migration under its timestamped name.
func Register(name string, m Migration) {
	registry = append(registry, registration{name: name, m: m})
}

// Runner applies registered migrations against one database.
type Runner struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Runner { return &Runner{db: db} }

// EnsureTable creates the tracking table on first use.
func (r *Runner) EnsureTable() error {
	return r.db.AutoMigrate(&record{})
}

// Pending lists registered migrations that have not been applied, in name
// order.
func (r *Runner) Pending() ([]registration, error) {
	applied, err := r.appliedByName()
	if err != nil {
		return nil, err
	}

	var pending []registration
	for _, reg := range registry {
		if _, ok := applied[reg.name]; !ok {
			pending = append(pending, reg)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].name < pending[j].name })
	return pending, nil
}

// Run applies every pending migration as one batch.
func (r *Runner) Run() error {
	if err := r.EnsureTable(); err != nil {
		return fmt.Errorf("migration: ensure table: %w", err)
	}
	pending, err := r.Pending()
	if err != nil {
		return fmt.Errorf("migration: fetch pending: %w", err)
	}
	if len(pending) == 0 {
		logger.Info("migration: nothing to migrate")
		fmt.Println("Nothing to migrate.")
		return nil
	}

	batch := r.lastBatch() + 1
	for _, reg := range pending {
		logger.Info("migration: running", "name", reg.name)
		fmt.Printf("  ▶ Migrating: %s\n", reg.name)

		if err := reg.m.Up(r.db); err != nil {
			return fmt.Errorf("migration: %s up: %w", reg.name, err)
		}
		if err := r.db.Create(&record{Name: reg.name, Batch: batch}).Error; err != nil {
			return fmt.Errorf("migration: record %s: %w", reg.name, err)
		}
		fmt.Printf("  ✅ Migrated:  %s\n", reg.name)
	}

	logger.Info("migration: done", "ran", len(pending), "batch", batch)
	return nil
}

// Rollback undoes the most recent batch, newest migration first.
func (r *Runner) Rollback() error {
	if err := r.EnsureTable(); err != nil {
		return fmt.Errorf("migration: ensure table: %w", err)
	}

	batch := r.lastBatch()
	if batch == 0 {
		fmt.Println("Nothing to roll back.")
		return nil
	}

	var applied []record
	if err := r.db.Where("batch = ?", batch).Order("id desc").Find(&applied).Error; err != nil {
		return err
	}

	byName := make(map[string]Migration, len(registry))
	for _, reg := range registry {
		byName[reg.name] = reg.m
	}

	for _, rec := range applied {
		m, ok := byName[rec.Name]
		if !ok {
			return fmt.Errorf("migration: cannot rollback %s — not registered", rec.Name)
		}

		logger.Info("migration: rolling back", "name", rec.Name)
		fmt.Printf("  ◀ Rolling back: %s\n", rec.Name)

		if err := m.Down(r.db); err != nil {
			return fmt.Errorf("migration: %s down: %w", rec.Name, err)
		}
		if err := r.db.Delete(&rec).Error; err != nil {
			return err
		}
		fmt.Printf("  ✅ Rolled back:  %s\n", rec.Name)
	}
	return nil
}

// Status prints every registered migration with its applied state.
func (r *Runner) Status() error {
	if err := r.EnsureTable(); err != nil {
		return err
	}
	applied, err := r.appliedByName()
	if err != nil {
		return err
	}

	fmt.Printf("%-60s  %-8s  %s\n", "Migration", "Status", "Batch")
	fmt.Println(strings.Repeat("-", 80))
	for _, reg := range registry {
		if rec, ok := applied[reg.name]; ok {
			fmt.Printf("%-60s  %-8s  %d\n", reg.name, "Ran", rec.Batch)
		} else {
			fmt.Printf("%-60s  %-8s  -\n", reg.name, "Pending")
		}
	}
	return nil
}

func (r *Runner) appliedByName() (map[string]record, error) {
	var applied []record
	if err := r.db.Find(&applied).Error; err != nil {
		return nil, err
	}
	out := make(map[string]record, len(applied))
	for _, rec := range applied {
		out[rec.Name] = rec
	}
	return out, nil
}

func (r *Runner) lastBatch() int {
	var row struct{ Max int }
	r.db.Model(&record{}).Select("MAX(batch) as max").Scan(&row)
	return row.Max
}
