// Package seeders registers and runs development seed data. A seeder file
// adds itself from init:
//
//	func init() { seeders.Register("products", SeedProducts) }
//
// and `bazario seed` runs everything in registration order.
package seeders

import (
	"fmt"
	"sync"

	"gorm.io/gorm"
)

// SeederFunc inserts one slice of seed data.
type SeederFunc func(db *gorm.DB) error

type seeder struct {
	name string
	fn   SeederFunc
}

var (
	mu       sync.Mutex
	registry []seeder
)

// Register adds a seeder under name. Call it from init in a seeder file.
func Register(name string, fn SeederFunc) {
	mu.Lock()
	registry = append(registry, seeder{name: name, fn: fn})
	mu.Unlock()
}

// RunAll runs every registered seeder in order, stopping at the first
// failure.
func RunAll(db *gorm.DB) error {
	mu.Lock()
	pending := make([]seeder, len(registry))
	copy(pending, registry)
	mu.Unlock()

	if len(pending) == 0 {
		fmt.Println("  (no seeders registered)")
		return nil
	}
	for _, s := range pending {
		fmt.Printf("  • Running seeder: %s … ", s.name)
		if err := s.fn(db); err != nil {
			fmt.Println("FAILED")
			return fmt.Errorf("seeder %q: %w", s.name, err)
		}
		fmt.Println("done")
	}
	return nil
}
