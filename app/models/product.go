package models

import "gorm.io/gorm"

// Product is a catalogue entry. Stock is a single mutable counter that the
// order engine decrements conditionally; it must never go negative.
type Product struct {
	gorm.Model
	Name        string  `gorm:"size:255;not null;index" json:"name"`
	Description string  `gorm:"type:text"               json:"description"`
	Price       float64 `gorm:"not null;default:0"      json:"price"`
	Category    string  `gorm:"size:100;index"          json:"category"`
	Stock       int     `gorm:"not null;default:0"      json:"stock"`
	ImageURL    string  `gorm:"size:512"                json:"image_url,omitempty"`
}

// InStock reports whether any units are available.
func (p *Product) InStock() bool { return p.Stock > 0 }
