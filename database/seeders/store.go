package seeders

import (
	"gorm.io/gorm"

	"github.com/adityaraj/bazario/app/models"
	"github.com/adityaraj/bazario/pkg/auth"
)

func init() {
	Register("admin", SeedAdmin)
	Register("products", SeedProducts)
}

// SeedAdmin creates the bootstrap admin account if none exists.
// The password must be rotated after first login.
func SeedAdmin(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := auth.HashPassword("admin123", 0)
	if err != nil {
		return err
	}

	admin := models.User{
		Name:         "Store Admin",
		Email:        "admin@bazario.local",
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	}
	return db.Create(&admin).Error
}

// SeedProducts inserts a starter catalogue when the table is empty.
func SeedProducts(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Product{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	products := []models.Product{
		{Name: "Wireless Mouse", Description: "2.4 GHz wireless mouse with silent clicks", Price: 899, Category: "electronics", Stock: 120},
		{Name: "Mechanical Keyboard", Description: "Tenkeyless board with brown switches", Price: 4499, Category: "electronics", Stock: 45},
		{Name: "Cotton T-Shirt", Description: "Plain crew-neck, 180 GSM", Price: 499, Category: "apparel", Stock: 300},
		{Name: "Running Shoes", Description: "Lightweight trainers with breathable mesh", Price: 2999, Category: "footwear", Stock: 80},
		{Name: "Stainless Water Bottle", Description: "1 litre vacuum-insulated bottle", Price: 799, Category: "home", Stock: 200},
		{Name: "Yoga Mat", Description: "6 mm non-slip mat with carry strap", Price: 1199, Category: "fitness", Stock: 60},
	}
	return db.Create(&products).Error
}
