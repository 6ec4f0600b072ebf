package migrations

import (
	"gorm.io/gorm"

	"github.com/adityaraj/bazario/app/models"
	"github.com/adityaraj/bazario/pkg/migration"
)

func init() {
	migration.Register("20250801000000_create_users_table", &CreateUsersTable{})
	migration.Register("20250801000001_create_products_table", &CreateProductsTable{})
	migration.Register("20250801000002_create_orders_table", &CreateOrdersTable{})
}

// -------- 0001: users --------

type CreateUsersTable struct{}

func (m *CreateUsersTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.User{})
}

func (m *CreateUsersTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("users")
}

// -------- 0002: products --------

type CreateProductsTable struct{}

func (m *CreateProductsTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.Product{})
}

func (m *CreateProductsTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("products")
}

// -------- 0003: orders + order items --------

type CreateOrdersTable struct{}

func (m *CreateOrdersTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.Order{}, &models.OrderItem{})
}

func (m *CreateOrdersTable) Down(db *gorm.DB) error {
	if err := db.Migrator().DropTable("order_items"); err != nil {
		return err
	}
	return db.Migrator().DropTable("orders")
}
