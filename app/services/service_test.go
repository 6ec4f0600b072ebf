package services_test

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/adityaraj/bazario/app/models"
	"github.com/adityaraj/bazario/app/repositories"
	"github.com/adityaraj/bazario/app/services"
	"github.com/adityaraj/bazario/pkg/auth"
)

// newTestDB opens a fresh in-memory database per test.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Product{}, &models.Order{}, &models.OrderItem{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func newAuthService(t *testing.T) (*services.AuthService, *repositories.UserRepository, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	users := repositories.NewUserRepository(db)
	issuer := auth.NewIssuer("test-secret", time.Hour)
	return services.NewAuthService(users, issuer, 4), users, db // low bcrypt cost keeps tests fast
}

func newOrderService(t *testing.T) (*services.OrderService, *repositories.ProductRepository, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	products := repositories.NewProductRepository(db)
	orders := repositories.NewOrderRepository(db)
	catalog := services.NewCatalogService(products)
	return services.NewOrderService(orders, products, catalog), products, db
}

func seedProduct(t *testing.T, db *gorm.DB, name string, price float64, stock int) models.Product {
	t.Helper()
	p := models.Product{Name: name, Description: name, Price: price, Category: "test", Stock: stock}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

func seedUser(t *testing.T, db *gorm.DB, email, role string) models.User {
	t.Helper()
	u := models.User{Name: "Test User", Email: email, PasswordHash: "x", Role: role}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}
