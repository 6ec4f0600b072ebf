package repositories

import (
	"context"
	"time"

	"github.com/adityaraj/bazario/app/models"
	"gorm.io/gorm"
)

// OrderRepository handles database operations for Order and its items.
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// DB exposes the underlying handle so the order service can open the
// transaction that spans order creation and stock decrements.
func (r *OrderRepository) DB() *gorm.DB { return r.db }

// Create persists an order and its items inside tx.
func (r *OrderRepository) Create(tx *gorm.DB, order *models.Order) error {
	return tx.Create(order).Error
}

// FindByID loads one order with its line items.
func (r *OrderRepository) FindByID(ctx context.Context, id uint) (models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Preload("Items").First(&order, id).Error
	return order, err
}

// TransitionStatus moves an order from one status to another inside tx.
// The WHERE guard on the old status makes the write conditional, so two
// concurrent transitions cannot both apply; ok=false means the order was no
// longer in the expected state.
func (r *OrderRepository) TransitionStatus(tx *gorm.DB, id uint, from, to string) (bool, error) {
	res := tx.Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ByUser returns a page of the user's orders, newest first.
func (r *OrderRepository) ByUser(ctx context.Context, userID uint, page, limit int) ([]models.Order, Pagination, error) {
	var orders []models.Order
	q := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("user_id = ?", userID).
		Preload("Items").
		Order("created_at DESC")
	p, err := paginate(q, page, limit, &orders)
	return orders, p, err
}

// All returns a page of every order, newest first. Admin listings.
func (r *OrderRepository) All(ctx context.Context, page, limit int) ([]models.Order, Pagination, error) {
	var orders []models.Order
	q := r.db.WithContext(ctx).Model(&models.Order{}).
		Preload("Items").
		Order("created_at DESC")
	p, err := paginate(q, page, limit, &orders)
	return orders, p, err
}

// PendingOlderThan returns pending orders created before cutoff. Used by the
// expiry sweep.
func (r *OrderRepository) PendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.StatusPending, cutoff).
		Preload("Items").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}
