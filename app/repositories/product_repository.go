package repositories

import (
	"context"

	"github.com/adityaraj/bazario/app/models"
	"gorm.io/gorm"
)

// ProductRepository handles database operations for Product.
type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// FindByID looks up one product.
func (r *ProductRepository) FindByID(ctx context.Context, id uint) (models.Product, error) {
	var p models.Product
	err := r.db.WithContext(ctx).First(&p, id).Error
	return p, err
}

// FindByIDs returns all products matching ids in one batched query. The
// order engine uses this as its point-in-time price/stock snapshot; ids
// absent from the result simply don't appear.
func (r *ProductRepository) FindByIDs(ctx context.Context, ids []uint) ([]models.Product, error) {
	var out []models.Product
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error
	return out, err
}

// All returns a page of products, optionally filtered by category.
func (r *ProductRepository) All(ctx context.Context, category string, page, limit int) ([]models.Product, Pagination, error) {
	q := r.db.WithContext(ctx).Model(&models.Product{})
	if category != "" {
		q = q.Where("category = ?", category)
	}

	var products []models.Product
	p, err := paginate(q, page, limit, &products)
	return products, p, err
}

// Create persists a new product.
func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// Update persists changes to a product.
func (r *ProductRepository) Update(ctx context.Context, p *models.Product) error {
	return r.db.WithContext(ctx).Save(p).Error
}

// Delete removes a product. Historical orders keep their frozen prices and
// product ids; they are unaffected.
func (r *ProductRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Product{}, id).Error
}

// DecrementStock atomically takes qty units from a product inside tx.
// The WHERE guard makes the decrement conditional: it matches no rows when
// stock is short, and the caller sees ok=false instead of negative stock.
func (r *ProductRepository) DecrementStock(tx *gorm.DB, id uint, qty int) (bool, error) {
	res := tx.Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// IncrementStock returns qty units to a product inside tx (cancellations).
func (r *ProductRepository) IncrementStock(tx *gorm.DB, id uint, qty int) error {
	return tx.Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumn("stock", gorm.Expr("stock + ?", qty)).Error
}
