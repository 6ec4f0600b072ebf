package services

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/adityaraj/bazario/app/models"
	"github.com/adityaraj/bazario/app/repositories"
	"github.com/adityaraj/bazario/pkg/apperr"
	"github.com/adityaraj/bazario/pkg/cache"
	"github.com/adityaraj/bazario/pkg/logger"
	"github.com/adityaraj/bazario/pkg/storage"
)

const productCacheTTL = 5 * time.Minute

// CatalogService owns the product CRUD surface. The order engine never goes
// through the cache here — it reads price and stock straight from the
// repository inside its own transaction.
type CatalogService struct {
	products *repositories.ProductRepository
}

func NewCatalogService(products *repositories.ProductRepository) *CatalogService {
	return &CatalogService{products: products}
}

// GetProduct returns one product, served from cache when possible.
func (s *CatalogService) GetProduct(ctx context.Context, id uint) (models.Product, error) {
	var cached models.Product
	if cache.Get(productKey(id), &cached) {
		return cached, nil
	}

	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		if notFound(err) {
			return models.Product{}, apperr.NotFoundf("product %d not found", id)
		}
		return models.Product{}, storeErr("catalog: lookup product", err)
	}

	_ = cache.Set(productKey(id), p, productCacheTTL)
	return p, nil
}

// ListProducts returns a page of products, optionally filtered by category.
func (s *CatalogService) ListProducts(ctx context.Context, category string, page, limit int) ([]models.Product, repositories.Pagination, error) {
	products, p, err := s.products.All(ctx, category, page, limit)
	if err != nil {
		return nil, p, storeErr("catalog: list products", err)
	}
	return products, p, nil
}

// ProductInput is the admin create/update payload.
type ProductInput struct {
	Name        string  `json:"name"        validate:"required,min=2,max=255"`
	Description string  `json:"description" validate:"required"`
	Price       float64 `json:"price"       validate:"required,gt=0"`
	Category    string  `json:"category"    validate:"required,max=100"`
	Stock       int     `json:"stock"       validate:"gte=0"`
}

// CreateProduct adds a catalogue entry.
func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (models.Product, error) {
	p := models.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		Category:    in.Category,
		Stock:       in.Stock,
	}
	if err := s.products.Create(ctx, &p); err != nil {
		return models.Product{}, storeErr("catalog: create product", err)
	}
	logger.WithCtx(ctx).Info("product created", "product_id", p.ID, "name", p.Name)
	return p, nil
}

// UpdateProduct rewrites a catalogue entry. Existing orders keep their
// frozen prices regardless.
func (s *CatalogService) UpdateProduct(ctx context.Context, id uint, in ProductInput) (models.Product, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		if notFound(err) {
			return models.Product{}, apperr.NotFoundf("product %d not found", id)
		}
		return models.Product{}, storeErr("catalog: lookup product", err)
	}

	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Price = in.Price
	p.Category = in.Category
	p.Stock = in.Stock

	if err := s.products.Update(ctx, &p); err != nil {
		return models.Product{}, storeErr("catalog: update product", err)
	}
	s.invalidate(id)
	return p, nil
}

// DeleteProduct removes a catalogue entry.
func (s *CatalogService) DeleteProduct(ctx context.Context, id uint) error {
	if _, err := s.products.FindByID(ctx, id); err != nil {
		if notFound(err) {
			return apperr.NotFoundf("product %d not found", id)
		}
		return storeErr("catalog: lookup product", err)
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return storeErr("catalog: delete product", err)
	}
	s.invalidate(id)
	return nil
}

// AttachImage stores an uploaded product image on the configured disk and
// records its public URL.
func (s *CatalogService) AttachImage(ctx context.Context, id uint, filename string, data []byte) (models.Product, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		if notFound(err) {
			return models.Product{}, apperr.NotFoundf("product %d not found", id)
		}
		return models.Product{}, storeErr("catalog: lookup product", err)
	}

	ext := strings.ToLower(path.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
	default:
		return models.Product{}, apperr.Validationf("image must be jpg, png or webp")
	}

	key := fmt.Sprintf("products/%d%s", id, ext)
	if err := storage.Put(key, data); err != nil {
		return models.Product{}, apperr.Wrap(apperr.Unavailable, "image upload failed", err)
	}

	p.ImageURL = storage.URL(key)
	if err := s.products.Update(ctx, &p); err != nil {
		return models.Product{}, storeErr("catalog: update product", err)
	}
	s.invalidate(id)
	return p, nil
}

// invalidate drops cached copies after any stock or detail mutation.
func (s *CatalogService) invalidate(ids ...uint) {
	for _, id := range ids {
		_ = cache.Del(productKey(id))
	}
}

func productKey(id uint) string { return fmt.Sprintf("bazario:product:%d", id) }
