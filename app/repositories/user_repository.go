// Package repositories holds the database access layer. Every repository
// receives its *gorm.DB at construction so services stay free of globals
// and tests can hand in an in-memory database.
package repositories

import (
	"context"

	"github.com/adityaraj/bazario/app/models"
	"gorm.io/gorm"
)

// UserRepository handles database operations for User.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail looks up a user by email. The address is normalized before the
// query, so lookups are case-insensitive.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("email = ?", models.NormalizeEmail(email)).
		First(&user).Error
	return user, err
}

// FindByID looks up a user by primary key.
func (r *UserRepository) FindByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	return user, err
}

// FindByGoogleID looks up a user by their linked Google identity.
func (r *UserRepository) FindByGoogleID(ctx context.Context, googleID string) (models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("google_id = ?", googleID).
		First(&user).Error
	return user, err
}

// Create persists a new user record.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	user.Email = models.NormalizeEmail(user.Email)
	return r.db.WithContext(ctx).Create(user).Error
}

// Update persists changes to an existing user.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	user.Email = models.NormalizeEmail(user.Email)
	return r.db.WithContext(ctx).Save(user).Error
}

// Delete removes a user (soft delete via gorm.Model).
func (r *UserRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.User{}, id).Error
}

// All returns a page of users.
func (r *UserRepository) All(ctx context.Context, page, limit int) ([]models.User, Pagination, error) {
	var users []models.User
	p, err := paginate(r.db.WithContext(ctx).Model(&models.User{}), page, limit, &users)
	return users, p, err
}
