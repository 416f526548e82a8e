package repository

import (
	"context"

	"github.com/reinaldoagf/servimarket-back/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductRepository is the read-only catalog boundary: product, brand and
// category lookups used to enrich shortage messages and resolve VAT exemption
// and category for aggregation.
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	ListCategories(ctx context.Context) ([]model.ProductCategory, error)
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).Preload("Brand").Preload("Category").First(&p, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) ListCategories(ctx context.Context) ([]model.ProductCategory, error) {
	var cats []model.ProductCategory
	err := r.db.WithContext(ctx).Order("name ASC").Find(&cats).Error
	return cats, err
}
