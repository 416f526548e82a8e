package repository

import (
	"context"
	"errors"

	"github.com/reinaldoagf/servimarket-back/internal/dto"
	"github.com/reinaldoagf/servimarket-back/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrGuardFailed is returned by DecrementTx when the conditional update
// matched no row: either the stock unit vanished or the decrement would have
// driven the available quantity negative. The caller must abort the
// surrounding transaction.
var ErrGuardFailed = errors.New("guarded stock update affected no rows")

// StockRepository is the data access contract for stock units.
// Services depend on this interface, not on the concrete GORM implementation,
// enabling clean unit testing via stubs.
type StockRepository interface {
	Create(ctx context.Context, s *model.ProductStock) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ProductStock, error)
	FindExisting(ctx context.Context, productID uuid.UUID, presentationID *uuid.UUID, branchID uuid.UUID) (*model.ProductStock, error)
	List(ctx context.Context, filter dto.StockFilter) ([]model.ProductStock, int64, error)
	Update(ctx context.Context, s *model.ProductStock) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByBranchProduct(ctx context.Context, branchID, productID uuid.UUID) (int64, error)

	// Used inside the sale transaction — callers must pass the tx instance.
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.ProductStock, error)
	// DecrementTx is a guarded conditional update: it only applies when the
	// resulting quantity stays >= 0, and returns ErrGuardFailed otherwise.
	DecrementTx(tx *gorm.DB, id uuid.UUID, qty int) error
	IncrementTx(tx *gorm.DB, id uuid.UUID, qty int) error
	CreateMovementTx(tx *gorm.DB, m *model.StockMovement) error

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type stockRepo struct{ db *gorm.DB }

func NewStockRepository(db *gorm.DB) StockRepository { return &stockRepo{db: db} }

func (r *stockRepo) DB() *gorm.DB { return r.db }

func (r *stockRepo) Create(ctx context.Context, s *model.ProductStock) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *stockRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.ProductStock, error) {
	var s model.ProductStock
	err := r.db.WithContext(ctx).
		Preload("Product.Brand").
		Preload("Product.Category").
		Preload("Presentation").
		First(&s, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *stockRepo) FindExisting(ctx context.Context, productID uuid.UUID, presentationID *uuid.UUID, branchID uuid.UUID) (*model.ProductStock, error) {
	var s model.ProductStock
	q := r.db.WithContext(ctx).Where("product_id = ? AND branch_id = ?", productID, branchID)
	if presentationID != nil {
		q = q.Where("presentation_id = ?", *presentationID)
	} else {
		q = q.Where("presentation_id IS NULL")
	}
	if err := q.First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *stockRepo) List(ctx context.Context, filter dto.StockFilter) ([]model.ProductStock, int64, error) {
	var stocks []model.ProductStock
	var total int64

	q := r.db.WithContext(ctx).Model(&model.ProductStock{})

	if filter.BranchID != "" {
		q = q.Where("branch_id = ?", filter.BranchID)
	}
	if filter.Search != "" {
		q = q.Joins("JOIN products ON products.id = product_stocks.product_id").
			Joins("LEFT JOIN product_presentations ON product_presentations.id = product_stocks.presentation_id").
			Where("products.name ILIKE ? OR product_presentations.flavor ILIKE ?",
				"%"+filter.Search+"%", "%"+filter.Search+"%")
	}
	if filter.StartDate != "" {
		q = q.Where("product_stocks.created_at >= ?", filter.StartDate)
	}
	if filter.EndDate != "" {
		q = q.Where("product_stocks.created_at <= ?", filter.EndDate)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.PageSize
	err := q.Preload("Product.Brand").
		Preload("Product.Category").
		Preload("Presentation").
		Order("product_stocks.created_at DESC").
		Offset(offset).Limit(filter.PageSize).
		Find(&stocks).Error
	return stocks, total, err
}

func (r *stockRepo) Update(ctx context.Context, s *model.ProductStock) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *stockRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.ProductStock{}, "id = ?", id).Error
}

func (r *stockRepo) DeleteByBranchProduct(ctx context.Context, branchID, productID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("branch_id = ? AND product_id = ?", branchID, productID).
		Delete(&model.ProductStock{})
	return res.RowsAffected, res.Error
}

func (r *stockRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.ProductStock, error) {
	var s model.ProductStock
	if err := tx.First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *stockRepo) DecrementTx(tx *gorm.DB, id uuid.UUID, qty int) error {
	res := tx.Model(&model.ProductStock{}).
		Where("id = ? AND available_quantity >= ?", id, qty).
		Update("available_quantity", gorm.Expr("available_quantity - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrGuardFailed
	}
	return nil
}

func (r *stockRepo) IncrementTx(tx *gorm.DB, id uuid.UUID, qty int) error {
	res := tx.Model(&model.ProductStock{}).
		Where("id = ?", id).
		Update("available_quantity", gorm.Expr("available_quantity + ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrGuardFailed
	}
	return nil
}

func (r *stockRepo) CreateMovementTx(tx *gorm.DB, m *model.StockMovement) error {
	return tx.Create(m).Error
}
