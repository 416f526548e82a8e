package repository

import (
	"context"

	"github.com/reinaldoagf/servimarket-back/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CashRegisterRepository resolves a register to its owning branch and business.
type CashRegisterRepository interface {
	Resolve(ctx context.Context, id uuid.UUID) (*model.CashRegister, error)
}

type registerRepo struct{ db *gorm.DB }

func NewCashRegisterRepository(db *gorm.DB) CashRegisterRepository { return &registerRepo{db: db} }

func (r *registerRepo) Resolve(ctx context.Context, id uuid.UUID) (*model.CashRegister, error) {
	var cr model.CashRegister
	err := r.db.WithContext(ctx).Preload("Branch").First(&cr, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &cr, nil
}
