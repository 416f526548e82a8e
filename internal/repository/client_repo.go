package repository

import (
	"context"
	"errors"

	"github.com/reinaldoagf/servimarket-back/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClientRepository registers users as branch clients when they check out with
// a partial payment.
type ClientRepository interface {
	// Ensure creates the (branch, user) client record if absent. Idempotent.
	Ensure(ctx context.Context, branchID, userID uuid.UUID) (*model.BusinessBranchClient, error)
}

type clientRepo struct{ db *gorm.DB }

func NewClientRepository(db *gorm.DB) ClientRepository { return &clientRepo{db: db} }

func (r *clientRepo) Ensure(ctx context.Context, branchID, userID uuid.UUID) (*model.BusinessBranchClient, error) {
	var c model.BusinessBranchClient
	err := r.db.WithContext(ctx).
		Where("branch_id = ? AND user_id = ?", branchID, userID).
		First(&c).Error
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	c = model.BusinessBranchClient{BranchID: branchID, UserID: userID}
	if err := r.db.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}
