package repository

import (
	"context"

	"github.com/reinaldoagf/servimarket-back/internal/dto"
	"github.com/reinaldoagf/servimarket-back/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PendingRepository stores user-addressed notifications created by the
// purchase-event worker.
type PendingRepository interface {
	Create(ctx context.Context, p *model.Pending) error
	List(ctx context.Context, filter dto.PendingFilter) ([]model.Pending, int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type pendingRepo struct{ db *gorm.DB }

func NewPendingRepository(db *gorm.DB) PendingRepository { return &pendingRepo{db: db} }

func (r *pendingRepo) Create(ctx context.Context, p *model.Pending) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *pendingRepo) List(ctx context.Context, filter dto.PendingFilter) ([]model.Pending, int64, error) {
	var pendings []model.Pending
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Pending{})

	if filter.BranchID != "" {
		q = q.Where("branch_id = ?", filter.BranchID)
	} else if filter.BusinessID != "" {
		q = q.Where("business_id = ?", filter.BusinessID)
	}
	if filter.UserID != "" {
		q = q.Where("linked_user_id = ?", filter.UserID)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.PageSize
	err := q.Order("created_at DESC").Offset(offset).Limit(filter.PageSize).Find(&pendings).Error
	return pendings, total, err
}

func (r *pendingRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.Pending{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
