package repository

import (
	"context"
	"time"

	"github.com/reinaldoagf/servimarket-back/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AggregateRepository maintains the monthly category totals. The write path
// is a single atomic upsert-with-increment so concurrent sales in the same
// (scope, category, month) hit one row instead of racing find-then-write.
type AggregateRepository interface {
	AddToMonthlyTotalTx(tx *gorm.DB, scopeType string, scopeID, categoryID uuid.UUID, categoryName string, amount decimal.Decimal, now time.Time) error
	FindByScopeMonth(ctx context.Context, scopeType string, scopeID uuid.UUID, month time.Time) ([]model.CategoryAggregate, error)
}

type aggregateRepo struct{ db *gorm.DB }

func NewAggregateRepository(db *gorm.DB) AggregateRepository { return &aggregateRepo{db: db} }

func (r *aggregateRepo) AddToMonthlyTotalTx(tx *gorm.DB, scopeType string, scopeID, categoryID uuid.UUID, categoryName string, amount decimal.Decimal, now time.Time) error {
	month := model.MonthOf(now)
	return tx.Exec(`
		INSERT INTO category_aggregates
			(id, scope_type, scope_id, category_id, category_name, month, total, created_at, updated_at)
		VALUES (gen_random_uuid(), ?, ?, ?, ?, ?, ?, now(), now())
		ON CONFLICT (scope_type, scope_id, category_id, month)
		DO UPDATE SET total = category_aggregates.total + EXCLUDED.total, updated_at = now()`,
		scopeType, scopeID, categoryID, categoryName, month, amount).Error
}

func (r *aggregateRepo) FindByScopeMonth(ctx context.Context, scopeType string, scopeID uuid.UUID, month time.Time) ([]model.CategoryAggregate, error) {
	var rows []model.CategoryAggregate
	err := r.db.WithContext(ctx).
		Where("scope_type = ? AND scope_id = ? AND month = ?", scopeType, scopeID, model.MonthOf(month)).
		Order("category_name ASC").
		Find(&rows).Error
	return rows, err
}
