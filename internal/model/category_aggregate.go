package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate scope types. Branch scope holds the seller's "sales by category"
// ledger; user scope holds the buyer's "my purchases" ledger fed by approval.
const (
	ScopeBranch = "branch"
	ScopeUser   = "user"
)

// CategoryAggregate is the monthly running total of sale amounts for one
// (scope, category, calendar month). At most one row exists per key: the
// unique index backs the in-transaction upsert-with-increment, so concurrent
// sales in the same month hit the same row instead of creating duplicates.
type CategoryAggregate struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ScopeType  string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_scope_category_month"`
	ScopeID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_scope_category_month"`
	CategoryID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_scope_category_month"`
	// CategoryName is snapshotted at first insert so later renames do not
	// rewrite history.
	CategoryName string `gorm:"not null"`
	// Month is the first day of the calendar month, date-truncated.
	Month     time.Time       `gorm:"type:date;not null;uniqueIndex:idx_scope_category_month"`
	Total     decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (CategoryAggregate) TableName() string { return "category_aggregates" }

// MonthOf truncates t to the first instant of its calendar month in UTC.
func MonthOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
