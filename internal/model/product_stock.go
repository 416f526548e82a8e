package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductStock is the sellable inventory record for one product (and optional
// presentation) at one branch. AvailableQuantity never goes negative: it is
// mutated only through the ledger's guarded decrement/increment inside the
// sale transaction.
type ProductStock struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID         uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_stock_unit"`
	PresentationID    *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_stock_unit"`
	BranchID          uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_stock_unit;index"`
	AvailableQuantity int        `gorm:"not null;default:0;check:available_quantity >= 0"`
	SalePrice         decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PurchasePrice     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// Derived profit metrics, captured at stock registration time.
	ProfitPercentage   decimal.Decimal `gorm:"type:decimal(6,2)"`
	ReturnOnInvestment decimal.Decimal `gorm:"type:decimal(6,2)"`
	CreatedAt          time.Time
	UpdatedAt          time.Time

	Product      *Product             `gorm:"foreignKey:ProductID"`
	Presentation *ProductPresentation `gorm:"foreignKey:PresentationID"`
	Branch       *BusinessBranch      `gorm:"foreignKey:BranchID"`
}

func (ProductStock) TableName() string { return "product_stocks" }

// StockMovement records every quantity change on a stock unit.
// Type: "sale" | "sale_update" | "manual_adjustment"
// Movements are NEVER modified or deleted — corrections create inverse entries.
type StockMovement struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	StockID        uuid.UUID `gorm:"type:uuid;not null;index"`
	Type           string    `gorm:"not null"`
	Quantity       int       `gorm:"not null"` // positive = restock, negative = consumption
	QuantityBefore int       `gorm:"not null"`
	QuantityAfter  int       `gorm:"not null"`
	Reason         string
	SaleID         *uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt      time.Time

	Stock *ProductStock `gorm:"foreignKey:StockID"`
}

func (StockMovement) TableName() string { return "stock_movements" }
