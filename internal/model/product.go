package model

import (
	"time"

	"github.com/google/uuid"
)

// Brand is product reference data, used to enrich shortage messages.
type Brand struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `gorm:"uniqueIndex;not null"`
	CreatedAt time.Time
}

// ProductCategory classifies products for monthly aggregation.
type ProductCategory struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `gorm:"uniqueIndex;not null"`
	CreatedAt time.Time
}

func (ProductCategory) TableName() string { return "product_categories" }

// Product is catalog reference data shared across branches. Stock levels and
// prices live in ProductStock, scoped per branch.
type Product struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name       string    `gorm:"index;not null"`
	BrandID    *uuid.UUID `gorm:"type:uuid;index"`
	CategoryID uuid.UUID  `gorm:"type:uuid;index;not null"`
	// VATExempt products are excluded from the VAT adjustment applied when a
	// sale is approved into the buyer's personal ledger.
	VATExempt bool   `gorm:"not null;default:false;column:vat_exempt"`
	Status    string `gorm:"type:varchar(20);not null;default:'active'"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Brand    *Brand           `gorm:"foreignKey:BrandID"`
	Category *ProductCategory `gorm:"foreignKey:CategoryID"`
}

// ProductPresentation is one sellable form of a product (flavor, packing,
// measured quantity). Optional: bulk products sell without a presentation.
type ProductPresentation struct {
	ID                  uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID           uuid.UUID `gorm:"type:uuid;index;not null"`
	Flavor              *string
	MeasurementQuantity *float64
	Packing             *string
	CreatedAt           time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
}
