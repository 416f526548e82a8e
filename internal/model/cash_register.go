package model

import (
	"time"

	"github.com/google/uuid"
)

// CashRegister is a checkout point within a branch. Every sale is created
// against a register; the register resolves the owning branch and business.
type CashRegister struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `gorm:"not null"`
	BranchID  uuid.UUID `gorm:"type:uuid;index;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Branch *BusinessBranch `gorm:"foreignKey:BranchID"`
}

// BranchTicketCounter holds the last assigned ticket number per branch.
// The row is locked by the upsert inside the sale transaction, which
// serializes ticket assignment for concurrent sales in the same branch.
type BranchTicketCounter struct {
	BranchID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	LastNumber int64     `gorm:"not null;default:0"`
	UpdatedAt  time.Time
}
