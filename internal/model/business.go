package model

import (
	"time"

	"github.com/google/uuid"
)

// Business is the top-level commercial entity owning one or more branches.
type Business struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `gorm:"not null"`
	RIF       *string   `gorm:"type:varchar(30);column:rif"`
	Logo      *string
	CreatedAt time.Time
	UpdatedAt time.Time

	Branches []BusinessBranch `gorm:"foreignKey:BusinessID"`
}

func (Business) TableName() string { return "businesses" }

// BusinessBranch is one physical location of a business. Stock, cash
// registers, clients and ticket numbering are all scoped to a branch.
type BusinessBranch struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BusinessID uuid.UUID `gorm:"type:uuid;index;not null"`
	Country    string
	State      string
	City       string
	Address    string
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Business *Business `gorm:"foreignKey:BusinessID"`
}

func (BusinessBranch) TableName() string { return "business_branches" }
