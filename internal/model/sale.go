package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sale status values. A sale is "paid" iff amountCancelled == totalAmount;
// "unprocessed" is the caller-supplied override for account-level updates that
// skip payment-split replacement.
const (
	StatusPaid        = "paid"
	StatusPending     = "pending"
	StatusUnprocessed = "unprocessed"
)

// Sale is one checkout/invoice rung up at a cash register. Created atomically
// with its lines and payment splits; mutated only through the coordinator's
// update/patch/approve operations, never by direct field edits.
type Sale struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	// ClientName/ClientDNI identify a walk-in client with no account.
	ClientName     *string
	ClientDNI      *string    `gorm:"column:client_dni"`
	UserID         *uuid.UUID `gorm:"type:uuid;index"`
	CashRegisterID uuid.UUID  `gorm:"type:uuid;index;not null"`
	// TicketNumber is unique and strictly increasing per branch.
	TicketNumber    int64           `gorm:"not null"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	AmountCancelled decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Status          string          `gorm:"type:varchar(20);not null;default:'pending'"`
	ClientApproved  bool            `gorm:"not null;default:false"`
	ClosedAt        *time.Time
	ExpiredDate     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time

	User         *User          `gorm:"foreignKey:UserID"`
	CashRegister *CashRegister  `gorm:"foreignKey:CashRegisterID"`
	Lines        []SaleLine     `gorm:"foreignKey:SaleID"`
	Splits       []PaymentSplit `gorm:"foreignKey:SaleID"`
}

// SaleLine references the stock unit consumed and captures the unit price at
// time of sale, so historic invoices survive later catalog price changes.
type SaleLine struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SaleID         uuid.UUID  `gorm:"type:uuid;index;not null"`
	StockID        uuid.UUID  `gorm:"type:uuid;index;not null"`
	ProductID      uuid.UUID  `gorm:"type:uuid;not null"`
	PresentationID *uuid.UUID `gorm:"type:uuid"`
	Quantity       int        `gorm:"not null"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt      time.Time

	Stock        *ProductStock        `gorm:"foreignKey:StockID"`
	Product      *Product             `gorm:"foreignKey:ProductID"`
	Presentation *ProductPresentation `gorm:"foreignKey:PresentationID"`
}

// PaymentMethod is reference data for payment splits (cash, card, transfer…).
type PaymentMethod struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `gorm:"uniqueIndex;not null"`
	Country   *string
	CreatedAt time.Time
}

// PaymentSplit is one (payment method, amount) pair covering part of a sale.
// The full set is replaced on every update/patch, never incrementally diffed.
type PaymentSplit struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SaleID          uuid.UUID       `gorm:"type:uuid;index;not null"`
	PaymentMethodID uuid.UUID       `gorm:"type:uuid;not null"`
	Amount          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt       time.Time

	PaymentMethod *PaymentMethod `gorm:"foreignKey:PaymentMethodID"`
}
