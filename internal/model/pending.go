package model

import (
	"time"

	"github.com/google/uuid"
)

// Pending is a persisted notification addressed to a user: purchase events
// land here after the sale transaction commits, via the worker queue.
type Pending struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Title        string     `gorm:"not null"`
	Message      string     `gorm:"not null"`
	LinkedUserID uuid.UUID  `gorm:"type:uuid;index;not null"`
	BusinessID   *uuid.UUID `gorm:"type:uuid"`
	BranchID     *uuid.UUID `gorm:"type:uuid;index"`
	EventDate    *time.Time
	CreatedAt    time.Time

	LinkedUser *User           `gorm:"foreignKey:LinkedUserID"`
	Branch     *BusinessBranch `gorm:"foreignKey:BranchID"`
}

func (Pending) TableName() string { return "pendings" }
