package model

import (
	"time"

	"github.com/google/uuid"
)

// BusinessBranchClient links a registered user to a branch where they hold
// open credit. Created automatically the first time a user checks out with a
// partial payment; idempotent on (branch, user).
type BusinessBranchClient struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BranchID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_branch_user"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_branch_user"`
	CreatedAt time.Time

	Branch *BusinessBranch `gorm:"foreignKey:BranchID"`
	User   *User           `gorm:"foreignKey:UserID"`
}

func (BusinessBranchClient) TableName() string { return "business_branch_clients" }
