package models

import "time"

// User is the identity record the ledger checks before opening a balance.
// Rows are written by the sign-in flow; the ledger only reads them.
type User struct {
	ID          string    `gorm:"primaryKey;type:varchar(128)" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Username    string    `gorm:"uniqueIndex;not null" json:"username"`
	GitHubLogin string    `gorm:"index;type:varchar(100)" json:"github_login"`
	Role        string    `gorm:"not null;default:'user'" json:"role"`
}
