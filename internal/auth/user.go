package auth

import "time"

// User is an operator account for the management API. Project data itself is
// not owned by users; accounts only gate access.
type User struct {
	ID           uint64    `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (User) TableName() string { return "users" }
