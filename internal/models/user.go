package models

import (
	"strings"
	"time"
)

// User is an account holder. Users are created at registration or first OAuth login
// and are never hard-deleted.
type User struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	FirstName    string    `gorm:"size:100;not null" json:"first_name"`
	LastName     string    `gorm:"size:100;not null" json:"last_name"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	GoogleID     *string   `gorm:"size:64;uniqueIndex" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DisplayName joins first and last name
func (u User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}
