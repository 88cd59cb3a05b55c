package models

import "time"

// Reference types attached to notifications
const (
	ReferenceExpenseGroup = "expense_group"
	ReferenceShoppingList = "shopping_list"
)

// Notification is a durable message for one user. Only IsRead ever changes after creation.
type Notification struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        uint64    `gorm:"not null;index:idx_notification_user_read" json:"user_id"`
	Type          string    `gorm:"size:64;not null" json:"type"`
	Title         string    `gorm:"size:255;not null" json:"title"`
	Message       string    `gorm:"type:text;not null" json:"message"`
	ReferenceID   *uint64   `json:"reference_id"`
	ReferenceType *string   `gorm:"size:64" json:"reference_type"`
	IsRead        bool      `gorm:"not null;default:false;index:idx_notification_user_read" json:"is_read"`
	Data          JSON      `json:"data"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName overrides the table name for Notification
func (Notification) TableName() string {
	return "notifications"
}
