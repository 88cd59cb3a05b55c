package models

import "time"

// ShoppingList is owned by one user and shared with others through SharedList grants.
type ShoppingList struct {
	ID         uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	Name       string         `gorm:"size:255;not null" json:"name"`
	OwnerID    uint64         `gorm:"not null;index" json:"owner_id"`
	ShareToken string         `gorm:"size:64;not null;uniqueIndex" json:"share_token"`
	Items      []ShoppingItem `gorm:"foreignKey:ShoppingListID" json:"items"`
	Shares     []SharedList   `gorm:"foreignKey:ShoppingListID" json:"-"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// ShoppingItem is a line of a shopping list
type ShoppingItem struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ShoppingListID uint64    `gorm:"not null;index" json:"shopping_list_id"`
	Name           string    `gorm:"size:255;not null" json:"name"`
	Quantity       string    `gorm:"size:100" json:"quantity"`
	Note           string    `gorm:"type:text" json:"note"`
	Completed      bool      `gorm:"not null;default:false" json:"completed"`
	CompletedByID  *uint64   `json:"completed_by_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SharedList grants a user read/write access to a list
type SharedList struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ShoppingListID uint64    `gorm:"not null;uniqueIndex:idx_shared_list" json:"shopping_list_id"`
	SharedWithID   uint64    `gorm:"not null;uniqueIndex:idx_shared_list;index" json:"shared_with_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName overrides the table name for ShoppingList
func (ShoppingList) TableName() string {
	return "shopping_lists"
}

// TableName overrides the table name for ShoppingItem
func (ShoppingItem) TableName() string {
	return "shopping_items"
}

// TableName overrides the table name for SharedList
func (SharedList) TableName() string {
	return "shared_lists"
}
