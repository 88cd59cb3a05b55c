package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Money goes over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// ExpenseGroup is a set of users sharing expenses. Deleting a group removes its
// members, expenses and participants.
type ExpenseGroup struct {
	ID          uint64        `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string        `gorm:"size:255;not null" json:"name"`
	Description string        `gorm:"type:text" json:"description"`
	CreatorID   uint64        `gorm:"not null;index" json:"creator_id"`
	Creator     User          `gorm:"foreignKey:CreatorID" json:"-"`
	ShareToken  string        `gorm:"size:64;not null;uniqueIndex" json:"share_token"`
	Members     []GroupMember `gorm:"foreignKey:GroupID" json:"members"`
	Expenses    []Expense     `gorm:"foreignKey:GroupID" json:"expenses,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// GroupMember joins a user to a group. A user appears at most once per group.
type GroupMember struct {
	ID       uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	GroupID  uint64    `gorm:"not null;uniqueIndex:idx_group_member" json:"group_id"`
	UserID   uint64    `gorm:"not null;uniqueIndex:idx_group_member;index" json:"user_id"`
	User     User      `gorm:"foreignKey:UserID" json:"user"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

// Expense is a purchase paid by one member and split across participants.
type Expense struct {
	ID           uint64               `gorm:"primaryKey;autoIncrement" json:"id"`
	Description  string               `gorm:"type:text" json:"description"`
	Amount       decimal.Decimal      `gorm:"type:decimal(12,2);not null" json:"amount"`
	Tag          string               `gorm:"size:64;not null" json:"tag"`
	DivisionType string               `gorm:"size:32;not null" json:"division_type"`
	PaidByID     uint64               `gorm:"not null;index" json:"paid_by_id"`
	GroupID      uint64               `gorm:"not null;index" json:"group_id"`
	Participants []ExpenseParticipant `gorm:"foreignKey:ExpenseID" json:"participants"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// ExpenseParticipant is a user's share of an expense. Amount is set only for
// ExactAmounts, Percentage only for Percentage.
type ExpenseParticipant struct {
	ID         uint64              `gorm:"primaryKey;autoIncrement" json:"id"`
	ExpenseID  uint64              `gorm:"not null;uniqueIndex:idx_expense_participant" json:"expense_id"`
	UserID     uint64              `gorm:"not null;uniqueIndex:idx_expense_participant;index" json:"user_id"`
	Amount     decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"amount"`
	Percentage decimal.NullDecimal `gorm:"type:decimal(7,4)" json:"percentage"`
}

// TableName overrides the table name for ExpenseGroup
func (ExpenseGroup) TableName() string {
	return "expense_groups"
}

// TableName overrides the table name for GroupMember
func (GroupMember) TableName() string {
	return "group_members"
}

// TableName overrides the table name for Expense
func (Expense) TableName() string {
	return "expenses"
}

// TableName overrides the table name for ExpenseParticipant
func (ExpenseParticipant) TableName() string {
	return "expense_participants"
}
