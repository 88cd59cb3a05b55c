package services

import (
	"fmt"

	"github.com/localnerve/gestionale/internal/models"
	"github.com/localnerve/gestionale/internal/sanitize"
	"github.com/localnerve/gestionale/internal/split"
	"github.com/localnerve/gestionale/internal/types"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ParticipantInput is one participant row of an expense payload
type ParticipantInput struct {
	UserID     types.FlexID     `json:"user_id"`
	Amount     *decimal.Decimal `json:"amount"`
	Percentage *decimal.Decimal `json:"percentage"`
}

// ExpenseInput is the create payload for an expense. PaidByID defaults to the caller.
type ExpenseInput struct {
	Description  string             `json:"description"`
	Amount       decimal.Decimal    `json:"amount"`
	Tag          string             `json:"tag"`
	DivisionType string             `json:"division_type"`
	PaidByID     types.FlexID       `json:"paid_by_id"`
	GroupID      types.FlexID       `json:"group_id"`
	Participants []ParticipantInput `json:"participants"`
}

// ExpenseUpdate carries the fields the payer may change. Participants, when present,
// replace the existing rows.
type ExpenseUpdate struct {
	Description  *string             `json:"description"`
	Amount       *decimal.Decimal    `json:"amount"`
	Tag          *string             `json:"tag"`
	DivisionType *string             `json:"division_type"`
	Participants *[]ParticipantInput `json:"participants"`
}

func (u ExpenseUpdate) apply(e *models.Expense) error {
	if u.Description != nil {
		e.Description = sanitize.Text(*u.Description)
	}
	if u.Amount != nil {
		e.Amount = *u.Amount
	}
	if u.Tag != nil {
		tag, ok := split.NormalizeTag(*u.Tag)
		if !ok {
			return types.Validation("unknown tag %q", *u.Tag)
		}
		e.Tag = tag
	}
	if u.DivisionType != nil {
		policy, err := split.ParsePolicy(*u.DivisionType)
		if err != nil {
			return types.Validation("%v", err)
		}
		e.DivisionType = string(policy)
	}
	if u.Participants != nil {
		e.Participants = toParticipantModels(*u.Participants)
	}
	return nil
}

func toParticipantModels(in []ParticipantInput) []models.ExpenseParticipant {
	out := make([]models.ExpenseParticipant, len(in))
	for i, p := range in {
		out[i] = models.ExpenseParticipant{UserID: p.UserID.Uint64()}
		if p.Amount != nil {
			out[i].Amount = decimal.NewNullDecimal(*p.Amount)
		}
		if p.Percentage != nil {
			out[i].Percentage = decimal.NewNullDecimal(*p.Percentage)
		}
	}
	return out
}

func nullToPtr(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	v := n.Decimal
	return &v
}

// ToSplitExpense converts a stored expense for the split engine
func ToSplitExpense(e models.Expense) (split.Expense, error) {
	policy, err := split.ParsePolicy(e.DivisionType)
	if err != nil {
		return split.Expense{}, fmt.Errorf("expense %d: %w", e.ID, err)
	}
	participants := make([]split.Participant, len(e.Participants))
	for i, p := range e.Participants {
		participants[i] = split.Participant{
			UserID:     p.UserID,
			Amount:     nullToPtr(p.Amount),
			Percentage: nullToPtr(p.Percentage),
		}
	}
	return split.Expense{
		ID:           e.ID,
		Amount:       e.Amount,
		Policy:       policy,
		PaidBy:       e.PaidByID,
		Participants: participants,
	}, nil
}

// validateExpense checks the split and that payer and participants belong to the group
func validateExpense(tx *gorm.DB, e *models.Expense) error {
	se, err := ToSplitExpense(*e)
	if err != nil {
		return types.Validation("%v", err)
	}
	if err := split.Validate(se); err != nil {
		return types.Validation("%v", err)
	}

	memberIDs, err := GroupMemberIDs(tx, e.GroupID)
	if err != nil {
		return err
	}
	members := make(map[uint64]struct{}, len(memberIDs))
	for _, id := range memberIDs {
		members[id] = struct{}{}
	}
	if _, ok := members[e.PaidByID]; !ok {
		return types.Validation("payer %d is not a member of the group", e.PaidByID)
	}
	for _, p := range e.Participants {
		if _, ok := members[p.UserID]; !ok {
			return types.Validation("participant %d is not a member of the group", p.UserID)
		}
	}
	return nil
}

func loadExpense(db *gorm.DB, expenseID uint64) (*models.Expense, error) {
	var expense models.Expense
	if err := db.Preload("Participants", func(db *gorm.DB) *gorm.DB {
		return db.Order("expense_participants.id")
	}).First(&expense, expenseID).Error; err != nil {
		return nil, storeError(err, "expense")
	}
	return &expense, nil
}

// CreateExpense records an expense in a group the caller belongs to
func CreateExpense(db *gorm.DB, actorID uint64, in ExpenseInput) (*models.Expense, error) {
	groupID := in.GroupID.Uint64()
	if groupID == 0 {
		return nil, types.Validation("group_id is required")
	}
	if _, err := loadGroup(db, groupID); err != nil {
		return nil, err
	}
	if err := requireGroupMember(db, groupID, actorID); err != nil {
		return nil, err
	}

	tag := "Altro"
	if in.Tag != "" {
		var ok bool
		if tag, ok = split.NormalizeTag(in.Tag); !ok {
			return nil, types.Validation("unknown tag %q", in.Tag)
		}
	}
	policy, err := split.ParsePolicy(in.DivisionType)
	if err != nil {
		return nil, types.Validation("%v", err)
	}
	paidBy := in.PaidByID.Uint64()
	if paidBy == 0 {
		paidBy = actorID
	}

	expense := models.Expense{
		Description:  sanitize.Text(in.Description),
		Amount:       in.Amount,
		Tag:          tag,
		DivisionType: string(policy),
		PaidByID:     paidBy,
		GroupID:      groupID,
		Participants: toParticipantModels(in.Participants),
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := lockGroup(tx, groupID); err != nil {
			return err
		}
		if err := validateExpense(tx, &expense); err != nil {
			return err
		}
		return tx.Create(&expense).Error
	})
	if err != nil {
		return nil, storeError(err, "expense")
	}
	return loadExpense(db, expense.ID)
}

// ListExpenses returns expenses of one group, or of every group the user belongs to
// when groupID is zero. Newest first.
func ListExpenses(db *gorm.DB, userID, groupID uint64, page Page) ([]models.Expense, error) {
	query := db.Preload("Participants", func(db *gorm.DB) *gorm.DB {
		return db.Order("expense_participants.id")
	})

	if groupID != 0 {
		if err := requireGroupMember(db, groupID, userID); err != nil {
			return nil, err
		}
		query = query.Where("group_id = ?", groupID)
	} else {
		query = query.Where("group_id IN (?)",
			db.Model(&models.GroupMember{}).Select("group_id").Where("user_id = ?", userID))
	}

	expenses := []models.Expense{}
	if err := query.Order("id DESC").Scopes(page.scope(defaultLimit)).Find(&expenses).Error; err != nil {
		return nil, storeError(err, "expense")
	}
	return expenses, nil
}

// GetExpense loads an expense of a group the user belongs to
func GetExpense(db *gorm.DB, expenseID, userID uint64) (*models.Expense, error) {
	expense, err := loadExpense(db, expenseID)
	if err != nil {
		return nil, err
	}
	if ok, err := IsGroupMember(db, expense.GroupID, userID); err != nil {
		return nil, err
	} else if !ok {
		return nil, types.Forbidden("you do not have access to this expense")
	}
	return expense, nil
}

// UpdateExpense applies a partial update; only the payer may edit an expense
func UpdateExpense(db *gorm.DB, expenseID, userID uint64, upd ExpenseUpdate) (*models.Expense, error) {
	expense, err := GetExpense(db, expenseID, userID)
	if err != nil {
		return nil, err
	}
	if expense.PaidByID != userID {
		return nil, types.Forbidden("only the payer can modify the expense")
	}
	if err := upd.apply(expense); err != nil {
		return nil, err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := lockGroup(tx, expense.GroupID); err != nil {
			return err
		}
		if err := validateExpense(tx, expense); err != nil {
			return err
		}
		if err := tx.Model(expense).Omit("Participants").Updates(map[string]any{
			"description":   expense.Description,
			"amount":        expense.Amount,
			"tag":           expense.Tag,
			"division_type": expense.DivisionType,
		}).Error; err != nil {
			return err
		}
		if upd.Participants == nil {
			return nil
		}
		if err := tx.Where("expense_id = ?", expense.ID).Delete(&models.ExpenseParticipant{}).Error; err != nil {
			return err
		}
		for i := range expense.Participants {
			expense.Participants[i].ID = 0
			expense.Participants[i].ExpenseID = expense.ID
		}
		if len(expense.Participants) == 0 {
			return nil
		}
		return tx.Create(&expense.Participants).Error
	})
	if err != nil {
		return nil, storeError(err, "expense")
	}
	return loadExpense(db, expenseID)
}

// DeleteExpense removes an expense and its participants; only the payer may do this
func DeleteExpense(db *gorm.DB, expenseID, userID uint64) (*models.Expense, error) {
	expense, err := loadExpense(db, expenseID)
	if err != nil {
		return nil, err
	}
	if expense.PaidByID != userID {
		return nil, types.Forbidden("only the payer can delete the expense")
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		return deleteExpenseTree(tx, expenseID)
	}); err != nil {
		return nil, storeError(err, "expense")
	}
	return expense, nil
}

