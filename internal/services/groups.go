package services

import (
	"errors"

	"github.com/localnerve/gestionale/internal/models"
	"github.com/localnerve/gestionale/internal/sanitize"
	"github.com/localnerve/gestionale/internal/split"
	"github.com/localnerve/gestionale/internal/types"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/hints"
)

// GroupInput is the create payload for an expense group
type GroupInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// GroupUpdate carries the fields a creator may change
type GroupUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (u GroupUpdate) apply(g *models.ExpenseGroup) error {
	if u.Name != nil {
		name := sanitize.Text(*u.Name)
		if name == "" {
			return types.Validation("name is required")
		}
		g.Name = name
	}
	if u.Description != nil {
		g.Description = sanitize.Text(*u.Description)
	}
	return nil
}

// MemberBalance is a member's settlement position in a group
type MemberBalance struct {
	UserID     uint64          `json:"user_id"`
	UserName   string          `json:"user_name"`
	TotalPaid  decimal.Decimal `json:"total_paid"`
	TotalOwed  decimal.Decimal `json:"total_owed"`
	NetBalance decimal.Decimal `json:"balance"`
}

func preloadMembers(db *gorm.DB) *gorm.DB {
	return db.Preload("Members", func(db *gorm.DB) *gorm.DB {
		return db.Order("group_members.id")
	}).Preload("Members.User")
}

func loadGroup(db *gorm.DB, groupID uint64) (*models.ExpenseGroup, error) {
	var group models.ExpenseGroup
	if err := preloadMembers(db).First(&group, groupID).Error; err != nil {
		return nil, storeError(err, "group")
	}
	return &group, nil
}

// IsGroupMember reports whether userID belongs to the group
func IsGroupMember(db *gorm.DB, groupID, userID uint64) (bool, error) {
	var count int64
	if err := db.Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error; err != nil {
		return false, storeError(err, "group member")
	}
	return count > 0, nil
}

func requireGroupMember(db *gorm.DB, groupID, userID uint64) error {
	ok, err := IsGroupMember(db, groupID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return types.Forbidden("you are not a member of this group")
	}
	return nil
}

// GroupMemberIDs returns member user ids in membership order
func GroupMemberIDs(db *gorm.DB, groupID uint64) ([]uint64, error) {
	var ids []uint64
	if err := db.Model(&models.GroupMember{}).
		Where("group_id = ?", groupID).
		Order("id").
		Pluck("user_id", &ids).Error; err != nil {
		return nil, storeError(err, "group member")
	}
	return ids, nil
}

// CreateGroup creates a group with the creator as its first member
func CreateGroup(db *gorm.DB, creator *models.User, in GroupInput) (*models.ExpenseGroup, error) {
	name := sanitize.Text(in.Name)
	if name == "" {
		return nil, types.Validation("name is required")
	}

	group := models.ExpenseGroup{
		Name:        name,
		Description: sanitize.Text(in.Description),
		CreatorID:   creator.ID,
		ShareToken:  NewShareToken(),
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Creator", "Members", "Expenses").Create(&group).Error; err != nil {
			return err
		}
		return tx.Create(&models.GroupMember{GroupID: group.ID, UserID: creator.ID}).Error
	})
	if err != nil {
		return nil, storeError(err, "group")
	}
	return loadGroup(db, group.ID)
}

// ListGroups returns the groups userID belongs to
func ListGroups(db *gorm.DB, userID uint64, page Page) ([]models.ExpenseGroup, error) {
	groups := []models.ExpenseGroup{}
	err := preloadMembers(db).
		Joins("JOIN group_members gm ON gm.group_id = expense_groups.id").
		Where("gm.user_id = ?", userID).
		Order("expense_groups.id").
		Scopes(page.scope(defaultLimit)).
		Find(&groups).Error
	if err != nil {
		return nil, storeError(err, "group")
	}
	return groups, nil
}

// GetGroup loads a group the user belongs to
func GetGroup(db *gorm.DB, groupID, userID uint64) (*models.ExpenseGroup, error) {
	group, err := loadGroup(db, groupID)
	if err != nil {
		return nil, err
	}
	if err := requireGroupMember(db, groupID, userID); err != nil {
		return nil, err
	}
	return group, nil
}

// JoinGroupByToken adds the user to the group behind token. Joining is idempotent;
// joined is true only when a membership row was created.
func JoinGroupByToken(db *gorm.DB, token string, user *models.User) (group *models.ExpenseGroup, joined bool, err error) {
	var found models.ExpenseGroup
	if err := db.Where("share_token = ?", token).First(&found).Error; err != nil {
		return nil, false, storeError(err, "group")
	}

	// A concurrent join of the same user lands on idx_group_member and is skipped
	res := db.Clauses(clause.OnConflict{DoNothing: true}).
		Omit("User").
		Create(&models.GroupMember{GroupID: found.ID, UserID: user.ID})
	if res.Error != nil {
		return nil, false, storeError(res.Error, "group")
	}
	joined = res.RowsAffected > 0

	group, err = loadGroup(db, found.ID)
	return group, joined, err
}

// UpdateGroup applies a partial update; only the creator may change a group
func UpdateGroup(db *gorm.DB, groupID, userID uint64, upd GroupUpdate) (*models.ExpenseGroup, error) {
	var group models.ExpenseGroup
	if err := db.First(&group, groupID).Error; err != nil {
		return nil, storeError(err, "group")
	}
	if group.CreatorID != userID {
		return nil, types.Forbidden("only the creator can modify the group")
	}
	if err := upd.apply(&group); err != nil {
		return nil, err
	}
	if err := db.Model(&group).Updates(map[string]any{
		"name":        group.Name,
		"description": group.Description,
	}).Error; err != nil {
		return nil, storeError(err, "group")
	}
	return loadGroup(db, groupID)
}

// DeleteGroup removes the group with its members, expenses and participants. It
// returns the group and the ids of its members before deletion.
func DeleteGroup(db *gorm.DB, groupID, userID uint64) (*models.ExpenseGroup, []uint64, error) {
	var group models.ExpenseGroup
	if err := db.First(&group, groupID).Error; err != nil {
		return nil, nil, storeError(err, "group")
	}
	if group.CreatorID != userID {
		return nil, nil, types.Forbidden("only the creator can delete the group")
	}

	memberIDs, err := GroupMemberIDs(db, groupID)
	if err != nil {
		return nil, nil, err
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		return deleteGroupTree(tx, groupID)
	}); err != nil {
		return nil, nil, storeError(err, "group")
	}
	return &group, memberIDs, nil
}

// AddGroupMembers adds users to a group. Any member may add others; every user must
// exist and must not already belong to the group.
func AddGroupMembers(db *gorm.DB, groupID, actorID uint64, userIDs []uint64) ([]models.GroupMember, error) {
	if len(userIDs) == 0 {
		return nil, types.Validation("user_id is required")
	}
	if _, err := loadGroup(db, groupID); err != nil {
		return nil, err
	}
	if err := requireGroupMember(db, groupID, actorID); err != nil {
		return nil, err
	}

	added := make([]models.GroupMember, 0, len(userIDs))
	err := db.Transaction(func(tx *gorm.DB) error {
		seen := make(map[uint64]struct{}, len(userIDs))
		for _, id := range userIDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}

			var user models.User
			if err := tx.First(&user, id).Error; err != nil {
				return storeError(err, "user")
			}
			var count int64
			if err := tx.Model(&models.GroupMember{}).
				Where("group_id = ? AND user_id = ?", groupID, id).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return types.Conflict("user %d is already a member of the group", id)
			}
			member := models.GroupMember{GroupID: groupID, UserID: id}
			if err := tx.Omit("User").Create(&member).Error; err != nil {
				return err
			}
			member.User = user
			added = append(added, member)
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err, "group")
	}
	return added, nil
}

// RemoveGroupMember removes a member; only the creator may do this and the creator
// cannot be removed.
func RemoveGroupMember(db *gorm.DB, groupID, actorID, userID uint64) error {
	var group models.ExpenseGroup
	if err := db.First(&group, groupID).Error; err != nil {
		return storeError(err, "group")
	}
	if group.CreatorID != actorID {
		return types.Forbidden("only the creator can remove members")
	}
	if userID == group.CreatorID {
		return types.Validation("the creator cannot be removed from the group")
	}

	res := db.Where("group_id = ? AND user_id = ?", groupID, userID).Delete(&models.GroupMember{})
	if res.Error != nil {
		return storeError(res.Error, "group member")
	}
	if res.RowsAffected == 0 {
		return types.NotFound("member")
	}
	return nil
}

// GroupBalances computes every member's paid, owed and net amounts from the
// currently committed expenses.
func GroupBalances(db *gorm.DB, groupID, userID uint64) ([]MemberBalance, error) {
	group, err := GetGroup(db, groupID, userID)
	if err != nil {
		return nil, err
	}

	var expenses []models.Expense
	if err := db.Clauses(hints.Comment("select", "group_balances")).
		Preload("Participants", func(db *gorm.DB) *gorm.DB {
			return db.Order("expense_participants.id")
		}).
		Where("group_id = ?", groupID).
		Order("id").
		Find(&expenses).Error; err != nil {
		return nil, storeError(err, "expense")
	}

	memberIDs := make([]uint64, len(group.Members))
	names := make(map[uint64]string, len(group.Members))
	for i, m := range group.Members {
		memberIDs[i] = m.UserID
		names[m.UserID] = m.User.DisplayName()
	}

	engineExpenses := make([]split.Expense, 0, len(expenses))
	for _, e := range expenses {
		se, err := ToSplitExpense(e)
		if err != nil {
			return nil, types.Dependency(err)
		}
		engineExpenses = append(engineExpenses, se)
	}

	balances, err := split.GroupBalances(memberIDs, engineExpenses)
	if err != nil {
		return nil, types.Dependency(err)
	}

	out := make([]MemberBalance, len(balances))
	for i, b := range balances {
		out[i] = MemberBalance{
			UserID:     b.UserID,
			UserName:   names[b.UserID],
			TotalPaid:  b.TotalPaid,
			TotalOwed:  b.TotalOwed,
			NetBalance: b.Net,
		}
	}
	return out, nil
}

// lockGroup takes a row lock on the group for the rest of the transaction
func lockGroup(tx *gorm.DB, groupID uint64) error {
	var group models.ExpenseGroup
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&group, groupID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.NotFound("group")
	}
	return err
}
