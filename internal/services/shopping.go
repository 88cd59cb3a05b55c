package services

import (
	"github.com/localnerve/gestionale/internal/models"
	"github.com/localnerve/gestionale/internal/sanitize"
	"github.com/localnerve/gestionale/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ListInput is the create payload for a shopping list
type ListInput struct {
	Name string `json:"name"`
}

// ListUpdate carries the fields an owner may change
type ListUpdate struct {
	Name *string `json:"name"`
}

func (u ListUpdate) apply(l *models.ShoppingList) error {
	if u.Name != nil {
		name := sanitize.Text(*u.Name)
		if name == "" {
			return types.Validation("name is required")
		}
		l.Name = name
	}
	return nil
}

// ItemInput is the create payload for a shopping item
type ItemInput struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
	Note     string `json:"note"`
}

// ItemUpdate carries the mutable fields of an item
type ItemUpdate struct {
	Name      *string `json:"name"`
	Quantity  *string `json:"quantity"`
	Note      *string `json:"note"`
	Completed *bool   `json:"completed"`
}

func (u ItemUpdate) apply(it *models.ShoppingItem, actorID uint64) error {
	if u.Name != nil {
		name := sanitize.Text(*u.Name)
		if name == "" {
			return types.Validation("name is required")
		}
		it.Name = name
	}
	if u.Quantity != nil {
		it.Quantity = sanitize.Text(*u.Quantity)
	}
	if u.Note != nil {
		it.Note = sanitize.Text(*u.Note)
	}
	if u.Completed != nil {
		it.Completed = *u.Completed
		if it.Completed {
			it.CompletedByID = &actorID
		} else {
			it.CompletedByID = nil
		}
	}
	return nil
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("shopping_items.id")
	})
}

func loadList(db *gorm.DB, listID uint64) (*models.ShoppingList, error) {
	var list models.ShoppingList
	if err := preloadItems(db).First(&list, listID).Error; err != nil {
		return nil, storeError(err, "shopping list")
	}
	return &list, nil
}

// HasListAccess reports whether the user owns the list or holds a share grant
func HasListAccess(db *gorm.DB, list *models.ShoppingList, userID uint64) (bool, error) {
	if list.OwnerID == userID {
		return true, nil
	}
	var count int64
	if err := db.Model(&models.SharedList{}).
		Where("shopping_list_id = ? AND shared_with_id = ?", list.ID, userID).
		Count(&count).Error; err != nil {
		return false, storeError(err, "shopping list")
	}
	return count > 0, nil
}

// requireListOwner loads the list and fails unless userID owns it
func requireListOwner(db *gorm.DB, listID, userID uint64, action string) (*models.ShoppingList, error) {
	var list models.ShoppingList
	if err := db.First(&list, listID).Error; err != nil {
		return nil, storeError(err, "shopping list")
	}
	if list.OwnerID != userID {
		return nil, types.Forbidden("only the owner can %s the list", action)
	}
	return &list, nil
}

// CreateList creates a list owned by the caller
func CreateList(db *gorm.DB, ownerID uint64, in ListInput) (*models.ShoppingList, error) {
	name := sanitize.Text(in.Name)
	if name == "" {
		return nil, types.Validation("name is required")
	}
	list := models.ShoppingList{
		Name:       name,
		OwnerID:    ownerID,
		ShareToken: NewShareToken(),
	}
	if err := db.Omit("Items", "Shares").Create(&list).Error; err != nil {
		return nil, storeError(err, "shopping list")
	}
	list.Items = []models.ShoppingItem{}
	return &list, nil
}

// ListLists returns the lists the user owns or has been granted, oldest first
func ListLists(db *gorm.DB, userID uint64, page Page) ([]models.ShoppingList, error) {
	lists := []models.ShoppingList{}
	err := preloadItems(db).
		Where("owner_id = ? OR id IN (?)", userID,
			db.Model(&models.SharedList{}).Select("shopping_list_id").Where("shared_with_id = ?", userID)).
		Order("id").
		Scopes(page.scope(defaultLimit)).
		Find(&lists).Error
	if err != nil {
		return nil, storeError(err, "shopping list")
	}
	return lists, nil
}

// GetList loads a list the user owns or has been granted
func GetList(db *gorm.DB, listID, userID uint64) (*models.ShoppingList, error) {
	list, err := loadList(db, listID)
	if err != nil {
		return nil, err
	}
	ok, err := HasListAccess(db, list, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, types.Forbidden("you do not have access to this list")
	}
	return list, nil
}

// JoinListByToken grants the user access to the list behind token. The owner and
// existing grantees are a no-op; joined is true only when a grant was created.
func JoinListByToken(db *gorm.DB, token string, userID uint64) (list *models.ShoppingList, joined bool, err error) {
	var found models.ShoppingList
	if err := db.Where("share_token = ?", token).First(&found).Error; err != nil {
		return nil, false, storeError(err, "shopping list")
	}

	if found.OwnerID != userID {
		res := db.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.SharedList{ShoppingListID: found.ID, SharedWithID: userID})
		if res.Error != nil {
			return nil, false, storeError(res.Error, "shopping list")
		}
		joined = res.RowsAffected > 0
	}

	list, err = loadList(db, found.ID)
	return list, joined, err
}

// UpdateList renames a list; owner only
func UpdateList(db *gorm.DB, listID, userID uint64, upd ListUpdate) (*models.ShoppingList, error) {
	list, err := requireListOwner(db, listID, userID, "modify")
	if err != nil {
		return nil, err
	}
	if err := upd.apply(list); err != nil {
		return nil, err
	}
	if err := db.Model(list).Update("name", list.Name).Error; err != nil {
		return nil, storeError(err, "shopping list")
	}
	return loadList(db, listID)
}

// DeleteList removes a list with its items and grants; owner only. It returns the
// list and the ids of everyone who had access before deletion.
func DeleteList(db *gorm.DB, listID, userID uint64) (*models.ShoppingList, []uint64, error) {
	list, err := requireListOwner(db, listID, userID, "delete")
	if err != nil {
		return nil, nil, err
	}

	var shared []uint64
	if err := db.Model(&models.SharedList{}).
		Where("shopping_list_id = ?", listID).
		Order("id").
		Pluck("shared_with_id", &shared).Error; err != nil {
		return nil, nil, storeError(err, "shopping list")
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		return deleteListTree(tx, listID)
	}); err != nil {
		return nil, nil, storeError(err, "shopping list")
	}
	return list, append([]uint64{list.OwnerID}, shared...), nil
}

// AddItem appends an item; any owner or grantee may do this
func AddItem(db *gorm.DB, listID, userID uint64, in ItemInput) (*models.ShoppingList, *models.ShoppingItem, error) {
	list, err := GetList(db, listID, userID)
	if err != nil {
		return nil, nil, err
	}
	name := sanitize.Text(in.Name)
	if name == "" {
		return nil, nil, types.Validation("name is required")
	}
	item := models.ShoppingItem{
		ShoppingListID: listID,
		Name:           name,
		Quantity:       sanitize.Text(in.Quantity),
		Note:           sanitize.Text(in.Note),
	}
	if err := db.Create(&item).Error; err != nil {
		return nil, nil, storeError(err, "shopping item")
	}
	return list, &item, nil
}

func loadItem(db *gorm.DB, listID, itemID uint64) (*models.ShoppingItem, error) {
	var item models.ShoppingItem
	if err := db.Where("shopping_list_id = ?", listID).First(&item, itemID).Error; err != nil {
		return nil, storeError(err, "shopping item")
	}
	return &item, nil
}

// UpdateItem applies a partial update to an item. Completing an item records who
// completed it; reopening clears that.
func UpdateItem(db *gorm.DB, listID, itemID, userID uint64, upd ItemUpdate) (*models.ShoppingList, *models.ShoppingItem, error) {
	list, err := GetList(db, listID, userID)
	if err != nil {
		return nil, nil, err
	}
	item, err := loadItem(db, listID, itemID)
	if err != nil {
		return nil, nil, err
	}
	if err := upd.apply(item, userID); err != nil {
		return nil, nil, err
	}
	if err := db.Model(item).Select("name", "quantity", "note", "completed", "completed_by_id").
		Updates(item).Error; err != nil {
		return nil, nil, storeError(err, "shopping item")
	}
	return list, item, nil
}

// DeleteItem removes an item; any owner or grantee may do this
func DeleteItem(db *gorm.DB, listID, itemID, userID uint64) (*models.ShoppingList, *models.ShoppingItem, error) {
	list, err := GetList(db, listID, userID)
	if err != nil {
		return nil, nil, err
	}
	item, err := loadItem(db, listID, itemID)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Delete(item).Error; err != nil {
		return nil, nil, storeError(err, "shopping item")
	}
	return list, item, nil
}
