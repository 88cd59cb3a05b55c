// delete.go
//
// Shared expenses, shopping lists and workout cards backend
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of gestionale.
// gestionale is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// gestionale is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with gestionale.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package services

import (
	"github.com/localnerve/gestionale/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// quiet silences the subqueries of a cascade; the outer statement is still logged
func quiet(tx *gorm.DB) *gorm.DB {
	return tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)})
}

// deleteExpenseTree removes an expense and its participants
func deleteExpenseTree(tx *gorm.DB, expenseID uint64) error {
	if err := quiet(tx).Where("expense_id = ?", expenseID).Delete(&models.ExpenseParticipant{}).Error; err != nil {
		return err
	}
	return tx.Delete(&models.Expense{}, expenseID).Error
}

// deleteGroupTree removes a group with its expenses, participants and members
func deleteGroupTree(tx *gorm.DB, groupID uint64) error {
	expenseIDs := quiet(tx).Model(&models.Expense{}).Select("id").Where("group_id = ?", groupID)
	if err := quiet(tx).Where("expense_id IN (?)", expenseIDs).Delete(&models.ExpenseParticipant{}).Error; err != nil {
		return err
	}
	if err := quiet(tx).Where("group_id = ?", groupID).Delete(&models.Expense{}).Error; err != nil {
		return err
	}
	if err := quiet(tx).Where("group_id = ?", groupID).Delete(&models.GroupMember{}).Error; err != nil {
		return err
	}
	return tx.Delete(&models.ExpenseGroup{}, groupID).Error
}

// deleteListTree removes a shopping list with its items and share grants
func deleteListTree(tx *gorm.DB, listID uint64) error {
	if err := quiet(tx).Where("shopping_list_id = ?", listID).Delete(&models.ShoppingItem{}).Error; err != nil {
		return err
	}
	if err := quiet(tx).Where("shopping_list_id = ?", listID).Delete(&models.SharedList{}).Error; err != nil {
		return err
	}
	return tx.Delete(&models.ShoppingList{}, listID).Error
}

// deleteDayTree removes a workout day and its exercises
func deleteDayTree(tx *gorm.DB, dayID uint64) error {
	if err := quiet(tx).Where("workout_day_id = ?", dayID).Delete(&models.Exercise{}).Error; err != nil {
		return err
	}
	return tx.Delete(&models.WorkoutDay{}, dayID).Error
}

// deleteCardTree removes a workout card with its days and exercises
func deleteCardTree(tx *gorm.DB, cardID uint64) error {
	dayIDs := quiet(tx).Model(&models.WorkoutDay{}).Select("id").Where("workout_card_id = ?", cardID)
	if err := quiet(tx).Where("workout_day_id IN (?)", dayIDs).Delete(&models.Exercise{}).Error; err != nil {
		return err
	}
	if err := quiet(tx).Where("workout_card_id = ?", cardID).Delete(&models.WorkoutDay{}).Error; err != nil {
		return err
	}
	return tx.Delete(&models.WorkoutCard{}, cardID).Error
}
