// data.go
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

package helpers

import (
	"fmt"
	"testing"

	gsqlite "github.com/glebarez/sqlite"
	"github.com/localnerve/gestionale/internal/database"
	"github.com/localnerve/gestionale/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a migrated in-memory SQLite database private to the test
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(gsqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get test database handle: %v", err)
	}
	// Every connection to :memory: is a new database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

// CreateTestUser inserts a user without a password
func CreateTestUser(t testing.TB, db *gorm.DB, firstName string) *models.User {
	t.Helper()
	var count int64
	db.Model(&models.User{}).Count(&count)

	user := models.User{
		Email:     fmt.Sprintf("%s.%d@example.com", firstName, count+1),
		FirstName: firstName,
		LastName:  "Test",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return &user
}

// CreateTestGroup inserts a group whose members are the given users, first one as creator
func CreateTestGroup(t testing.TB, db *gorm.DB, name string, members ...*models.User) *models.ExpenseGroup {
	t.Helper()
	if len(members) == 0 {
		t.Fatal("CreateTestGroup needs at least the creator")
	}

	group := models.ExpenseGroup{
		Name:       name,
		CreatorID:  members[0].ID,
		ShareToken: fmt.Sprintf("group-token-%s-%d", name, members[0].ID),
	}
	if err := db.Create(&group).Error; err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}
	for _, u := range members {
		if err := db.Create(&models.GroupMember{GroupID: group.ID, UserID: u.ID}).Error; err != nil {
			t.Fatalf("Failed to add member: %v", err)
		}
	}
	return &group
}

// CreateTestList inserts a list owned by owner and shared with the others
func CreateTestList(t testing.TB, db *gorm.DB, name string, owner *models.User, shared ...*models.User) *models.ShoppingList {
	t.Helper()

	list := models.ShoppingList{
		Name:       name,
		OwnerID:    owner.ID,
		ShareToken: fmt.Sprintf("list-token-%s-%d", name, owner.ID),
	}
	if err := db.Create(&list).Error; err != nil {
		t.Fatalf("Failed to create list: %v", err)
	}
	for _, u := range shared {
		if err := db.Create(&models.SharedList{ShoppingListID: list.ID, SharedWithID: u.ID}).Error; err != nil {
			t.Fatalf("Failed to share list: %v", err)
		}
	}
	return &list
}
