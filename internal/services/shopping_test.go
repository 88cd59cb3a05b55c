package services_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/localnerve/gestionale/internal/models"
	"github.com/localnerve/gestionale/internal/services"
	"github.com/localnerve/gestionale/internal/types"
	"github.com/localnerve/gestionale/tests/helpers"
)

func TestShoppingListAccess(t *testing.T) {
	db := helpers.NewTestDB(t)
	anna := helpers.CreateTestUser(t, db, "anna")
	bruno := helpers.CreateTestUser(t, db, "bruno")
	carla := helpers.CreateTestUser(t, db, "carla")

	list, err := services.CreateList(db, anna.ID, services.ListInput{Name: "Settimana"})
	if err != nil {
		t.Fatalf("CreateList() error: %v", err)
	}
	if _, err := services.GetList(db, list.ID, bruno.ID); !errors.Is(err, types.ErrForbidden) {
		t.Errorf("expected forbidden before joining, got %v", err)
	}

	if _, joined, err := services.JoinListByToken(db, list.ShareToken, bruno.ID); err != nil || !joined {
		t.Fatalf("join: joined=%v err=%v", joined, err)
	}
	if _, joined, err := services.JoinListByToken(db, list.ShareToken, bruno.ID); err != nil || joined {
		t.Errorf("second join should be a no-op: joined=%v err=%v", joined, err)
	}
	if _, joined, err := services.JoinListByToken(db, list.ShareToken, anna.ID); err != nil || joined {
		t.Errorf("owner join should be a no-op: joined=%v err=%v", joined, err)
	}

	if _, err := services.GetList(db, list.ID, bruno.ID); err != nil {
		t.Errorf("grantee should read the list: %v", err)
	}
	lists, err := services.ListLists(db, bruno.ID, services.Page{})
	if err != nil || len(lists) != 1 {
		t.Errorf("expected the shared list for bruno, got %d (%v)", len(lists), err)
	}
	if lists, _ := services.ListLists(db, carla.ID, services.Page{}); len(lists) != 0 {
		t.Errorf("expected no lists for carla, got %d", len(lists))
	}

	name := "Mese"
	if _, err := services.UpdateList(db, list.ID, bruno.ID, services.ListUpdate{Name: &name}); !errors.Is(err, types.ErrForbidden) {
		t.Errorf("expected forbidden update by grantee, got %v", err)
	}
	if updated, err := services.UpdateList(db, list.ID, anna.ID, services.ListUpdate{Name: &name}); err != nil || updated.Name != "Mese" {
		t.Errorf("owner update failed: %v", err)
	}
}

func TestJoinListByTokenConcurrent(t *testing.T) {
	db := helpers.NewTestDB(t)
	anna := helpers.CreateTestUser(t, db, "anna")
	bruno := helpers.CreateTestUser(t, db, "bruno")
	list := helpers.CreateTestList(t, db, "Settimana", anna)

	const n = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, joined, err := services.JoinListByToken(db, list.ShareToken, bruno.ID)
			if err != nil {
				t.Errorf("concurrent join failed: %v", err)
				return
			}
			if joined {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if created != 1 {
		t.Errorf("expected exactly one join to create the share, got %d", created)
	}
	var count int64
	db.Model(&models.SharedList{}).Where("shopping_list_id = ?", list.ID).Count(&count)
	if count != 1 {
		t.Errorf("expected 1 share row, got %d", count)
	}
}

func TestShoppingItems(t *testing.T) {
	db := helpers.NewTestDB(t)
	anna := helpers.CreateTestUser(t, db, "anna")
	bruno := helpers.CreateTestUser(t, db, "bruno")
	carla := helpers.CreateTestUser(t, db, "carla")
	list := helpers.CreateTestList(t, db, "Settimana", anna, bruno)

	_, item, err := services.AddItem(db, list.ID, bruno.ID, services.ItemInput{Name: "Latte", Quantity: "2 l"})
	if err != nil {
		t.Fatalf("AddItem() error: %v", err)
	}
	if _, _, err := services.AddItem(db, list.ID, carla.ID, services.ItemInput{Name: "Pane"}); !errors.Is(err, types.ErrForbidden) {
		t.Errorf("expected forbidden for outsider, got %v", err)
	}

	done := true
	_, updated, err := services.UpdateItem(db, list.ID, item.ID, bruno.ID, services.ItemUpdate{Completed: &done})
	if err != nil {
		t.Fatalf("UpdateItem() error: %v", err)
	}
	if !updated.Completed || updated.CompletedByID == nil || *updated.CompletedByID != bruno.ID {
		t.Fatalf("expected completed by bruno, got %+v", updated)
	}

	reopen := false
	if _, _, err := services.UpdateItem(db, list.ID, item.ID, anna.ID, services.ItemUpdate{Completed: &reopen}); err != nil {
		t.Fatalf("UpdateItem() error: %v", err)
	}
	var stored models.ShoppingItem
	db.First(&stored, item.ID)
	if stored.Completed || stored.CompletedByID != nil {
		t.Errorf("expected reopened item without completer, got %+v", stored)
	}

	if _, _, err := services.DeleteItem(db, list.ID, item.ID+100, anna.ID); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("expected not found for missing item, got %v", err)
	}
	if _, _, err := services.DeleteItem(db, list.ID, item.ID, bruno.ID); err != nil {
		t.Fatalf("DeleteItem() error: %v", err)
	}
}

func TestDeleteListCascades(t *testing.T) {
	db := helpers.NewTestDB(t)
	anna := helpers.CreateTestUser(t, db, "anna")
	bruno := helpers.CreateTestUser(t, db, "bruno")
	list := helpers.CreateTestList(t, db, "Settimana", anna, bruno)
	if _, _, err := services.AddItem(db, list.ID, anna.ID, services.ItemInput{Name: "Uova"}); err != nil {
		t.Fatalf("AddItem() error: %v", err)
	}

	if _, _, err := services.DeleteList(db, list.ID, bruno.ID); !errors.Is(err, types.ErrForbidden) {
		t.Errorf("expected forbidden for grantee, got %v", err)
	}
	_, members, err := services.DeleteList(db, list.ID, anna.ID)
	if err != nil {
		t.Fatalf("DeleteList() error: %v", err)
	}
	if len(members) != 2 || members[0] != anna.ID || members[1] != bruno.ID {
		t.Errorf("expected owner then grantee, got %v", members)
	}
	for _, model := range []any{&models.ShoppingList{}, &models.ShoppingItem{}, &models.SharedList{}} {
		var count int64
		db.Model(model).Count(&count)
		if count != 0 {
			t.Errorf("expected %T rows removed, %d left", model, count)
		}
	}
}
