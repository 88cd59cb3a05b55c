package handlers_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/gestionale/internal/handlers"
	"github.com/localnerve/gestionale/internal/models"
	"github.com/localnerve/gestionale/internal/notify"
	"github.com/localnerve/gestionale/internal/server"
	"github.com/localnerve/gestionale/internal/services"
	"github.com/localnerve/gestionale/tests/helpers"
	"github.com/shopspring/decimal"
)

func createGroup(t *testing.T, ta *helpers.TestApp, a account, name string) models.ExpenseGroup {
	t.Helper()
	resp := do(t, ta, http.MethodPost, "/api/expenses/groups", a, map[string]string{"name": name})
	helpers.AssertStatus(t, resp, fiber.StatusCreated)
	var g models.ExpenseGroup
	helpers.ParseJSON(t, resp, &g)
	return g
}

func TestGroupLifecycle(t *testing.T) {
	ta := helpers.NewTestApp(t)
	anna := newAccount(t, ta, "Anna")
	bruno := newAccount(t, ta, "Bruno")

	g := createGroup(t, ta, anna, "Casa")
	if len(g.Members) != 1 || g.Members[0].UserID != anna.User.ID {
		t.Fatalf("expected creator as sole member, got %+v", g.Members)
	}
	if g.ShareToken == "" {
		t.Fatal("expected a share token")
	}

	// Outsiders cannot see the group
	resp := do(t, ta, http.MethodGet, path("/api/expenses/groups/%d", g.ID), bruno, nil)
	helpers.AssertStatus(t, resp, fiber.StatusForbidden)
	resp.Body.Close()

	// Join by token notifies existing members
	resp = do(t, ta, http.MethodGet, "/api/expenses/groups/shared/"+g.ShareToken, bruno, nil)
	helpers.AssertStatus(t, resp, fiber.StatusOK)
	resp.Body.Close()
	if n := countNotifications(t, ta, anna.User.ID, notify.GroupMemberJoined); n != 1 {
		t.Errorf("expected 1 join notification for the creator, got %d", n)
	}

	// Joining again is a no-op
	resp = do(t, ta, http.MethodGet, "/api/expenses/groups/shared/"+g.ShareToken, bruno, nil)
	helpers.AssertStatus(t, resp, fiber.StatusOK)
	resp.Body.Close()
	if n := countNotifications(t, ta, anna.User.ID, notify.GroupMemberJoined); n != 1 {
		t.Errorf("repeat join must not notify, got %d", n)
	}

	resp = do(t, ta, http.MethodGet, "/api/expenses/groups", bruno, nil)
	helpers.AssertStatus(t, resp, fiber.StatusOK)
	var groups []models.ExpenseGroup
	helpers.ParseJSON(t, resp, &groups)
	if len(groups) != 1 || groups[0].ID != g.ID {
		t.Errorf("expected the joined group, got %+v", groups)
	}

	// Only the creator may rename
	resp = do(t, ta, http.MethodPut, path("/api/expenses/groups/%d", g.ID), bruno, map[string]string{"name": "Mia"})
	helpers.AssertStatus(t, resp, fiber.StatusForbidden)
	resp.Body.Close()
	resp = do(t, ta, http.MethodPut, path("/api/expenses/groups/%d", g.ID), anna, map[string]string{"name": "Casa Nuova"})
	helpers.AssertStatus(t, resp, fiber.StatusOK)
	resp.Body.Close()
	if n := countNotifications(t, ta, bruno.User.ID, notify.GroupUpdated); n != 1 {
		t.Errorf("expected update notification for Bruno, got %d", n)
	}

	// Delete notifies the other members and removes everything
	resp = do(t, ta, http.MethodDelete, path("/api/expenses/groups/%d", g.ID), anna, nil)
	helpers.AssertNoContent(t, resp)
	if n := countNotifications(t, ta, bruno.User.ID, notify.GroupDeleted); n != 1 {
		t.Errorf("expected delete notification for Bruno, got %d", n)
	}
	resp = do(t, ta, http.MethodGet, path("/api/expenses/groups/%d", g.ID), anna, nil)
	helpers.AssertStatus(t, resp, fiber.StatusNotFound)
}

func TestGroupMembers(t *testing.T) {
	ta := helpers.NewTestApp(t)
	anna := newAccount(t, ta, "Anna")
	bruno := newAccount(t, ta, "Bruno")
	carla := newAccount(t, ta, "Carla")
	g := createGroup(t, ta, anna, "Viaggio")

	// Single id and list forms are both accepted
	resp := do(t, ta, http.MethodPost, path("/api/expenses/groups/%d/members", g.ID), anna, map[string]any{"user_id": bruno.User.ID})
	helpers.AssertStatus(t, resp, fiber.StatusCreated)
	var added handlers.AddMembersResponse
	helpers.ParseJSON(t, resp, &added)
	if len(added.Members) != 1 {
		t.Fatalf("expected one added member, got %d", len(added.Members))
	}

	resp = do(t, ta, http.MethodPost, path("/api/expenses/groups/%d/members", g.ID), bruno, map[string]any{"user_id": []string{"1"}})
	helpers.AssertStatus(t, resp, fiber.StatusConflict)
	resp.Body.Close()

	resp = do(t, ta, http.MethodPost, path("/api/expenses/groups/%d/members", g.ID), bruno, map[string]any{"user_id": []uint64{carla.User.ID}})
	helpers.AssertStatus(t, resp, fiber.StatusCreated)
	resp.Body.Close()
	if n := countNotifications(t, ta, carla.User.ID, notify.GroupMemberAdded); n != 1 {
		t.Errorf("expected added notification for Carla, got %d", n)
	}

	// Only the creator removes, and never themselves
	resp = do(t, ta, http.MethodDelete, path("/api/expenses/groups/%d/members/%d", g.ID, carla.User.ID), bruno, nil)
	helpers.AssertStatus(t, resp, fiber.StatusForbidden)
	resp.Body.Close()
	resp = do(t, ta, http.MethodDelete, path("/api/expenses/groups/%d/members/%d", g.ID, anna.User.ID), anna, nil)
	helpers.AssertStatus(t, resp, fiber.StatusBadRequest)
	resp.Body.Close()
	resp = do(t, ta, http.MethodDelete, path("/api/expenses/groups/%d/members/%d", g.ID, carla.User.ID), anna, nil)
	helpers.AssertNoContent(t, resp)
	if n := countNotifications(t, ta, carla.User.ID, notify.GroupMemberRemoved); n != 1 {
		t.Errorf("expected removed notification for Carla, got %d", n)
	}
}

func TestExpenseFlowAndBalances(t *testing.T) {
	ta := helpers.NewTestApp(t)
	anna := newAccount(t, ta, "Anna")
	bruno := newAccount(t, ta, "Bruno")
	g := helpers.CreateTestGroup(t, ta.DB, "Casa", anna.User, bruno.User)

	resp := do(t, ta, http.MethodPost, "/api/expenses/expenses", anna, map[string]any{
		"description":   "Bolletta",
		"amount":        100,
		"tag":           "Bolletta Luce",
		"division_type": "Equal",
		"group_id":      g.ID,
		"participants": []map[string]any{
			{"user_id": anna.User.ID},
			{"user_id": bruno.User.ID},
		},
	})
	helpers.AssertStatus(t, resp, fiber.StatusCreated)
	var expense models.Expense
	helpers.ParseJSON(t, resp, &expense)
	if expense.PaidByID != anna.User.ID {
		t.Errorf("payer defaults to the caller, got %d", expense.PaidByID)
	}
	if n := countNotifications(t, ta, bruno.User.ID, notify.ExpenseAdded); n != 1 {
		t.Errorf("expected expense notification for Bruno, got %d", n)
	}
	if n := countNotifications(t, ta, anna.User.ID, notify.ExpenseAdded); n != 0 {
		t.Errorf("the actor is never notified, got %d", n)
	}

	resp = do(t, ta, http.MethodGet, path("/api/expenses/groups/%d/balances", g.ID), bruno, nil)
	helpers.AssertStatus(t, resp, fiber.StatusOK)
	var balances []services.MemberBalance
	helpers.ParseJSON(t, resp, &balances)
	want := map[uint64]string{anna.User.ID: "50", bruno.User.ID: "-50"}
	for _, b := range balances {
		if !b.NetBalance.Equal(decimal.RequireFromString(want[b.UserID])) {
			t.Errorf("user %d balance = %s, want %s", b.UserID, b.NetBalance, want[b.UserID])
		}
	}

	// Only the payer edits
	resp = do(t, ta, http.MethodPut, path("/api/expenses/expenses/%d", expense.ID), bruno, map[string]any{"description": "Mia"})
	helpers.AssertStatus(t, resp, fiber.StatusForbidden)
	resp.Body.Close()

	resp = do(t, ta, http.MethodPut, path("/api/expenses/expenses/%d", expense.ID), anna, map[string]any{
		"amount":        90,
		"division_type": "Percentage",
		"participants": []map[string]any{
			{"user_id": anna.User.ID, "percentage": 30},
			{"user_id": bruno.User.ID, "percentage": 70},
		},
	})
	helpers.AssertStatus(t, resp, fiber.StatusOK)
	resp.Body.Close()

	resp = do(t, ta, http.MethodGet, path("/api/expenses/groups/%d/balances", g.ID), anna, nil)
	helpers.AssertStatus(t, resp, fiber.StatusOK)
	helpers.ParseJSON(t, resp, &balances)
	want = map[uint64]string{anna.User.ID: "63", bruno.User.ID: "-63"}
	for _, b := range balances {
		if !b.NetBalance.Equal(decimal.RequireFromString(want[b.UserID])) {
			t.Errorf("user %d balance = %s, want %s", b.UserID, b.NetBalance, want[b.UserID])
		}
	}

	resp = do(t, ta, http.MethodGet, path("/api/expenses/expenses?group_id=%d", g.ID), bruno, nil)
	helpers.AssertStatus(t, resp, fiber.StatusOK)
	var listed []models.Expense
	helpers.ParseJSON(t, resp, &listed)
	if len(listed) != 1 {
		t.Fatalf("expected 1 expense, got %d", len(listed))
	}

	resp = do(t, ta, http.MethodDelete, path("/api/expenses/expenses/%d", expense.ID), bruno, nil)
	helpers.AssertStatus(t, resp, fiber.StatusForbidden)
	resp.Body.Close()
	resp = do(t, ta, http.MethodDelete, path("/api/expenses/expenses/%d", expense.ID), anna, nil)
	helpers.AssertNoContent(t, resp)
	if n := countNotifications(t, ta, bruno.User.ID, notify.ExpenseDeleted); n != 1 {
		t.Errorf("expected delete notification for Bruno, got %d", n)
	}
}

func TestCreateExpenseValidation(t *testing.T) {
	ta := helpers.NewTestApp(t)
	anna := newAccount(t, ta, "Anna")
	bruno := newAccount(t, ta, "Bruno")
	outsider := newAccount(t, ta, "Zeno")
	g := helpers.CreateTestGroup(t, ta.DB, "Casa", anna.User, bruno.User)

	tests := []struct {
		name string
		as   account
		body map[string]any
		code int
	}{
		{
			name: "custom amounts must sum",
			as:   anna,
			body: map[string]any{
				"amount": 50, "division_type": "Custom", "group_id": g.ID,
				"participants": []map[string]any{
					{"user_id": anna.User.ID, "amount": 10},
					{"user_id": bruno.User.ID, "amount": 10},
				},
			},
			code: fiber.StatusBadRequest,
		},
		{
			name: "unknown division type",
			as:   anna,
			body: map[string]any{
				"amount": 50, "division_type": "Random", "group_id": g.ID,
				"participants": []map[string]any{{"user_id": anna.User.ID}},
			},
			code: fiber.StatusBadRequest,
		},
		{
			name: "participant outside the group",
			as:   anna,
			body: map[string]any{
				"amount": 50, "division_type": "Equal", "group_id": g.ID,
				"participants": []map[string]any{{"user_id": outsider.User.ID}},
			},
			code: fiber.StatusBadRequest,
		},
		{
			name: "caller outside the group",
			as:   outsider,
			body: map[string]any{
				"amount": 50, "division_type": "Equal", "group_id": g.ID,
				"participants": []map[string]any{{"user_id": anna.User.ID}},
			},
			code: fiber.StatusForbidden,
		},
		{
			name: "missing group",
			as:   anna,
			body: map[string]any{
				"amount": 50, "division_type": "Equal", "group_id": 999,
				"participants": []map[string]any{{"user_id": anna.User.ID}},
			},
			code: fiber.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, ta, http.MethodPost, "/api/expenses/expenses", tt.as, tt.body)
			helpers.AssertStatus(t, resp, tt.code)
		})
	}
}

func TestInviteToGroup(t *testing.T) {
	mailer := &fakeMailer{}
	ta := helpers.NewTestApp(t, func(d *server.Deps) { d.Mailer = mailer })
	anna := newAccount(t, ta, "Anna")
	g := createGroup(t, ta, anna, "Casa")

	resp := do(t, ta, http.MethodPost, path("/api/expenses/groups/%d/invite", g.ID), anna, map[string]string{"email": "Friend@Example.com"})
	helpers.AssertStatus(t, resp, fiber.StatusOK)
	var out handlers.InviteResponse
	helpers.ParseJSON(t, resp, &out)
	if !out.Sent {
		t.Error("expected sent=true")
	}
	if len(mailer.sent) != 1 || mailer.sent[0].ToEmail != "friend@example.com" || mailer.sent[0].ShareToken != g.ShareToken {
		t.Errorf("unexpected invitation: %+v", mailer.sent)
	}

	resp = do(t, ta, http.MethodPost, path("/api/expenses/groups/%d/invite", g.ID), anna, map[string]string{"email": "not-an-email"})
	helpers.AssertStatus(t, resp, fiber.StatusBadRequest)
	resp.Body.Close()

	mailer.fail = true
	resp = do(t, ta, http.MethodPost, path("/api/expenses/groups/%d/invite", g.ID), anna, map[string]string{"email": "friend@example.com"})
	helpers.AssertStatus(t, resp, fiber.StatusServiceUnavailable)
	var failure struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	}
	helpers.ParseJSON(t, resp, &failure)
	if failure.Type != "dependency" || strings.Contains(failure.Message, "ses unavailable") {
		t.Errorf("unexpected dependency error body: %+v", failure)
	}
}

func TestInviteWithoutMailer(t *testing.T) {
	ta := helpers.NewTestApp(t)
	anna := newAccount(t, ta, "Anna")
	g := createGroup(t, ta, anna, "Casa")

	resp := do(t, ta, http.MethodPost, path("/api/expenses/groups/%d/invite", g.ID), anna, map[string]string{"email": "friend@example.com"})
	helpers.AssertStatus(t, resp, fiber.StatusOK)
	var out handlers.InviteResponse
	helpers.ParseJSON(t, resp, &out)
	if out.Sent {
		t.Error("expected sent=false without a mailer")
	}
}
