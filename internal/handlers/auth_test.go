// auth_test.go
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

package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/gestionale/internal/models"
	"github.com/localnerve/gestionale/internal/utils"
	"github.com/localnerve/gestionale/tests/helpers"
)

func TestRegisterLoginMe(t *testing.T) {
	ta := helpers.NewTestApp(t)
	password := helpers.GeneratePassword()

	token := helpers.AcquireAccount(t, ta.App, "Anna@Example.com", "Anna", password)

	resp := helpers.DoJSON(t, ta.App, http.MethodGet, "/api/auth/me", token, nil)
	helpers.AssertStatus(t, resp, fiber.StatusOK)
	var me models.User
	helpers.ParseJSON(t, resp, &me)
	if me.Email != "anna@example.com" {
		t.Errorf("expected normalized email, got %q", me.Email)
	}
	if me.FirstName != "Anna" {
		t.Errorf("expected first name Anna, got %q", me.FirstName)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ta := helpers.NewTestApp(t)
	body := map[string]string{
		"email":      "dup@example.com",
		"first_name": "Dup",
		"last_name":  "Test",
		"password":   helpers.GeneratePassword(),
	}

	resp := helpers.DoJSON(t, ta.App, http.MethodPost, "/api/auth/register", "", body)
	helpers.AssertStatus(t, resp, fiber.StatusCreated)

	resp = helpers.DoJSON(t, ta.App, http.MethodPost, "/api/auth/register", "", body)
	helpers.AssertStatus(t, resp, fiber.StatusConflict)
	var e utils.ErrorResponseStruct
	helpers.ParseJSON(t, resp, &e)
	if e.Ok || e.Type != "conflict" {
		t.Errorf("unexpected error body: %+v", e)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	ta := helpers.NewTestApp(t)
	helpers.AcquireAccount(t, ta.App, "wrong@example.com", "Wrong", helpers.GeneratePassword())

	resp := helpers.DoJSON(t, ta.App, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "wrong@example.com",
		"password": "not-the-password",
	})
	helpers.AssertStatus(t, resp, fiber.StatusUnauthorized)
}

func TestTokenFormGrant(t *testing.T) {
	ta := helpers.NewTestApp(t)
	password := helpers.GeneratePassword()
	helpers.AcquireAccount(t, ta.App, "form@example.com", "Form", password)

	form := url.Values{"username": {"form@example.com"}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/api/auth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := ta.App.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	helpers.AssertStatus(t, resp, fiber.StatusOK)
	var tok utils.TokenResponseStruct
	helpers.ParseJSON(t, resp, &tok)
	if tok.AccessToken == "" || tok.TokenType != "bearer" {
		t.Errorf("unexpected token response: %+v", tok)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ta := helpers.NewTestApp(t)

	for _, p := range []string{"/api/auth/me", "/api/expenses/groups", "/api/shopping-lists", "/api/gym/cards", "/api/notifications"} {
		resp := helpers.DoJSON(t, ta.App, http.MethodGet, p, "", nil)
		helpers.AssertStatus(t, resp, fiber.StatusUnauthorized)
		resp.Body.Close()

		resp = helpers.DoJSON(t, ta.App, http.MethodGet, p, "garbage", nil)
		helpers.AssertStatus(t, resp, fiber.StatusUnauthorized)
		resp.Body.Close()
	}
}

func TestTokenForDeletedUserRejected(t *testing.T) {
	ta := helpers.NewTestApp(t)
	a := newAccount(t, ta, "Ghost")
	if err := ta.DB.Delete(&models.User{}, a.User.ID).Error; err != nil {
		t.Fatalf("delete user: %v", err)
	}

	resp := do(t, ta, http.MethodGet, "/api/auth/me", a, nil)
	helpers.AssertStatus(t, resp, fiber.StatusUnauthorized)
}

func TestUpdatePasswordAndEmail(t *testing.T) {
	ta := helpers.NewTestApp(t)
	password := helpers.GeneratePassword()
	token := helpers.AcquireAccount(t, ta.App, "change@example.com", "Change", password)

	newPassword := helpers.GeneratePassword()
	resp := helpers.DoJSON(t, ta.App, http.MethodPut, "/api/auth/update-password", token, map[string]string{
		"current_password": "wrong",
		"new_password":     newPassword,
	})
	helpers.AssertStatus(t, resp, fiber.StatusUnauthorized)
	resp.Body.Close()

	resp = helpers.DoJSON(t, ta.App, http.MethodPut, "/api/auth/update-password", token, map[string]string{
		"current_password": password,
		"new_password":     newPassword,
	})
	helpers.AssertStatus(t, resp, fiber.StatusOK)
	resp.Body.Close()

	resp = helpers.DoJSON(t, ta.App, http.MethodPut, "/api/auth/update-email", token, map[string]string{
		"email":    "changed@example.com",
		"password": newPassword,
	})
	helpers.AssertStatus(t, resp, fiber.StatusOK)
	var updated struct {
		User        models.User `json:"user"`
		AccessToken string      `json:"access_token"`
	}
	helpers.ParseJSON(t, resp, &updated)
	if updated.User.Email != "changed@example.com" {
		t.Errorf("expected changed email, got %q", updated.User.Email)
	}

	// The old token names the old address
	resp = helpers.DoJSON(t, ta.App, http.MethodGet, "/api/auth/me", token, nil)
	helpers.AssertStatus(t, resp, fiber.StatusUnauthorized)
	resp.Body.Close()

	resp = helpers.DoJSON(t, ta.App, http.MethodGet, "/api/auth/me", updated.AccessToken, nil)
	helpers.AssertStatus(t, resp, fiber.StatusOK)
}

func TestUsersSearch(t *testing.T) {
	ta := helpers.NewTestApp(t)
	a := newAccount(t, ta, "Anna")
	newAccount(t, ta, "Bruno")

	resp := do(t, ta, http.MethodGet, "/api/users?search=brun", a, nil)
	helpers.AssertStatus(t, resp, fiber.StatusOK)
	var users []models.User
	helpers.ParseJSON(t, resp, &users)
	if len(users) != 1 || users[0].FirstName != "Bruno" {
		t.Errorf("expected only Bruno, got %+v", users)
	}

	resp = do(t, ta, http.MethodGet, "/api/users/999", a, nil)
	helpers.AssertStatus(t, resp, fiber.StatusNotFound)
}
