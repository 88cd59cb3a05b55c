package handlers_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/localnerve/gestionale/internal/email"
	"github.com/localnerve/gestionale/internal/models"
	"github.com/localnerve/gestionale/tests/helpers"
)

type account struct {
	User  *models.User
	Token string
}

func newAccount(t *testing.T, ta *helpers.TestApp, firstName string) account {
	t.Helper()
	user := helpers.CreateTestUser(t, ta.DB, firstName)
	return account{User: user, Token: helpers.TokenFor(t, ta.JWT, user)}
}

func do(t *testing.T, ta *helpers.TestApp, method, path string, a account, body interface{}) *http.Response {
	t.Helper()
	return helpers.DoJSON(t, ta.App, method, path, a.Token, body)
}

func countNotifications(t *testing.T, ta *helpers.TestApp, userID uint64, notificationType string) int64 {
	t.Helper()
	var n int64
	if err := ta.DB.Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", userID, notificationType).
		Count(&n).Error; err != nil {
		t.Fatalf("count notifications: %v", err)
	}
	return n
}

func path(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}

// fakeMailer records invitations instead of calling SES
type fakeMailer struct {
	mu   sync.Mutex
	sent []email.Invitation
	fail bool
}

func (m *fakeMailer) SendInvitation(_ context.Context, inv email.Invitation) (bool, error) {
	if m.fail {
		return false, errors.New("ses unavailable")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, inv)
	return true, nil
}
