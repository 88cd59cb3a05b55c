package helpers

import (
	"crypto/rand"
	"math/big"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/gestionale/internal/auth"
	"github.com/localnerve/gestionale/internal/models"
)

func randInt(max int) int {
	n, _ := rand.Int(rand.Reader, big.NewInt(int64(max)))
	return int(n.Int64())
}

// GeneratePassword generates a 10 character password with a capital and special char
func GeneratePassword() string {
	const (
		lower   = "abcdefghijklmnopqrstuvwxyz"
		upper   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
		special = "!@#$%^&*"
		numbers = "0123456789"
		all     = lower + upper + special + numbers
	)

	password := make([]byte, 10)
	password[0] = upper[randInt(len(upper))]
	password[1] = special[randInt(len(special))]
	password[2] = numbers[randInt(len(numbers))]

	for i := 3; i < 10; i++ {
		password[i] = all[randInt(len(all))]
	}

	for i := range password {
		j := randInt(len(password))
		password[i], password[j] = password[j], password[i]
	}

	return string(password)
}

// TokenFor signs an access token for user
func TokenFor(t testing.TB, jwt *auth.JWTManager, user *models.User) string {
	t.Helper()
	token, err := jwt.Generate(user.ID, user.Email)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return token
}

// AcquireAccount registers through the API, logs in and returns the access token
func AcquireAccount(t testing.TB, app *fiber.App, email, firstName, password string) string {
	t.Helper()

	resp := DoJSON(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":      email,
		"first_name": firstName,
		"last_name":  "Test",
		"password":   password,
	})
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("Signup failed with status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = DoJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Login failed with status %d", resp.StatusCode)
	}

	var token struct {
		AccessToken string `json:"access_token"`
	}
	ParseJSON(t, resp, &token)
	if token.AccessToken == "" {
		t.Fatal("Access token is empty")
	}
	return token.AccessToken
}
