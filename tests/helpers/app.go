package helpers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/gestionale/internal/auth"
	"github.com/localnerve/gestionale/internal/config"
	"github.com/localnerve/gestionale/internal/notify"
	"github.com/localnerve/gestionale/internal/push"
	"github.com/localnerve/gestionale/internal/server"
	"gorm.io/gorm"
)

// TestApp is the full router over a test database
type TestApp struct {
	App        *fiber.App
	DB         *gorm.DB
	JWT        *auth.JWTManager
	Registry   *push.Registry
	Dispatcher *notify.Dispatcher
}

// TestConfig returns a configuration suitable for in-process tests
func TestConfig() *config.Config {
	return &config.Config{
		FrontendURL:      "http://localhost:3000",
		BackendURL:       "http://localhost:8000",
		CORSOrigins:      "*",
		DBType:           "sqlite-pure",
		DBDatabase:       "file::memory:",
		SecretKey:        "test-secret",
		PushWriteTimeout: time.Second,
	}
}

// NewTestApp wires the router with a fresh database, registry and dispatcher. opts may
// set the optional collaborators before the router is built.
func NewTestApp(t testing.TB, opts ...func(*server.Deps)) *TestApp {
	t.Helper()

	db := NewTestDB(t)
	cfg := TestConfig()
	registry := push.NewRegistry()
	ta := &TestApp{
		DB:         db,
		JWT:        auth.NewJWTManager(cfg.SecretKey, time.Hour),
		Registry:   registry,
		Dispatcher: notify.NewDispatcher(db, registry),
	}
	deps := server.Deps{
		Config:     cfg,
		DB:         db,
		JWT:        ta.JWT,
		Registry:   registry,
		Dispatcher: ta.Dispatcher,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	ta.App = server.New(deps)
	return ta
}

// DoJSON sends a request with an optional JSON body and Bearer token
func DoJSON(t testing.TB, app *fiber.App, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	return resp
}
