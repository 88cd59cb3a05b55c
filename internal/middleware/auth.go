package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/gestionale/internal/auth"
	"github.com/localnerve/gestionale/internal/models"
	"github.com/localnerve/gestionale/internal/services"
	"github.com/localnerve/gestionale/internal/types"
	"gorm.io/gorm"
)

// UserKey is the Locals key holding the authenticated *models.User
const UserKey = "user"

// AuthUser resolves the Bearer token to a user and stores it in Locals
func AuthUser(jwt *auth.JWTManager, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := authorize(jwt, db, bearerToken(c))
		if err != nil {
			return err
		}
		c.Locals(UserKey, user)
		return c.Next()
	}
}

// bearerToken extracts the token from the Authorization header
func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// authorize validates a token and loads its user. Every failure is Unauthenticated.
func authorize(jwt *auth.JWTManager, db *gorm.DB, token string) (*models.User, error) {
	claims, err := jwt.Validate(token)
	if err != nil {
		if errors.Is(err, auth.ErrMissingToken) {
			return nil, types.Unauthenticated("not authenticated")
		}
		return nil, types.Unauthenticated("could not validate credentials")
	}

	user, err := services.GetUserByEmail(db, claims.Email())
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, types.Unauthenticated("could not validate credentials")
		}
		return nil, err
	}
	return user, nil
}

// Authenticate resolves a raw token outside the middleware chain, as the push
// channel receives it in the query string
func Authenticate(jwt *auth.JWTManager, db *gorm.DB, token string) (*models.User, error) {
	return authorize(jwt, db, token)
}

// CurrentUser returns the user stored by AuthUser
func CurrentUser(c *fiber.Ctx) (*models.User, error) {
	user, ok := c.Locals(UserKey).(*models.User)
	if !ok || user == nil {
		return nil, types.Unauthenticated("not authenticated")
	}
	return user, nil
}
