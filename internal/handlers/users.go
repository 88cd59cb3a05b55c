package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/gestionale/internal/services"
	"gorm.io/gorm"
)

// UserHandler exposes the user directory
type UserHandler struct {
	DB *gorm.DB
}

// ListUsers handles GET /api/users
// @Summary List users
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param search query string false "Match on email or name"
// @Param skip query int false "Offset"
// @Param limit query int false "Page size"
// @Success 200 {array} models.User
// @Router /users [get]
func (h *UserHandler) ListUsers(c *fiber.Ctx) error {
	users, err := services.ListUsers(h.DB, c.Query("search"), parsePage(c))
	if err != nil {
		return err
	}
	return c.JSON(users)
}

// GetUser handles GET /api/users/:id
// @Summary Get user
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} models.User
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	user, err := services.GetUserByID(h.DB, id)
	if err != nil {
		return err
	}
	return c.JSON(user)
}
