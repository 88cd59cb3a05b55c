package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/gestionale/internal/auth"
	"github.com/localnerve/gestionale/internal/middleware"
	"github.com/localnerve/gestionale/internal/models"
	"github.com/localnerve/gestionale/internal/services"
	"github.com/localnerve/gestionale/internal/types"
	"github.com/localnerve/gestionale/internal/utils"
	"gorm.io/gorm"
)

// AuthHandler handles registration, login and credential changes
type AuthHandler struct {
	DB  *gorm.DB
	JWT *auth.JWTManager
}

// LoginRequest is the JSON login payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateEmailRequest changes the account address
type UpdateEmailRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateEmailResponse carries the user and a token for the new address
type UpdateEmailResponse struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
}

// UpdatePasswordRequest changes the account password
type UpdatePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *AuthHandler) issue(c *fiber.Ctx, user *models.User) error {
	token, err := h.JWT.Generate(user.ID, user.Email)
	if err != nil {
		return err
	}
	return c.JSON(utils.TokenResponseStruct{AccessToken: token, TokenType: "bearer"})
}

// Register handles POST /api/auth/register
// @Summary Register
// @Description Create a password account
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body services.RegisterInput true "New account"
// @Success 201 {object} models.User
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var in services.RegisterInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	user, err := services.RegisterUser(h.DB, in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// Login handles POST /api/auth/login
// @Summary Login
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Credentials"
// @Success 200 {object} utils.TokenResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in LoginRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	user, err := services.AuthenticateUser(h.DB, in.Email, in.Password)
	if err != nil {
		return err
	}
	return h.issue(c, user)
}

// Token handles POST /api/auth/token, the form-encoded password grant
// @Summary OAuth2 password grant
// @Tags Auth
// @Accept x-www-form-urlencoded
// @Produce json
// @Param username formData string true "Email"
// @Param password formData string true "Password"
// @Success 200 {object} utils.TokenResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Router /auth/token [post]
func (h *AuthHandler) Token(c *fiber.Ctx) error {
	username := c.FormValue("username")
	password := c.FormValue("password")
	if username == "" || password == "" {
		return types.Validation("username and password are required")
	}
	user, err := services.AuthenticateUser(h.DB, username, password)
	if err != nil {
		return err
	}
	return h.issue(c, user)
}

// Me handles GET /api/auth/me
// @Summary Current user
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} utils.ErrorResponseStruct
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(user)
}

// UpdateEmail handles PUT /api/auth/update-email
// @Summary Change email
// @Tags Auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body UpdateEmailRequest true "New address and current password"
// @Success 200 {object} UpdateEmailResponse
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /auth/update-email [put]
func (h *AuthHandler) UpdateEmail(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	var in UpdateEmailRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}

	user, err = services.UpdateEmail(h.DB, user, in.Email, in.Password)
	if err != nil {
		return err
	}
	// The subject claim is the address, so the old token no longer resolves
	token, err := h.JWT.Generate(user.ID, user.Email)
	if err != nil {
		return err
	}
	return c.JSON(UpdateEmailResponse{User: user, AccessToken: token, TokenType: "bearer"})
}

// UpdatePassword handles PUT /api/auth/update-password
// @Summary Change password
// @Tags Auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body UpdatePasswordRequest true "Current and new password"
// @Success 200 {object} utils.MessageResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Router /auth/update-password [put]
func (h *AuthHandler) UpdatePassword(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	var in UpdatePasswordRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	if err := services.UpdatePassword(h.DB, user, in.CurrentPassword, in.NewPassword); err != nil {
		return err
	}
	return utils.MessageResponse(c, "Password updated successfully")
}
