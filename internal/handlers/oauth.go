package handlers

import (
	"log/slog"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/gestionale/internal/auth"
	"github.com/localnerve/gestionale/internal/services"
	"gorm.io/gorm"
)

const stateCookie = "oauth_state"

// OAuthHandler drives the Google authorization code flow
type OAuthHandler struct {
	DB          *gorm.DB
	JWT         *auth.JWTManager
	Google      *auth.GoogleProvider
	FrontendURL string
	// SecureCookie marks the state cookie Secure; set when served over https
	SecureCookie bool
}

// OAuthStatus reports whether Google login is available
type OAuthStatus struct {
	Configured bool `json:"configured"`
}

// GoogleLogin handles GET /api/oauth/google/login
// @Summary Start Google login
// @Tags OAuth
// @Success 302
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /oauth/google/login [get]
func (h *OAuthHandler) GoogleLogin(c *fiber.Ctx) error {
	state := auth.NewState()
	target, err := h.Google.AuthCodeURL(state)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Google OAuth is not configured")
	}

	c.Cookie(&fiber.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HTTPOnly: true,
		Secure:   h.SecureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.Redirect(target, fiber.StatusFound)
}

// GoogleCallback handles GET /api/oauth/google/callback
// @Summary Google login callback
// @Tags OAuth
// @Param code query string true "Authorization code"
// @Param state query string true "State"
// @Success 302
// @Router /oauth/google/callback [get]
func (h *OAuthHandler) GoogleCallback(c *fiber.Ctx) error {
	failure := h.FrontendURL + "/login?error=oauth_failed"

	state := c.Cookies(stateCookie)
	c.Cookie(&fiber.Cookie{Name: stateCookie, Value: "", Path: "/", Expires: time.Unix(0, 0), HTTPOnly: true})

	if state == "" || c.Query("state") != state {
		slog.Warn("oauth callback state mismatch")
		return c.Redirect(failure, fiber.StatusFound)
	}
	if errParam := c.Query("error"); errParam != "" {
		slog.Warn("oauth provider returned an error", "error", errParam)
		return c.Redirect(failure, fiber.StatusFound)
	}

	gu, err := h.Google.Exchange(c.UserContext(), c.Query("code"))
	if err != nil {
		slog.Error("oauth code exchange failed", "error", err)
		return c.Redirect(failure, fiber.StatusFound)
	}

	user, err := services.FindOrCreateGoogleUser(h.DB, gu)
	if err != nil {
		slog.Error("oauth user lookup failed", "email", gu.Email, "error", err)
		return c.Redirect(failure, fiber.StatusFound)
	}

	token, err := h.JWT.Generate(user.ID, user.Email)
	if err != nil {
		slog.Error("oauth token issue failed", "user_id", user.ID, "error", err)
		return c.Redirect(failure, fiber.StatusFound)
	}

	slog.Info("google login", "user_id", user.ID)
	return c.Redirect(h.FrontendURL+"/auth/google/success?token="+url.QueryEscape(token), fiber.StatusFound)
}

// GoogleStatus handles GET /api/oauth/google/status
// @Summary Google login availability
// @Tags OAuth
// @Produce json
// @Success 200 {object} OAuthStatus
// @Router /oauth/google/status [get]
func (h *OAuthHandler) GoogleStatus(c *fiber.Ctx) error {
	return c.JSON(OAuthStatus{Configured: h.Google != nil})
}
