package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/gestionale/internal/config"
	"github.com/localnerve/gestionale/internal/push"
	"github.com/localnerve/gestionale/internal/services"
	"gorm.io/gorm"
)

// HealthHandler reports service health
type HealthHandler struct {
	Cfg      *config.Config
	DB       *gorm.DB
	Redis    services.Pinger
	Registry *push.Registry
}

// Health handles GET /api/health
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} services.HealthCheckResult
// @Failure 503 {object} services.HealthCheckResult
// @Router /health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	connections := 0
	if h.Registry != nil {
		connections = h.Registry.Connections()
	}
	result := services.HealthCheck(c.UserContext(), h.Cfg, h.DB, h.Redis, connections)
	if result.Status != "healthy" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(result)
	}
	return c.JSON(result)
}
