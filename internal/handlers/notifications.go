package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/gestionale/internal/middleware"
	"github.com/localnerve/gestionale/internal/services"
	"github.com/localnerve/gestionale/internal/utils"
	"gorm.io/gorm"
)

// NotificationHandler serves the poll side of notifications
type NotificationHandler struct {
	DB *gorm.DB
}

// MarkReadRequest sets the read flag
type MarkReadRequest struct {
	IsRead *bool `json:"is_read"`
}

// MarkAllReadResponse reports how many notifications changed
type MarkAllReadResponse struct {
	Message string `json:"message"`
	Updated int64  `json:"updated"`
}

// ListNotifications handles GET /api/notifications
// @Summary List notifications
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param skip query int false "Offset"
// @Param limit query int false "Page size (default 50)"
// @Param unread_only query bool false "Only unread"
// @Success 200 {array} models.Notification
// @Router /notifications [get]
func (h *NotificationHandler) ListNotifications(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	list, err := services.ListNotifications(h.DB, user.ID, c.QueryBool("unread_only", false), parsePage(c))
	if err != nil {
		return err
	}
	return c.JSON(list)
}

// UnreadCount handles GET /api/notifications/unread-count
// @Summary Count unread notifications
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} utils.CountResponseStruct
// @Router /notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	count, err := services.UnreadCount(h.DB, user.ID)
	if err != nil {
		return err
	}
	return c.JSON(utils.CountResponseStruct{Count: count})
}

// MarkRead handles PUT /api/notifications/:id/mark-read
// @Summary Set read flag
// @Tags Notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Notification ID"
// @Param body body MarkReadRequest true "Read flag"
// @Success 200 {object} models.Notification
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /notifications/{id}/mark-read [put]
func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	in := MarkReadRequest{}
	if len(c.Body()) > 0 {
		if err := parseBody(c, &in); err != nil {
			return err
		}
	}
	isRead := true
	if in.IsRead != nil {
		isRead = *in.IsRead
	}
	n, err := services.MarkRead(h.DB, id, user.ID, isRead)
	if err != nil {
		return err
	}
	return c.JSON(n)
}

// MarkAllRead handles PUT /api/notifications/mark-all-read
// @Summary Mark every notification read
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MarkAllReadResponse
// @Router /notifications/mark-all-read [put]
func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	updated, err := services.MarkAllRead(h.DB, user.ID)
	if err != nil {
		return err
	}
	return c.JSON(MarkAllReadResponse{Message: "Tutte le notifiche sono state segnate come lette", Updated: updated})
}

// DeleteNotification handles DELETE /api/notifications/:id
// @Summary Delete notification
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Notification ID"
// @Success 200 {object} utils.MessageResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /notifications/{id} [delete]
func (h *NotificationHandler) DeleteNotification(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := services.DeleteNotification(h.DB, id, user.ID); err != nil {
		return err
	}
	return utils.MessageResponse(c, "Notifica eliminata")
}
