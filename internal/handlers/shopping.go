package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/gestionale/internal/email"
	"github.com/localnerve/gestionale/internal/middleware"
	"github.com/localnerve/gestionale/internal/models"
	"github.com/localnerve/gestionale/internal/notify"
	"github.com/localnerve/gestionale/internal/services"
	"gorm.io/gorm"
)

// ShoppingHandler serves shopping lists and their items
type ShoppingHandler struct {
	DB       *gorm.DB
	Notifier *notify.Dispatcher
	Mailer   Inviter
}

func (h *ShoppingHandler) notifyList(c *fiber.Ctx, list *models.ShoppingList, actor *models.User, notificationType, title, message string) {
	_, err := h.Notifier.NotifyListMembers(c.UserContext(), list.ID, notificationType, title, message, actor.ID)
	logDispatch(err, notificationType, "list_id", list.ID)
}

// CreateList handles POST /api/shopping-lists
// @Summary Create shopping list
// @Tags ShoppingLists
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.ListInput true "List"
// @Success 201 {object} models.ShoppingList
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /shopping-lists [post]
func (h *ShoppingHandler) CreateList(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	var in services.ListInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	list, err := services.CreateList(h.DB, user.ID, in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(list)
}

// ListLists handles GET /api/shopping-lists
// @Summary List owned and shared shopping lists
// @Tags ShoppingLists
// @Produce json
// @Security BearerAuth
// @Param skip query int false "Offset"
// @Param limit query int false "Page size"
// @Success 200 {array} models.ShoppingList
// @Router /shopping-lists [get]
func (h *ShoppingHandler) ListLists(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	lists, err := services.ListLists(h.DB, user.ID, parsePage(c))
	if err != nil {
		return err
	}
	return c.JSON(lists)
}

// GetList handles GET /api/shopping-lists/:id
// @Summary Get shopping list
// @Tags ShoppingLists
// @Produce json
// @Security BearerAuth
// @Param id path int true "List ID"
// @Success 200 {object} models.ShoppingList
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /shopping-lists/{id} [get]
func (h *ShoppingHandler) GetList(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	list, err := services.GetList(h.DB, id, user.ID)
	if err != nil {
		return err
	}
	return c.JSON(list)
}

// JoinList handles GET /api/shopping-lists/shared/:token
// @Summary Join shopping list by share token
// @Tags ShoppingLists
// @Produce json
// @Security BearerAuth
// @Param token path string true "Share token"
// @Success 200 {object} models.ShoppingList
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /shopping-lists/shared/{token} [get]
func (h *ShoppingHandler) JoinList(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	list, joined, err := services.JoinListByToken(h.DB, c.Params("token"), user.ID)
	if err != nil {
		return err
	}
	if joined {
		h.notifyList(c, list, user, notify.ListShared, "Lista condivisa",
			fmt.Sprintf("%s ora ha accesso alla lista %s", user.DisplayName(), list.Name))
	}
	return c.JSON(list)
}

// UpdateList handles PUT /api/shopping-lists/:id
// @Summary Rename shopping list
// @Tags ShoppingLists
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "List ID"
// @Param body body services.ListUpdate true "Fields to change"
// @Success 200 {object} models.ShoppingList
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /shopping-lists/{id} [put]
func (h *ShoppingHandler) UpdateList(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var upd services.ListUpdate
	if err := parseBody(c, &upd); err != nil {
		return err
	}
	list, err := services.UpdateList(h.DB, id, user.ID, upd)
	if err != nil {
		return err
	}
	h.notifyList(c, list, user, notify.ListUpdated, "Lista modificata",
		fmt.Sprintf("%s ha modificato la lista %s", user.DisplayName(), list.Name))
	return c.JSON(list)
}

// DeleteList handles DELETE /api/shopping-lists/:id
// @Summary Delete shopping list
// @Tags ShoppingLists
// @Security BearerAuth
// @Param id path int true "List ID"
// @Success 204
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /shopping-lists/{id} [delete]
func (h *ShoppingHandler) DeleteList(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	list, members, err := services.DeleteList(h.DB, id, user.ID)
	if err != nil {
		return err
	}

	_, err = h.Notifier.NotifyUsers(c.UserContext(), members, user.ID, notify.Event{
		Type:    notify.ListDeleted,
		Title:   "Lista eliminata",
		Message: fmt.Sprintf("%s ha eliminato la lista %s", user.DisplayName(), list.Name),
		Data:    map[string]any{"list_id": list.ID, "list_name": list.Name},
	})
	logDispatch(err, notify.ListDeleted, "list_id", list.ID)
	return c.SendStatus(fiber.StatusNoContent)
}

// InviteToList handles POST /api/shopping-lists/:id/invite
// @Summary Email a list invitation
// @Tags ShoppingLists
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "List ID"
// @Param body body InviteRequest true "Recipient"
// @Success 200 {object} InviteResponse
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /shopping-lists/{id}/invite [post]
func (h *ShoppingHandler) InviteToList(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var in InviteRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	to, err := services.NormalizeEmail(in.Email)
	if err != nil {
		return err
	}
	list, err := services.GetList(h.DB, id, user.ID)
	if err != nil {
		return err
	}

	return sendInvite(c, h.Mailer, email.Invitation{
		ToEmail:      to,
		InviterName:  user.DisplayName(),
		ResourceName: list.Name,
		Kind:         email.KindList,
		ShareToken:   list.ShareToken,
	})
}

// AddItem handles POST /api/shopping-lists/:id/items
// @Summary Add item
// @Tags ShoppingLists
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "List ID"
// @Param body body services.ItemInput true "Item"
// @Success 201 {object} models.ShoppingItem
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /shopping-lists/{id}/items [post]
func (h *ShoppingHandler) AddItem(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var in services.ItemInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	list, item, err := services.AddItem(h.DB, id, user.ID, in)
	if err != nil {
		return err
	}
	h.notifyList(c, list, user, notify.ListItemAdded, "Nuovo articolo",
		fmt.Sprintf("%s ha aggiunto %s alla lista %s", user.DisplayName(), item.Name, list.Name))
	return c.Status(fiber.StatusCreated).JSON(item)
}

// UpdateItem handles PUT /api/shopping-lists/:id/items/:item_id
// @Summary Update item
// @Tags ShoppingLists
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "List ID"
// @Param item_id path int true "Item ID"
// @Param body body services.ItemUpdate true "Fields to change"
// @Success 200 {object} models.ShoppingItem
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /shopping-lists/{id}/items/{item_id} [put]
func (h *ShoppingHandler) UpdateItem(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	itemID, err := parseID(c, "item_id")
	if err != nil {
		return err
	}
	var upd services.ItemUpdate
	if err := parseBody(c, &upd); err != nil {
		return err
	}
	list, item, err := services.UpdateItem(h.DB, id, itemID, user.ID, upd)
	if err != nil {
		return err
	}

	if upd.Completed != nil && *upd.Completed {
		h.notifyList(c, list, user, notify.ListItemCompleted, "Articolo completato",
			fmt.Sprintf("%s ha preso %s dalla lista %s", user.DisplayName(), item.Name, list.Name))
	} else {
		h.notifyList(c, list, user, notify.ListItemUpdated, "Articolo modificato",
			fmt.Sprintf("%s ha modificato %s nella lista %s", user.DisplayName(), item.Name, list.Name))
	}
	return c.JSON(item)
}

// DeleteItem handles DELETE /api/shopping-lists/:id/items/:item_id
// @Summary Delete item
// @Tags ShoppingLists
// @Security BearerAuth
// @Param id path int true "List ID"
// @Param item_id path int true "Item ID"
// @Success 204
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /shopping-lists/{id}/items/{item_id} [delete]
func (h *ShoppingHandler) DeleteItem(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	itemID, err := parseID(c, "item_id")
	if err != nil {
		return err
	}
	list, item, err := services.DeleteItem(h.DB, id, itemID, user.ID)
	if err != nil {
		return err
	}
	h.notifyList(c, list, user, notify.ListItemDeleted, "Articolo rimosso",
		fmt.Sprintf("%s ha rimosso %s dalla lista %s", user.DisplayName(), item.Name, list.Name))
	return c.SendStatus(fiber.StatusNoContent)
}
