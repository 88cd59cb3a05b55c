// expenses.go
//
// Shared expenses, shopping lists and workout cards backend
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of gestionale.
// gestionale is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// gestionale is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with gestionale.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package handlers

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/gestionale/internal/email"
	"github.com/localnerve/gestionale/internal/middleware"
	"github.com/localnerve/gestionale/internal/models"
	"github.com/localnerve/gestionale/internal/notify"
	"github.com/localnerve/gestionale/internal/services"
	"github.com/localnerve/gestionale/internal/types"
	"gorm.io/gorm"
)

// ExpenseHandler serves expense groups, expenses and balances
type ExpenseHandler struct {
	DB       *gorm.DB
	Notifier *notify.Dispatcher
	Mailer   Inviter
}

// AddMembersRequest accepts a single id or a list of ids
type AddMembersRequest struct {
	UserID types.FlexList[types.FlexID] `json:"user_id"`
}

// AddMembersResponse lists the memberships created
type AddMembersResponse struct {
	Message string               `json:"message"`
	Members []models.GroupMember `json:"members"`
}

// CreateGroup handles POST /api/expenses/groups
// @Summary Create expense group
// @Tags Expenses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.GroupInput true "Group"
// @Success 201 {object} models.ExpenseGroup
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /expenses/groups [post]
func (h *ExpenseHandler) CreateGroup(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	var in services.GroupInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	group, err := services.CreateGroup(h.DB, user, in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(group)
}

// ListGroups handles GET /api/expenses/groups
// @Summary List my expense groups
// @Tags Expenses
// @Produce json
// @Security BearerAuth
// @Param skip query int false "Offset"
// @Param limit query int false "Page size"
// @Success 200 {array} models.ExpenseGroup
// @Router /expenses/groups [get]
func (h *ExpenseHandler) ListGroups(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	groups, err := services.ListGroups(h.DB, user.ID, parsePage(c))
	if err != nil {
		return err
	}
	return c.JSON(groups)
}

// GetGroup handles GET /api/expenses/groups/:id
// @Summary Get expense group
// @Tags Expenses
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Success 200 {object} models.ExpenseGroup
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /expenses/groups/{id} [get]
func (h *ExpenseHandler) GetGroup(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	group, err := services.GetGroup(h.DB, id, user.ID)
	if err != nil {
		return err
	}
	return c.JSON(group)
}

// JoinGroup handles GET /api/expenses/groups/shared/:token
// @Summary Join expense group by share token
// @Tags Expenses
// @Produce json
// @Security BearerAuth
// @Param token path string true "Share token"
// @Success 200 {object} models.ExpenseGroup
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /expenses/groups/shared/{token} [get]
func (h *ExpenseHandler) JoinGroup(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	group, joined, err := services.JoinGroupByToken(h.DB, c.Params("token"), user)
	if err != nil {
		return err
	}

	if joined {
		_, err := h.Notifier.NotifyGroupMembers(c.UserContext(), group.ID, notify.GroupMemberJoined,
			"Nuovo membro nel gruppo",
			fmt.Sprintf("%s si è unito al gruppo %s", user.DisplayName(), group.Name),
			user.ID)
		logDispatch(err, notify.GroupMemberJoined, "group_id", group.ID)
	}
	return c.JSON(group)
}

// UpdateGroup handles PUT /api/expenses/groups/:id
// @Summary Update expense group
// @Tags Expenses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Param body body services.GroupUpdate true "Fields to change"
// @Success 200 {object} models.ExpenseGroup
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /expenses/groups/{id} [put]
func (h *ExpenseHandler) UpdateGroup(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var upd services.GroupUpdate
	if err := parseBody(c, &upd); err != nil {
		return err
	}
	group, err := services.UpdateGroup(h.DB, id, user.ID, upd)
	if err != nil {
		return err
	}

	_, err = h.Notifier.NotifyGroupMembers(c.UserContext(), group.ID, notify.GroupUpdated,
		"Gruppo modificato",
		fmt.Sprintf("%s ha modificato il gruppo %s", user.DisplayName(), group.Name),
		user.ID)
	logDispatch(err, notify.GroupUpdated, "group_id", group.ID)
	return c.JSON(group)
}

// DeleteGroup handles DELETE /api/expenses/groups/:id
// @Summary Delete expense group
// @Tags Expenses
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Success 204
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /expenses/groups/{id} [delete]
func (h *ExpenseHandler) DeleteGroup(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	group, memberIDs, err := services.DeleteGroup(h.DB, id, user.ID)
	if err != nil {
		return err
	}

	// The group row is gone, so the reference is carried in Data only
	_, err = h.Notifier.NotifyUsers(c.UserContext(), memberIDs, user.ID, notify.Event{
		Type:    notify.GroupDeleted,
		Title:   "Gruppo eliminato",
		Message: fmt.Sprintf("%s ha eliminato il gruppo %s", user.DisplayName(), group.Name),
		Data:    map[string]any{"group_id": group.ID, "group_name": group.Name},
	})
	logDispatch(err, notify.GroupDeleted, "group_id", group.ID)
	return c.SendStatus(fiber.StatusNoContent)
}

// AddMembers handles POST /api/expenses/groups/:id/members
// @Summary Add group members
// @Tags Expenses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Param body body AddMembersRequest true "User id or ids"
// @Success 201 {object} AddMembersResponse
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /expenses/groups/{id}/members [post]
func (h *ExpenseHandler) AddMembers(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var in AddMembersRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	ids := make([]uint64, 0, len(in.UserID))
	for _, fid := range in.UserID.Slice() {
		ids = append(ids, fid.Uint64())
	}

	added, err := services.AddGroupMembers(h.DB, id, user.ID, ids)
	if err != nil {
		return err
	}

	group, err := services.GetGroup(h.DB, id, user.ID)
	if err == nil {
		for _, m := range added {
			_, err := h.Notifier.Notify(c.UserContext(), notify.Event{
				UserID:        m.UserID,
				Type:          notify.GroupMemberAdded,
				Title:         "Aggiunto a un gruppo",
				Message:       fmt.Sprintf("%s ti ha aggiunto al gruppo %s", user.DisplayName(), group.Name),
				ReferenceID:   &group.ID,
				ReferenceType: models.ReferenceExpenseGroup,
				Data:          map[string]any{"group_id": group.ID},
			})
			logDispatch(err, notify.GroupMemberAdded, "group_id", group.ID, "user_id", m.UserID)
		}
	} else {
		logDispatch(err, notify.GroupMemberAdded, "group_id", id)
	}

	return c.Status(fiber.StatusCreated).JSON(AddMembersResponse{Message: "Members added", Members: added})
}

// RemoveMember handles DELETE /api/expenses/groups/:id/members/:user_id
// @Summary Remove group member
// @Tags Expenses
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Param user_id path int true "User ID"
// @Success 204
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /expenses/groups/{id}/members/{user_id} [delete]
func (h *ExpenseHandler) RemoveMember(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	memberID, err := parseID(c, "user_id")
	if err != nil {
		return err
	}
	if err := services.RemoveGroupMember(h.DB, id, user.ID, memberID); err != nil {
		return err
	}

	_, err = h.Notifier.Notify(c.UserContext(), notify.Event{
		UserID:        memberID,
		Type:          notify.GroupMemberRemoved,
		Title:         "Rimosso da un gruppo",
		Message:       fmt.Sprintf("%s ti ha rimosso da un gruppo spese", user.DisplayName()),
		ReferenceID:   &id,
		ReferenceType: models.ReferenceExpenseGroup,
	})
	logDispatch(err, notify.GroupMemberRemoved, "group_id", id, "user_id", memberID)
	return c.SendStatus(fiber.StatusNoContent)
}

// InviteToGroup handles POST /api/expenses/groups/:id/invite
// @Summary Email a group invitation
// @Tags Expenses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Param body body InviteRequest true "Recipient"
// @Success 200 {object} InviteResponse
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /expenses/groups/{id}/invite [post]
func (h *ExpenseHandler) InviteToGroup(c *fiber.Ctx) error {
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
	group, err := services.GetGroup(h.DB, id, user.ID)
	if err != nil {
		return err
	}

	return sendInvite(c, h.Mailer, email.Invitation{
		ToEmail:      to,
		InviterName:  user.DisplayName(),
		ResourceName: group.Name,
		Kind:         email.KindGroup,
		ShareToken:   group.ShareToken,
	})
}

// GroupBalances handles GET /api/expenses/groups/:id/balances
// @Summary Group balances
// @Tags Expenses
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Success 200 {array} services.MemberBalance
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /expenses/groups/{id}/balances [get]
func (h *ExpenseHandler) GroupBalances(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	balances, err := services.GroupBalances(h.DB, id, user.ID)
	if err != nil {
		return err
	}
	return c.JSON(balances)
}

// CreateExpense handles POST /api/expenses/expenses
// @Summary Create expense
// @Tags Expenses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.ExpenseInput true "Expense"
// @Success 201 {object} models.Expense
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /expenses/expenses [post]
func (h *ExpenseHandler) CreateExpense(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	var in services.ExpenseInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	expense, err := services.CreateExpense(h.DB, user.ID, in)
	if err != nil {
		return err
	}

	_, err = h.Notifier.NotifyGroupMembers(c.UserContext(), expense.GroupID, notify.ExpenseAdded,
		"Nuova spesa",
		fmt.Sprintf("%s ha aggiunto %s (€%s)", user.DisplayName(), describe(expense), expense.Amount.StringFixed(2)),
		user.ID)
	logDispatch(err, notify.ExpenseAdded, "expense_id", expense.ID)
	return c.Status(fiber.StatusCreated).JSON(expense)
}

// ListExpenses handles GET /api/expenses/expenses
// @Summary List expenses
// @Tags Expenses
// @Produce json
// @Security BearerAuth
// @Param group_id query int false "Restrict to one group"
// @Param skip query int false "Offset"
// @Param limit query int false "Page size"
// @Success 200 {array} models.Expense
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /expenses/expenses [get]
func (h *ExpenseHandler) ListExpenses(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	var groupID uint64
	if raw := c.Query("group_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return types.Validation("invalid group_id")
		}
		groupID = id
	}
	expenses, err := services.ListExpenses(h.DB, user.ID, groupID, parsePage(c))
	if err != nil {
		return err
	}
	return c.JSON(expenses)
}

// GetExpense handles GET /api/expenses/expenses/:id
// @Summary Get expense
// @Tags Expenses
// @Produce json
// @Security BearerAuth
// @Param id path int true "Expense ID"
// @Success 200 {object} models.Expense
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /expenses/expenses/{id} [get]
func (h *ExpenseHandler) GetExpense(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	expense, err := services.GetExpense(h.DB, id, user.ID)
	if err != nil {
		return err
	}
	return c.JSON(expense)
}

// UpdateExpense handles PUT /api/expenses/expenses/:id
// @Summary Update expense
// @Tags Expenses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Expense ID"
// @Param body body services.ExpenseUpdate true "Fields to change"
// @Success 200 {object} models.Expense
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /expenses/expenses/{id} [put]
func (h *ExpenseHandler) UpdateExpense(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var upd services.ExpenseUpdate
	if err := parseBody(c, &upd); err != nil {
		return err
	}
	expense, err := services.UpdateExpense(h.DB, id, user.ID, upd)
	if err != nil {
		return err
	}

	_, err = h.Notifier.NotifyGroupMembers(c.UserContext(), expense.GroupID, notify.ExpenseUpdated,
		"Spesa modificata",
		fmt.Sprintf("%s ha modificato %s", user.DisplayName(), describe(expense)),
		user.ID)
	logDispatch(err, notify.ExpenseUpdated, "expense_id", expense.ID)
	return c.JSON(expense)
}

// DeleteExpense handles DELETE /api/expenses/expenses/:id
// @Summary Delete expense
// @Tags Expenses
// @Security BearerAuth
// @Param id path int true "Expense ID"
// @Success 204
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /expenses/expenses/{id} [delete]
func (h *ExpenseHandler) DeleteExpense(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	expense, err := services.DeleteExpense(h.DB, id, user.ID)
	if err != nil {
		return err
	}

	_, err = h.Notifier.NotifyGroupMembers(c.UserContext(), expense.GroupID, notify.ExpenseDeleted,
		"Spesa eliminata",
		fmt.Sprintf("%s ha eliminato %s", user.DisplayName(), describe(expense)),
		user.ID)
	logDispatch(err, notify.ExpenseDeleted, "expense_id", expense.ID)
	return c.SendStatus(fiber.StatusNoContent)
}

func describe(e *models.Expense) string {
	if e.Description != "" {
		return fmt.Sprintf("la spesa \"%s\"", e.Description)
	}
	return "una spesa " + e.Tag
}
