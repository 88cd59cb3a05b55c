// common.go
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
	"context"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/gestionale/internal/email"
	"github.com/localnerve/gestionale/internal/services"
	"github.com/localnerve/gestionale/internal/types"
)

// Inviter sends share-token invitations
type Inviter interface {
	SendInvitation(ctx context.Context, inv email.Invitation) (bool, error)
}

// InviteRequest is the payload of the invite endpoints
type InviteRequest struct {
	Email string `json:"email"`
}

// InviteResponse reports whether an invitation email was sent
type InviteResponse struct {
	Message string `json:"message"`
	Sent    bool   `json:"sent"`
}

// parseID reads a positive numeric path parameter
func parseID(c *fiber.Ctx, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, types.Validation("invalid %s", name)
	}
	return id, nil
}

// parsePage reads the skip/limit query parameters
func parsePage(c *fiber.Ctx) services.Page {
	return services.Page{
		Skip:  c.QueryInt("skip", 0),
		Limit: c.QueryInt("limit", 0),
	}
}

// parseBody decodes the JSON body into v
func parseBody(c *fiber.Ctx, v interface{}) error {
	if err := c.BodyParser(v); err != nil {
		return types.Validation("invalid request body: %v", err)
	}
	return nil
}

// logDispatch records a notification failure; dispatch never fails the request
func logDispatch(err error, notificationType string, attrs ...any) {
	if err == nil {
		return
	}
	slog.Error("notification dispatch failed", append([]any{"type", notificationType, "error", err}, attrs...)...)
}

// sendInvite hands the invitation to the mailer. A nil mailer behaves as a disabled one.
func sendInvite(c *fiber.Ctx, mailer Inviter, inv email.Invitation) error {
	sent := false
	if mailer != nil {
		var err error
		sent, err = mailer.SendInvitation(c.UserContext(), inv)
		if err != nil {
			slog.Error("invitation email failed", "to", inv.ToEmail, "kind", inv.Kind, "error", err)
			return types.Dependency(err)
		}
	}

	message := "Invitation sent"
	if !sent {
		message = "Email service not configured, share the link manually"
	}
	return c.JSON(InviteResponse{Message: message, Sent: sent})
}
