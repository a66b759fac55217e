// Package http provides HTTP handlers for the API.
package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"trustmail_server/pkg/apperr"
)

// GetUserID extracts the authenticated user from request locals. The JWT
// middleware stores it; a missing value means the route was mounted without
// auth or the token carried no subject.
func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	userIDVal := c.Locals("user_id")
	if userIDVal == nil {
		return uuid.Nil, apperr.Unauthorized("")
	}
	userID, ok := userIDVal.(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, apperr.Unauthorized("")
	}
	return userID, nil
}
