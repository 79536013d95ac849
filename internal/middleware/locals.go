package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/course-registration-api/internal/models"
)

const (
	localUserID   = "user_id"
	localUserRole = "user_role"
)

// CurrentUserID returns the authenticated account id.
func CurrentUserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(localUserID).(uint)
	return id, ok && id != 0
}

// CurrentRole returns the authenticated account role.
func CurrentRole(c *fiber.Ctx) (models.Role, bool) {
	role, ok := c.Locals(localUserRole).(models.Role)
	return role, ok && role.Valid()
}

// SetIdentity stores an authenticated identity on the request.
func SetIdentity(c *fiber.Ctx, id uint, role models.Role) {
	c.Locals(localUserID, id)
	c.Locals(localUserRole, role)
}
