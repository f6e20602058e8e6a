package handler

import (
	"stockpilot/internal/service"

	"github.com/gofiber/fiber/v2"
)

type RoleHandler struct {
	userService service.UserService
}

func NewRoleHandler(userService service.UserService) *RoleHandler {
	return &RoleHandler{userService: userService}
}

// GetRoles returns all available roles
// GET /api/v1/roles
func (h *RoleHandler) GetRoles(c *fiber.Ctx) error {
	roles, err := h.userService.ListRoles(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return ok(c, roles)
}

// GetPrivileges returns every assignable privilege
// GET /api/v1/privileges
func (h *RoleHandler) GetPrivileges(c *fiber.Ctx) error {
	privileges, err := h.userService.ListPrivileges(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return ok(c, privileges)
}
