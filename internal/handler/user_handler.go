package handler

import (
	"strings"

	"stockpilot/internal/service"

	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	userService service.UserService
}

func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// CreateUser handles user creation
// POST /api/v1/users
func (h *UserHandler) CreateUser(c *fiber.Ctx) error {
	var req service.CreateUserRequest
	if !parseBody(c, &req) {
		return nil
	}

	user, err := h.userService.CreateUser(c.UserContext(), &req, currentActor(c))
	if err != nil {
		return fail(c, err)
	}
	return created(c, user)
}

// UpdateUserPrivileges handles privilege assignment
// PUT /api/v1/users/:id/privileges
func (h *UserHandler) UpdateUserPrivileges(c *fiber.Ctx) error {
	userID, valid := paramID(c, "user")
	if !valid {
		return nil
	}

	var req struct {
		Privileges []string `json:"privileges"`
	}
	if !parseBody(c, &req) {
		return nil
	}

	user, err := h.userService.UpdateUserPrivileges(c.UserContext(), userID, req.Privileges, currentActor(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, user)
}

// GetUsers returns a page of users
// GET /api/v1/users?search=&page=&limit=
func (h *UserHandler) GetUsers(c *fiber.Ctx) error {
	users, err := h.userService.GetAllUsers(c.UserContext(), strings.TrimSpace(c.Query("search")), pagination(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, users)
}

// GetUser returns a single user by ID
// GET /api/v1/users/:id
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	userID, valid := paramID(c, "user")
	if !valid {
		return nil
	}

	user, err := h.userService.GetUserByID(c.UserContext(), userID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, user)
}

// UpdateUser handles user update
// PUT /api/v1/users/:id
func (h *UserHandler) UpdateUser(c *fiber.Ctx) error {
	userID, valid := paramID(c, "user")
	if !valid {
		return nil
	}

	var req service.UpdateUserRequest
	if !parseBody(c, &req) {
		return nil
	}

	user, err := h.userService.UpdateUser(c.UserContext(), userID, &req, currentActor(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, user)
}

// DeleteUser handles user deletion
// DELETE /api/v1/users/:id
func (h *UserHandler) DeleteUser(c *fiber.Ctx) error {
	userID, valid := paramID(c, "user")
	if !valid {
		return nil
	}

	if err := h.userService.DeleteUser(c.UserContext(), userID, currentActor(c)); err != nil {
		return fail(c, err)
	}
	return done(c, "User deleted successfully")
}
