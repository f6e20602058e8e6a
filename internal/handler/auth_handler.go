package handler

import (
	"stockpilot/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type AuthHandler struct {
	authService service.AuthService
}

func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login handles user authentication
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req service.LoginRequest
	if !parseBody(c, &req) {
		return nil
	}

	response, err := h.authService.Login(c.UserContext(), &req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, response)
}

// ResetPassword handles password change
// POST /api/v1/auth/reset-password
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req service.ResetPasswordRequest
	if !parseBody(c, &req) {
		return nil
	}

	if err := h.authService.ResetPassword(c.UserContext(), &req); err != nil {
		return fail(c, err)
	}
	return done(c, "Password updated successfully")
}

// Heartbeat keeps the caller's session alive and marks them online.
// POST /api/v1/auth/heartbeat
func (h *AuthHandler) Heartbeat(c *fiber.Ctx) error {
	id, err := uuid.Parse(localString(c, "user_id"))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(envelope{Error: "Unauthorized"})
	}

	if err := h.authService.Heartbeat(c.UserContext(), id); err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{"status": "online"})
}

// ValidateTokenRequest represents the validate token request body
type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// ValidateToken handles JWT token validation
// POST /api/v1/auth/validate-token
func (h *AuthHandler) ValidateToken(c *fiber.Ctx) error {
	var req ValidateTokenRequest
	if !parseBody(c, &req) {
		return nil
	}
	if req.Token == "" {
		return badRequest(c, "Token is required")
	}

	response, err := h.authService.ValidateToken(c.UserContext(), req.Token)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, response)
}
