package middleware

import (
	"strings"

	"stockpilot/internal/repository"
	"stockpilot/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

func deny(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"success": false, "error": message})
}

// RequireAuth is middleware that validates JWT token and sets user info in context
func RequireAuth(tokens *jwt.Manager, userRepo repository.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Get Authorization header
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return deny(c, fiber.StatusUnauthorized, "Missing authorization token")
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return deny(c, fiber.StatusUnauthorized, "Invalid authorization format. Use: Bearer <token>")
		}

		claims, err := tokens.ValidateToken(parts[1])
		if err != nil {
			return deny(c, fiber.StatusUnauthorized, "Invalid or expired token")
		}

		// Check strict session against DB
		user, err := userRepo.FindByID(c.UserContext(), claims.UserID)
		if err != nil {
			return deny(c, fiber.StatusUnauthorized, "User not found")
		}
		if !user.IsActive {
			return deny(c, fiber.StatusForbidden, "User account is inactive")
		}
		if user.TokenVersion != claims.TokenVersion {
			return deny(c, fiber.StatusUnauthorized, "Session expired (logged in on another device)")
		}

		// Role and privileges come from the database so changes apply without a new login.
		c.Locals("user_id", user.ID.String())
		c.Locals("user_email", user.Email)
		c.Locals("user_name", user.FullName)
		c.Locals("user_role", user.RoleCode())
		c.Locals("user_privileges", user.GetPrivilegeCodes())

		return c.Next()
	}
}

// RequirePrivilege checks if the authenticated user has the required privilege
func RequirePrivilege(requiredPrivilege string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		privileges, ok := c.Locals("user_privileges").([]string)
		if !ok {
			return deny(c, fiber.StatusForbidden, "No privileges found")
		}

		for _, p := range privileges {
			if p == requiredPrivilege {
				return c.Next()
			}
		}

		return deny(c, fiber.StatusForbidden, "Forbidden: requires '"+requiredPrivilege+"' privilege")
	}
}

// RequireAnyPrivilege checks if the user has at least one of the specified privileges
func RequireAnyPrivilege(requiredPrivileges ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		privileges, ok := c.Locals("user_privileges").([]string)
		if !ok {
			return deny(c, fiber.StatusForbidden, "No privileges found")
		}

		for _, userPriv := range privileges {
			for _, reqPriv := range requiredPrivileges {
				if userPriv == reqPriv {
					return c.Next()
				}
			}
		}

		return deny(c, fiber.StatusForbidden, "Forbidden: requires one of "+strings.Join(requiredPrivileges, ", ")+" privileges")
	}
}
