package handler

import (
	"log"
	"strconv"
	"time"

	"stockpilot/internal/apperr"
	"stockpilot/internal/model"
	"stockpilot/internal/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// envelope is the shape of every JSON response.
type envelope struct {
	Success     bool              `json:"success"`
	Data        any               `json:"data,omitempty"`
	Message     string            `json:"message,omitempty"`
	Error       string            `json:"error,omitempty"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
	Shortfall   *apperr.Shortfall `json:"shortfall,omitempty"`
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return fiber.StatusBadRequest
	case apperr.KindConflict:
		return fiber.StatusConflict
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	case apperr.KindInsufficientStock:
		return fiber.StatusUnprocessableEntity
	case apperr.KindForbidden:
		return fiber.StatusForbidden
	case apperr.KindUnauthorized:
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}

func ok(c *fiber.Ctx, data any) error {
	return c.JSON(envelope{Success: true, Data: data})
}

func created(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(envelope{Success: true, Data: data})
}

func done(c *fiber.Ctx, message string) error {
	return c.JSON(envelope{Success: true, Message: message})
}

// fail writes err as an error envelope. Internal causes are logged here and
// never sent to the client.
func fail(c *fiber.Ctx, err error) error {
	appErr, isApp := apperr.As(err)
	if !isApp {
		appErr = apperr.Internal(err)
	}
	if appErr.Kind == apperr.KindInternal {
		log.Printf("%s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(statusFor(appErr.Kind)).JSON(envelope{
		Error:       appErr.Message,
		FieldErrors: appErr.Fields,
		Shortfall:   appErr.Shortfall,
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(envelope{Error: message})
}

// parseBody decodes the request body, answering 400 itself on failure.
func parseBody(c *fiber.Ctx, dest any) bool {
	if err := c.BodyParser(dest); err != nil {
		_ = badRequest(c, "Invalid JSON")
		return false
	}
	return true
}

func paramID(c *fiber.Ctx, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		_ = badRequest(c, "Invalid "+what+" ID")
		return uuid.Nil, false
	}
	return id, true
}

func localString(c *fiber.Ctx, key string) string {
	v, _ := c.Locals(key).(string)
	return v
}

// currentActor builds the acting user from what RequireAuth stored.
func currentActor(c *fiber.Ctx) model.Actor {
	privileges, _ := c.Locals("user_privileges").([]string)
	return model.Actor{
		ID:         localString(c, "user_id"),
		Name:       localString(c, "user_name"),
		Email:      localString(c, "user_email"),
		RoleCode:   localString(c, "user_role"),
		Privileges: privileges,
	}
}

func pagination(c *fiber.Ctx) repository.Pagination {
	return repository.Pagination{
		Page:  c.QueryInt("page", 1),
		Limit: c.QueryInt("limit", repository.DefaultPageSize),
	}
}

func queryUUID(c *fiber.Ctx, key string) *uuid.UUID {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}

// queryDate reads a YYYY-MM-DD query parameter in loc.
func queryDate(c *fiber.Ctx, key string, loc *time.Location) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		return nil, apperr.Validation(map[string]string{key: "must be a date in YYYY-MM-DD format"})
	}
	return &t, nil
}

func queryPositive(c *fiber.Ctx, key string, fallback int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
