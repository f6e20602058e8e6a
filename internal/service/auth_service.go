package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"stockpilot/internal/apperr"
	"stockpilot/internal/model"
	"stockpilot/internal/repository"
	"stockpilot/internal/ws"
	"stockpilot/pkg/jwt"
	"stockpilot/pkg/validator"
)

// SessionIdleTimeout ends sessions that stopped sending heartbeats.
const SessionIdleTimeout = 5 * time.Minute

var (
	ErrInvalidCredentials = apperr.Unauthorized("Invalid email or password")
	ErrUserInactive       = apperr.Forbidden("User account is inactive")
	ErrSessionTimeout     = apperr.Unauthorized("Session expired due to inactivity")
	ErrSessionReplaced    = apperr.Unauthorized("Session expired (logged in on another device)")
)

type AuthService interface {
	Login(ctx context.Context, in *LoginRequest) (*LoginResponse, error)
	ResetPassword(ctx context.Context, in *ResetPasswordRequest) error
	ValidateToken(ctx context.Context, tokenString string) (*TokenValidationResponse, error)
	Heartbeat(ctx context.Context, userID uuid.UUID) error
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

type LoginResponse struct {
	Token      string             `json:"token"`
	User       model.UserResponse `json:"user"`
	Role       *model.Role        `json:"role"`
	Privileges []string           `json:"privileges"`
}

type TokenValidationResponse struct {
	User       model.UserResponse `json:"user"`
	Role       *model.Role        `json:"role"`
	Privileges []string           `json:"privileges"`
}

type authService struct {
	userRepo  repository.UserRepository
	tokens    *jwt.Manager
	publisher ws.Publisher
	now       func() time.Time
}

func NewAuthService(userRepo repository.UserRepository, tokens *jwt.Manager, publisher ws.Publisher) AuthService {
	return &authService{
		userRepo:  userRepo,
		tokens:    tokens,
		publisher: publisher,
		now:       time.Now,
	}
}

func (s *authService) Login(ctx context.Context, in *LoginRequest) (*LoginResponse, error) {
	if fields := validator.Fields(in); fields != nil {
		return nil, apperr.Validation(fields)
	}

	// 1. Find user by email
	user, err := s.userRepo.FindByEmail(ctx, in.Email)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, apperr.Internal(err)
	}

	// 2. Check account state and password
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if !user.CheckPassword(in.Password) {
		return nil, ErrInvalidCredentials
	}

	// 3. Single session: a new token version invalidates older tokens
	now := s.now()
	user.TokenVersion = uuid.New().String()
	user.LastSeenAt = &now
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, apperr.Internal(fmt.Errorf("update session: %w", err))
	}

	// 4. Issue JWT carrying the token version
	token, err := s.tokens.GenerateToken(user.ID, user.Email, user.FullName, user.RoleCode(), user.GetPrivilegeCodes(), user.TokenVersion)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("sign token: %w", err))
	}

	return &LoginResponse{
		Token:      token,
		User:       user.ToResponse(),
		Role:       user.Role,
		Privileges: user.GetPrivilegeCodes(),
	}, nil
}

func (s *authService) ResetPassword(ctx context.Context, in *ResetPasswordRequest) error {
	if fields := validator.Fields(in); fields != nil {
		return apperr.Validation(fields)
	}

	user, err := s.userRepo.FindByEmail(ctx, in.Email)
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrInvalidCredentials
		}
		return apperr.Internal(err)
	}
	if !user.CheckPassword(in.OldPassword) {
		return apperr.Validation(map[string]string{"old_password": "current password is incorrect"})
	}

	if err := user.SetPassword(in.NewPassword); err != nil {
		return apperr.Internal(fmt.Errorf("hash password: %w", err))
	}
	// Rotating the version signs out every existing session.
	user.TokenVersion = uuid.New().String()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (s *authService) ValidateToken(ctx context.Context, tokenString string) (*TokenValidationResponse, error) {
	claims, err := s.tokens.ValidateToken(strings.TrimPrefix(tokenString, "Bearer "))
	if err != nil {
		return nil, apperr.Unauthorized("%s", err.Error())
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperr.Unauthorized("User not found")
		}
		return nil, apperr.Internal(err)
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if user.TokenVersion != claims.TokenVersion {
		return nil, ErrSessionReplaced
	}
	// A session without a heartbeat on record counts as idle.
	if user.LastSeenAt == nil || s.now().Sub(*user.LastSeenAt) > SessionIdleTimeout {
		return nil, ErrSessionTimeout
	}

	return &TokenValidationResponse{
		User:       user.ToResponse(),
		Role:       user.Role,
		Privileges: user.GetPrivilegeCodes(),
	}, nil
}

func (s *authService) Heartbeat(ctx context.Context, userID uuid.UUID) error {
	if err := s.userRepo.UpdateLastSeen(ctx, userID); err != nil {
		log.Printf("heartbeat %s: %v", userID, err)
		return apperr.Internal(err)
	}

	s.publisher.Publish(ws.Event{
		Type: ws.EventUserStatus,
		Data: map[string]any{
			"user_id":      userID.String(),
			"status":       "online",
			"last_seen_at": s.now(),
		},
	})
	return nil
}
