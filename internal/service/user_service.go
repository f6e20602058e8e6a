package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stockpilot/internal/apperr"
	"stockpilot/internal/model"
	"stockpilot/internal/repository"
	"stockpilot/pkg/validator"

	"github.com/google/uuid"
)

type UserService interface {
	CreateUser(ctx context.Context, req *CreateUserRequest, actor model.Actor) (*model.UserResponse, error)
	UpdateUser(ctx context.Context, userID uuid.UUID, req *UpdateUserRequest, actor model.Actor) (*model.UserResponse, error)
	DeleteUser(ctx context.Context, userID uuid.UUID, actor model.Actor) error
	UpdateUserPrivileges(ctx context.Context, userID uuid.UUID, privilegeCodes []string, actor model.Actor) (*model.UserResponse, error)
	GetAllUsers(ctx context.Context, search string, page repository.Pagination) (*repository.PageResult[model.UserResponse], error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.UserResponse, error)
	ListRoles(ctx context.Context) ([]model.Role, error)
	ListPrivileges(ctx context.Context) ([]model.Privilege, error)
}

type CreateUserRequest struct {
	Email       string  `json:"email" validate:"required,email"`
	Password    string  `json:"password" validate:"required,min=6"`
	FullName    string  `json:"full_name" validate:"required"`
	PhoneNumber string  `json:"phone_number" validate:"max=20"`
	BirthDate   *string `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	RoleID      uint    `json:"role_id" validate:"required"`
}

type UpdateUserRequest struct {
	Email       string  `json:"email" validate:"required,email"`
	Password    *string `json:"password,omitempty" validate:"omitempty,min=6"`
	FullName    string  `json:"full_name" validate:"required"`
	PhoneNumber string  `json:"phone_number" validate:"max=20"`
	BirthDate   *string `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	RoleID      uint    `json:"role_id" validate:"required"`
	IsActive    *bool   `json:"is_active"`
}

type userService struct {
	userRepo      repository.UserRepository
	privilegeRepo repository.PrivilegeRepository
	roleRepo      repository.RoleRepository
}

func NewUserService(userRepo repository.UserRepository, privilegeRepo repository.PrivilegeRepository, roleRepo repository.RoleRepository) UserService {
	return &userService{
		userRepo:      userRepo,
		privilegeRepo: privilegeRepo,
		roleRepo:      roleRepo,
	}
}

func parseBirthDate(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t := parseDate(*s)
	return &t
}

func (s *userService) ensureEmailFree(ctx context.Context, email string, self uuid.UUID) error {
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil
		}
		return apperr.Wrap(err)
	}
	if existing.ID != self {
		return apperr.Conflict("Email '%s' is already registered", email)
	}
	return nil
}

func (s *userService) findRole(ctx context.Context, id uint) (*model.Role, error) {
	role, err := s.roleRepo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperr.Validation(map[string]string{"role_id": "role not found"})
		}
		return nil, apperr.Wrap(err)
	}
	return role, nil
}

func (s *userService) reload(ctx context.Context, id uuid.UUID) (*model.UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "User not found")
	}
	resp := user.ToResponse()
	return &resp, nil
}

func (s *userService) CreateUser(ctx context.Context, req *CreateUserRequest, actor model.Actor) (*model.UserResponse, error) {
	// 1. Validate request
	if fields := validator.Fields(req); fields != nil {
		return nil, apperr.Validation(fields)
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	// 2. Business checks
	if err := s.ensureEmailFree(ctx, email, uuid.Nil); err != nil {
		return nil, err
	}
	role, err := s.findRole(ctx, req.RoleID)
	if err != nil {
		return nil, err
	}

	// 3. Build user with the role's default privileges
	user := &model.User{
		Email:       email,
		FullName:    strings.TrimSpace(req.FullName),
		PhoneNumber: req.PhoneNumber,
		BirthDate:   parseBirthDate(req.BirthDate),
		RoleID:      &role.ID,
		IsActive:    true,
		Privileges:  role.Privileges,
	}
	user.CreatedBy = actor.ID
	user.UpdatedBy = actor.ID
	if err := user.SetPassword(req.Password); err != nil {
		return nil, apperr.Internal(fmt.Errorf("hash password: %w", err))
	}

	// 4. Save
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, translate(err, "User not found")
	}
	return s.reload(ctx, user.ID)
}

func (s *userService) UpdateUser(ctx context.Context, userID uuid.UUID, req *UpdateUserRequest, actor model.Actor) (*model.UserResponse, error) {
	if fields := validator.Fields(req); fields != nil {
		return nil, apperr.Validation(fields)
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, translate(err, "User not found")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email != user.Email {
		if err := s.ensureEmailFree(ctx, email, user.ID); err != nil {
			return nil, err
		}
	}
	role, err := s.findRole(ctx, req.RoleID)
	if err != nil {
		return nil, err
	}

	roleChanged := user.RoleID == nil || *user.RoleID != role.ID
	user.Email = email
	user.FullName = strings.TrimSpace(req.FullName)
	user.PhoneNumber = req.PhoneNumber
	user.BirthDate = parseBirthDate(req.BirthDate)
	user.RoleID = &role.ID
	if req.IsActive != nil {
		if !*req.IsActive && user.ID.String() == actor.ID {
			return nil, apperr.Conflict("You cannot deactivate your own account")
		}
		user.IsActive = *req.IsActive
	}
	user.UpdatedBy = actor.ID

	if req.Password != nil && *req.Password != "" {
		if err := user.SetPassword(*req.Password); err != nil {
			return nil, apperr.Internal(fmt.Errorf("hash password: %w", err))
		}
		user.TokenVersion = uuid.New().String()
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, translate(err, "User not found")
	}
	// A role change resets privileges to the role defaults.
	if roleChanged {
		if err := s.userRepo.UpdatePrivileges(ctx, user.ID, role.Privileges); err != nil {
			return nil, apperr.Wrap(err)
		}
	}
	return s.reload(ctx, user.ID)
}

func (s *userService) DeleteUser(ctx context.Context, userID uuid.UUID, actor model.Actor) error {
	if userID.String() == actor.ID {
		return apperr.Conflict("You cannot delete your own account")
	}
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		return translate(err, "User not found")
	}
	if err := s.userRepo.Delete(ctx, userID, actor.ID); err != nil {
		return apperr.Wrap(err)
	}
	return nil
}

func (s *userService) UpdateUserPrivileges(ctx context.Context, userID uuid.UUID, privilegeCodes []string, actor model.Actor) (*model.UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, translate(err, "User not found")
	}

	privileges, err := s.privilegeRepo.FindByCodes(ctx, privilegeCodes)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	if len(privileges) != len(privilegeCodes) {
		known := make(map[string]bool, len(privileges))
		for _, p := range privileges {
			known[p.Code] = true
		}
		for _, code := range privilegeCodes {
			if !known[code] {
				return nil, apperr.Validation(map[string]string{"privileges": fmt.Sprintf("unknown privilege '%s'", code)})
			}
		}
	}

	if err := s.userRepo.UpdatePrivileges(ctx, userID, privileges); err != nil {
		return nil, apperr.Wrap(err)
	}
	user.UpdatedBy = actor.ID
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, apperr.Wrap(err)
	}
	return s.reload(ctx, userID)
}

func (s *userService) GetAllUsers(ctx context.Context, search string, page repository.Pagination) (*repository.PageResult[model.UserResponse], error) {
	users, err := s.userRepo.FindAll(ctx, search, page)
	if err != nil {
		return nil, apperr.Wrap(err)
	}

	responses := make([]model.UserResponse, len(users.Items))
	for i, user := range users.Items {
		responses[i] = user.ToResponse()
	}
	return &repository.PageResult[model.UserResponse]{
		Items:      responses,
		Total:      users.Total,
		Page:       users.Page,
		Limit:      users.Limit,
		TotalPages: users.TotalPages,
	}, nil
}

func (s *userService) GetUserByID(ctx context.Context, id uuid.UUID) (*model.UserResponse, error) {
	return s.reload(ctx, id)
}

func (s *userService) ListRoles(ctx context.Context) ([]model.Role, error) {
	roles, err := s.roleRepo.FindAll(ctx)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return roles, nil
}

func (s *userService) ListPrivileges(ctx context.Context) ([]model.Privilege, error) {
	privileges, err := s.privilegeRepo.FindAll(ctx)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return privileges, nil
}
