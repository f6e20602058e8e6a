package repository

import (
	"context"
	"errors"

	"stockpilot/internal/model"

	"gorm.io/gorm"
)

type RoleRepository interface {
	FindAll(ctx context.Context) ([]model.Role, error)
	FindByID(ctx context.Context, id uint) (*model.Role, error)
	FindByCode(ctx context.Context, code string) (*model.Role, error)
	// SeedDefaults creates missing roles and grants ADMIN every privilege and
	// EMPLOYEE everything outside model.EmployeeExcluded.
	SeedDefaults(ctx context.Context) error
}

type roleRepo struct {
	db *gorm.DB
}

func NewRoleRepo(db *gorm.DB) RoleRepository {
	return &roleRepo{db: db}
}

func (r *roleRepo) FindAll(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role
	err := r.db.WithContext(ctx).Preload("Privileges").Order("id ASC").Find(&roles).Error
	return roles, err
}

func (r *roleRepo) FindByID(ctx context.Context, id uint) (*model.Role, error) {
	var role model.Role
	if err := r.db.WithContext(ctx).Preload("Privileges").First(&role, id).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepo) FindByCode(ctx context.Context, code string) (*model.Role, error) {
	var role model.Role
	if err := r.db.WithContext(ctx).Preload("Privileges").Where("code = ?", code).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepo) SeedDefaults(ctx context.Context) error {
	db := r.db.WithContext(ctx)

	var all []model.Privilege
	if err := db.Find(&all).Error; err != nil {
		return err
	}

	for _, defaultRole := range model.DefaultRoles {
		role := defaultRole
		var existing model.Role
		err := db.Where("code = ?", role.Code).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := db.Create(&role).Error; err != nil {
				return err
			}
			existing = role
		case err != nil:
			return err
		}

		if err := db.Model(&existing).Association("Privileges").Replace(RolePrivileges(existing.Code, all)); err != nil {
			return err
		}
	}
	return nil
}

// RolePrivileges returns the subset of privileges granted to a role by default.
func RolePrivileges(roleCode string, all []model.Privilege) []model.Privilege {
	if roleCode == model.RoleAdmin {
		return all
	}
	granted := make([]model.Privilege, 0, len(all))
	for _, p := range all {
		if !model.EmployeeExcluded[p.Code] {
			granted = append(granted, p)
		}
	}
	return granted
}
