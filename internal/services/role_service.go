package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/example/registry/internal/models"
)

// RoleService manages roles and their permission sets.
type RoleService struct {
	wf *Workflow
}

// NewRoleService constructs a RoleService.
func NewRoleService(wf *Workflow) *RoleService {
	return &RoleService{wf: wf}
}

// RoleInput is the payload for creating or updating a role.
type RoleInput struct {
	ID     uint   `json:"id"`
	Name   string `json:"name" validate:"required,min=2,max=100"`
	Status string `json:"status" validate:"omitempty,oneof=enabled disabled"`
}

// PermissionInfo is the listing shape of a permission.
type PermissionInfo struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Label string `json:"label"`
}

// List returns every role with its permissions.
func (s *RoleService) List(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	err := s.wf.DB(ctx).Preload("Permissions").Order("name asc").Find(&roles).Error
	return roles, err
}

// EnabledRoles returns the roles that may be assigned to users.
func (s *RoleService) EnabledRoles(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	err := s.wf.DB(ctx).Where("status = ?", "enabled").Order("name asc").Find(&roles).Error
	return roles, err
}

// Get loads one role with its permissions.
func (s *RoleService) Get(ctx context.Context, id uint) (*models.Role, error) {
	var role models.Role
	if err := s.wf.DB(ctx).Preload("Permissions").First(&role, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("Role not found")
		}
		return nil, err
	}
	return &role, nil
}

// Save inserts a role, or updates it when in.ID names an existing one.
func (s *RoleService) Save(ctx context.Context, in RoleInput, actorID uint) (*models.Role, error) {
	var role models.Role
	err := s.wf.Run(ctx, "role.save", func(tx *gorm.DB) error {
		if in.ID != 0 {
			if err := tx.First(&role, in.ID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return notFound("Role not found")
				}
				return err
			}
		} else {
			role.CreatedBy = actorID
		}

		role.Name = strings.TrimSpace(in.Name)
		role.Status = in.Status
		if role.Status == "" {
			role.Status = "enabled"
		}

		if err := tx.Omit("Permissions").Save(&role).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return conflict("A role named %q already exists", role.Name)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// Delete removes a role that no user holds any more.
func (s *RoleService) Delete(ctx context.Context, id uint) error {
	return s.wf.Run(ctx, "role.delete", func(tx *gorm.DB) error {
		var role models.Role
		if err := tx.First(&role, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("Role not found")
			}
			return err
		}

		var holders int64
		if err := tx.Model(&models.UserRole{}).Where("role_id = ?", id).Count(&holders).Error; err != nil {
			return err
		}
		if holders > 0 {
			return conflict("Role is still assigned to users")
		}

		if err := tx.Where("role_id = ?", id).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}
		return tx.Delete(&role).Error
	})
}

// SetPermissions replaces the role's permission set with exactly permissionIDs.
func (s *RoleService) SetPermissions(ctx context.Context, roleID uint, permissionIDs []uint) ([]models.Permission, error) {
	ids := dedupe(permissionIDs)

	err := s.wf.Run(ctx, "role.set_permissions", func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&models.Role{}).Where("id = ?", roleID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return notFound("Role not found")
		}

		if len(ids) > 0 {
			var known int64
			if err := tx.Model(&models.Permission{}).Where("id IN ?", ids).Count(&known).Error; err != nil {
				return err
			}
			if known != int64(len(ids)) {
				return invalid("One or more permissions do not exist")
			}
		}

		rows := make([]models.RolePermission, 0, len(ids))
		for _, pid := range ids {
			rows = append(rows, models.RolePermission{RoleID: roleID, PermissionID: pid})
		}
		return replaceChildren(tx, "role_id", roleID, rows)
	})
	if err != nil {
		return nil, err
	}

	return s.Permissions(ctx, roleID)
}

// Permissions lists the permissions granted to a role.
func (s *RoleService) Permissions(ctx context.Context, roleID uint) ([]models.Permission, error) {
	var perms []models.Permission
	err := s.wf.DB(ctx).
		Joins("JOIN role_has_permissions ON role_has_permissions.permission_id = permissions.id").
		Where("role_has_permissions.role_id = ?", roleID).
		Order("permissions.id asc").
		Find(&perms).Error
	return perms, err
}

// GroupedPermissions returns every permission keyed by group, then module.
func (s *RoleService) GroupedPermissions(ctx context.Context) (map[string]map[string][]PermissionInfo, error) {
	var perms []models.Permission
	if err := s.wf.DB(ctx).Order("group_name, module, id").Find(&perms).Error; err != nil {
		return nil, err
	}
	return groupPermissions(perms), nil
}

func groupPermissions(perms []models.Permission) map[string]map[string][]PermissionInfo {
	grouped := make(map[string]map[string][]PermissionInfo)
	for _, p := range perms {
		group := p.GroupName
		if group == "" {
			group = "general"
		}
		module := p.Module
		if module == "" {
			module = group
		}
		if grouped[group] == nil {
			grouped[group] = make(map[string][]PermissionInfo)
		}
		grouped[group][module] = append(grouped[group][module], PermissionInfo{ID: p.ID, Name: p.Name, Label: p.Label})
	}
	return grouped
}
