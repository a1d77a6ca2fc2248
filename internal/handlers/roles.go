package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/registry/internal/services"
)

// RoleHandler exposes roles and their permission sets.
type RoleHandler struct {
	roles *services.RoleService
}

// NewRoleHandler constructs a RoleHandler.
func NewRoleHandler(roles *services.RoleService) *RoleHandler {
	return &RoleHandler{roles: roles}
}

// Index lists every role.
func (h *RoleHandler) Index(c *fiber.Ctx) error {
	roles, err := h.roles.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(roles)
}

// Create inserts or updates a role.
func (h *RoleHandler) Create(c *fiber.Ctx) error {
	me, err := currentUser(c)
	if err != nil {
		return err
	}
	var in services.RoleInput
	if err := parseBody(c, &in); err != nil {
		return err
	}

	role, err := h.roles.Save(c.UserContext(), in, me.ID)
	if err != nil {
		return err
	}
	if in.ID != 0 {
		return c.JSON(fiber.Map{"message": "Role updated successfully", "role": role})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Role created successfully", "role": role})
}

// GetSingle returns one role.
func (h *RoleHandler) GetSingle(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	role, err := h.roles.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(role)
}

// Destroy deletes a role that no user holds.
func (h *RoleHandler) Destroy(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.roles.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Role deleted successfully"})
}

// AllPermissions returns every permission grouped by group and module.
func (h *RoleHandler) AllPermissions(c *fiber.Ctx) error {
	grouped, err := h.roles.GroupedPermissions(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(grouped)
}

type rolePermissionsRequest struct {
	RoleID uint `json:"role_id" validate:"required"`
}

// GetPermissions returns the permissions granted to one role.
func (h *RoleHandler) GetPermissions(c *fiber.Ctx) error {
	var req rolePermissionsRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	perms, err := h.roles.Permissions(c.UserContext(), req.RoleID)
	if err != nil {
		return err
	}
	return c.JSON(perms)
}

type setPermissionsRequest struct {
	RoleID        uint    `json:"role_id" validate:"required"`
	PermissionIDs *[]uint `json:"permission_ids" validate:"required"`
}

// SetPermissions replaces a role's permission set.
func (h *RoleHandler) SetPermissions(c *fiber.Ctx) error {
	var req setPermissionsRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	perms, err := h.roles.SetPermissions(c.UserContext(), req.RoleID, *req.PermissionIDs)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message":     "Permissions updated successfully",
		"permissions": perms,
	})
}
