package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/registry/internal/services"
	"github.com/example/registry/internal/utils"
)

// UserHandler exposes operator account management.
type UserHandler struct {
	users *services.UserService
	roles *services.RoleService
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(users *services.UserService, roles *services.RoleService) *UserHandler {
	return &UserHandler{users: users, roles: roles}
}

// Index returns a page of users.
func (h *UserHandler) Index(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	users, total, err := h.users.List(c.UserContext(), c.Query("search"), pg)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data":       users,
		"pagination": pg.Meta(total),
	})
}

// Create inserts or updates a user and its roles.
func (h *UserHandler) Create(c *fiber.Ctx) error {
	var in services.UserInput
	if err := parseBody(c, &in); err != nil {
		return err
	}

	user, err := h.users.Save(c.UserContext(), in)
	if err != nil {
		return err
	}

	status := fiber.StatusCreated
	message := "User created successfully"
	if in.ID != 0 {
		status = fiber.StatusOK
		message = "User updated successfully"
	}
	return c.Status(status).JSON(fiber.Map{"message": message, "user": user})
}

// GetSingle returns one user.
func (h *UserHandler) GetSingle(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	user, err := h.users.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(user)
}

// Destroy deletes a user.
func (h *UserHandler) Destroy(c *fiber.Ctx) error {
	me, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.users.Delete(c.UserContext(), id, me.ID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "User deleted successfully"})
}

// Roles lists the roles that can be assigned.
func (h *UserHandler) Roles(c *fiber.Ctx) error {
	roles, err := h.roles.EnabledRoles(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(roles)
}
