package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/registry/internal/services"
	"github.com/example/registry/internal/utils"
)

// ForeignerHandler exposes foreigner registration and the application lifecycle.
type ForeignerHandler struct {
	foreigners   *services.ForeignerService
	applications *services.ApplicationService
}

// NewForeignerHandler constructs a ForeignerHandler.
func NewForeignerHandler(foreigners *services.ForeignerService, applications *services.ApplicationService) *ForeignerHandler {
	return &ForeignerHandler{foreigners: foreigners, applications: applications}
}

// Index returns a page of foreigners.
func (h *ForeignerHandler) Index(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	foreigners, total, err := h.foreigners.List(c.UserContext(), pg)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data":       foreigners,
		"pagination": pg.Meta(total),
	})
}

// Create registers or updates a foreigner with its documents.
func (h *ForeignerHandler) Create(c *fiber.Ctx) error {
	me, err := currentUser(c)
	if err != nil {
		return err
	}
	var in services.ForeignerInput
	if err := parseBody(c, &in); err != nil {
		return err
	}

	foreigner, err := h.foreigners.Save(c.UserContext(), in, me.ID)
	if err != nil {
		return err
	}

	message := "Foreigner created successfully"
	if in.ID != 0 {
		message = "Foreigner updated successfully"
	}
	return c.JSON(fiber.Map{
		"message":         message,
		"id":              foreigner.ID,
		"registration_id": foreigner.RegistrationID,
	})
}

// GetSingle returns one foreigner with its documents.
func (h *ForeignerHandler) GetSingle(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	foreigner, err := h.foreigners.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(foreigner)
}

type searchRequest struct {
	Search string `json:"search" validate:"required,max=100"`
}

// Search matches foreigners by registration id or full name.
func (h *ForeignerHandler) Search(c *fiber.Ctx) error {
	var req searchRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	foreigners, err := h.foreigners.Search(c.UserContext(), req.Search)
	if err != nil {
		return err
	}
	return c.JSON(foreigners)
}

// Sponsors returns the sponsor linked to a foreigner.
func (h *ForeignerHandler) Sponsors(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	sponsors, err := h.foreigners.Sponsors(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(sponsors)
}

// CreateApplication opens a document application for a foreigner.
func (h *ForeignerHandler) CreateApplication(c *fiber.Ctx) error {
	me, err := currentUser(c)
	if err != nil {
		return err
	}
	var in services.ApplicationInput
	if err := parseBody(c, &in); err != nil {
		return err
	}

	app, err := h.applications.Create(c.UserContext(), in, me.ID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(app)
}

// Applications lists every application, newest first.
func (h *ForeignerHandler) Applications(c *fiber.Ctx) error {
	apps, err := h.applications.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(apps)
}

type approveRequest struct {
	ID     uint   `json:"id" validate:"required"`
	Status string `json:"status" validate:"required,oneof=Approved Rejected"`
}

// ApproveApplication records a decision on an application.
func (h *ForeignerHandler) ApproveApplication(c *fiber.Ctx) error {
	me, err := currentUser(c)
	if err != nil {
		return err
	}
	var req approveRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	app, err := h.applications.Approve(c.UserContext(), req.ID, req.Status, me.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message":     "Application " + app.Status + " successfully",
		"application": app,
	})
}

type payRequest struct {
	ID          uint                  `json:"id" validate:"required"`
	PaymentInfo services.PaymentInput `json:"payment_info"`
}

// PayApplication records the payment of an application.
func (h *ForeignerHandler) PayApplication(c *fiber.Ctx) error {
	me, err := currentUser(c)
	if err != nil {
		return err
	}
	var req payRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	payment, err := h.applications.Pay(c.UserContext(), req.ID, req.PaymentInfo, me.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Application paid successfully",
		"payment": payment,
	})
}

// Profile returns one application with its foreigner, documents, payment and history.
func (h *ForeignerHandler) Profile(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	app, err := h.applications.Profile(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(app)
}

// ApplicationHistory returns the status trail of one application.
func (h *ForeignerHandler) ApplicationHistory(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	history, err := h.applications.History(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(history)
}
