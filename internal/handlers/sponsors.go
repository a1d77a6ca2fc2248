package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/registry/internal/services"
)

// SponsorHandler exposes sponsor management.
type SponsorHandler struct {
	sponsors *services.SponsorService
}

// NewSponsorHandler constructs a SponsorHandler.
func NewSponsorHandler(sponsors *services.SponsorService) *SponsorHandler {
	return &SponsorHandler{sponsors: sponsors}
}

// Index lists sponsors with how many foreigners each sponsors.
func (h *SponsorHandler) Index(c *fiber.Ctx) error {
	sponsors, err := h.sponsors.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(sponsors)
}

// Create inserts or updates a sponsor with its documents.
func (h *SponsorHandler) Create(c *fiber.Ctx) error {
	var in services.SponsorInput
	if err := parseBody(c, &in); err != nil {
		return err
	}

	sponsor, err := h.sponsors.Save(c.UserContext(), in)
	if err != nil {
		return err
	}

	message := "Sponsor created successfully"
	if in.ID != 0 {
		message = "Sponsor updated successfully"
	}
	return c.JSON(fiber.Map{"message": message, "id": sponsor.ID})
}

// GetSingle returns one sponsor with its documents.
func (h *SponsorHandler) GetSingle(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	sponsor, err := h.sponsors.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(sponsor)
}

type sponsorStatusRequest struct {
	ID     uint   `json:"id" validate:"required"`
	Status string `json:"status" validate:"required,max=50"`
}

// UpdateStatus changes a sponsor's status.
func (h *SponsorHandler) UpdateStatus(c *fiber.Ctx) error {
	var req sponsorStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.sponsors.UpdateStatus(c.UserContext(), req.ID, req.Status); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Sponsor status updated successfully"})
}

// Destroy deletes a sponsor that no foreigner references.
func (h *SponsorHandler) Destroy(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.sponsors.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Sponsor deleted successfully"})
}
