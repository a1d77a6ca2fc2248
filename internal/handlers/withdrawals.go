package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/registry/internal/services"
)

// WithdrawalHandler exposes expense withdrawals.
type WithdrawalHandler struct {
	withdrawals *services.WithdrawalService
}

// NewWithdrawalHandler constructs a WithdrawalHandler.
func NewWithdrawalHandler(withdrawals *services.WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawals: withdrawals}
}

// Index lists every withdrawal.
func (h *WithdrawalHandler) Index(c *fiber.Ctx) error {
	rows, err := h.withdrawals.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(rows)
}

// Create records a withdrawal under a generated reference.
func (h *WithdrawalHandler) Create(c *fiber.Ctx) error {
	me, err := currentUser(c)
	if err != nil {
		return err
	}
	var in services.WithdrawalInput
	if err := parseBody(c, &in); err != nil {
		return err
	}

	w, err := h.withdrawals.Create(c.UserContext(), in, me.ID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(w)
}

// GetSingle returns one withdrawal.
func (h *WithdrawalHandler) GetSingle(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	w, err := h.withdrawals.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(w)
}

// Destroy deletes a withdrawal and echoes it back.
func (h *WithdrawalHandler) Destroy(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	w, err := h.withdrawals.Delete(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(w)
}

// History returns payments and withdrawals as one ledger.
func (h *WithdrawalHandler) History(c *fiber.Ctx) error {
	entries, err := h.withdrawals.History(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(entries)
}

// Balance returns collected payments minus withdrawals as a bare number.
func (h *WithdrawalHandler) Balance(c *fiber.Ctx) error {
	balance, err := h.withdrawals.Balance(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(balance)
}
