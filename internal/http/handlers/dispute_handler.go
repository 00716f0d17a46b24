package handlers

import (
	"github.com/giftmoments/backend/internal/config"
	"github.com/giftmoments/backend/internal/http/dto"
	"github.com/giftmoments/backend/internal/middleware"
	"github.com/giftmoments/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type DisputeHandler struct {
	disputes *services.DisputeService
	cfg      *config.Config
	log      *zap.Logger
}

func NewDisputeHandler(disputes *services.DisputeService, cfg *config.Config, log *zap.Logger) *DisputeHandler {
	return &DisputeHandler{disputes: disputes, cfg: cfg, log: log}
}

func (h *DisputeHandler) OpenDispute(c *fiber.Ctx) error {
	escrowID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid escrow id"})
	}

	var req dto.OpenDisputeRequest
	if err := c.BodyParser(&req); err != nil || req.Description == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "description is required"})
	}

	dispute, err := h.disputes.OpenDispute(c.Context(), services.OpenDisputeInput{
		EscrowID:    escrowID,
		OpenerID:    middleware.GetUserID(c),
		Reason:      req.Reason,
		Description: req.Description,
		Evidence:    req.Evidence,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: dispute})
}

func (h *DisputeHandler) GetDispute(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid dispute id"})
	}

	dispute, err := h.disputes.GetDispute(c.Context(), id, middleware.GetUserID(c), middleware.IsAdmin(c, h.cfg))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dispute})
}

func (h *DisputeHandler) RespondToDispute(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid dispute id"})
	}

	var req dto.RespondDisputeRequest
	if err := c.BodyParser(&req); err != nil || req.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "text is required"})
	}

	dispute, err := h.disputes.RespondToDispute(c.Context(), id, middleware.GetUserID(c), req.Text, req.Evidence)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dispute})
}

func (h *DisputeHandler) CancelDispute(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid dispute id"})
	}

	dispute, err := h.disputes.CancelDispute(c.Context(), id, middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dispute})
}
