package handlers

import (
	"strconv"

	"github.com/giftmoments/backend/internal/config"
	"github.com/giftmoments/backend/internal/http/dto"
	"github.com/giftmoments/backend/internal/middleware"
	"github.com/giftmoments/backend/internal/repositories"
	"github.com/giftmoments/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EscrowHandler struct {
	escrows *services.EscrowService
	cfg     *config.Config
	log     *zap.Logger
}

func NewEscrowHandler(escrows *services.EscrowService, cfg *config.Config, log *zap.Logger) *EscrowHandler {
	return &EscrowHandler{escrows: escrows, cfg: cfg, log: log}
}

func (h *EscrowHandler) GetEscrow(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid escrow id"})
	}

	escrow, err := h.escrows.GetEscrow(c.Context(), id, middleware.GetUserID(c), middleware.IsAdmin(c, h.cfg))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: escrow})
}

func (h *EscrowHandler) ListEscrows(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	filter := repositories.EscrowFilter{Limit: 20}

	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}
	if v := c.Query("status"); v != "" {
		filter.Status = &v
	}

	switch c.Query("role") {
	case "recipient":
		filter.RecipientID = &userID
	default:
		filter.SenderID = &userID
	}

	escrows, err := h.escrows.ListEscrows(c.Context(), filter)
	if err != nil {
		h.log.Error("list escrows failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: escrows})
}

func (h *EscrowHandler) GetEscrowEvents(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid escrow id"})
	}

	limit, offset := 50, 0
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			offset = n
		}
	}

	events, err := h.escrows.GetEscrowEvents(c.Context(), id, middleware.GetUserID(c), middleware.IsAdmin(c, h.cfg), limit, offset)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: events})
}

// SubmitProof is the recipient's completion claim.
func (h *EscrowHandler) SubmitProof(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid escrow id"})
	}

	var req dto.SubmitProofRequest
	if err := c.BodyParser(&req); err != nil || req.ProofURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "proof_url is required"})
	}

	escrow, err := h.escrows.SubmitProof(c.Context(), id, middleware.GetUserID(c), req.ProofURL)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: escrow})
}

// RefundEscrow is the giver's reclaim path for an expired, unproven escrow.
func (h *EscrowHandler) RefundEscrow(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid escrow id"})
	}

	escrow, err := h.escrows.RefundEscrow(c.Context(), id, middleware.GetUserID(c), false)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: escrow})
}

func (h *EscrowHandler) GetMyBalance(c *fiber.Ctx) error {
	balances, err := h.escrows.GetUserBalances(c.Context(), middleware.GetUserID(c))
	if err != nil {
		h.log.Error("get balances failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: balances})
}
