package handlers

import (
	"github.com/giftmoments/backend/internal/http/dto"
	"github.com/giftmoments/backend/internal/middleware"
	"github.com/giftmoments/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type QuoteHandler struct {
	commission *services.CommissionService
	limits     *services.LimitsService
	log        *zap.Logger
}

func NewQuoteHandler(commission *services.CommissionService, limits *services.LimitsService, log *zap.Logger) *QuoteHandler {
	return &QuoteHandler{commission: commission, limits: limits, log: log}
}

// GetQuote prices a prospective gift without moving anything.
func (h *QuoteHandler) GetQuote(c *fiber.Ctx) error {
	var req dto.QuoteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid amount"})
	}
	receiverID, err := uuid.Parse(req.ReceiverID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid receiver_id"})
	}
	if req.Currency == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "currency is required"})
	}

	quote, err := h.commission.CalculateSettlement(c.Context(), amount, req.Currency, req.DisplayCurrency, receiverID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: quote})
}

// CheckLimits evaluates the caller's limits for an attempted amount.
func (h *QuoteHandler) CheckLimits(c *fiber.Ctx) error {
	var req dto.LimitCheckRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid amount"})
	}
	if req.Currency == "" || req.Category == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "currency and category are required"})
	}

	decision, err := h.limits.CheckLimits(c.Context(), middleware.GetUserID(c), req.Category, req.Currency, amount)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: decision})
}
