package handlers

import (
	"strconv"

	"github.com/giftmoments/backend/internal/http/dto"
	"github.com/giftmoments/backend/internal/middleware"
	"github.com/giftmoments/backend/internal/repositories"
	"github.com/giftmoments/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type GiftHandler struct {
	escrows *services.EscrowService
	limits  *services.LimitsService
	log     *zap.Logger
}

func NewGiftHandler(escrows *services.EscrowService, limits *services.LimitsService, log *zap.Logger) *GiftHandler {
	return &GiftHandler{escrows: escrows, limits: limits, log: log}
}

// CreateGift checks limits and opens the escrow in one call. The idempotency
// key makes retries safe.
func (h *GiftHandler) CreateGift(c *fiber.Ctx) error {
	var req dto.CreateGiftRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	receiverID, err := uuid.Parse(req.ReceiverID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid receiver_id"})
	}
	momentID, err := uuid.Parse(req.MomentID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid moment_id"})
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid amount"})
	}
	if req.Currency == "" || req.Category == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "currency and category are required"})
	}

	giverID := middleware.GetUserID(c)

	decision, err := h.limits.CheckLimits(c.Context(), giverID, req.Category, req.Currency, amount)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if !decision.Allowed {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: "transaction limit exceeded",
			Code:  decision.BlockReason,
		})
	}

	in := services.OpenEscrowInput{
		GiverID:       giverID,
		ReceiverID:    receiverID,
		MomentID:      momentID,
		Category:      req.Category,
		Amount:        amount,
		Currency:      req.Currency,
		RequiresProof: req.RequiresProof == nil || *req.RequiresProof,
	}
	if req.IdempotencyKey != "" {
		in.IdempotencyKey = &req.IdempotencyKey
	}

	result, err := h.escrows.OpenEscrow(c.Context(), in)
	if err != nil {
		return respondError(c, h.log, err)
	}

	status := fiber.StatusCreated
	if result.Replayed {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(dto.OpenGiftResponse{
		OK:       true,
		Replayed: result.Replayed,
		Gift:     result.Gift,
		Escrow:   result.Escrow,
		Ledger:   result.Ledger,
	})
}

func (h *GiftHandler) GetGift(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid gift id"})
	}

	gift, err := h.escrows.GetGift(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "gift not found"})
	}
	userID := middleware.GetUserID(c)
	if gift.GiverID != userID && gift.ReceiverID != userID {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Error: "forbidden", Code: "forbidden"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: gift})
}

func (h *GiftHandler) ListGifts(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	filter := repositories.GiftFilter{Limit: 20}

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
	case "receiver":
		filter.ReceiverID = &userID
	default:
		filter.GiverID = &userID
	}

	gifts, err := h.escrows.ListGifts(c.Context(), filter)
	if err != nil {
		h.log.Error("list gifts failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: gifts})
}
