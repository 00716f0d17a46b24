package handlers

import (
	"github.com/giftmoments/backend/internal/http/dto"
	"github.com/giftmoments/backend/internal/middleware"
	"github.com/giftmoments/backend/internal/repositories"
	"github.com/giftmoments/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type AdminHandler struct {
	escrows  *services.EscrowService
	disputes *services.DisputeService
	sweep    *services.SweepService
	rateRepo *repositories.RateRepo
	log      *zap.Logger
}

func NewAdminHandler(
	escrows *services.EscrowService,
	disputes *services.DisputeService,
	sweep *services.SweepService,
	rateRepo *repositories.RateRepo,
	log *zap.Logger,
) *AdminHandler {
	return &AdminHandler{escrows: escrows, disputes: disputes, sweep: sweep, rateRepo: rateRepo, log: log}
}

// VerifyProof marks a submitted proof as verified, starting the auto-release
// clock without paying out yet.
func (h *AdminHandler) VerifyProof(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid escrow id"})
	}

	escrow, err := h.escrows.VerifyProof(c.Context(), id, middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: escrow})
}

// VerifyAndRelease verifies and pays out immediately.
func (h *AdminHandler) VerifyAndRelease(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid escrow id"})
	}

	escrow, err := h.escrows.VerifyProofAndRelease(c.Context(), id, middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: escrow})
}

// ForceRefund returns a pending escrow to the giver regardless of expiry.
func (h *AdminHandler) ForceRefund(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid escrow id"})
	}

	escrow, err := h.escrows.RefundEscrow(c.Context(), id, middleware.GetUserID(c), true)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: escrow})
}

func (h *AdminHandler) ResolveDispute(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid dispute id"})
	}

	var req dto.ResolveDisputeRequest
	if err := c.BodyParser(&req); err != nil || req.Resolution == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "resolution is required"})
	}

	in := services.ResolveDisputeInput{
		DisputeID:  id,
		AdminID:    middleware.GetUserID(c),
		Resolution: req.Resolution,
		Note:       req.Note,
	}
	if req.RefundAmount != nil {
		amount, err := decimal.NewFromString(*req.RefundAmount)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid refund_amount"})
		}
		in.RefundAmount = &amount
	}

	dispute, err := h.disputes.ResolveDispute(c.Context(), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dispute})
}

// RunSweep triggers one sweep cycle on demand, same passes as the worker.
func (h *AdminHandler) RunSweep(c *fiber.Ctx) error {
	report := h.sweep.RunAll(c.Context())
	return c.JSON(dto.SuccessResponse{OK: true, Data: report})
}

// UpsertRate feeds a fresh exchange rate, clearing any stale flag.
func (h *AdminHandler) UpsertRate(c *fiber.Ctx) error {
	var req dto.UpsertRateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}
	if req.FromCurrency == "" || req.ToCurrency == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "from_currency and to_currency are required"})
	}
	rate, err := decimal.NewFromString(req.Rate)
	if err != nil || !rate.IsPositive() {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid rate"})
	}

	if err := h.rateRepo.Upsert(c.Context(), req.FromCurrency, req.ToCurrency, rate); err != nil {
		h.log.Error("rate upsert failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}
