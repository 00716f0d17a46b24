package handlers

import (
	"errors"

	"github.com/giftmoments/backend/internal/http/dto"
	"github.com/giftmoments/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// respondError maps service sentinels onto HTTP statuses and stable codes.
// Anything unmapped is an internal error and never leaks its message.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	status, code := classify(err)
	if status == fiber.StatusInternalServerError {
		log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(status).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.Status(status).JSON(dto.ErrorResponse{Error: err.Error(), Code: code})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return fiber.StatusNotFound, "not_found"

	case errors.Is(err, services.ErrNotParty),
		errors.Is(err, services.ErrNotCounterparty),
		errors.Is(err, services.ErrNotRecipient):
		return fiber.StatusForbidden, "forbidden"

	case errors.Is(err, services.ErrInsufficientBalance):
		return fiber.StatusPaymentRequired, "insufficient_balance"

	case errors.Is(err, services.ErrAlreadyReleased),
		errors.Is(err, services.ErrAlreadyRefunded),
		errors.Is(err, services.ErrEscrowNotPending),
		errors.Is(err, services.ErrEscrowNotDisputed),
		errors.Is(err, services.ErrProofAlreadySubmitted),
		errors.Is(err, services.ErrNoProofSubmitted),
		errors.Is(err, services.ErrExpiryNotReached),
		errors.Is(err, services.ErrReleasesOnTimer),
		errors.Is(err, services.ErrActiveDisputeExists),
		errors.Is(err, services.ErrDisputeNotOpen),
		errors.Is(err, services.ErrDisputeResolved):
		return fiber.StatusConflict, "state_conflict"

	case errors.Is(err, services.ErrRateStale):
		return fiber.StatusServiceUnavailable, "rate_stale"

	case errors.Is(err, services.ErrUnknownCurrency),
		errors.Is(err, services.ErrMomentNotActive),
		errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrInvalidReason),
		errors.Is(err, services.ErrSelfGift),
		errors.Is(err, services.ErrProofUnreachable),
		errors.Is(err, services.ErrRefundExceedsAmount):
		return fiber.StatusBadRequest, "validation"
	}
	return fiber.StatusInternalServerError, ""
}
