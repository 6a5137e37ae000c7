package controllers

import (
	"errors"

	"academias_go/services/billing"

	"github.com/gofiber/fiber/v2"
)

// billingStatus maps billing sentinel errors onto HTTP status codes. State
// conflicts block the attempted mutation with a specific reason; anything
// unrecognized is a storage failure.
func billingStatus(err error) int {
	switch {
	case errors.Is(err, billing.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, billing.ErrInvalidAmount),
		errors.Is(err, billing.ErrInvalidMethod):
		return fiber.StatusBadRequest
	case errors.Is(err, billing.ErrDuplicateInvoice),
		errors.Is(err, billing.ErrInvoiceHasPayments),
		errors.Is(err, billing.ErrAmountExceedsBalance),
		errors.Is(err, billing.ErrExceedsTotalDebt),
		errors.Is(err, billing.ErrRefundExceedsPaid),
		errors.Is(err, billing.ErrNothingOutstanding):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func billingError(c *fiber.Ctx, err error) error {
	return c.Status(billingStatus(err)).JSON(fiber.Map{"error": err.Error()})
}
