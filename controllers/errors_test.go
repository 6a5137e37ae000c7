package controllers

import (
	"errors"
	"testing"

	"academias_go/services/billing"

	"github.com/gofiber/fiber/v2"
)

func TestBillingStatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{billing.ErrNotFound, fiber.StatusNotFound},
		{billing.ErrInvalidAmount, fiber.StatusBadRequest},
		{billing.ErrInvalidMethod, fiber.StatusBadRequest},
		{billing.ErrDuplicateInvoice, fiber.StatusConflict},
		{billing.ErrInvoiceHasPayments, fiber.StatusConflict},
		{billing.ErrAmountExceedsBalance, fiber.StatusConflict},
		{billing.ErrExceedsTotalDebt, fiber.StatusConflict},
		{billing.ErrRefundExceedsPaid, fiber.StatusConflict},
		{billing.ErrNothingOutstanding, fiber.StatusConflict},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tc := range tests {
		if got := billingStatus(tc.err); got != tc.want {
			t.Errorf("billingStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
