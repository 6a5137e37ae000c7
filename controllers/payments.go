package controllers

import (
	"strconv"

	"academias_go/database"
	"academias_go/middleware"
	"academias_go/services/billing"
	"academias_go/services/receipts"
	"academias_go/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type PaymentController struct{}

type PaymentRequest struct {
	InvoiceID uint            `json:"invoice_id" validate:"required"`
	Amount    decimal.Decimal `json:"amount" validate:"required"`
	Method    string          `json:"method" validate:"required"`
	Notes     string          `json:"notes"`
}

type BulkPaymentRequest struct {
	StudentID uint            `json:"student_id" validate:"required"`
	Amount    decimal.Decimal `json:"amount" validate:"required"`
	Method    string          `json:"method" validate:"required"`
	Notes     string          `json:"notes"`
}

type RefundRequest struct {
	InvoiceID uint            `json:"invoice_id" validate:"required"`
	Amount    decimal.Decimal `json:"amount" validate:"required"`
	Notes     string          `json:"notes"`
}

func paymentService() *billing.PaymentService {
	return billing.NewPaymentService(database.DB, receipts.NewService())
}

// CreatePayment applies a payment to a single invoice. The amount may not
// exceed the invoice balance.
func (pc *PaymentController) CreatePayment(c *fiber.Ctx) error {
	var req PaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if !utils.IsValidPaymentMethod(req.Method) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid payment method",
		})
	}

	payment, err := paymentService().ApplyToInvoice(
		req.InvoiceID, billing.ToMinor(req.Amount), req.Method, req.Notes)
	if err != nil {
		return billingError(c, err)
	}

	middleware.LogActivity(c, "CREATE", "payments", payment.ID, req)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Payment recorded successfully",
		"payment": payment,
	})
}

// CreateBulkPayment applies one amount across all of a student's open
// invoices, oldest first, allocating proportionally to their balances.
func (pc *PaymentController) CreateBulkPayment(c *fiber.Ctx) error {
	var req BulkPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if !utils.IsValidPaymentMethod(req.Method) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid payment method",
		})
	}

	payments, err := paymentService().ApplyToOpenInvoices(
		req.StudentID, billing.ToMinor(req.Amount), req.Method, req.Notes)
	if err != nil {
		return billingError(c, err)
	}

	middleware.LogActivity(c, "CREATE", "payments", req.StudentID, req)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "Payment allocated successfully",
		"payments": payments,
	})
}

// CreateRefund records a refund as a negative payment on the invoice.
func (pc *PaymentController) CreateRefund(c *fiber.Ctx) error {
	var req RefundRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	refund, err := paymentService().Refund(
		req.InvoiceID, billing.ToMinor(req.Amount), req.Notes)
	if err != nil {
		return billingError(c, err)
	}

	middleware.LogActivity(c, "CREATE", "refunds", refund.ID, req)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Refund recorded successfully",
		"payment": refund,
	})
}

// DeletePayment removes a mistaken payment entry and rolls its amount back
// out of the invoice.
func (pc *PaymentController) DeletePayment(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid payment ID",
		})
	}

	if err := paymentService().DeletePayment(uint(id)); err != nil {
		return billingError(c, err)
	}

	middleware.LogActivity(c, "DELETE", "payments", uint(id), nil)

	return c.JSON(fiber.Map{
		"message": "Payment deleted successfully",
	})
}

// PreviewDiscount resolves a discount code against a subtotal without
// touching any invoice.
func (pc *PaymentController) PreviewDiscount(c *fiber.Ctx) error {
	code := c.Query("code")
	subtotal, err := decimal.NewFromString(c.Query("subtotal", "0"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid subtotal",
		})
	}

	discount, ok := billing.LookupDiscount(code)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Unknown discount code",
		})
	}

	subtotalMinor := billing.ToMinor(subtotal)
	amountMinor := discount.AmountFor(subtotalMinor)

	return c.JSON(fiber.Map{
		"code":     discount.Code,
		"note":     discount.Note,
		"discount": billing.ToMajor(amountMinor),
		"total":    billing.ToMajor(subtotalMinor - amountMinor),
	})
}
