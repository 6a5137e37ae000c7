package controllers

import (
	"strconv"

	"academias_go/database"
	"academias_go/middleware"
	"academias_go/models"
	"academias_go/services/billing"
	"academias_go/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type InvoiceController struct{}

type CreateInvoiceRequest struct {
	StudentID    uint            `json:"student_id" validate:"required"`
	SemesterID   uint            `json:"semester_id" validate:"required"`
	DiscountCode string          `json:"discount_code"`
	Discount     decimal.Decimal `json:"discount"`
	DiscountNote string          `json:"discount_note"`
	Extras       []ExtraRequest  `json:"extras"`
}

type ExtraRequest struct {
	Description string          `json:"description" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
}

// invoiceService builds a lifecycle service priced from the semester's
// academy list.
func invoiceService(semesterID uint) (*billing.InvoiceService, error) {
	resolver, err := billing.ResolverForSemester(database.DB, semesterID)
	if err != nil {
		return nil, err
	}
	return billing.NewInvoiceService(database.DB, resolver), nil
}

// GetInvoices lists invoices for a semester in compact form.
func (ic *InvoiceController) GetInvoices(c *fiber.Ctx) error {
	query := database.DB.Model(&models.Invoice{}).
		Preload("Student").Preload("Items").Preload("Payments")

	if semesterID := c.Query("semester_id"); semesterID != "" {
		query = query.Where("semester_id = ?", semesterID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var invoices []models.Invoice
	if err := query.Order("id DESC").Find(&invoices).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch invoices",
		})
	}

	return c.JSON(fiber.Map{
		"invoices": utils.ToInvoiceSummaries(invoices),
	})
}

// GetInvoice returns one invoice with items and payments
func (ic *InvoiceController) GetInvoice(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid invoice ID",
		})
	}

	svc := billing.NewInvoiceService(database.DB, billing.NewResolver(nil))
	invoice, err := svc.Invoice(uint(id))
	if err != nil {
		return billingError(c, err)
	}

	return c.JSON(fiber.Map{
		"invoice": invoice,
	})
}

// GetStudentInvoice returns the invoice for a student and semester.
func (ic *InvoiceController) GetStudentInvoice(c *fiber.Ctx) error {
	studentID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid student ID",
		})
	}
	semesterID, err := strconv.ParseUint(c.Query("semester_id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "semester_id is required",
		})
	}

	svc := billing.NewInvoiceService(database.DB, billing.NewResolver(nil))
	invoice, err := svc.StudentInvoice(uint(studentID), uint(semesterID))
	if err != nil {
		return billingError(c, err)
	}

	return c.JSON(fiber.Map{
		"invoice": invoice,
	})
}

// CreateInvoice creates the invoice for a student's active enrollments,
// with an optional discount code or direct discount and extra charges.
func (ic *InvoiceController) CreateInvoice(c *fiber.Ctx) error {
	var req CreateInvoiceRequest
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

	svc, err := invoiceService(req.SemesterID)
	if err != nil {
		return billingError(c, err)
	}

	input := billing.InvoiceInput{
		StudentID:     req.StudentID,
		SemesterID:    req.SemesterID,
		DiscountCode:  req.DiscountCode,
		DiscountMinor: billing.ToMinor(req.Discount),
		DiscountNote:  req.DiscountNote,
	}
	for _, extra := range req.Extras {
		input.Extras = append(input.Extras, billing.ExtraCharge{
			Description: extra.Description,
			AmountMinor: billing.ToMinor(extra.Amount),
		})
	}

	invoice, err := svc.CreateInvoice(input)
	if err != nil {
		return billingError(c, err)
	}

	middleware.LogActivity(c, "CREATE", "invoices", invoice.ID, req)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Invoice created successfully",
		"invoice": invoice,
	})
}

// RefreshInvoice recomputes an invoice from current enrollments. Payments
// and recorded discounts survive the refresh.
func (ic *InvoiceController) RefreshInvoice(c *fiber.Ctx) error {
	studentID, err := strconv.ParseUint(c.Query("student_id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "student_id is required",
		})
	}
	semesterID, err := strconv.ParseUint(c.Query("semester_id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "semester_id is required",
		})
	}

	svc, err := invoiceService(uint(semesterID))
	if err != nil {
		return billingError(c, err)
	}

	invoice, err := svc.RefreshInvoice(uint(studentID), uint(semesterID))
	if err != nil {
		return billingError(c, err)
	}

	middleware.LogActivity(c, "UPDATE", "invoices", invoice.ID, nil)

	return c.JSON(fiber.Map{
		"message": "Invoice refreshed",
		"invoice": invoice,
	})
}

// DeleteInvoice removes an unpaid invoice and its items.
func (ic *InvoiceController) DeleteInvoice(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid invoice ID",
		})
	}

	svc := billing.NewInvoiceService(database.DB, billing.NewResolver(nil))
	if err := svc.DeleteInvoice(uint(id)); err != nil {
		return billingError(c, err)
	}

	middleware.LogActivity(c, "DELETE", "invoices", uint(id), nil)

	return c.JSON(fiber.Map{
		"message": "Invoice deleted successfully",
	})
}

// GetOutstanding summarizes open balances for a semester, counting only the
// latest invoice per student.
func (ic *InvoiceController) GetOutstanding(c *fiber.Ctx) error {
	semesterID, err := strconv.ParseUint(c.Query("semester_id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "semester_id is required",
		})
	}

	svc := billing.NewInvoiceService(database.DB, billing.NewResolver(nil))
	balances, total, err := svc.OutstandingBalances(uint(semesterID))
	if err != nil {
		return billingError(c, err)
	}

	return c.JSON(fiber.Map{
		"balances":          balances,
		"total_outstanding": total,
		"students_owing":    len(balances),
	})
}
