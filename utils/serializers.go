package utils

import (
	"time"

	"academias_go/models"

	"github.com/shopspring/decimal"
)

// Compact representations used across APIs
type StudentShort struct {
	ID        uint   `json:"id"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
}

type PaymentDTO struct {
	ID              uint            `json:"id"`
	Amount          decimal.Decimal `json:"amount"`
	Method          string          `json:"method"`
	ReceiptNumber   string          `json:"receipt_number,omitempty"`
	TransactionDate time.Time       `json:"transaction_date"`
}

type InvoiceSummaryDTO struct {
	ID             uint            `json:"id"`
	CreatedAt      time.Time       `json:"created_at"`
	SemesterID     uint            `json:"semester_id"`
	Student        StudentShort    `json:"student"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Total          decimal.Decimal `json:"total"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	Balance        decimal.Decimal `json:"balance"`
	Status         string          `json:"status"`
	ItemCount      int             `json:"item_count"`
	Payments       []PaymentDTO    `json:"payments,omitempty"`
}

// ToInvoiceSummary maps an invoice to the compact DTO.
// Assumptions: caller has preloaded Student, Items and Payments when possible.
func ToInvoiceSummary(inv models.Invoice) InvoiceSummaryDTO {
	dto := InvoiceSummaryDTO{
		ID:             inv.ID,
		CreatedAt:      inv.CreatedAt,
		SemesterID:     inv.SemesterID,
		Subtotal:       inv.Subtotal,
		DiscountAmount: inv.DiscountAmount,
		Total:          inv.Total,
		PaidAmount:     inv.PaidAmount,
		Balance:        inv.Balance,
		Status:         inv.Status,
		ItemCount:      len(inv.Items),
		Student: StudentShort{
			ID:        inv.StudentID,
			FirstName: inv.Student.FirstName,
			LastName:  inv.Student.LastName,
			Email:     inv.Student.Email,
		},
	}
	for _, p := range inv.Payments {
		dto.Payments = append(dto.Payments, PaymentDTO{
			ID:              p.ID,
			Amount:          p.Amount,
			Method:          p.Method,
			ReceiptNumber:   p.ReceiptNumber,
			TransactionDate: p.TransactionDate,
		})
	}
	return dto
}

// ToInvoiceSummaries maps a slice of invoices
func ToInvoiceSummaries(invoices []models.Invoice) []InvoiceSummaryDTO {
	out := make([]InvoiceSummaryDTO, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, ToInvoiceSummary(inv))
	}
	return out
}
