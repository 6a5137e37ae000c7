package billing

import "errors"

// Sentinel errors returned by the invoice and payment services. Controllers
// map these onto HTTP status codes; anything else is a storage failure.
var (
	// ErrNotFound is returned when a referenced invoice, payment or student
	// does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateInvoice is returned when an invoice already exists for the
	// student and semester. One invoice per student per semester.
	ErrDuplicateInvoice = errors.New("invoice already exists for this student and semester")

	// ErrInvoiceHasPayments blocks deletion of an invoice with recorded
	// payments. Payments must be reversed first.
	ErrInvoiceHasPayments = errors.New("invoice has recorded payments")

	// ErrInvalidAmount is returned for zero or negative payment amounts.
	ErrInvalidAmount = errors.New("amount must be greater than zero")

	// ErrInvalidMethod is returned when a payment carries no method.
	ErrInvalidMethod = errors.New("payment method is required")

	// ErrAmountExceedsBalance is returned when a single-invoice payment is
	// larger than the invoice balance.
	ErrAmountExceedsBalance = errors.New("payment amount exceeds invoice balance")

	// ErrExceedsTotalDebt is returned when an apply-to-all payment is larger
	// than the summed balances of the student's open invoices.
	ErrExceedsTotalDebt = errors.New("payment amount exceeds total outstanding debt")

	// ErrRefundExceedsPaid is returned when a refund is larger than the
	// cumulative amount paid on the invoice.
	ErrRefundExceedsPaid = errors.New("refund amount exceeds amount paid")

	// ErrNothingOutstanding is returned when an apply-to-all payment finds no
	// open invoice with a positive balance.
	ErrNothingOutstanding = errors.New("no open invoices with outstanding balance")
)
