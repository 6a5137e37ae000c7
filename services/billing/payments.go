package billing

import (
	"errors"
	"time"

	"academias_go/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ReceiptNotifier is told when an invoice becomes fully paid. Delivery is
// best-effort and must never fail the payment: implementations queue the work
// and swallow their own errors.
type ReceiptNotifier interface {
	InvoicePaid(invoice *models.Invoice, payment *models.Payment)
}

// PaymentService applies payments to invoices: single invoice, split across
// all open invoices, refunds and reversals. Every mutation of paid/balance
// happens inside a transaction with the invoice row locked.
type PaymentService struct {
	db       *gorm.DB
	notifier ReceiptNotifier
}

func NewPaymentService(db *gorm.DB, notifier ReceiptNotifier) *PaymentService {
	return &PaymentService{db: db, notifier: notifier}
}

// ApplyToInvoice applies a payment to one invoice. The amount may not exceed
// the invoice balance. Reaching fully paid queues a receipt after the
// transaction commits; receipt failure never rolls the payment back.
func (s *PaymentService) ApplyToInvoice(invoiceID uint, amountMinor int64, method, notes string) (*models.Payment, error) {
	if amountMinor <= 0 {
		return nil, ErrInvalidAmount
	}
	if method == "" {
		return nil, ErrInvalidMethod
	}

	var payment models.Payment
	var invoice models.Invoice
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := lockInvoice(tx, invoiceID, &invoice); err != nil {
			return err
		}
		total := ToMinor(invoice.Total)
		paid := ToMinor(invoice.PaidAmount)
		if amountMinor > BalanceOf(total, paid) {
			return ErrAmountExceedsBalance
		}

		payment = models.Payment{
			InvoiceID:       invoice.ID,
			StudentID:       invoice.StudentID,
			Amount:          ToMajor(amountMinor),
			Method:          method,
			Notes:           notes,
			ReceiptNumber:   uuid.NewString(),
			TransactionDate: time.Now(),
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		return applyPaidDelta(tx, &invoice, amountMinor)
	})
	if err != nil {
		return nil, err
	}

	if invoice.Status == models.InvoiceStatusPaid && s.notifier != nil {
		s.notifier.InvoicePaid(&invoice, &payment)
	}
	return &payment, nil
}

// ApplyToOpenInvoices splits a payment across all of the student's open
// invoices, oldest first, proportionally to each invoice's share of the total
// outstanding debt. Allocations sum exactly to the input amount and none
// exceeds its own invoice balance.
func (s *PaymentService) ApplyToOpenInvoices(studentID uint, amountMinor int64, method, notes string) ([]models.Payment, error) {
	if amountMinor <= 0 {
		return nil, ErrInvalidAmount
	}
	if method == "" {
		return nil, ErrInvalidMethod
	}

	var payments []models.Payment
	var settled []models.Invoice
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var invoices []models.Invoice
		if err := lockForUpdate(tx).
			Where("student_id = ? AND balance > 0", studentID).
			Where("status IN ?", []string{models.InvoiceStatusUnpaid, models.InvoiceStatusPartial}).
			Order("created_at ASC, id ASC").
			Find(&invoices).Error; err != nil {
			return err
		}
		if len(invoices) == 0 {
			return ErrNothingOutstanding
		}

		balances := make([]int64, len(invoices))
		var debt int64
		for i, inv := range invoices {
			balances[i] = ToMinor(inv.Balance)
			debt += balances[i]
		}
		if amountMinor > debt {
			return ErrExceedsTotalDebt
		}

		allocations := Allocate(amountMinor, balances)
		for i := range invoices {
			if allocations[i] == 0 {
				continue
			}
			payment := models.Payment{
				InvoiceID:       invoices[i].ID,
				StudentID:       invoices[i].StudentID,
				Amount:          ToMajor(allocations[i]),
				Method:          method,
				Notes:           notes,
				ReceiptNumber:   uuid.NewString(),
				TransactionDate: time.Now(),
			}
			if err := tx.Create(&payment).Error; err != nil {
				return err
			}
			if err := applyPaidDelta(tx, &invoices[i], allocations[i]); err != nil {
				return err
			}
			payments = append(payments, payment)
			if invoices[i].Status == models.InvoiceStatusPaid {
				settled = append(settled, invoices[i])
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		for i := range settled {
			s.notifier.InvoicePaid(&settled[i], nil)
		}
	}
	return payments, nil
}

// Refund records a negated-amount payment and decreases the cumulative paid
// amount. Refunding more than was paid fails with ErrRefundExceedsPaid. The
// status may walk back paid -> partial -> unpaid.
func (s *PaymentService) Refund(invoiceID uint, amountMinor int64, notes string) (*models.Payment, error) {
	if amountMinor <= 0 {
		return nil, ErrInvalidAmount
	}

	var payment models.Payment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var invoice models.Invoice
		if err := lockInvoice(tx, invoiceID, &invoice); err != nil {
			return err
		}
		if amountMinor > ToMinor(invoice.PaidAmount) {
			return ErrRefundExceedsPaid
		}

		payment = models.Payment{
			InvoiceID:       invoice.ID,
			StudentID:       invoice.StudentID,
			Amount:          ToMajor(-amountMinor),
			Method:          "refund",
			Notes:           notes,
			ReceiptNumber:   uuid.NewString(),
			TransactionDate: time.Now(),
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		return applyPaidDelta(tx, &invoice, -amountMinor)
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// DeletePayment reverses a payment: the invoice's paid amount is decreased
// (floored at zero), balance and status recomputed, and the payment row
// removed - all in one transaction.
func (s *PaymentService) DeletePayment(paymentID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var payment models.Payment
		err := tx.First(&payment, paymentID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var invoice models.Invoice
		if err := lockInvoice(tx, payment.InvoiceID, &invoice); err != nil {
			return err
		}

		paid := ToMinor(invoice.PaidAmount) - ToMinor(payment.Amount)
		if paid < 0 {
			logrus.WithFields(logrus.Fields{
				"invoice_id": invoice.ID,
				"payment_id": payment.ID,
			}).Warn("Payment reversal drove paid amount below zero, clamping")
			paid = 0
		}
		if err := setPaid(tx, &invoice, paid); err != nil {
			return err
		}
		return tx.Delete(&payment).Error
	})
}

// Allocate distributes an amount across invoice balances proportionally to
// each balance's share of the total debt. Integer division truncates, so the
// rounding remainder is absorbed from the last invoice backwards, capped at
// each invoice's balance. The returned allocations sum exactly to amount.
func Allocate(amount int64, balances []int64) []int64 {
	allocations := make([]int64, len(balances))
	var debt int64
	for _, b := range balances {
		debt += b
	}
	if debt == 0 || amount <= 0 {
		return allocations
	}

	var allocated int64
	for i, b := range balances {
		allocations[i] = amount * b / debt
		allocated += allocations[i]
	}

	remainder := amount - allocated
	for i := len(balances) - 1; i >= 0 && remainder > 0; i-- {
		room := balances[i] - allocations[i]
		if room > remainder {
			room = remainder
		}
		allocations[i] += room
		remainder -= room
	}
	return allocations
}

func lockInvoice(tx *gorm.DB, invoiceID uint, invoice *models.Invoice) error {
	err := lockForUpdate(tx).First(invoice, invoiceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// applyPaidDelta moves the invoice's cumulative paid amount and recomputes
// balance and status against the unchanged total.
func applyPaidDelta(tx *gorm.DB, invoice *models.Invoice, deltaMinor int64) error {
	return setPaid(tx, invoice, ToMinor(invoice.PaidAmount)+deltaMinor)
}

func setPaid(tx *gorm.DB, invoice *models.Invoice, paidMinor int64) error {
	if paidMinor < 0 {
		paidMinor = 0
	}
	total := ToMinor(invoice.Total)
	exonerated := invoice.Status == models.InvoiceStatusExonerated

	invoice.PaidAmount = ToMajor(paidMinor)
	invoice.Balance = ToMajor(BalanceOf(total, paidMinor))
	invoice.Status = DeriveStatus(total, paidMinor, exonerated)
	return tx.Model(invoice).Updates(map[string]interface{}{
		"paid_amount": invoice.PaidAmount,
		"balance":     invoice.Balance,
		"status":      invoice.Status,
	}).Error
}
