package billing

import (
	"sync"
	"testing"

	"academias_go/models"

	"github.com/stretchr/testify/require"
)

func TestAllocate(t *testing.T) {
	tests := []struct {
		name     string
		amount   int64
		balances []int64
		want     []int64
	}{
		{"proportional split", 5000, []int64{3000, 7000}, []int64{1500, 3500}},
		{"full settlement", 10000, []int64{3000, 7000}, []int64{3000, 7000}},
		{"single invoice", 2500, []int64{7000}, []int64{2500}},
		{"rounding remainder absorbed", 100, []int64{99, 98, 103}, []int64{33, 32, 35}},
		{"remainder capped by balance", 6, []int64{3, 3, 1}, []int64{2, 3, 1}},
		{"zero amount", 0, []int64{3000}, []int64{0}},
		{"no debt", 1000, []int64{}, []int64{}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := Allocate(tc.amount, tc.balances)
			require.Equal(t, tc.want, got)

			var sum int64
			for i, a := range got {
				sum += a
				require.LessOrEqual(t, a, tc.balances[i], "allocation exceeds balance at %d", i)
			}
			if len(tc.balances) > 0 && tc.amount > 0 {
				require.Equal(t, tc.amount, sum, "allocations must sum to the amount")
			}
		})
	}
}

func TestAllocateNeverExceedsBalances(t *testing.T) {
	balanceSets := [][]int64{
		{1, 1, 1}, {5, 3}, {100, 1}, {33, 66, 1}, {7, 7, 7, 7},
	}
	for _, balances := range balanceSets {
		var debt int64
		for _, b := range balances {
			debt += b
		}
		for amount := int64(1); amount <= debt; amount++ {
			got := Allocate(amount, balances)
			var sum int64
			for i, a := range got {
				require.LessOrEqual(t, a, balances[i])
				require.GreaterOrEqual(t, a, int64(0))
				sum += a
			}
			require.Equal(t, amount, sum)
		}
	}
}

func TestApplyPaymentLifecycle(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, f.addAcademy(t, "Art", 10000))

	invoice, err := f.invoices.CreateInvoice(InvoiceInput{StudentID: f.student.ID, SemesterID: f.semester.ID})
	require.NoError(t, err)

	payments := NewPaymentService(f.db, nil)

	_, err = payments.ApplyToInvoice(invoice.ID, 4000, models.PaymentMethodCash, "")
	require.NoError(t, err)

	reloaded, err := f.invoices.Invoice(invoice.ID)
	require.NoError(t, err)
	require.Equal(t, int64(4000), ToMinor(reloaded.PaidAmount))
	require.Equal(t, int64(6000), ToMinor(reloaded.Balance))
	require.Equal(t, models.InvoiceStatusPartial, reloaded.Status)

	_, err = payments.ApplyToInvoice(invoice.ID, 6000, models.PaymentMethodZelle, "")
	require.NoError(t, err)

	reloaded, err = f.invoices.Invoice(invoice.ID)
	require.NoError(t, err)
	require.Equal(t, int64(10000), ToMinor(reloaded.PaidAmount))
	require.Equal(t, int64(0), ToMinor(reloaded.Balance))
	require.Equal(t, models.InvoiceStatusPaid, reloaded.Status)
	require.Len(t, reloaded.Payments, 2)
}

func TestApplyPaymentGuards(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, f.addAcademy(t, "Art", 10000))

	invoice, err := f.invoices.CreateInvoice(InvoiceInput{StudentID: f.student.ID, SemesterID: f.semester.ID})
	require.NoError(t, err)

	payments := NewPaymentService(f.db, nil)

	_, err = payments.ApplyToInvoice(invoice.ID, 0, models.PaymentMethodCash, "")
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = payments.ApplyToInvoice(invoice.ID, 1000, "", "")
	require.ErrorIs(t, err, ErrInvalidMethod)

	_, err = payments.ApplyToInvoice(invoice.ID, 10001, models.PaymentMethodCash, "")
	require.ErrorIs(t, err, ErrAmountExceedsBalance)

	_, err = payments.ApplyToInvoice(999, 1000, models.PaymentMethodCash, "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestApplyToOpenInvoicesSplitsProportionally(t *testing.T) {
	f := newFixture(t)

	// Two open invoices with balances 30.00 and 70.00.
	for _, totalMinor := range []int64{3000, 7000} {
		inv := models.Invoice{
			StudentID:  f.student.ID,
			SemesterID: f.semester.ID,
			Subtotal:   ToMajor(totalMinor),
			Total:      ToMajor(totalMinor),
			Balance:    ToMajor(totalMinor),
			Status:     models.InvoiceStatusUnpaid,
		}
		require.NoError(t, f.db.Create(&inv).Error)
	}

	payments := NewPaymentService(f.db, nil)
	created, err := payments.ApplyToOpenInvoices(f.student.ID, 5000, models.PaymentMethodTransfer, "")
	require.NoError(t, err)
	require.Len(t, created, 2)
	require.Equal(t, int64(1500), ToMinor(created[0].Amount))
	require.Equal(t, int64(3500), ToMinor(created[1].Amount))

	var invoices []models.Invoice
	require.NoError(t, f.db.Order("id ASC").Find(&invoices).Error)
	require.Equal(t, int64(1500), ToMinor(invoices[0].PaidAmount))
	require.Equal(t, int64(3500), ToMinor(invoices[1].PaidAmount))
	require.Equal(t, models.InvoiceStatusPartial, invoices[0].Status)
	require.Equal(t, models.InvoiceStatusPartial, invoices[1].Status)
}

func TestApplyToOpenInvoicesGuards(t *testing.T) {
	f := newFixture(t)

	payments := NewPaymentService(f.db, nil)

	_, err := payments.ApplyToOpenInvoices(f.student.ID, 5000, models.PaymentMethodCash, "")
	require.ErrorIs(t, err, ErrNothingOutstanding)

	inv := models.Invoice{
		StudentID:  f.student.ID,
		SemesterID: f.semester.ID,
		Subtotal:   ToMajor(3000),
		Total:      ToMajor(3000),
		Balance:    ToMajor(3000),
		Status:     models.InvoiceStatusUnpaid,
	}
	require.NoError(t, f.db.Create(&inv).Error)

	_, err = payments.ApplyToOpenInvoices(f.student.ID, 3001, models.PaymentMethodCash, "")
	require.ErrorIs(t, err, ErrExceedsTotalDebt)
}

func TestRefundWalksStatusBack(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, f.addAcademy(t, "Art", 10000))

	invoice, err := f.invoices.CreateInvoice(InvoiceInput{StudentID: f.student.ID, SemesterID: f.semester.ID})
	require.NoError(t, err)

	payments := NewPaymentService(f.db, nil)
	_, err = payments.ApplyToInvoice(invoice.ID, 10000, models.PaymentMethodCash, "")
	require.NoError(t, err)

	refund, err := payments.Refund(invoice.ID, 2500, "billing correction")
	require.NoError(t, err)
	require.Equal(t, int64(-2500), ToMinor(refund.Amount))
	require.Equal(t, "refund", refund.Method)

	reloaded, err := f.invoices.Invoice(invoice.ID)
	require.NoError(t, err)
	require.Equal(t, int64(7500), ToMinor(reloaded.PaidAmount))
	require.Equal(t, int64(2500), ToMinor(reloaded.Balance))
	require.Equal(t, models.InvoiceStatusPartial, reloaded.Status)

	_, err = payments.Refund(invoice.ID, 8000, "")
	require.ErrorIs(t, err, ErrRefundExceedsPaid)
}

func TestDeletePaymentReversesPaidAmount(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, f.addAcademy(t, "Art", 10000))

	invoice, err := f.invoices.CreateInvoice(InvoiceInput{StudentID: f.student.ID, SemesterID: f.semester.ID})
	require.NoError(t, err)

	payments := NewPaymentService(f.db, nil)
	payment, err := payments.ApplyToInvoice(invoice.ID, 4000, models.PaymentMethodCash, "")
	require.NoError(t, err)

	require.NoError(t, payments.DeletePayment(payment.ID))

	reloaded, err := f.invoices.Invoice(invoice.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), ToMinor(reloaded.PaidAmount))
	require.Equal(t, int64(10000), ToMinor(reloaded.Balance))
	require.Equal(t, models.InvoiceStatusUnpaid, reloaded.Status)
	require.Empty(t, reloaded.Payments)

	require.ErrorIs(t, payments.DeletePayment(payment.ID), ErrNotFound)
}

type recordingNotifier struct {
	mu       sync.Mutex
	invoices []uint
}

func (r *recordingNotifier) InvoicePaid(invoice *models.Invoice, payment *models.Payment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invoices = append(r.invoices, invoice.ID)
}

func TestReceiptNotifiedOnlyWhenFullyPaid(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, f.addAcademy(t, "Art", 10000))

	invoice, err := f.invoices.CreateInvoice(InvoiceInput{StudentID: f.student.ID, SemesterID: f.semester.ID})
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	payments := NewPaymentService(f.db, notifier)

	_, err = payments.ApplyToInvoice(invoice.ID, 4000, models.PaymentMethodCash, "")
	require.NoError(t, err)
	require.Empty(t, notifier.invoices)

	_, err = payments.ApplyToInvoice(invoice.ID, 6000, models.PaymentMethodCash, "")
	require.NoError(t, err)
	require.Equal(t, []uint{invoice.ID}, notifier.invoices)
}
