package billing

import "academias_go/models"

// BalanceOf returns the outstanding balance in minor units, clamped at zero.
// Overpayment must never surface as a negative balance.
func BalanceOf(total, paid int64) int64 {
	if paid >= total {
		return 0
	}
	return total - paid
}

// DeriveStatus is the status state machine. It is a pure function of
// (total, paid, exonerated): an invoice discounted to zero and flagged is
// exonerated; otherwise paid iff the balance is zero, partial iff some but
// not all of the total is paid, unpaid otherwise.
func DeriveStatus(total, paid int64, exonerated bool) string {
	if exonerated && total == 0 {
		return models.InvoiceStatusExonerated
	}
	switch {
	case BalanceOf(total, paid) == 0:
		return models.InvoiceStatusPaid
	case paid > 0 && paid < total:
		return models.InvoiceStatusPartial
	default:
		return models.InvoiceStatusUnpaid
	}
}
