package billing

import (
	"testing"

	"academias_go/models"
)

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name       string
		total      int64
		paid       int64
		exonerated bool
		want       string
	}{
		{"nothing paid", 10000, 0, false, models.InvoiceStatusUnpaid},
		{"partially paid", 10000, 2500, false, models.InvoiceStatusPartial},
		{"fully paid", 10000, 10000, false, models.InvoiceStatusPaid},
		{"overpaid clamps to paid", 10000, 12000, false, models.InvoiceStatusPaid},
		{"zero total without exoneration", 0, 0, false, models.InvoiceStatusPaid},
		{"exonerated zero total", 0, 0, true, models.InvoiceStatusExonerated},
		{"exonerated flag ignored with balance", 10000, 0, true, models.InvoiceStatusUnpaid},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveStatus(tc.total, tc.paid, tc.exonerated); got != tc.want {
				t.Errorf("DeriveStatus(%d, %d, %v) = %s, want %s",
					tc.total, tc.paid, tc.exonerated, got, tc.want)
			}
		})
	}
}

func TestBalanceOfNeverNegative(t *testing.T) {
	if got := BalanceOf(10000, 12000); got != 0 {
		t.Errorf("BalanceOf(10000, 12000) = %d, want 0", got)
	}
	if got := BalanceOf(10000, 2500); got != 7500 {
		t.Errorf("BalanceOf(10000, 2500) = %d, want 7500", got)
	}
}
