package billing

import "testing"

func TestLookupDiscountNormalizesCode(t *testing.T) {
	for _, code := range []string{"BECA10", "beca10", " beca 10 "} {
		if _, ok := LookupDiscount(code); !ok {
			t.Errorf("expected %q to resolve", code)
		}
	}
	if _, ok := LookupDiscount("NOPE"); ok {
		t.Error("unknown code must not resolve")
	}
}

func TestDiscountAmounts(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		subtotal int64
		want     int64
	}{
		{"ten percent", "BECA10", 20000, 2000},
		{"twenty five percent", "BECA25", 20000, 5000},
		{"fixed amount", "HERMANOS", 20000, 2500},
		{"fixed capped at subtotal", "HERMANOS", 2000, 2000},
		{"full exoneration", "EXONERADO", 20000, 20000},
		{"zero subtotal", "BECA10", 0, 0},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			d, ok := LookupDiscount(tc.code)
			if !ok {
				t.Fatalf("code %q not found", tc.code)
			}
			if got := d.AmountFor(tc.subtotal); got != tc.want {
				t.Errorf("AmountFor(%d) = %d, want %d", tc.subtotal, got, tc.want)
			}
		})
	}
}
