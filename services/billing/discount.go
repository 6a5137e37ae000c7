package billing

import "strings"

// Discount is either a percentage of the pre-discount subtotal or a fixed
// minor-unit amount. Exactly one of the two fields is set.
type Discount struct {
	Code       string
	Percent    int64
	FixedMinor int64
	Note       string
}

// discountCodes is the static code table. Codes are matched case-insensitively.
var discountCodes = map[string]Discount{
	"BECA10":     {Code: "BECA10", Percent: 10, Note: "10% scholarship"},
	"BECA25":     {Code: "BECA25", Percent: 25, Note: "25% scholarship"},
	"HERMANOS":   {Code: "HERMANOS", FixedMinor: 2500, Note: "Sibling discount"},
	"EXONERADO":  {Code: "EXONERADO", Percent: 100, Note: "Full exoneration"},
	"FUNDADORES": {Code: "FUNDADORES", FixedMinor: 5000, Note: "Founders program"},
}

// LookupDiscount resolves a discount code. Unknown codes return false.
func LookupDiscount(code string) (Discount, bool) {
	d, ok := discountCodes[NormalizeCode(code)]
	return d, ok
}

// NormalizeCode uppercases a discount code and strips whitespace for lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.Join(strings.Fields(code), ""))
}

// AmountFor computes the discount in minor units against a subtotal.
// Percentage discounts apply to the pre-discount subtotal; fixed discounts
// are capped at the subtotal so the total never goes negative.
func (d Discount) AmountFor(subtotalMinor int64) int64 {
	if subtotalMinor <= 0 {
		return 0
	}
	amount := d.FixedMinor
	if d.Percent > 0 {
		amount = subtotalMinor * d.Percent / 100
	}
	if amount > subtotalMinor {
		amount = subtotalMinor
	}
	if amount < 0 {
		amount = 0
	}
	return amount
}
