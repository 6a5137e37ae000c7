package billing

// LineItem is a billable line before it is persisted as an invoice item.
// Amounts are minor units.
type LineItem struct {
	Description    string
	Academy        string
	Level          string
	UnitPriceMinor int64
	Quantity       int
	AmountMinor    int64
}

// CoverageKey identifies an academy+level pair across invoices. An academy
// covered by a paid or exonerated invoice is never re-billed, so the key must
// survive naming variance between registrations.
func CoverageKey(academy, level string) string {
	return NormalizeName(academy) + "|" + NormalizeName(level)
}

// BuildLines turns a student's selections into billable line items at the
// resolved unit price, quantity 1, skipping any selection whose coverage key
// is already covered by a prior paid/exonerated invoice.
func BuildLines(selections []Selection, covered map[string]bool, resolver *Resolver) []LineItem {
	lines := make([]LineItem, 0, len(selections))
	for _, sel := range selections {
		if IsPlaceholderName(sel.Academy) {
			continue
		}
		if covered[CoverageKey(sel.Academy, sel.Level)] {
			continue
		}
		price := resolver.Resolve(sel.Academy, sel.Level)
		desc := sel.Academy
		if sel.Level != "" {
			desc = sel.Academy + " - " + sel.Level
		}
		lines = append(lines, LineItem{
			Description:    desc,
			Academy:        sel.Academy,
			Level:          sel.Level,
			UnitPriceMinor: price,
			Quantity:       1,
			AmountMinor:    price,
		})
	}
	return lines
}
