package billing

import (
	"strings"

	"academias_go/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// defaultPrices backs the resolver when the semester's academy list does not
// carry a price for a name. Minor units.
var defaultPrices = map[string]int64{
	"art":      10000,
	"music":    12000,
	"ballet":   9000,
	"robotics": 15000,
	"theater":  8500,
	"chess":    7500,
	"soccer":   8000,
}

// NormalizeName lowercases a free-text academy or level name and collapses
// internal whitespace. All name-keyed lookups go through it.
func NormalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// IsPlaceholderName reports whether a selection slot holds the "no academy"
// marker used by the legacy two-slot encoding.
func IsPlaceholderName(s string) bool {
	n := NormalizeName(s)
	return n == "" || n == "n/a" || n == "na" || n == "-" || n == "ninguna"
}

// Resolver maps free-text academy names to a unit price in minor units. It is
// tolerant of naming variance: exact match on the normalized name, then a
// bidirectional substring match, then the hard-coded default table. An
// unresolved name prices at zero and is logged, never an error.
type Resolver struct {
	prices map[string]int64
}

// NewResolver builds a resolver from a name -> minor-unit price table. Keys
// are normalized on intake.
func NewResolver(prices map[string]int64) *Resolver {
	normalized := make(map[string]int64, len(prices))
	for name, price := range prices {
		if key := NormalizeName(name); key != "" {
			normalized[key] = price
		}
	}
	return &Resolver{prices: normalized}
}

// Resolve returns the unit price for an academy (optionally a specific
// level) in minor units. Placeholder names always resolve to zero.
func (r *Resolver) Resolve(academy, level string) int64 {
	if IsPlaceholderName(academy) {
		return 0
	}
	name := NormalizeName(academy)

	// A level can carry its own price entry ("ballet intermedio").
	if lvl := NormalizeName(level); lvl != "" {
		if price, ok := r.prices[name+" "+lvl]; ok {
			return price
		}
	}
	if price, ok := r.prices[name]; ok {
		return price
	}
	if price, ok := substringMatch(r.prices, name); ok {
		return price
	}
	if price, ok := defaultPrices[name]; ok {
		return price
	}
	if price, ok := substringMatch(defaultPrices, name); ok {
		return price
	}

	logrus.WithFields(logrus.Fields{
		"academy": academy,
		"level":   level,
	}).Warn("Unit price not resolved, billing at zero")
	return 0
}

// ResolverForSemester builds a resolver from the semester's active academy
// list.
func ResolverForSemester(db *gorm.DB, semesterID uint) (*Resolver, error) {
	var academies []models.Academy
	if err := db.Where("semester_id = ? AND active = ?", semesterID, true).
		Find(&academies).Error; err != nil {
		return nil, err
	}
	prices := make(map[string]int64, len(academies))
	for _, a := range academies {
		prices[a.Name] = ToMinor(a.UnitPrice)
	}
	return NewResolver(prices), nil
}

// substringMatch prefers the longest matching key, ties broken
// lexicographically, so short names resolve the same way on every call.
func substringMatch(table map[string]int64, name string) (int64, bool) {
	var best string
	var price int64
	found := false
	for key, p := range table {
		if !strings.Contains(key, name) && !strings.Contains(name, key) {
			continue
		}
		if !found || len(key) > len(best) || (len(key) == len(best) && key < best) {
			best, price, found = key, p, true
		}
	}
	return price, found
}
