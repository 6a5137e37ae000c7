package utils

import (
	"strings"

	"academias_go/models"
)

// IsValidPaymentMethod checks if a payment method is accepted
func IsValidPaymentMethod(method string) bool {
	validMethods := []string{
		models.PaymentMethodCash,
		models.PaymentMethodZelle,
		models.PaymentMethodTransfer,
		models.PaymentMethodCard,
		models.PaymentMethodOther,
	}
	for _, validMethod := range validMethods {
		if method == validMethod {
			return true
		}
	}
	return false
}

// IsValidEnrollmentStatus checks if an enrollment status is valid
func IsValidEnrollmentStatus(status string) bool {
	validStatuses := []string{models.EnrollmentStatusActive, models.EnrollmentStatusWithdrawn}
	for _, validStatus := range validStatuses {
		if status == validStatus {
			return true
		}
	}
	return false
}

// Slugify lowercases a name and replaces separator runs with a single hyphen
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// SanitizeString removes dangerous characters from string
func SanitizeString(input string) string {
	// Remove null bytes and control characters
	input = strings.ReplaceAll(input, "\x00", "")

	// Trim whitespace
	input = strings.TrimSpace(input)

	return input
}
